package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicateReference indicates an entry with the provided external
	// reference already exists; callers should treat the operation as
	// idempotent and use the entry returned alongside this error.
	ErrDuplicateReference = errors.New("duplicate external reference")

	// ErrNotFound occurs when no entry matches the lookup.
	ErrNotFound = errors.New("ledger entry not found")

	// ErrTerminalState indicates the entry already reached a terminal status
	// and cannot transition again.
	ErrTerminalState = errors.New("ledger entry already finalized")
)

// Kind classifies the balance-affecting event an entry records.
type Kind string

const (
	// KindFunding is a wallet credit from an inbound bank transfer.
	KindFunding Kind = "funding"
	// KindAirtime is a wallet debit paying for an airtime purchase.
	KindAirtime Kind = "airtime"
	// KindData is a wallet debit paying for a data bundle purchase.
	KindData Kind = "data"
)

// Status tracks an entry through its state machine. Transitions only move
// forward; completed, failed and cancelled are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status permits no further transition.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Entry is the durable record of one balance-affecting event. Amount is an
// unsigned magnitude in minor currency units; direction is implied by Kind
// (funding credits the wallet, airtime/data debit it).
type Entry struct {
	ID                string
	WalletID          string
	Kind              Kind
	Amount            int64
	ExternalReference string
	VendorReference   string
	Status            Status
	Profit            int64
	Metadata          map[string]any
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Finalization carries the terminal outcome applied to a pending entry.
type Finalization struct {
	Status          Status
	VendorReference string
	Profit          int64
	Metadata        map[string]any
}

// Store defines the contract implemented by ledger backends (e.g. Postgres).
//
// Every Create variant must enforce uniqueness of ExternalReference: a
// conflicting insert returns the existing entry together with
// ErrDuplicateReference so callers can collapse duplicate deliveries into a
// no-op rather than an error.
//
// The posting operations couple the entry write with its balance effect in
// one atomic step. A funding credit without its entry, or an entry without
// its credit, must be impossible: either would strand money, because the
// entry is the idempotency anchor that makes the sender's retry a no-op.
// The same holds for the purchase debit and the compensating refund.
type Store interface {
	// Create inserts an entry with no balance effect (e.g. a rejected
	// funding notification recorded for history).
	Create(ctx context.Context, entry Entry) (Entry, error)

	// CreateCredited inserts the entry and credits entry.Amount to the
	// wallet as one atomic step, returning the new balance.
	CreateCredited(ctx context.Context, entry Entry) (Entry, int64, error)

	// CreateDebited debits entry.Amount from the wallet, enforcing the
	// floor-at-zero rule, and inserts the entry as the same atomic step.
	// Returns wallet.ErrInsufficientFunds when the balance is short; in
	// that case nothing is recorded.
	CreateDebited(ctx context.Context, entry Entry) (Entry, int64, error)

	FindByID(ctx context.Context, id string) (Entry, error)
	FindByExternalReference(ctx context.Context, reference string) (Entry, error)

	// Finalize applies a terminal outcome to a pending entry with no
	// balance effect.
	Finalize(ctx context.Context, id string, fin Finalization) (Entry, error)

	// FinalizeRefunded finalizes the entry and credits entry.Amount back to
	// the wallet atomically, returning the new balance. On error the entry
	// keeps its prior status and no credit applies.
	FinalizeRefunded(ctx context.Context, id string, fin Finalization) (Entry, int64, error)

	ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]Entry, error)
}
