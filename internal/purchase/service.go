package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/furacompany/kirkidata-backend-sub000/internal/catalog"
	"github.com/furacompany/kirkidata-backend-sub000/internal/ledger"
	"github.com/furacompany/kirkidata-backend-sub000/internal/notification"
	"github.com/furacompany/kirkidata-backend-sub000/internal/vtu"
	"github.com/furacompany/kirkidata-backend-sub000/internal/wallet"
)

// ErrNotOwner indicates the caller does not own the wallet being charged.
var ErrNotOwner = errors.New("not owner of wallet")

// errBadInput marks request validation failures so the handler can report
// them as the caller's fault.
var errBadInput = errors.New("invalid purchase input")

// CompensationError reports a failed purchase whose refund could not be
// applied: the wallet stays debited with nothing to show for it, and the
// entry stays open, until an operator intervenes. It is never retried
// automatically.
type CompensationError struct {
	EntryID  string
	WalletID string
	Amount   int64
	Err      error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("refund of %d to wallet %s failed: %v", e.Amount, e.WalletID, e.Err)
}

func (e *CompensationError) Unwrap() error { return e.Err }

// Service settles airtime and data purchases: debit first, then fulfill
// through the vendor, then reconcile the ledger with the vendor's outcome.
type Service struct {
	wallets *wallet.Service
	store   ledger.Store
	catalog catalog.Repository
	gateway vtu.Gateway
	alerts  notification.Notifier
	logger  *slog.Logger
}

// NewService constructs the settlement orchestrator.
func NewService(wallets *wallet.Service, store ledger.Store, products catalog.Repository, gateway vtu.Gateway, alerts notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		wallets: wallets,
		store:   store,
		catalog: products,
		gateway: gateway,
		alerts:  alerts,
		logger:  logger,
	}
}

// AirtimeInput captures a requested airtime top-up.
type AirtimeInput struct {
	WalletID        string
	NetworkCode     string
	PhoneNumber     string
	Amount          int64
	RequestorUserID string
}

// DataInput captures a requested data bundle purchase.
type DataInput struct {
	WalletID        string
	PlanID          string
	PhoneNumber     string
	RequestorUserID string
}

// Result is the settlement outcome returned to the caller. When Status is
// failed, Refunded confirms the compensating credit was applied.
type Result struct {
	EntryID  string
	Status   ledger.Status
	Amount   int64
	Profit   int64
	Refunded bool
	Message  string
}

// Airtime settles an airtime purchase. The user pays face value plus the
// network's fixed markup.
func (s *Service) Airtime(ctx context.Context, input AirtimeInput) (Result, error) {
	if input.Amount <= 0 {
		return Result{}, fmt.Errorf("%w: amount must be positive", errBadInput)
	}
	if input.PhoneNumber == "" {
		return Result{}, fmt.Errorf("%w: phone number is required", errBadInput)
	}

	network, err := s.catalog.Network(ctx, input.NetworkCode)
	if err != nil {
		return Result{}, err
	}

	cost := input.Amount + network.AirtimeMarkup

	return s.settle(ctx, settlement{
		walletID:  input.WalletID,
		requestor: input.RequestorUserID,
		kind:      ledger.KindAirtime,
		cost:      cost,
		request: vtu.PurchaseRequest{
			NetworkCode: network.Code,
			PhoneNumber: input.PhoneNumber,
			Amount:      input.Amount,
		},
		call: s.gateway.PurchaseAirtime,
		metadata: map[string]any{
			"network": network.Code,
			"phone":   input.PhoneNumber,
			"face":    input.Amount,
		},
	})
}

// Data settles a data bundle purchase at the plan's listed price.
func (s *Service) Data(ctx context.Context, input DataInput) (Result, error) {
	if input.PhoneNumber == "" {
		return Result{}, fmt.Errorf("%w: phone number is required", errBadInput)
	}

	plan, err := s.catalog.DataPlan(ctx, input.PlanID)
	if err != nil {
		return Result{}, err
	}

	return s.settle(ctx, settlement{
		walletID:  input.WalletID,
		requestor: input.RequestorUserID,
		kind:      ledger.KindData,
		cost:      plan.Price,
		request: vtu.PurchaseRequest{
			NetworkCode: plan.NetworkCode,
			PlanCode:    plan.ID,
			PhoneNumber: input.PhoneNumber,
		},
		call: s.gateway.PurchaseData,
		metadata: map[string]any{
			"network": plan.NetworkCode,
			"plan":    plan.ID,
			"phone":   input.PhoneNumber,
		},
	})
}

type settlement struct {
	walletID  string
	requestor string
	kind      ledger.Kind
	cost      int64
	request   vtu.PurchaseRequest
	call      func(context.Context, vtu.PurchaseRequest) (vtu.PurchaseResult, error)
	metadata  map[string]any
}

// settle runs the debit-fulfill-reconcile sequence. Once the debit has
// applied, the operation always runs to a terminal outcome: abandoning
// mid-flight would leave the debit's fate ambiguous.
func (s *Service) settle(ctx context.Context, st settlement) (Result, error) {
	w, err := s.wallets.Get(ctx, st.walletID)
	if err != nil {
		return Result{}, err
	}
	if st.requestor != "" && w.OwnerID != st.requestor {
		return Result{}, ErrNotOwner
	}

	reference := uuid.NewString()
	st.request.Reference = reference

	// Funds are provisionally committed before the vendor call; the debit
	// and the pending entry are one atomic posting, so neither can exist
	// without the other.
	entry, _, err := s.store.CreateDebited(ctx, ledger.Entry{
		WalletID:          st.walletID,
		Kind:              st.kind,
		Amount:            st.cost,
		ExternalReference: reference,
		Status:            ledger.StatusPending,
		Metadata:          st.metadata,
	})
	if err != nil {
		return Result{}, err
	}

	vendorRes, vendorErr := st.call(ctx, st.request)
	if vendorErr == nil {
		return s.complete(ctx, entry, st.cost, vendorRes)
	}
	return s.fail(ctx, entry, st.cost, vendorRes, vendorErr)
}

func (s *Service) complete(ctx context.Context, entry ledger.Entry, cost int64, res vtu.PurchaseResult) (Result, error) {
	profit := cost - clampCost(res.Cost, cost)

	if _, err := s.store.Finalize(ctx, entry.ID, ledger.Finalization{
		Status:          ledger.StatusCompleted,
		VendorReference: res.Reference,
		Profit:          profit,
		Metadata:        res.Raw,
	}); err != nil {
		// The user was charged and fulfilled; only the bookkeeping lagged.
		s.logger.Error("finalize completed entry",
			"entry_id", entry.ID, "vendor_reference", res.Reference, "error", err)
	}

	s.logger.Info("purchase settled",
		"entry_id", entry.ID, "kind", entry.Kind, "amount", cost, "profit", profit)

	return Result{
		EntryID: entry.ID,
		Status:  ledger.StatusCompleted,
		Amount:  cost,
		Profit:  profit,
		Message: "purchase successful",
	}, nil
}

func (s *Service) fail(ctx context.Context, entry ledger.Entry, cost int64, res vtu.PurchaseResult, vendorErr error) (Result, error) {
	message := "vendor unreachable"
	if errors.Is(vendorErr, vtu.ErrVendorFailure) && res.Message != "" {
		message = res.Message
	}

	// Mandatory compensation, even on timeouts with unknown vendor-side
	// outcome: the occasional double fulfillment upstream is accepted over
	// ever leaving the user debited for nothing. The terminal status and the
	// refund commit together; a failure leaves the entry pending with the
	// funds still held, never failed-but-unrefunded.
	if _, _, err := s.store.FinalizeRefunded(ctx, entry.ID, ledger.Finalization{
		Status:          ledger.StatusFailed,
		VendorReference: res.Reference,
		Metadata:        res.Raw,
	}); err != nil {
		return Result{
			EntryID: entry.ID,
			Status:  entry.Status,
			Amount:  cost,
			Message: message,
		}, s.compensationFailure(ctx, entry.ID, entry.WalletID, cost, entry.ExternalReference, err)
	}

	s.logger.Warn("purchase failed, funds refunded",
		"entry_id", entry.ID, "kind", entry.Kind, "amount", cost, "vendor_error", vendorErr)

	return Result{
		EntryID:  entry.ID,
		Status:   ledger.StatusFailed,
		Amount:   cost,
		Refunded: true,
		Message:  fmt.Sprintf("purchase failed, funds refunded: %s", message),
	}, nil
}

func (s *Service) compensationFailure(ctx context.Context, entryID, walletID string, amount int64, reference string, cause error) error {
	cErr := &CompensationError{EntryID: entryID, WalletID: walletID, Amount: amount, Err: cause}

	s.logger.Error("compensating credit failed",
		"entry_id", entryID, "wallet_id", walletID, "amount", amount, "reference", reference, "error", cause)

	if s.alerts != nil {
		if err := s.alerts.Send(ctx, notification.Message{
			Kind:      notification.KindCompensationFailure,
			Reference: reference,
			WalletID:  walletID,
			Amount:    amount,
			Body:      cErr.Error(),
		}); err != nil {
			s.logger.Error("send compensation alert", "error", err)
		}
	}

	return cErr
}

// clampCost bounds the vendor-reported charge before it feeds the profit
// calculation; the vendor response is untrusted input.
func clampCost(reported, cost int64) int64 {
	if reported < 0 {
		return 0
	}
	if reported > cost {
		return cost
	}
	return reported
}
