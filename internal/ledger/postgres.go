package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/furacompany/kirkidata-backend-sub000/internal/wallet"
)

const uniqueViolation = "23505"

// PostgresStore persists ledger entries in PostgreSQL. The unique index on
// external_reference is what makes the Create variants safe under concurrent
// duplicate deliveries, and the posting operations wrap the entry write and
// the wallet balance update in a single transaction.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const entryColumns = `id, wallet_id, kind, amount, external_reference, vendor_reference, status, profit, metadata, created_at, updated_at`

// execQuerier is satisfied by both *pgxpool.Pool and pgx.Tx so the insert
// path can run inside or outside a transaction.
type execQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Create inserts a new entry. A uniqueness violation on external_reference is
// converted into ErrDuplicateReference with the already-stored entry attached.
func (s *PostgresStore) Create(ctx context.Context, entry Entry) (Entry, error) {
	entry, err := s.insert(ctx, s.db, entry)
	if err != nil {
		if errors.Is(err, ErrDuplicateReference) {
			return s.existingForReference(ctx, entry.ExternalReference)
		}
		return Entry{}, err
	}
	return entry, nil
}

// CreateCredited inserts the entry and applies the credit in one transaction:
// a crash between the two cannot leave a completed entry without its money.
func (s *PostgresStore) CreateCredited(ctx context.Context, entry Entry) (Entry, int64, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Entry{}, 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	entry, err = s.insert(ctx, tx, entry)
	if err != nil {
		if errors.Is(err, ErrDuplicateReference) {
			existing, findErr := s.existingForReference(ctx, entry.ExternalReference)
			return existing, 0, findErr
		}
		return Entry{}, 0, err
	}

	var balance int64
	err = tx.QueryRow(ctx, `UPDATE wallets SET balance = balance + $2
        WHERE id = $1 RETURNING balance`, entry.WalletID, entry.Amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, 0, wallet.ErrNotFound
		}
		return Entry{}, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, 0, err
	}
	return entry, balance, nil
}

// CreateDebited applies the floor-at-zero debit and inserts the pending entry
// in one transaction. The balance guard sits in the UPDATE's WHERE clause, so
// concurrent purchases can never jointly overdraw the wallet.
func (s *PostgresStore) CreateDebited(ctx context.Context, entry Entry) (Entry, int64, error) {
	walletID, err := uuid.Parse(entry.WalletID)
	if err != nil {
		return Entry{}, 0, wallet.ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Entry{}, 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var balance int64
	err = tx.QueryRow(ctx, `UPDATE wallets SET balance = balance - $2
        WHERE id = $1 AND balance >= $2 RETURNING balance`, walletID, entry.Amount).Scan(&balance)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, 0, err
		}
		// No row updated: distinguish a missing wallet from a short balance.
		var exists bool
		if scanErr := tx.QueryRow(ctx, `SELECT true FROM wallets WHERE id = $1`, walletID).Scan(&exists); scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return Entry{}, 0, wallet.ErrNotFound
			}
			return Entry{}, 0, scanErr
		}
		return Entry{}, 0, wallet.ErrInsufficientFunds
	}

	entry, err = s.insert(ctx, tx, entry)
	if err != nil {
		if errors.Is(err, ErrDuplicateReference) {
			existing, findErr := s.existingForReference(ctx, entry.ExternalReference)
			return existing, 0, findErr
		}
		return Entry{}, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, 0, err
	}
	return entry, balance, nil
}

// FindByID fetches a single entry by identifier.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (Entry, error) {
	entryID, err := uuid.Parse(id)
	if err != nil {
		return Entry{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id = $1`, entryID)
	return scanEntry(row)
}

// FindByExternalReference fetches a single entry by its idempotency key.
func (s *PostgresStore) FindByExternalReference(ctx context.Context, reference string) (Entry, error) {
	row := s.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE external_reference = $1`, reference)
	return scanEntry(row)
}

// Finalize applies a terminal outcome to a non-terminal entry. The status
// guard lives in the WHERE clause so two racing finalizations cannot both
// apply.
func (s *PostgresStore) Finalize(ctx context.Context, id string, fin Finalization) (Entry, error) {
	return s.finalize(ctx, s.db, id, fin)
}

// FinalizeRefunded finalizes the entry and restores its amount to the wallet
// in one transaction, so a failed purchase and its compensating credit commit
// or roll back together.
func (s *PostgresStore) FinalizeRefunded(ctx context.Context, id string, fin Finalization) (Entry, int64, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Entry{}, 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	entry, err := s.finalize(ctx, tx, id, fin)
	if err != nil {
		return entry, 0, err
	}

	var balance int64
	err = tx.QueryRow(ctx, `UPDATE wallets SET balance = balance + $2
        WHERE id = $1 RETURNING balance`, entry.WalletID, entry.Amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, 0, wallet.ErrNotFound
		}
		return Entry{}, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, 0, err
	}
	return entry, balance, nil
}

// ListByWallet returns a wallet's entries, newest first.
func (s *PostgresStore) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]Entry, error) {
	wID, err := uuid.Parse(walletID)
	if err != nil {
		return nil, ErrNotFound
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries
        WHERE wallet_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, wID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// insert writes the entry through q, which may be the pool or an open
// transaction. A unique-index conflict surfaces as ErrDuplicateReference with
// the submitted (not stored) entry; callers re-read the stored row outside
// any doomed transaction.
func (s *PostgresStore) insert(ctx context.Context, q execQuerier, entry Entry) (Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	meta, err := marshalMetadata(entry.Metadata)
	if err != nil {
		return entry, err
	}

	id, err := uuid.Parse(entry.ID)
	if err != nil {
		return entry, fmt.Errorf("parse entry id: %w", err)
	}
	walletID, err := uuid.Parse(entry.WalletID)
	if err != nil {
		return entry, fmt.Errorf("parse wallet id: %w", err)
	}

	_, err = q.Exec(ctx, `INSERT INTO ledger_entries
        (id, wallet_id, kind, amount, external_reference, vendor_reference, status, profit, metadata, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, walletID, string(entry.Kind), entry.Amount, entry.ExternalReference,
		entry.VendorReference, string(entry.Status), entry.Profit, meta,
		entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return entry, ErrDuplicateReference
		}
		return entry, err
	}
	return entry, nil
}

func (s *PostgresStore) existingForReference(ctx context.Context, reference string) (Entry, error) {
	existing, err := s.FindByExternalReference(ctx, reference)
	if err != nil {
		return Entry{}, err
	}
	return existing, ErrDuplicateReference
}

func (s *PostgresStore) finalize(ctx context.Context, q execQuerier, id string, fin Finalization) (Entry, error) {
	if !fin.Status.Terminal() {
		return Entry{}, fmt.Errorf("finalize requires a terminal status, got %q", fin.Status)
	}
	entryID, err := uuid.Parse(id)
	if err != nil {
		return Entry{}, ErrNotFound
	}

	meta, err := marshalMetadata(fin.Metadata)
	if err != nil {
		return Entry{}, err
	}

	row := q.QueryRow(ctx, `UPDATE ledger_entries
        SET status = $2, vendor_reference = $3, profit = $4,
            metadata = COALESCE($5, metadata), updated_at = $6
        WHERE id = $1 AND status NOT IN ('completed', 'failed', 'cancelled')
        RETURNING `+entryColumns,
		entryID, string(fin.Status), fin.VendorReference, fin.Profit, meta, time.Now().UTC())

	entry, err := scanEntry(row)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Entry{}, err
	}

	// No row updated: distinguish missing from already-terminal.
	existing, findErr := s.FindByID(ctx, id)
	if findErr != nil {
		return Entry{}, findErr
	}
	return existing, ErrTerminalState
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e         Entry
		id        uuid.UUID
		walletID  uuid.UUID
		kind      string
		status    string
		vendorRef *string
		meta      []byte
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(&id, &walletID, &kind, &e.Amount, &e.ExternalReference,
		&vendorRef, &status, &e.Profit, &meta, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	e.ID = id.String()
	e.WalletID = walletID.String()
	e.Kind = Kind(kind)
	e.Status = Status(status)
	if vendorRef != nil {
		e.VendorReference = *vendorRef
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return Entry{}, fmt.Errorf("decode entry metadata: %w", err)
		}
	}
	e.CreatedAt = createdAt.UTC()
	e.UpdatedAt = updatedAt.UTC()
	return e, nil
}

func marshalMetadata(meta map[string]any) ([]byte, error) {
	if meta == nil {
		return nil, nil
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode entry metadata: %w", err)
	}
	return payload, nil
}
