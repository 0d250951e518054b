package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound occurs when no wallet matches the lookup.
	ErrNotFound = errors.New("wallet not found")

	// ErrInsufficientFunds occurs when a debit would drive the balance below
	// zero.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Repository persists wallets and applies balance mutations. Credit and
// Debit must each be a single atomic operation against the stored balance;
// Debit enforces the floor-at-zero rule as part of that same operation so
// that concurrent debits can never overdraw a wallet.
type Repository interface {
	Create(ctx context.Context, wallet Wallet) error
	Get(ctx context.Context, id string) (Wallet, error)
	GetByVirtualAccount(ctx context.Context, account string) (Wallet, error)
	Credit(ctx context.Context, id string, amount int64) (int64, error)
	Debit(ctx context.Context, id string, amount int64) (int64, error)
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a wallet record.
func (r *PostgresRepository) Create(ctx context.Context, wallet Wallet) error {
	walletID, err := uuid.Parse(wallet.ID)
	if err != nil {
		return err
	}
	ownerID, err := uuid.Parse(wallet.OwnerID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO wallets (id, owner_id, virtual_account, currency, balance, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		walletID, ownerID, wallet.VirtualAccount, wallet.Currency, wallet.Balance, wallet.Status, wallet.CreatedAt.UTC())
	return err
}

// Get fetches a wallet by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Wallet, error) {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, owner_id, virtual_account, currency, balance, status, created_at
        FROM wallets WHERE id = $1`, walletID)
	return scanWallet(row)
}

// GetByVirtualAccount fetches the active wallet bound to a virtual account
// number, the lookup the funding webhook relies on.
func (r *PostgresRepository) GetByVirtualAccount(ctx context.Context, account string) (Wallet, error) {
	row := r.db.QueryRow(ctx, `SELECT id, owner_id, virtual_account, currency, balance, status, created_at
        FROM wallets WHERE virtual_account = $1 AND status = 'active'`, account)
	return scanWallet(row)
}

// Credit increases the balance by amount in a single update.
func (r *PostgresRepository) Credit(ctx context.Context, id string, amount int64) (int64, error) {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return 0, ErrNotFound
	}
	var balance int64
	err = r.db.QueryRow(ctx, `UPDATE wallets SET balance = balance + $2
        WHERE id = $1 RETURNING balance`, walletID, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return balance, nil
}

// Debit decreases the balance by amount. The balance guard sits in the WHERE
// clause, making check and mutation one atomic statement: when no row
// qualifies the debit did not apply.
func (r *PostgresRepository) Debit(ctx context.Context, id string, amount int64) (int64, error) {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return 0, ErrNotFound
	}
	var balance int64
	err = r.db.QueryRow(ctx, `UPDATE wallets SET balance = balance - $2
        WHERE id = $1 AND balance >= $2 RETURNING balance`, walletID, amount).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	// No row updated: distinguish a missing wallet from a short balance.
	if _, getErr := r.Get(ctx, id); getErr != nil {
		return 0, getErr
	}
	return 0, ErrInsufficientFunds
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var (
		w         Wallet
		id        uuid.UUID
		ownerID   uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&id, &ownerID, &w.VirtualAccount, &w.Currency, &w.Balance, &w.Status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	w.ID = id.String()
	w.OwnerID = ownerID.String()
	w.CreatedAt = createdAt.UTC()
	return w, nil
}
