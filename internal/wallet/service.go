package wallet

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

const (
	statusActive = "active"

	defaultCurrency = "NGN"
)

// Service is the balance manager: the only component allowed to mutate a
// wallet's balance. It is a pure balance primitive; pairing mutations with
// ledger entries is the caller's responsibility.
type Service struct {
	repo Repository
}

// NewService builds a wallet service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput captures data required to provision a wallet.
type CreateInput struct {
	OwnerID        string
	Currency       string
	VirtualAccount string
}

// Create provisions a wallet with a dedicated virtual account number.
func (s *Service) Create(ctx context.Context, input CreateInput) (Wallet, error) {
	if _, err := uuid.Parse(input.OwnerID); err != nil {
		return Wallet{}, fmt.Errorf("invalid owner id: %w", err)
	}

	currency := input.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	account := input.VirtualAccount
	if account == "" {
		account = generateVirtualAccount()
	}

	wallet := Wallet{
		ID:             uuid.NewString(),
		OwnerID:        input.OwnerID,
		VirtualAccount: account,
		Currency:       currency,
		Balance:        0,
		Status:         statusActive,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, wallet); err != nil {
		return Wallet{}, err
	}
	return wallet, nil
}

// Get retrieves a wallet by identifier.
func (s *Service) Get(ctx context.Context, id string) (Wallet, error) {
	return s.repo.Get(ctx, id)
}

// GetByVirtualAccount resolves the active wallet behind a virtual account
// number.
func (s *Service) GetByVirtualAccount(ctx context.Context, account string) (Wallet, error) {
	return s.repo.GetByVirtualAccount(ctx, account)
}

// Credit increases the wallet balance and returns the new balance.
func (s *Service) Credit(ctx context.Context, id string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive")
	}
	return s.repo.Credit(ctx, id, amount)
}

// Debit decreases the wallet balance, returning ErrInsufficientFunds when
// the amount would drive it below zero. The check and the mutation are one
// atomic repository operation.
func (s *Service) Debit(ctx context.Context, id string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit amount must be positive")
	}
	return s.repo.Debit(ctx, id, amount)
}

func generateVirtualAccount() string {
	// NUBAN-style 10 digit account number.
	return fmt.Sprintf("90%08d", rand.Intn(100_000_000))
}
