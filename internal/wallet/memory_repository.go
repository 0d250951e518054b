package wallet

import (
	"context"
	"errors"
	"sync"
)

type memoryRepository struct {
	mu        sync.RWMutex
	storage   map[string]Wallet
	byAccount map[string]string
}

// NewMemoryRepository constructs an in-memory repository for tests and local
// development. Mutations hold the lock across check and update, matching the
// atomicity the Postgres backend gets from conditional updates.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		storage:   make(map[string]Wallet),
		byAccount: make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, wallet Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[wallet.ID]; exists {
		return errors.New("wallet exists")
	}
	r.storage[wallet.ID] = wallet
	if wallet.VirtualAccount != "" {
		r.byAccount[wallet.VirtualAccount] = wallet.ID
	}
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wallet, ok := r.storage[id]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return wallet, nil
}

func (r *memoryRepository) GetByVirtualAccount(_ context.Context, account string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byAccount[account]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	wallet := r.storage[id]
	if wallet.Status != statusActive {
		return Wallet{}, ErrNotFound
	}
	return wallet, nil
}

func (r *memoryRepository) Credit(_ context.Context, id string, amount int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wallet, ok := r.storage[id]
	if !ok {
		return 0, ErrNotFound
	}
	wallet.Balance += amount
	r.storage[id] = wallet
	return wallet.Balance, nil
}

func (r *memoryRepository) Debit(_ context.Context, id string, amount int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wallet, ok := r.storage[id]
	if !ok {
		return 0, ErrNotFound
	}
	if wallet.Balance < amount {
		return 0, ErrInsufficientFunds
	}
	wallet.Balance -= amount
	r.storage[id] = wallet
	return wallet.Balance, nil
}
