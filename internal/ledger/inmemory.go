package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/furacompany/kirkidata-backend-sub000/internal/wallet"
)

type inMemoryStore struct {
	mu          sync.RWMutex
	wallets     wallet.Repository
	byID        map[string]Entry
	byReference map[string]string
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit
// tests and local development. It enforces the same external-reference
// uniqueness as the Postgres backend, and its posting operations hold the
// store lock across the balance mutation and the entry write so the pair is
// observed together or not at all.
func NewInMemory(wallets wallet.Repository) Store {
	return &inMemoryStore{
		wallets:     wallets,
		byID:        make(map[string]Entry),
		byReference: make(map[string]string),
	}
}

func (s *inMemoryStore) Create(_ context.Context, entry Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, exists := s.byReference[entry.ExternalReference]; exists {
		return s.byID[existingID], ErrDuplicateReference
	}
	return s.insertLocked(entry), nil
}

func (s *inMemoryStore) CreateCredited(ctx context.Context, entry Entry) (Entry, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, exists := s.byReference[entry.ExternalReference]; exists {
		return s.byID[existingID], 0, ErrDuplicateReference
	}

	// Credit before insert: a failed credit must leave no entry behind,
	// mirroring the Postgres rollback.
	balance, err := s.wallets.Credit(ctx, entry.WalletID, entry.Amount)
	if err != nil {
		return Entry{}, 0, err
	}
	return s.insertLocked(entry), balance, nil
}

func (s *inMemoryStore) CreateDebited(ctx context.Context, entry Entry) (Entry, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, exists := s.byReference[entry.ExternalReference]; exists {
		return s.byID[existingID], 0, ErrDuplicateReference
	}

	balance, err := s.wallets.Debit(ctx, entry.WalletID, entry.Amount)
	if err != nil {
		return Entry{}, 0, err
	}
	return s.insertLocked(entry), balance, nil
}

func (s *inMemoryStore) insertLocked(entry Entry) Entry {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	s.byID[entry.ID] = entry
	s.byReference[entry.ExternalReference] = entry.ID
	return entry
}

func (s *inMemoryStore) FindByID(_ context.Context, id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.byID[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

func (s *inMemoryStore) FindByExternalReference(_ context.Context, reference string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byReference[reference]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return s.byID[id], nil
}

func (s *inMemoryStore) Finalize(_ context.Context, id string, fin Finalization) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalizeLocked(id, fin)
}

func (s *inMemoryStore) FinalizeRefunded(ctx context.Context, id string, fin Finalization) (Entry, int64, error) {
	if !fin.Status.Terminal() {
		return Entry{}, 0, ErrTerminalState
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byID[id]
	if !ok {
		return Entry{}, 0, ErrNotFound
	}
	if entry.Status.Terminal() {
		return entry, 0, ErrTerminalState
	}

	// Credit first: a failed credit leaves the entry in its prior status,
	// mirroring the Postgres rollback.
	balance, err := s.wallets.Credit(ctx, entry.WalletID, entry.Amount)
	if err != nil {
		return entry, 0, err
	}

	finalized, err := s.finalizeLocked(id, fin)
	if err != nil {
		return finalized, 0, err
	}
	return finalized, balance, nil
}

func (s *inMemoryStore) finalizeLocked(id string, fin Finalization) (Entry, error) {
	if !fin.Status.Terminal() {
		return Entry{}, ErrTerminalState
	}

	entry, ok := s.byID[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	if entry.Status.Terminal() {
		return entry, ErrTerminalState
	}

	entry.Status = fin.Status
	entry.VendorReference = fin.VendorReference
	entry.Profit = fin.Profit
	if fin.Metadata != nil {
		entry.Metadata = fin.Metadata
	}
	entry.UpdatedAt = time.Now().UTC()

	s.byID[id] = entry
	return entry, nil
}

func (s *inMemoryStore) ListByWallet(_ context.Context, walletID string, limit, offset int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []Entry
	for _, entry := range s.byID {
		if entry.WalletID == walletID {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	if offset >= len(entries) {
		return nil, nil
	}
	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[offset:end], nil
}
