package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/furacompany/kirkidata-backend-sub000/internal/wallet"
)

func TestInMemoryStore_CreateDuplicateReturnsExisting(t *testing.T) {
	store := NewInMemory(wallet.NewMemoryRepository())
	ctx := context.Background()
	walletID := uuid.NewString()

	first, err := store.Create(ctx, Entry{
		WalletID:          walletID,
		Kind:              KindFunding,
		Amount:            2_000,
		ExternalReference: "REF123",
		Status:            StatusCompleted,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	second, err := store.Create(ctx, Entry{
		WalletID:          walletID,
		Kind:              KindFunding,
		Amount:            2_000,
		ExternalReference: "REF123",
		Status:            StatusCompleted,
	})
	if !errors.Is(err, ErrDuplicateReference) {
		t.Fatalf("expected duplicate reference error, got %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected existing entry %s, got %s", first.ID, second.ID)
	}
}

func TestInMemoryStore_ConcurrentDuplicateCreates(t *testing.T) {
	store := NewInMemory(wallet.NewMemoryRepository())
	ctx := context.Background()
	walletID := uuid.NewString()

	const workers = 10
	var created atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Create(ctx, Entry{
				WalletID:          walletID,
				Kind:              KindFunding,
				Amount:            2_000,
				ExternalReference: "RACE-1",
				Status:            StatusCompleted,
			})
			if err == nil {
				created.Add(1)
			} else if !errors.Is(err, ErrDuplicateReference) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Fatalf("expected exactly one create to win, got %d", created.Load())
	}

	entries, err := store.ListByWallet(ctx, walletID, 50, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one stored entry, got %d", len(entries))
	}
}

func TestInMemoryStore_FinalizeIsTerminal(t *testing.T) {
	store := NewInMemory(wallet.NewMemoryRepository())
	ctx := context.Background()

	entry, err := store.Create(ctx, Entry{
		WalletID:          uuid.NewString(),
		Kind:              KindAirtime,
		Amount:            500,
		ExternalReference: uuid.NewString(),
		Status:            StatusPending,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	finalized, err := store.Finalize(ctx, entry.ID, Finalization{
		Status:          StatusCompleted,
		VendorReference: "VND-9",
		Profit:          40,
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if finalized.Status != StatusCompleted || finalized.Profit != 40 {
		t.Fatalf("unexpected finalized entry: %+v", finalized)
	}

	if _, err := store.Finalize(ctx, entry.ID, Finalization{Status: StatusFailed}); !errors.Is(err, ErrTerminalState) {
		t.Fatalf("expected terminal state error, got %v", err)
	}

	// The losing transition must not have touched the record.
	stored, err := store.FindByID(ctx, entry.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Status != StatusCompleted {
		t.Fatalf("terminal entry mutated, status=%s", stored.Status)
	}
}

func TestInMemoryStore_FinalizeRejectsNonTerminalStatus(t *testing.T) {
	store := NewInMemory(wallet.NewMemoryRepository())
	ctx := context.Background()

	entry, err := store.Create(ctx, Entry{
		WalletID:          uuid.NewString(),
		Kind:              KindData,
		Amount:            1_000,
		ExternalReference: uuid.NewString(),
		Status:            StatusPending,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := store.Finalize(ctx, entry.ID, Finalization{Status: StatusPending}); err == nil {
		t.Fatal("expected error finalizing to pending")
	}
}

func TestInMemoryStore_ListByWalletPagination(t *testing.T) {
	store := NewInMemory(wallet.NewMemoryRepository())
	ctx := context.Background()
	walletID := uuid.NewString()

	for i := 0; i < 5; i++ {
		if _, err := store.Create(ctx, Entry{
			WalletID:          walletID,
			Kind:              KindFunding,
			Amount:            int64(100 * (i + 1)),
			ExternalReference: fmt.Sprintf("ref-%d", i),
			Status:            StatusCompleted,
		}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	page, err := store.ListByWallet(ctx, walletID, 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}

	rest, err := store.ListByWallet(ctx, walletID, 10, 2)
	if err != nil {
		t.Fatalf("list offset: %v", err)
	}
	if len(rest) != 3 {
		t.Fatalf("expected 3 remaining, got %d", len(rest))
	}

	empty, err := store.ListByWallet(ctx, walletID, 10, 50)
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page, got %d", len(empty))
	}
}

func seedWallet(t *testing.T, repo wallet.Repository, balance int64) wallet.Wallet {
	t.Helper()
	w := wallet.Wallet{ID: uuid.NewString(), OwnerID: uuid.NewString(), Currency: "NGN", Status: "active"}
	if err := repo.Create(context.Background(), w); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	wallet.SeedBalance(repo, w.ID, balance)
	w.Balance = balance
	return w
}

func TestInMemoryStore_CreateDebitedMovesBalanceWithEntry(t *testing.T) {
	repo := wallet.NewMemoryRepository()
	store := NewInMemory(repo)
	ctx := context.Background()
	w := seedWallet(t, repo, 1_000)

	entry, balance, err := store.CreateDebited(ctx, Entry{
		WalletID:          w.ID,
		Kind:              KindData,
		Amount:            400,
		ExternalReference: "DEB-1",
		Status:            StatusPending,
	})
	if err != nil {
		t.Fatalf("create debited: %v", err)
	}
	if balance != 600 {
		t.Fatalf("expected balance 600, got %d", balance)
	}
	if entry.Status != StatusPending {
		t.Fatalf("expected pending entry, got %s", entry.Status)
	}

	// A duplicate reference must return the stored entry without debiting
	// again.
	dup, _, err := store.CreateDebited(ctx, Entry{
		WalletID:          w.ID,
		Kind:              KindData,
		Amount:            400,
		ExternalReference: "DEB-1",
		Status:            StatusPending,
	})
	if !errors.Is(err, ErrDuplicateReference) {
		t.Fatalf("expected duplicate reference error, got %v", err)
	}
	if dup.ID != entry.ID {
		t.Fatalf("expected existing entry %s, got %s", entry.ID, dup.ID)
	}
	if current, _ := repo.Get(ctx, w.ID); current.Balance != 600 {
		t.Fatalf("duplicate must not debit again, balance %d", current.Balance)
	}
}

func TestInMemoryStore_CreateDebitedInsufficientFundsRecordsNothing(t *testing.T) {
	repo := wallet.NewMemoryRepository()
	store := NewInMemory(repo)
	ctx := context.Background()
	w := seedWallet(t, repo, 100)

	_, _, err := store.CreateDebited(ctx, Entry{
		WalletID:          w.ID,
		Kind:              KindAirtime,
		Amount:            500,
		ExternalReference: "DEB-SHORT",
		Status:            StatusPending,
	})
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	if _, err := store.FindByExternalReference(ctx, "DEB-SHORT"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no entry recorded, got %v", err)
	}
	if current, _ := repo.Get(ctx, w.ID); current.Balance != 100 {
		t.Fatalf("expected untouched balance 100, got %d", current.Balance)
	}
}

func TestInMemoryStore_CreateCreditedAppliesBalanceWithEntry(t *testing.T) {
	repo := wallet.NewMemoryRepository()
	store := NewInMemory(repo)
	ctx := context.Background()
	w := seedWallet(t, repo, 0)

	entry, balance, err := store.CreateCredited(ctx, Entry{
		WalletID:          w.ID,
		Kind:              KindFunding,
		Amount:            2_000,
		ExternalReference: "CRED-1",
		Status:            StatusCompleted,
	})
	if err != nil {
		t.Fatalf("create credited: %v", err)
	}
	if balance != 2_000 {
		t.Fatalf("expected balance 2000, got %d", balance)
	}
	if entry.Status != StatusCompleted {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	_, _, err = store.CreateCredited(ctx, Entry{
		WalletID:          w.ID,
		Kind:              KindFunding,
		Amount:            2_000,
		ExternalReference: "CRED-1",
		Status:            StatusCompleted,
	})
	if !errors.Is(err, ErrDuplicateReference) {
		t.Fatalf("expected duplicate reference error, got %v", err)
	}
	if current, _ := repo.Get(ctx, w.ID); current.Balance != 2_000 {
		t.Fatalf("duplicate must not credit again, balance %d", current.Balance)
	}
}

func TestInMemoryStore_CreateCreditedFailedCreditLeavesNoEntry(t *testing.T) {
	repo := wallet.NewMemoryRepository()
	store := NewInMemory(repo)
	ctx := context.Background()

	// Credit against a wallet the repository does not know.
	_, _, err := store.CreateCredited(ctx, Entry{
		WalletID:          uuid.NewString(),
		Kind:              KindFunding,
		Amount:            2_000,
		ExternalReference: "CRED-GHOST",
		Status:            StatusCompleted,
	})
	if !errors.Is(err, wallet.ErrNotFound) {
		t.Fatalf("expected wallet not found, got %v", err)
	}

	// The reference must remain free so a later delivery can still apply.
	if _, err := store.FindByExternalReference(ctx, "CRED-GHOST"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no entry recorded, got %v", err)
	}
}

func TestInMemoryStore_FinalizeRefundedRestoresBalanceOnce(t *testing.T) {
	repo := wallet.NewMemoryRepository()
	store := NewInMemory(repo)
	ctx := context.Background()
	w := seedWallet(t, repo, 1_000)

	entry, _, err := store.CreateDebited(ctx, Entry{
		WalletID:          w.ID,
		Kind:              KindData,
		Amount:            500,
		ExternalReference: "REF-REFUND",
		Status:            StatusPending,
	})
	if err != nil {
		t.Fatalf("create debited: %v", err)
	}

	finalized, balance, err := store.FinalizeRefunded(ctx, entry.ID, Finalization{Status: StatusFailed})
	if err != nil {
		t.Fatalf("finalize refunded: %v", err)
	}
	if finalized.Status != StatusFailed {
		t.Fatalf("expected failed entry, got %s", finalized.Status)
	}
	if balance != 1_000 {
		t.Fatalf("expected balance restored to 1000, got %d", balance)
	}

	// A second refund attempt must fail on the terminal guard and not credit
	// again.
	if _, _, err := store.FinalizeRefunded(ctx, entry.ID, Finalization{Status: StatusFailed}); !errors.Is(err, ErrTerminalState) {
		t.Fatalf("expected terminal state error, got %v", err)
	}
	if current, _ := repo.Get(ctx, w.ID); current.Balance != 1_000 {
		t.Fatalf("expected balance 1000 after repeat attempt, got %d", current.Balance)
	}
}
