package funding

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/furacompany/kirkidata-backend-sub000/internal/ledger"
	"github.com/furacompany/kirkidata-backend-sub000/internal/logging"
	"github.com/furacompany/kirkidata-backend-sub000/internal/notification"
	"github.com/furacompany/kirkidata-backend-sub000/internal/wallet"
)

const testAccount = "9012345678"

func newTestService(t *testing.T) (*Service, *wallet.Service, ledger.Store, wallet.Wallet) {
	t.Helper()
	ctx := context.Background()

	walletRepo := wallet.NewMemoryRepository()
	walletSvc := wallet.NewService(walletRepo)
	store := ledger.NewInMemory(walletRepo)
	logger := logging.Discard()

	w, err := walletSvc.Create(ctx, wallet.CreateInput{OwnerID: uuid.NewString(), VirtualAccount: testAccount})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	svc := NewService("shhh", "NGN", walletSvc, store, notification.NewLoggerNotifier(logger), logger)
	return svc, walletSvc, store, w
}

func paidNotification(reference string, amount int64) Notification {
	return Notification{
		TransactionReference: reference,
		PaymentReference:     "pay-" + reference,
		AmountPaid:           amount,
		PaymentStatus:        "PAID",
		Currency:             "NGN",
		AccountNumber:        testAccount,
		PayerName:            "Ada O.",
		PayerBank:            "GTBank",
	}
}

func TestProcessCreditsOnce(t *testing.T) {
	svc, walletSvc, store, w := newTestService(t)
	ctx := context.Background()

	res, err := svc.Process(ctx, paidNotification("REF123", 2_000))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !res.Credited || res.Duplicate {
		t.Fatalf("expected fresh credit, got %+v", res)
	}
	if res.Balance != 2_000 {
		t.Fatalf("expected balance 2000, got %d", res.Balance)
	}

	// Redelivery of the same notification must not credit again.
	dup, err := svc.Process(ctx, paidNotification("REF123", 2_000))
	if err != nil {
		t.Fatalf("process duplicate: %v", err)
	}
	if !dup.Duplicate || dup.Credited {
		t.Fatalf("expected duplicate no-op, got %+v", dup)
	}

	final, err := walletSvc.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if final.Balance != 2_000 {
		t.Fatalf("expected balance 2000 after redelivery, got %d", final.Balance)
	}

	entry, err := store.FindByExternalReference(ctx, "REF123")
	if err != nil {
		t.Fatalf("find entry: %v", err)
	}
	if entry.Status != ledger.StatusCompleted || entry.Kind != ledger.KindFunding {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestProcessConcurrentDuplicateDeliveries(t *testing.T) {
	svc, walletSvc, store, w := newTestService(t)
	ctx := context.Background()

	const deliveries = 8
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Process(ctx, paidNotification("REF-RACE", 2_000)); err != nil {
				t.Errorf("process: %v", err)
			}
		}()
	}
	wg.Wait()

	final, err := walletSvc.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if final.Balance != 2_000 {
		t.Fatalf("expected exactly one credit of 2000, got balance %d", final.Balance)
	}

	entries, err := store.ListByWallet(ctx, w.ID, 50, 0)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one entry, got %d", len(entries))
	}
}

func TestProcessRejectsInvalidPayloads(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string]Notification{
		"missing reference": func() Notification {
			n := paidNotification("", 2_000)
			return n
		}(),
		"zero amount":     paidNotification(uuid.NewString(), 0),
		"negative amount": paidNotification(uuid.NewString(), -50),
		"wrong currency": func() Notification {
			n := paidNotification(uuid.NewString(), 2_000)
			n.Currency = "USD"
			return n
		}(),
		"missing account": func() Notification {
			n := paidNotification(uuid.NewString(), 2_000)
			n.AccountNumber = ""
			return n
		}(),
	}

	for name, n := range cases {
		if _, err := svc.Process(ctx, n); !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("%s: expected invalid payload error, got %v", name, err)
		}
	}
}

func TestProcessUnknownAccount(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	n := paidNotification(uuid.NewString(), 2_000)
	n.AccountNumber = "0000000000"

	if _, err := svc.Process(ctx, n); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
}

func TestProcessNonPaidStatusRecordsWithoutCredit(t *testing.T) {
	svc, walletSvc, store, w := newTestService(t)
	ctx := context.Background()

	n := paidNotification("REF-REVERSED", 2_000)
	n.PaymentStatus = "REVERSED"

	res, err := svc.Process(ctx, n)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Credited {
		t.Fatal("non-paid notification must not credit")
	}

	entry, err := store.FindByExternalReference(ctx, "REF-REVERSED")
	if err != nil {
		t.Fatalf("expected entry recorded for history: %v", err)
	}
	if entry.Status != ledger.StatusCancelled {
		t.Fatalf("expected cancelled entry, got %s", entry.Status)
	}

	final, err := walletSvc.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if final.Balance != 0 {
		t.Fatalf("expected untouched balance, got %d", final.Balance)
	}
}

// flakyCreditRepo fails a scripted number of credits before recovering,
// simulating a store outage mid-posting.
type flakyCreditRepo struct {
	wallet.Repository
	failures int
}

func (r *flakyCreditRepo) Credit(ctx context.Context, id string, amount int64) (int64, error) {
	if r.failures > 0 {
		r.failures--
		return 0, errors.New("store unavailable")
	}
	return r.Repository.Credit(ctx, id, amount)
}

func TestProcessRedeliveryRepairsFailedCredit(t *testing.T) {
	ctx := context.Background()

	walletRepo := wallet.NewMemoryRepository()
	walletSvc := wallet.NewService(walletRepo)
	store := ledger.NewInMemory(&flakyCreditRepo{Repository: walletRepo, failures: 1})
	logger := logging.Discard()

	w, err := walletSvc.Create(ctx, wallet.CreateInput{OwnerID: uuid.NewString(), VirtualAccount: testAccount})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	svc := NewService("shhh", "NGN", walletSvc, store, notification.NewLoggerNotifier(logger), logger)

	// First delivery hits the outage; no money moves and, critically, the
	// reference stays unburned.
	if _, err := svc.Process(ctx, paidNotification("REF-RETRY", 2_000)); err == nil {
		t.Fatal("expected first delivery to fail")
	}
	if _, err := store.FindByExternalReference(ctx, "REF-RETRY"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("failed posting must not record an entry, got %v", err)
	}
	if mid, _ := walletSvc.Get(ctx, w.ID); mid.Balance != 0 {
		t.Fatalf("failed posting must not credit, balance %d", mid.Balance)
	}

	// The sender's retry completes the half-applied notification.
	res, err := svc.Process(ctx, paidNotification("REF-RETRY", 2_000))
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if !res.Credited || res.Balance != 2_000 {
		t.Fatalf("expected redelivery to credit 2000, got %+v", res)
	}

	final, err := walletSvc.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if final.Balance != 2_000 {
		t.Fatalf("expected exactly one credit, balance %d", final.Balance)
	}
	entry, err := store.FindByExternalReference(ctx, "REF-RETRY")
	if err != nil {
		t.Fatalf("find entry: %v", err)
	}
	if entry.Status != ledger.StatusCompleted {
		t.Fatalf("expected completed entry, got %s", entry.Status)
	}
}

func TestVerifySignature(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	body := []byte(`{"transactionReference":"REF123"}`)
	sig := Sign("shhh", body)

	if !svc.VerifySignature(body, sig) {
		t.Fatal("expected valid signature to verify")
	}
	if svc.VerifySignature(body, "") {
		t.Fatal("empty signature must not verify")
	}
	if svc.VerifySignature(body, "deadbeef") {
		t.Fatal("wrong signature must not verify")
	}
	if svc.VerifySignature([]byte(`{"tampered":true}`), sig) {
		t.Fatal("signature over different body must not verify")
	}
}
