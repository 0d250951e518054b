package funding

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/furacompany/kirkidata-backend-sub000/internal/ledger"
	"github.com/furacompany/kirkidata-backend-sub000/internal/notification"
	"github.com/furacompany/kirkidata-backend-sub000/internal/wallet"
)

var (
	// ErrInvalidPayload occurs when a notification fails shape or currency
	// validation.
	ErrInvalidPayload = errors.New("invalid notification payload")

	// ErrAccountNotFound occurs when no active wallet matches the destination
	// virtual account. The money has already left the payer's bank, so this
	// is surfaced to the operator for manual reconciliation rather than
	// retried.
	ErrAccountNotFound = errors.New("no wallet for virtual account")
)

// isPaid reports whether the provider settled the payment. Only settled
// notifications move money; everything else is recorded for history.
func isPaid(status string) bool {
	switch strings.ToUpper(status) {
	case "PAID", "SUCCESS", "SUCCESSFUL":
		return true
	default:
		return false
	}
}

// Service converts possibly-duplicated payment notifications into at most
// one wallet credit each.
type Service struct {
	secret   []byte
	currency string
	wallets  *wallet.Service
	store    ledger.Store
	alerts   notification.Notifier
	logger   *slog.Logger
}

// NewService builds the webhook processor.
func NewService(secret, currency string, wallets *wallet.Service, store ledger.Store, alerts notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		secret:   []byte(secret),
		currency: currency,
		wallets:  wallets,
		store:    store,
		alerts:   alerts,
		logger:   logger,
	}
}

// VerifySignature checks the provider's hex HMAC-SHA512 signature computed
// over the raw request body with the shared secret.
func (s *Service) VerifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, s.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// Result reports what a processed notification did to the wallet.
type Result struct {
	EntryID   string
	Credited  bool
	Duplicate bool
	Balance   int64
}

// Process validates and applies one notification. Duplicate deliveries of
// the same transaction reference collapse into a no-op success: the lookup
// catches most retries and the store's uniqueness constraint catches the
// race between two concurrent deliveries.
func (s *Service) Process(ctx context.Context, n Notification) (Result, error) {
	if err := s.validate(n); err != nil {
		return Result{}, err
	}

	w, err := s.wallets.GetByVirtualAccount(ctx, n.AccountNumber)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			s.alert(ctx, notification.Message{
				Kind:      notification.KindUnmatchedFunding,
				Reference: n.TransactionReference,
				Amount:    n.AmountPaid,
				Body:      fmt.Sprintf("settled payment for unknown account %s", n.AccountNumber),
			})
			return Result{}, ErrAccountNotFound
		}
		return Result{}, err
	}

	if existing, err := s.store.FindByExternalReference(ctx, n.TransactionReference); err == nil {
		return Result{EntryID: existing.ID, Duplicate: true}, nil
	} else if !errors.Is(err, ledger.ErrNotFound) {
		return Result{}, err
	}

	template := ledger.Entry{
		WalletID:          w.ID,
		Kind:              ledger.KindFunding,
		Amount:            n.AmountPaid,
		ExternalReference: n.TransactionReference,
		Metadata: map[string]any{
			"payment_reference": n.PaymentReference,
			"payment_status":    n.PaymentStatus,
			"payer_name":        n.PayerName,
			"payer_bank":        n.PayerBank,
			"paid_on":           n.PaidOn,
		},
	}

	if !isPaid(n.PaymentStatus) {
		// Recorded for history and support lookups; no balance effect.
		template.Status = ledger.StatusCancelled
		entry, err := s.store.Create(ctx, template)
		if err != nil {
			if errors.Is(err, ledger.ErrDuplicateReference) {
				return Result{EntryID: entry.ID, Duplicate: true}, nil
			}
			return Result{}, err
		}
		s.logger.Info("funding notification recorded without credit",
			"reference", n.TransactionReference, "payment_status", n.PaymentStatus)
		return Result{EntryID: entry.ID}, nil
	}

	// The entry and its credit commit as one atomic posting: a failure leaves
	// neither behind, so the sender's retry can still apply the money.
	template.Status = ledger.StatusCompleted
	entry, balance, err := s.store.CreateCredited(ctx, template)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateReference) {
			// Lost the race with a concurrent delivery; the winner credited.
			return Result{EntryID: entry.ID, Duplicate: true}, nil
		}
		return Result{}, fmt.Errorf("apply funding credit: %w", err)
	}

	s.logger.Info("wallet funded",
		"wallet_id", w.ID, "amount", n.AmountPaid, "reference", n.TransactionReference)

	return Result{EntryID: entry.ID, Credited: true, Balance: balance}, nil
}

func (s *Service) validate(n Notification) error {
	switch {
	case n.TransactionReference == "":
		return fmt.Errorf("%w: missing transaction reference", ErrInvalidPayload)
	case n.AccountNumber == "":
		return fmt.Errorf("%w: missing destination account", ErrInvalidPayload)
	case n.AmountPaid <= 0:
		return fmt.Errorf("%w: amount must be positive", ErrInvalidPayload)
	case !strings.EqualFold(n.Currency, s.currency):
		return fmt.Errorf("%w: unsupported currency %q", ErrInvalidPayload, n.Currency)
	}
	return nil
}

func (s *Service) alert(ctx context.Context, msg notification.Message) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.Send(ctx, msg); err != nil {
		s.logger.Error("send alert", "kind", msg.Kind, "error", err)
	}
}
