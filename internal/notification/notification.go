package notification

import (
	"context"
	"log/slog"
)

const (
	// KindCompensationFailure flags a failed purchase whose refund could not
	// be applied. Funds are stuck until an operator reconciles manually, so
	// this kind must always reach a human.
	KindCompensationFailure = "compensation_failure"

	// KindUnmatchedFunding flags a settled bank payment that could not be
	// mapped to any active virtual account.
	KindUnmatchedFunding = "unmatched_funding"
)

// Message describes an operator-facing alert payload.
type Message struct {
	Kind      string
	Reference string
	WalletID  string
	Amount    int64
	Body      string
}

// Notifier delivers alerts to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes alerts to the structured logger. Money-affecting
// kinds log at error level so they surface in alerting pipelines.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	attrs := []any{
		"kind", message.Kind,
		"reference", message.Reference,
		"wallet_id", message.WalletID,
		"amount", message.Amount,
		"body", message.Body,
	}
	switch message.Kind {
	case KindCompensationFailure, KindUnmatchedFunding:
		n.logger.Error("operator alert", attrs...)
	default:
		n.logger.Info("notification", attrs...)
	}
	return nil
}
