package vtu

import (
	"context"
	"errors"
)

// ErrVendorFailure indicates the upstream fulfillment provider reported an
// explicit failure. Transport-level errors (timeouts, connection resets) are
// returned as-is; the orchestrator treats both the same way.
var ErrVendorFailure = errors.New("vendor rejected request")

// PurchaseRequest carries everything the upstream provider needs to fulfill
// an airtime or data purchase. Reference doubles as the vendor-facing
// idempotency key.
type PurchaseRequest struct {
	Reference   string
	NetworkCode string
	PlanCode    string
	PhoneNumber string
	Amount      int64
}

// PurchaseResult is the vendor's view of a fulfilled purchase. Cost is the
// amount the vendor actually charged, which may differ from the listed
// price; Raw retains the full response payload for audit.
type PurchaseResult struct {
	Reference string
	Cost      int64
	Message   string
	Raw       map[string]any
}

// Gateway is the contract to the external airtime/data fulfillment provider.
type Gateway interface {
	PurchaseAirtime(ctx context.Context, req PurchaseRequest) (PurchaseResult, error)
	PurchaseData(ctx context.Context, req PurchaseRequest) (PurchaseResult, error)
}
