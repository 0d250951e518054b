package vtu

import (
	"context"

	"github.com/google/uuid"
)

// StaticGateway simulates a vendor that always fulfills, for local
// development without upstream credentials. The charged cost echoes the
// requested amount (airtime) or zero (data), leaving profit to the listed
// margin.
type StaticGateway struct{}

// PurchaseAirtime approves the top-up with a synthetic reference.
func (StaticGateway) PurchaseAirtime(_ context.Context, req PurchaseRequest) (PurchaseResult, error) {
	return PurchaseResult{
		Reference: uuid.NewString(),
		Cost:      req.Amount,
		Message:   "fulfilled",
	}, nil
}

// PurchaseData approves the bundle purchase with a synthetic reference.
func (StaticGateway) PurchaseData(_ context.Context, _ PurchaseRequest) (PurchaseResult, error) {
	return PurchaseResult{
		Reference: uuid.NewString(),
		Message:   "fulfilled",
	}, nil
}
