package catalog

import (
	"context"
	"errors"
)

// ErrUnavailable occurs when the requested network or plan is unknown or
// inactive.
var ErrUnavailable = errors.New("product unavailable")

// Network describes a mobile network the platform resells airtime for.
// AirtimeMarkup is a fixed surcharge in minor units added to the face value
// when computing the user's cost.
type Network struct {
	Code          string
	Name          string
	AirtimeMarkup int64
	Active        bool
}

// DataPlan is a purchasable data bundle. Price is what the user pays in
// minor units.
type DataPlan struct {
	ID          string
	NetworkCode string
	Name        string
	Price       int64
	Active      bool
}

// Repository resolves purchasable products. Catalog synchronization from
// vendors happens elsewhere; this is lookup only.
type Repository interface {
	Network(ctx context.Context, code string) (Network, error)
	DataPlan(ctx context.Context, id string) (DataPlan, error)
}
