package catalog

import (
	"context"
	"sync"
)

// MemoryRepository is an in-memory catalog for tests and local development.
type MemoryRepository struct {
	mu       sync.RWMutex
	networks map[string]Network
	plans    map[string]DataPlan
}

// NewMemoryRepository constructs an empty in-memory catalog.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		networks: make(map[string]Network),
		plans:    make(map[string]DataPlan),
	}
}

// AddNetwork registers a network.
func (r *MemoryRepository) AddNetwork(n Network) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.networks[n.Code] = n
}

// AddDataPlan registers a data plan.
func (r *MemoryRepository) AddDataPlan(p DataPlan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[p.ID] = p
}

// Network resolves an active network by code.
func (r *MemoryRepository) Network(_ context.Context, code string) (Network, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.networks[code]
	if !ok || !n.Active {
		return Network{}, ErrUnavailable
	}
	return n, nil
}

// DataPlan resolves an active plan by identifier.
func (r *MemoryRepository) DataPlan(_ context.Context, id string) (DataPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plans[id]
	if !ok || !p.Active {
		return DataPlan{}, ErrUnavailable
	}
	return p, nil
}
