package memory

import (
	"context"
	"fmt"
	"sync"

	garages "fleetfuel-cloud/internal/garages/domain"
)

// Registry is an in-memory garage registry for tests and local runs.
type Registry struct {
	mu   sync.RWMutex
	data map[string]garages.Garage
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{data: make(map[string]garages.Garage)}
}

// Add stores a garage record.
func (r *Registry) Add(garage garages.Garage) {
	r.mu.Lock()
	r.data[garage.ID] = garage
	r.mu.Unlock()
}

// Get fetches a garage by id.
func (r *Registry) Get(ctx context.Context, id string) (*garages.Garage, error) {
	_ = ctx
	r.mu.RLock()
	garage, ok := r.data[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	copy := garage
	return &copy, nil
}

// BankReferences resolves settlement references for the given ids.
func (r *Registry) BankReferences(ctx context.Context, ids []string) (map[string]string, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	refs := make(map[string]string, len(ids))
	for _, id := range ids {
		garage, ok := r.data[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", garages.ErrGarageNotFound, id)
		}
		refs[id] = garage.BankReference
	}
	return refs, nil
}
