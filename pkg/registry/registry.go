package registry

import (
	"fmt"
	"sync"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/dsl"
)

// Registry manages the available flows in catalog order.
// Catalog order is the tie-break when a submitted draft could belong to more than one flow.
type Registry struct {
	mu    sync.RWMutex
	order []string
	flows map[string]domain.Flow
}

// NewRegistry creates a registry holding the given flows.
func NewRegistry(flows ...domain.Flow) (*Registry, error) {
	r := &Registry{flows: make(map[string]domain.Flow)}
	for _, f := range flows {
		if err := r.Register(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register validates and adds a flow to the registry.
// If a flow with the same ID exists, it is overwritten in place.
func (r *Registry) Register(f domain.Flow) error {
	if err := dsl.Check(f); err != nil {
		return fmt.Errorf("flow %s: %w", f.ID, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.flows[f.ID]; !ok {
		r.order = append(r.order, f.ID)
	}
	r.flows[f.ID] = f
	return nil
}

// Get looks up a flow by ID.
func (r *Registry) Get(id string) (domain.Flow, error) {
	r.mu.RLock()
	f, ok := r.flows[id]
	r.mu.RUnlock()

	if !ok {
		return domain.Flow{}, fmt.Errorf("%w: %s", domain.ErrUnknownFlow, id)
	}
	return f, nil
}

// List returns every flow in catalog order.
func (r *Registry) List() []domain.Flow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Flow, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.flows[id])
	}
	return out
}

// Len returns the number of flows.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
