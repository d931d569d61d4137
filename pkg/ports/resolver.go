package ports

import (
	"context"

	"github.com/aretw0/concierge/pkg/domain"
)

// Resolver maps a submitted message to the next reply of the conversation.
// Implementations must be safe for concurrent use; the transport shim and a
// real backend client both satisfy it.
type Resolver interface {
	Resolve(ctx context.Context, msg domain.Message) (domain.Reply, error)
}

// FlowCatalog is the read side of the flow registry.
type FlowCatalog interface {
	// Get returns the flow, or an error wrapping domain.ErrUnknownFlow.
	Get(id string) (domain.Flow, error)
	// List returns every flow in catalog order.
	List() []domain.Flow
}
