package ports

import (
	"context"

	"github.com/aretw0/concierge/pkg/domain"
)

// ConversationStore defines the interface for keeping conversation snapshots.
// Implementations hold process or replica-shared state; nothing here promises
// durability across restarts.
type ConversationStore interface {
	// Save stores the conversation for a given session ID.
	Save(ctx context.Context, sessionID string, conv *domain.Conversation) error

	// Load retrieves the conversation for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Conversation, error)

	// Delete removes the conversation for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns all active session IDs.
	List(ctx context.Context) ([]string, error)
}
