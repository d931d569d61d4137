package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/concierge/pkg/domain"
)

// RunConversationStoreContract runs a suite of tests to verify that a ConversationStore
// implementation adheres to the defined interface contract.
func RunConversationStoreContract(t *testing.T, store ConversationStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		conv := domain.NewConversation(sessionID)
		conv.Append(domain.Turn{Role: domain.RoleUser, Content: "book service", Presentation: domain.PresentText})
		conv.Append(domain.Turn{
			Role:         domain.RoleAssistant,
			Presentation: domain.PresentForm,
			Form: &domain.Prompt{
				FlowID:    "service_booking",
				StepID:    "customer_vehicle",
				StepCount: 2,
				Draft:     domain.NewDraft("zeta", "1", "alpha", "2"),
			},
		})
		conv.Wait(time.Now())

		require.NoError(t, store.Save(ctx, sessionID, conv), "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sessionID, loaded.SessionID)
		assert.Equal(t, domain.StatusWaiting, loaded.Status)
		assert.Equal(t, conv.LastTurnID, loaded.LastTurnID)
		require.Len(t, loaded.Turns, 2)
		assert.Equal(t, conv.Turns[0].ID, loaded.Turns[0].ID)
		require.NotNil(t, loaded.Turns[1].Form)
		assert.Equal(t, []string{"zeta", "alpha"}, loaded.Turns[1].Form.Draft.Keys(), "draft order must survive storage")
	})

	t.Run("Saved Snapshot Is Isolated", func(t *testing.T) {
		conv := domain.NewConversation(sessionID)
		require.NoError(t, store.Save(ctx, sessionID, conv))
		conv.Append(domain.Turn{Role: domain.RoleUser, Content: "mutated after save"})

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Empty(t, loaded.Turns)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, domain.NewConversation(sessionID)))

		require.NoError(t, store.Delete(ctx, sessionID), "Delete should not return error")

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewConversation(id1))
		_ = store.Save(ctx, id2, domain.NewConversation(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
