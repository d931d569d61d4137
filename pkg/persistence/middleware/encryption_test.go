package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/persistence/middleware"
	"github.com/aretw0/concierge/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, middleware.KeySize)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func sealedStore(t *testing.T, backing ports.ConversationStore, active []byte, fallback ...[]byte) ports.ConversationStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
	require.NoError(t, err)
	return mw(backing)
}

func secretConversation(id string) *domain.Conversation {
	conv := domain.NewConversation(id)
	conv.Append(domain.Turn{Role: domain.RoleUser, Content: "Submitted Form: phone: +1 555", Presentation: domain.PresentText})
	return conv
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	backing := NewMockStore()
	store := sealedStore(t, backing, generateKey(t))
	ctx := context.Background()

	conv := secretConversation("s1")
	require.NoError(t, store.Save(ctx, "s1", conv))

	raw, err := backing.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, raw.Turns, "transcript must not reach the backend in clear")
	assert.NotEmpty(t, raw.Sealed)
	assert.NotContains(t, raw.Sealed, "+1 555")
	assert.Equal(t, conv.LastTurnID, raw.LastTurnID)

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, loaded.Turns, 1)
	assert.Equal(t, "Submitted Form: phone: +1 555", loaded.Turns[0].Content)
	assert.Empty(t, loaded.Sealed)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	backing := NewMockStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	oldStore := sealedStore(t, backing, oldKey)
	require.NoError(t, oldStore.Save(ctx, "s1", secretConversation("s1")))

	newStore := sealedStore(t, backing, newKey, oldKey)
	loaded, err := newStore.Load(ctx, "s1")
	require.NoError(t, err, "fallback key must decrypt old data")

	loaded.Append(domain.Turn{Role: domain.RoleAssistant, Content: "ok"})
	require.NoError(t, newStore.Save(ctx, "s1", loaded))

	_, err = oldStore.Load(ctx, "s1")
	assert.Error(t, err, "old key alone cannot read data sealed with the new key")
}

func TestEncryptionMiddleware_RejectsPlainData(t *testing.T) {
	backing := NewMockStore()
	ctx := context.Background()
	require.NoError(t, backing.Save(ctx, "plain", secretConversation("plain")))

	_, err := sealedStore(t, backing, generateKey(t)).Load(ctx, "plain")
	assert.ErrorIs(t, err, middleware.ErrUnsealed)
}

func TestEncryptionMiddleware_BoundToSession(t *testing.T) {
	backing := NewMockStore()
	store := sealedStore(t, backing, generateKey(t))
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "alice", secretConversation("alice")))

	// Replaying alice's envelope under another session ID must not open.
	envelope, err := backing.Load(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, backing.Save(ctx, "mallory", envelope))

	_, err = store.Load(ctx, "mallory")
	assert.ErrorContains(t, err, "failed to decrypt conversation")

	_, err = store.Load(ctx, "alice")
	assert.NoError(t, err)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorContains(t, err, "active key")

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("old")},
	})
	assert.ErrorContains(t, err, "fallback key 0")
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunConversationStoreContract(t, sealedStore(t, NewMockStore(), generateKey(t)))
}
