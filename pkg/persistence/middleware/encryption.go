package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
)

// KeySize is the required key length (AES-256).
const KeySize = 32

// ErrUnsealed is returned when an encrypted store finds a plain conversation.
var ErrUnsealed = errors.New("conversation is missing encrypted data envelope")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	ActiveKey []byte

	// FallbackKeys are older keys tried in order when the active key cannot
	// open a transcript, so keys can be rotated without downtime.
	FallbackKeys [][]byte
}

// sealer holds one AEAD per key. The session ID is bound as additional data,
// so a sealed transcript only opens under the session it was saved for.
type sealer struct {
	active   cipher.AEAD
	fallback []cipher.AEAD
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes (AES-256), got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (s *sealer) seal(sessionID string, plain []byte) ([]byte, error) {
	nonce := make([]byte, s.active.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.active.Seal(nonce, nonce, plain, []byte(sessionID)), nil
}

func (s *sealer) open(sessionID string, sealed []byte) ([]byte, error) {
	for _, aead := range append([]cipher.AEAD{s.active}, s.fallback...) {
		n := aead.NonceSize()
		if len(sealed) < n {
			return nil, errors.New("ciphertext too short")
		}
		if plain, err := aead.Open(nil, sealed[:n], sealed[n:], []byte(sessionID)); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("no key opens the transcript for this session")
}

type encryptionMiddleware struct {
	next ports.ConversationStore
	*sealer
}

// NewEncryptionMiddleware creates a middleware that seals conversations using AES-GCM.
// Only the session ID and the Idle/Waiting bookkeeping stay readable in the backing store.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	active, err := newAEAD(config.ActiveKey)
	if err != nil {
		return nil, fmt.Errorf("active key: %w", err)
	}
	s := &sealer{active: active}
	for i, key := range config.FallbackKeys {
		aead, err := newAEAD(key)
		if err != nil {
			return nil, fmt.Errorf("fallback key %d: %w", i, err)
		}
		s.fallback = append(s.fallback, aead)
	}
	return func(next ports.ConversationStore) ports.ConversationStore {
		return &encryptionMiddleware{next: next, sealer: s}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, sessionID string, conv *domain.Conversation) error {
	plain, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	sealed, err := m.seal(sessionID, plain)
	if err != nil {
		return fmt.Errorf("failed to encrypt conversation: %w", err)
	}

	// The envelope keeps status for monitoring; the transcript is hidden.
	envelope := &domain.Conversation{
		SessionID:    conv.SessionID,
		Status:       conv.Status,
		LastTurnID:   conv.LastTurnID,
		PendingSince: conv.PendingSince,
		UpdatedAt:    conv.UpdatedAt,
		Sealed:       base64.StdEncoding.EncodeToString(sealed),
	}
	return m.next.Save(ctx, sessionID, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	envelope, err := m.next.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if envelope.Sealed == "" {
		return nil, ErrUnsealed
	}

	sealed, err := base64.StdEncoding.DecodeString(envelope.Sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	plain, err := m.open(sessionID, sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt conversation: %w", err)
	}

	var conv domain.Conversation
	if err := json.Unmarshal(plain, &conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted conversation: %w", err)
	}
	return &conv, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
