package middleware_test

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/concierge/pkg/domain"
)

// MockStore keeps conversations as given, so tests can inspect what reached the backend.
type MockStore struct {
	mu   sync.Mutex
	data map[string]*domain.Conversation
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string]*domain.Conversation)}
}

func (m *MockStore) Save(ctx context.Context, sessionID string, conv *domain.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sessionID] = conv.Snapshot()
	return nil
}

func (m *MockStore) Load(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return conv.Snapshot(), nil
}

func (m *MockStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionID)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// MockSink records published records.
type MockSink struct {
	Published []domain.Record
}

func (m *MockSink) Publish(ctx context.Context, rec domain.Record) error {
	m.Published = append(m.Published, rec)
	return nil
}
