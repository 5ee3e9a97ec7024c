package sequence

import (
	"context"
	"sync"
)

// MemoryStore keeps every state row and returns the latest per contact.
type MemoryStore struct {
	mu     sync.Mutex
	rows   map[string]State
	latest map[string]string // contact_id -> state id

	// UpsertErr, when set, is returned by UpsertState.
	UpsertErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: map[string]State{}, latest: map[string]string{}}
}

func (m *MemoryStore) GetState(ctx context.Context, contactID string) (State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.latest[contactID]
	if !ok {
		return State{}, false, nil
	}
	return copyState(m.rows[id]), true, nil
}

func (m *MemoryStore) UpsertState(ctx context.Context, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.rows[s.ID] = copyState(s)
	if cur, ok := m.latest[s.ContactID]; !ok || cur == s.ID || !s.StartedAt.Before(m.rows[cur].StartedAt) {
		m.latest[s.ContactID] = s.ID
	}
	return nil
}

// Rows returns the number of stored states, for tests.
func (m *MemoryStore) Rows() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func copyState(s State) State {
	if s.LastOutboundAt != nil {
		t := *s.LastOutboundAt
		s.LastOutboundAt = &t
	}
	if s.LastInboundAt != nil {
		t := *s.LastInboundAt
		s.LastInboundAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		s.CompletedAt = &t
	}
	return s
}
