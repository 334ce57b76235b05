package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Store persists portal sessions. Save is a compare-and-set on
// Session.Version: it fails with ErrConflict when the stored session was
// saved since s was loaded, and advances s.Version on success.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// MemoryStore keeps sessions in process memory. Sessions are stored encoded so
// callers never share state through a returned pointer.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

type memoryEntry struct {
	payload   []byte
	version   int64
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if m.now().After(e.expiresAt) {
		return nil, ErrExpired
	}
	var s Session
	if err := json.Unmarshal(e.payload, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.sessions[s.ID]; ok && cur.version != s.Version {
		return ErrConflict
	} else if !ok && s.Version != 0 {
		return ErrConflict
	}

	s.Version++
	payload, err := json.Marshal(s)
	if err != nil {
		s.Version--
		return err
	}
	m.sessions[s.ID] = memoryEntry{payload: payload, version: s.Version, expiresAt: s.ExpiresAt}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, e := range m.sessions {
		if now.After(e.expiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}
