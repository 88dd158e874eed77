package gate

import (
	"context"
	"sync"
	"time"

	"notaria/pkg/platform/sentinel"
)

// SessionStore holds at most one pending request and one undo entry per
// session. Entries vanish after their TTL; Get returns sentinel.ErrNotFound
// for missing or expired entries.
type SessionStore interface {
	PutPending(ctx context.Context, session string, p *Pending, ttl time.Duration) error
	GetPending(ctx context.Context, session string) (*Pending, error)
	DeletePending(ctx context.Context, session string) error
	PutUndo(ctx context.Context, session string, e *UndoEntry, ttl time.Duration) error
	GetUndo(ctx context.Context, session string) (*UndoEntry, error)
	DeleteUndo(ctx context.Context, session string) error
}

type slot[T any] struct {
	value    T
	deadline time.Time
}

// MemoryStore keeps session state in process, for single-instance deployments
// and tests.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	pending map[string]slot[Pending]
	undo    map[string]slot[UndoEntry]
}

func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		now:     now,
		pending: make(map[string]slot[Pending]),
		undo:    make(map[string]slot[UndoEntry]),
	}
}

func (m *MemoryStore) PutPending(_ context.Context, session string, p *Pending, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[session] = slot[Pending]{value: *p, deadline: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) GetPending(_ context.Context, session string) (*Pending, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.pending[session]
	if !ok || !m.now().Before(s.deadline) {
		delete(m.pending, session)
		return nil, sentinel.ErrNotFound
	}
	p := s.value
	return &p, nil
}

func (m *MemoryStore) DeletePending(_ context.Context, session string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, session)
	return nil
}

func (m *MemoryStore) PutUndo(_ context.Context, session string, e *UndoEntry, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo[session] = slot[UndoEntry]{value: *e, deadline: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) GetUndo(_ context.Context, session string) (*UndoEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.undo[session]
	if !ok || !m.now().Before(s.deadline) {
		delete(m.undo, session)
		return nil, sentinel.ErrNotFound
	}
	e := s.value
	return &e, nil
}

func (m *MemoryStore) DeleteUndo(_ context.Context, session string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.undo, session)
	return nil
}
