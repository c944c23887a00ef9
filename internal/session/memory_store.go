package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-memory Store. Sessions are lost on restart.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]memoryEntry
	ttl  time.Duration
	now  func() time.Time
}

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory store. A ttl of 0 disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		data: make(map[string]memoryEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (s *MemoryStore) load(id string) State {
	e, ok := s.data[id]
	if !ok {
		return State{}
	}
	if s.ttl > 0 && s.now().After(e.expiresAt) {
		delete(s.data, id)
		return State{}
	}
	return e.state
}

func (s *MemoryStore) Get(_ context.Context, id string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*State) error) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.load(id)
	if err := fn(&st); err != nil {
		return State{}, err
	}
	if st.IsZero() {
		delete(s.data, id)
		return st, nil
	}
	s.data[id] = memoryEntry{state: st, expiresAt: s.now().Add(s.ttl)}
	return st, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.data, id)
	s.mu.Unlock()
	return nil
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id := range s.data {
		if !s.load(id).IsZero() {
			n++
		}
	}
	return n
}
