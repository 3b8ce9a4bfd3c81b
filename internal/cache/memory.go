package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	userID    string
	expiresAt time.Time
}

// MemoryStore is a process-local token store. Expired tokens are evicted
// lazily on every access.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]entry
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{tokens: make(map[string]entry), now: now}
}

func (s *MemoryStore) Save(_ context.Context, token, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evict(now)
	s.tokens[token] = entry{userID: userID, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) Lookup(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evict(s.now())
	e, ok := s.tokens[token]
	if !ok {
		return "", ErrTokenNotFound
	}
	return e.userID, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, token)
	return nil
}

// Len reports the number of live tokens.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evict(s.now())
	return len(s.tokens)
}

func (s *MemoryStore) evict(now time.Time) {
	for k, e := range s.tokens {
		if !now.Before(e.expiresAt) {
			delete(s.tokens, k)
		}
	}
}
