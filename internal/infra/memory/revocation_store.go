package memory

import (
	"context"
	"sync"
	"time"
)

// RevocationStore remembers signed-out token ids until they would have expired anyway.
type RevocationStore struct {
	clock func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewRevocationStore() *RevocationStore {
	return &RevocationStore{
		clock:   time.Now,
		revoked: make(map[string]time.Time),
	}
}

func (s *RevocationStore) Revoke(_ context.Context, tokenID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	s.revoked[tokenID] = until
	return nil
}

func (s *RevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !until.After(s.clock()) {
		delete(s.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

func (s *RevocationStore) pruneLocked() {
	now := s.clock()
	for id, until := range s.revoked {
		if !until.After(now) {
			delete(s.revoked, id)
		}
	}
}
