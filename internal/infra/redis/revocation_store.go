package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore records signed-out token ids in Redis so every instance rejects them.
// Keys expire together with the token: SET survey:revoked:{jti} 1 EX remaining
type RevocationStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRevocationStore(client *redis.Client) *RevocationStore {
	return &RevocationStore{client: client, now: time.Now}
}

func (s *RevocationStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n > 0, nil
}

func (s *RevocationStore) key(tokenID string) string {
	return "survey:revoked:" + tokenID
}
