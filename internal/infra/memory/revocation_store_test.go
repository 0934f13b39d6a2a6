package memory

import (
	"context"
	"testing"
	"time"
)

func TestRevocationStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewRevocationStore()
	now := time.Unix(1_700_000_000, 0)
	store.clock = func() time.Time { return now }

	if err := store.Revoke(ctx, "tok-1", now.Add(time.Minute)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked, _ := store.IsRevoked(ctx, "tok-1"); !revoked {
		t.Fatalf("expected token revoked")
	}
	if revoked, _ := store.IsRevoked(ctx, "tok-2"); revoked {
		t.Fatalf("expected unknown token not revoked")
	}

	now = now.Add(2 * time.Minute)
	if revoked, _ := store.IsRevoked(ctx, "tok-1"); revoked {
		t.Fatalf("expected revocation to lapse after expiry")
	}
}
