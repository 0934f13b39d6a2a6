package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestRevocationStoreSetsExpiringKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewRevocationStore(newClient(mr))
	ctx := context.Background()

	if err := store.Revoke(ctx, "tok-1", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !mr.Exists("survey:revoked:tok-1") {
		t.Fatalf("expected redis key to be set")
	}
	if revoked, err := store.IsRevoked(ctx, "tok-1"); err != nil || !revoked {
		t.Fatalf("expected revoked, got %v err=%v", revoked, err)
	}

	mr.FastForward(2 * time.Minute)
	if revoked, _ := store.IsRevoked(ctx, "tok-1"); revoked {
		t.Fatalf("expected key to expire with the token")
	}
}

func TestRevocationStoreIgnoresExpiredTokens(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewRevocationStore(newClient(mr))
	if err := store.Revoke(context.Background(), "old", time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if mr.Exists("survey:revoked:old") {
		t.Fatalf("expected no key for an already expired token")
	}
}
