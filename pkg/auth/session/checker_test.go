package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/landmarklens/landmark-api/pkg/config"
	redisclient "github.com/landmarklens/landmark-api/pkg/redis"
)

func newChecker(t *testing.T) (*Checker, *miniredis.Miniredis, *redisclient.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redisclient.New(context.Background(), config.RedisConfig{Address: mr.Addr()}, nil)
	if err != nil {
		t.Fatalf("redis.New: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	checker, err := NewChecker(client)
	if err != nil {
		t.Fatalf("NewChecker: %v", err)
	}
	return checker, mr, client
}

func TestCheckerHasSession(t *testing.T) {
	checker, mr, client := newChecker(t)
	ctx := context.Background()

	if err := mr.Set(client.AccessSessionKey("live"), "1"); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	mr.SetTTL(client.AccessSessionKey("live"), time.Minute)

	ok, err := checker.HasSession(ctx, " live ")
	if err != nil || !ok {
		t.Fatalf("expected live session, got ok=%v err=%v", ok, err)
	}

	ok, err = checker.HasSession(ctx, "revoked")
	if err != nil || ok {
		t.Fatalf("expected missing session, got ok=%v err=%v", ok, err)
	}

	mr.FastForward(2 * time.Minute)
	ok, err = checker.HasSession(ctx, "live")
	if err != nil || ok {
		t.Fatalf("expected expired session to be gone, got ok=%v err=%v", ok, err)
	}

	if _, err := checker.HasSession(ctx, "  "); err == nil {
		t.Fatal("expected error for blank access id")
	}
}

func TestCheckerPropagatesStoreErrors(t *testing.T) {
	checker, mr, _ := newChecker(t)
	mr.Close()

	if _, err := checker.HasSession(context.Background(), "any"); err == nil {
		t.Fatal("expected store error to propagate")
	}
}

func TestNewCheckerRequiresClient(t *testing.T) {
	if _, err := NewChecker(nil); err == nil {
		t.Fatal("expected error for nil client")
	}
}
