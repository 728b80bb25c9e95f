package redis

import (
	"context"
	"testing"
	"time"
)

func TestRateLimitIncrementCounts(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewRateLimitRepository(client, "test:rl")

	for want := 1; want <= 3; want++ {
		count, resetIn, err := repo.Increment(context.Background(), "ip:10.0.0.1", time.Minute)
		if err != nil {
			t.Fatalf("Increment returned error: %v", err)
		}
		if count != want {
			t.Fatalf("expected count %d, got %d", want, count)
		}
		if resetIn <= 0 || resetIn > time.Minute {
			t.Fatalf("expected resetIn within (0, 1m], got %v", resetIn)
		}
	}
}

func TestRateLimitWindowResets(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRateLimitRepository(client, "test:rl")

	if _, _, err := repo.Increment(context.Background(), "ip:10.0.0.2", time.Minute); err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if _, _, err := repo.Increment(context.Background(), "ip:10.0.0.2", time.Minute); err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	count, _, err := repo.Increment(context.Background(), "ip:10.0.0.2", time.Minute)
	if err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected fresh window to start at 1, got %d", count)
	}
}

func TestRateLimitSeparateIdentifiers(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewRateLimitRepository(client, "test:rl")

	if _, _, err := repo.Increment(context.Background(), "ip:10.0.0.3", time.Minute); err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}

	count, _, err := repo.Increment(context.Background(), "ip:10.0.0.4", time.Minute)
	if err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected independent counter, got %d", count)
	}
}

func TestRateLimitRejectsNonPositiveWindow(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewRateLimitRepository(client, "test:rl")

	if _, _, err := repo.Increment(context.Background(), "ip:10.0.0.5", 0); err == nil {
		t.Fatal("expected error for non-positive window")
	}
}
