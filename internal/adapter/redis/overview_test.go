package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/google/uuid"
)

type testConfig struct{ addr string }

func (c testConfig) GetAddr() string     { return c.addr }
func (c testConfig) GetPassword() string { return "" }
func (c testConfig) GetDB() int          { return 0 }

// DISPATCH_TEST_REDIS_ADDR points at a disposable redis.
func newCache(t *testing.T) *OverviewCache {
	t.Helper()

	addr := os.Getenv("DISPATCH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("DISPATCH_TEST_REDIS_ADDR is not set")
	}

	c, err := New(context.Background(), testConfig{addr: addr})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOverviewCache(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	if _, ok, err := c.GetOverview(ctx, key); ok || err != nil {
		t.Fatalf("expected a miss, got ok=%v err=%v", ok, err)
	}

	want := &models.OverviewResponse{SettingsVersion: 4}
	if err := c.SetOverview(ctx, key, want, 30*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := c.GetOverview(ctx, key)
	if err != nil || !ok || got.SettingsVersion != 4 {
		t.Fatalf("expected a hit, got %+v ok=%v err=%v", got, ok, err)
	}

	ttl, err := c.client.TTL(ctx, keyPrefix+key).Result()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 || ttl > 30*time.Second {
		t.Fatalf("unexpected ttl %v", ttl)
	}
}

func TestOverviewCache_CorruptEntryIsMiss(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	if err := c.client.Set(ctx, keyPrefix+key, "{not json", time.Minute).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, err := c.GetOverview(ctx, key); ok || err != nil {
		t.Fatalf("corrupt entry must be a miss, got ok=%v err=%v", ok, err)
	}
}
