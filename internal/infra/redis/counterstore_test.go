package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestRedisClient(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	return rdb, mr
}

func TestRedisCounterStoreAddAccumulates(t *testing.T) {
	t.Parallel()

	rdb, _ := newTestRedisClient(t)
	store, err := NewRedisCounterStore(rdb)
	if err != nil {
		t.Fatalf("NewRedisCounterStore() error = %v", err)
	}

	value, err := store.Add(context.Background(), "ratelimit:tenant-a:1", 3, time.Minute)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if value != 3 {
		t.Fatalf("Add() = %d, want 3", value)
	}

	value, err = store.Add(context.Background(), "ratelimit:tenant-a:1", 4, time.Minute)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if value != 7 {
		t.Fatalf("Add() = %d, want 7", value)
	}
}

func TestRedisCounterStoreAddSetsTTLOnce(t *testing.T) {
	t.Parallel()

	rdb, mr := newTestRedisClient(t)
	store, err := NewRedisCounterStore(rdb)
	if err != nil {
		t.Fatalf("NewRedisCounterStore() error = %v", err)
	}

	if _, err := store.Add(context.Background(), "counter", 1, 2*time.Minute); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	ttl := mr.TTL("counter")
	if ttl != 2*time.Minute {
		t.Fatalf("TTL = %v, want 2m", ttl)
	}

	// A later Add must not reset the expiry clock.
	mr.FastForward(time.Minute)
	if _, err := store.Add(context.Background(), "counter", 1, 2*time.Minute); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if ttl := mr.TTL("counter"); ttl != time.Minute {
		t.Fatalf("TTL after second Add = %v, want 1m", ttl)
	}
}

func TestRedisCounterStoreGetMissingKeyIsZero(t *testing.T) {
	t.Parallel()

	rdb, _ := newTestRedisClient(t)
	store, err := NewRedisCounterStore(rdb)
	if err != nil {
		t.Fatalf("NewRedisCounterStore() error = %v", err)
	}

	value, err := store.Get(context.Background(), "ratelimit:tenant-a:missing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if value != 0 {
		t.Fatalf("Get() = %d, want 0", value)
	}
}

func TestRedisCounterStoreNegativeDelta(t *testing.T) {
	t.Parallel()

	rdb, _ := newTestRedisClient(t)
	store, err := NewRedisCounterStore(rdb)
	if err != nil {
		t.Fatalf("NewRedisCounterStore() error = %v", err)
	}

	if _, err := store.Add(context.Background(), "counter", 10, time.Minute); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	value, err := store.Add(context.Background(), "counter", -4, time.Minute)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if value != 6 {
		t.Fatalf("Add() = %d, want 6", value)
	}

	got, err := store.Get(context.Background(), "counter")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != 6 {
		t.Fatalf("Get() = %d, want 6", got)
	}
}

func TestRedisCounterStoreRequiresClient(t *testing.T) {
	t.Parallel()

	if _, err := NewRedisCounterStore(nil); err == nil {
		t.Fatal("expected error for nil client")
	}
}
