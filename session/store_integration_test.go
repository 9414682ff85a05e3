//go:build integration

package session

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// newRedisStore connects to REDIS_ADDR. Each test gets its own prefix so runs
// against a shared server do not collide.
func newRedisStore(t *testing.T) (*Store, *redis.Client) {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis at %s unreachable: %v", addr, err)
	}
	return NewStore(rdb, "it-"+uuid.NewString()), rdb
}

func TestRedisConsumeSingleWinner(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	const rounds, workers = 50, 16
	for round := 0; round < rounds; round++ {
		id := "race-" + strconv.Itoa(round)
		if err := store.Put(ctx, id, "u1", time.Minute); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		start := make(chan struct{})
		results := make(chan bool, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, ok, err := store.Consume(ctx, id)
				if err != nil {
					t.Errorf("Consume failed: %v", err)
				}
				results <- ok
			}()
		}
		close(start)
		wg.Wait()
		close(results)

		winners := 0
		for ok := range results {
			if ok {
				winners++
			}
		}
		if winners != 1 {
			t.Fatalf("round %d: expected exactly one winner, got %d", round, winners)
		}
	}
}

func TestRedisEntryLayout(t *testing.T) {
	store, rdb := newRedisStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "jti-1", "42", 90*time.Second); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	val, err := rdb.Get(ctx, store.key("jti-1")).Result()
	if err != nil || val != "42" {
		t.Fatalf("expected subject value 42, got %q %v", val, err)
	}
	ttl, err := rdb.PTTL(ctx, store.key("jti-1")).Result()
	if err != nil || ttl <= 80*time.Second || ttl > 90*time.Second {
		t.Fatalf("unexpected ttl %s %v", ttl, err)
	}

	if err := store.Delete(ctx, "jti-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := rdb.Get(ctx, store.key("jti-1")).Result(); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected entry gone, got %v", err)
	}
}
