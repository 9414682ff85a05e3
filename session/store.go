package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable is returned when the Redis backend cannot be reached or
// answers with an error. It is the only retryable failure class of this package.
var ErrStoreUnavailable = errors.New("refresh store unavailable")

// DefaultPrefix is the key namespace used when NewStore receives an empty prefix.
const DefaultPrefix = "refresh"

// Store is a Redis-backed registry of live refresh-token ids.
//
// Each entry maps a token id to the subject that owns it and expires with the
// token. Existence of the entry is the only proof that a refresh token may still
// be exchanged.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a refresh [Store] backed by the given Redis client.
// prefix sets the key namespace; keys take the form "<prefix>:<tokenID>".
func NewStore(rdb redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		redis:  rdb,
		prefix: prefix,
	}
}

func (s *Store) key(tokenID string) string {
	return s.prefix + ":" + tokenID
}

func (s *Store) reuseKey(subjectID string) string {
	return s.prefix + ":reuse:" + subjectID
}

// Put records tokenID as live for subjectID until ttl elapses.
//
//	Performance: 1 Redis SET.
func (s *Store) Put(ctx context.Context, tokenID, subjectID string, ttl time.Duration) error {
	if tokenID == "" || subjectID == "" {
		return errors.New("token id and subject are required")
	}
	if ttl <= 0 {
		return errors.New("invalid TTL")
	}
	if err := s.redis.Set(ctx, s.key(tokenID), subjectID, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Consume reads and deletes the entry for tokenID in a single MULTI/EXEC
// transaction. ok is false when the entry is absent, whether it expired, was
// consumed already, was revoked or never existed. Among concurrent callers for
// the same tokenID at most one observes ok == true.
//
//	Performance: 1 round trip (MULTI GET DEL EXEC).
func (s *Store) Consume(ctx context.Context, tokenID string) (string, bool, error) {
	if tokenID == "" {
		return "", false, nil
	}
	key := s.key(tokenID)

	var get *redis.StringCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.Get(ctx, key)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	subject, err := get.Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return subject, true, nil
}

// Delete removes the entry for tokenID. Deleting an absent entry is not an error.
//
//	Performance: 1 Redis DEL.
func (s *Store) Delete(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return nil
	}
	if err := s.redis.Del(ctx, s.key(tokenID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Exists reports whether tokenID is still live. It does not consume the entry.
func (s *Store) Exists(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n == 1, nil
}

// TTL returns the remaining lifetime of the entry for tokenID, or zero when absent.
func (s *Store) TTL(ctx context.Context, tokenID string) (time.Duration, error) {
	ttl, err := s.redis.PTTL(ctx, s.key(tokenID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// TrackReuse increments the per-subject counter of rejected refresh attempts and
// returns the count within window. The window starts at the first attempt.
func (s *Store) TrackReuse(ctx context.Context, subjectID string, window time.Duration) (int64, error) {
	if window <= 0 {
		window = 24 * time.Hour
	}
	key := s.reuseKey(subjectID)

	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if count == 1 {
		if err := s.redis.Expire(ctx, key, window).Err(); err != nil {
			return count, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	return count, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}
