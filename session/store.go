package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is returned when a Redis command fails for any reason
// other than a missing key.
var ErrRedisUnavailable = errors.New("redis unavailable")

// DefaultTokenKey is the fixed key the token is persisted under.
const DefaultTokenKey = "token"

// TokenStorage persists the session token under a single fixed key.
//
// Load returns "" and a nil error when no token is stored. Remove is
// idempotent.
type TokenStorage interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Remove(ctx context.Context) error
}

// RedisTokenStorage is a Redis-backed [TokenStorage].
//
// The token is written without a TTL; its lifetime is bounded only by login
// and logout.
type RedisTokenStorage struct {
	redis  redis.UniversalClient
	prefix string
	name   string
}

// NewRedisTokenStorage creates a [RedisTokenStorage]. prefix sets the Redis
// key namespace and name the fixed token key; an empty name falls back to
// [DefaultTokenKey].
func NewRedisTokenStorage(client redis.UniversalClient, prefix, name string) *RedisTokenStorage {
	if name == "" {
		name = DefaultTokenKey
	}
	return &RedisTokenStorage{
		redis:  client,
		prefix: prefix,
		name:   name,
	}
}

// Key returns the fully qualified Redis key holding the token.
func (s *RedisTokenStorage) Key() string {
	if s.prefix == "" {
		return s.name
	}
	return s.prefix + ":" + s.name
}

// Load reads the persisted token.
//
//	Performance: 1 Redis GET.
func (s *RedisTokenStorage) Load(ctx context.Context) (string, error) {
	token, err := s.redis.Get(ctx, s.Key()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return token, nil
}

// Save overwrites the persisted token.
//
//	Performance: 1 Redis SET.
func (s *RedisTokenStorage) Save(ctx context.Context, token string) error {
	if err := s.redis.Set(ctx, s.Key(), token, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Remove deletes the persisted token. Deleting a missing key is not an error.
//
//	Performance: 1 Redis DEL.
func (s *RedisTokenStorage) Remove(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.Key()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// MemoryTokenStorage keeps the token in process memory. It is safe for
// concurrent use.
type MemoryTokenStorage struct {
	mu    sync.Mutex
	token string
}

// NewMemoryTokenStorage returns a storage seeded with token ("" for none).
func NewMemoryTokenStorage(token string) *MemoryTokenStorage {
	return &MemoryTokenStorage{token: token}
}

func (s *MemoryTokenStorage) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryTokenStorage) Save(_ context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *MemoryTokenStorage) Remove(context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}
