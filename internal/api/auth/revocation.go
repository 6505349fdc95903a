package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRevocationTTL is how long a logged-out token stays revoked.
const DefaultRevocationTTL = 24 * time.Hour

// RedisKeyPrefix namespaces revocation entries in redis.
const RedisKeyPrefix = "devroom:revoked:"

// RevocationSet records tokens that were explicitly invalidated.
// Entries expire after their TTL.
type RevocationSet interface {
	Mark(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// tokenKey hashes a token so raw credentials never sit in memory or in redis.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// MemoryRevocationSet is an in-process RevocationSet.
type MemoryRevocationSet struct {
	mu      sync.RWMutex
	entries map[string]time.Time // key -> expiry
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryRevocationSet creates a set that sweeps expired entries every interval.
func NewMemoryRevocationSet(interval time.Duration) *MemoryRevocationSet {
	s := &MemoryRevocationSet{
		entries: make(map[string]time.Time),
		stop:    make(chan struct{}),
	}
	go s.cleanupLoop(interval)
	return s
}

// Mark revokes token for ttl.
func (s *MemoryRevocationSet) Mark(_ context.Context, token string, ttl time.Duration) error {
	if token == "" {
		return errors.New("revoke: empty token")
	}
	s.mu.Lock()
	s.entries[tokenKey(token)] = time.Now().Add(ttl)
	s.mu.Unlock()
	return nil
}

// IsRevoked reports whether token was revoked and has not yet expired from the set.
func (s *MemoryRevocationSet) IsRevoked(_ context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiresAt, ok := s.entries[tokenKey(token)]
	return ok && time.Now().Before(expiresAt), nil
}

// Len returns the number of entries, including expired ones not yet swept.
func (s *MemoryRevocationSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the cleanup loop.
func (s *MemoryRevocationSet) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryRevocationSet) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryRevocationSet) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, expiresAt := range s.entries {
		if now.After(expiresAt) {
			delete(s.entries, key)
		}
	}
}

// RedisRevocationSet keeps revocations in redis so they survive restarts.
type RedisRevocationSet struct {
	client *redis.Client
	prefix string
}

// NewRedisRevocationSet wraps an existing redis client.
func NewRedisRevocationSet(client *redis.Client) *RedisRevocationSet {
	return &RedisRevocationSet{client: client, prefix: RedisKeyPrefix}
}

// Mark revokes token for ttl using SET with expiry.
func (s *RedisRevocationSet) Mark(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" {
		return errors.New("revoke: empty token")
	}
	if err := s.client.Set(ctx, s.prefix+tokenKey(token), 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether a revocation entry exists for token.
func (s *RedisRevocationSet) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+tokenKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check revocation: %w", err)
	}
	return n > 0, nil
}

// Ping checks the redis connection.
func (s *RedisRevocationSet) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying redis client.
func (s *RedisRevocationSet) Close() error {
	return s.client.Close()
}
