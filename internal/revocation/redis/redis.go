// Package redis provides a Redis-backed revocation store so that revocations
// are shared between every instance serving the same tokens.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tokenware/internal/revocation"
)

// Config contains configuration options for the Redis store
type Config struct {
	// Client is the Redis client instance
	Client *redis.Client

	// KeyPrefix is the prefix for all Redis keys
	// Default: "tokenware:revoked:"
	KeyPrefix string
}

// Store implements revocation.Store using Redis keys with a TTL
type Store struct {
	client    *redis.Client
	keyPrefix string
}

var _ revocation.Store = (*Store)(nil)

// New creates a new Redis-backed store
func New(config Config) (*Store, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "tokenware:revoked:"
	}

	return &Store{
		client:    config.Client,
		keyPrefix: config.KeyPrefix,
	}, nil
}

// IsRevoked implements revocation.Checker
func (s *Store) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, s.buildKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to look up revocation: %w", err)
	}
	return n > 0, nil
}

// Revoke implements revocation.Store. Entries already past expiresAt are not
// stored; a zero expiresAt stores the key without a TTL.
func (s *Store) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	now := time.Now()
	var ttl time.Duration
	if !revocation.Forever(expiresAt) {
		if ttl = expiresAt.Sub(now); ttl <= 0 {
			return nil
		}
	}

	if err := s.client.Set(ctx, s.buildKey(token), now.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to store revocation: %w", err)
	}
	return nil
}

// Close closes the underlying client
func (s *Store) Close() error {
	return s.client.Close()
}

// buildKey hashes the token so keys stay short and tokens never sit in Redis in clear
func (s *Store) buildKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.keyPrefix + hex.EncodeToString(sum[:])
}
