// Package memory provides an in-process revocation store backed by the
// kataras/jwt blocklist.
package memory

import (
	"context"
	"math"
	"time"

	"github.com/kataras/jwt"

	"tokenware/internal/revocation"
)

// never is the blocklist expiry of revocations that do not lapse
const never int64 = math.MaxInt64

// Store keeps revoked tokens in memory. Expired entries stay blocked until
// Purge drops them. Safe for concurrent use.
type Store struct {
	blocklist *jwt.Blocklist
}

var _ revocation.Store = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{blocklist: jwt.NewBlocklist(0)}
}

// IsRevoked implements revocation.Checker
func (s *Store) IsRevoked(_ context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	return s.blocklist.Has(token)
}

// Revoke implements revocation.Store
func (s *Store) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	expiry := never
	if !revocation.Forever(expiresAt) {
		expiry = expiresAt.Unix()
	}
	return s.blocklist.InvalidateToken([]byte(token), jwt.Claims{Expiry: expiry})
}

// Purge removes expired entries and returns how many were dropped
func (s *Store) Purge(context.Context) (int64, error) {
	return int64(s.blocklist.GC()), nil
}

func (s *Store) count() int64 {
	n, _ := s.blocklist.Count()
	return n
}

// Close implements revocation.Store
func (s *Store) Close() error {
	return nil
}
