// Package revocation decides whether an otherwise valid bearer token has been
// withdrawn by the application, and stores withdrawn tokens.
package revocation

import (
	"context"
	"time"
)

// Checker reports whether a token has been revoked.
// It is consulted at most once per verified token per request.
type Checker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// Store is a Checker that can also record revocations
type Store interface {
	Checker

	// Revoke marks token as revoked until expiresAt. A zero expiresAt keeps
	// the entry forever.
	Revoke(ctx context.Context, token string, expiresAt time.Time) error

	// Close releases the store's resources
	Close() error
}

// Func adapts a plain predicate to a Checker
type Func func(token string) bool

// IsRevoked implements Checker
func (f Func) IsRevoked(_ context.Context, token string) (bool, error) {
	return f(token), nil
}

// Never is the default Checker; it revokes nothing
var Never Checker = Func(func(string) bool { return false })

// Forever reports whether a revocation with expiresAt never lapses.
// Tokens without exp never stop verifying, so neither may their revocation.
func Forever(expiresAt time.Time) bool {
	return expiresAt.IsZero()
}
