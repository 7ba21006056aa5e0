// internal/config/types.go
package config

import (
	"time"
)

// Config represents the complete application configuration
type Config struct {
	// Server holds HTTP server configuration
	Server struct {
		// Address is the address to listen on
		Address string
		// ShutdownTimeout is the maximum time to wait for a graceful shutdown
		ShutdownTimeout time.Duration
	}

	// Metrics holds metrics server configuration
	Metrics struct {
		// Address is the address to listen on for the metrics server
		Address string
	}

	// TLS holds TLS configuration
	TLS struct {
		// Enabled indicates whether TLS is enabled
		Enabled bool
		// CertPath is the path to the TLS certificate
		CertPath string
		// KeyPath is the path to the TLS key
		KeyPath string
	}

	// Token holds key material and token options
	Token struct {
		// Secret is the shared HMAC secret
		Secret string
		// PrivateKeyPath is a PEM private key for asymmetric signing
		PrivateKeyPath string
		// PublicKeyPath is a PEM public key for asymmetric verification
		PublicKeyPath string
		// JWKSURL points at a key set used for verification
		JWKSURL string
		// OIDCIssuer is discovered for its jwks_uri when JWKSURL is empty
		OIDCIssuer string

		Algorithm string
		Audience  string
		Issuer    string
		// ExpiresIn is zero when tokens do not expire
		ExpiresIn time.Duration
		// IgnoreExpiration is nil when left to the default
		IgnoreExpiration *bool
		Leeway           time.Duration
	}

	// Middleware holds the tokenware behavioural flags
	Middleware struct {
		AllowAnonymous bool
		AutoSendToken  bool
		HandleErrors   bool
	}

	// Revocation holds revocation store configuration
	Revocation struct {
		// Backend is one of memory, redis, sqlite
		Backend string
		// GCInterval is how often expired entries are purged
		GCInterval time.Duration

		Redis struct {
			Addr     string
			Password string
			DB       int
		}

		SQLite struct {
			Path string
		}
	}

	// Demo holds the demo API configuration
	Demo struct {
		// Users maps user names to bcrypt password hashes
		Users map[string]string
	}

	// Observability holds observability configuration
	Observability struct {
		// LogLevel is the minimum log level to emit
		LogLevel string
		// LogFormat is the log format (json, text, console)
		LogFormat string
	}
}

// Revocation backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)
