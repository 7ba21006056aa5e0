package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/url"
)

// RedactedStringURL is a string containing a URL for safe logging
type RedactedStringURL string

// LogValue implements slog.LogValuer to avoid revealing passwords
func (s RedactedStringURL) LogValue() slog.Value {
	u, err := url.Parse(string(s))
	if err != nil {
		return slog.StringValue(string(s))
	}
	return slog.StringValue(u.Redacted())
}

// RedactStringURL returns a safely loggable URL string
func RedactStringURL(s string) slog.LogValuer {
	return RedactedStringURL(s)
}

// TokenFingerprint identifies a bearer token in logs without revealing it
type TokenFingerprint string

// LogValue implements slog.LogValuer, logging the first 12 hex digits of the token's SHA-256
func (t TokenFingerprint) LogValue() slog.Value {
	if t == "" {
		return slog.StringValue("")
	}
	sum := sha256.Sum256([]byte(t))
	return slog.StringValue(hex.EncodeToString(sum[:])[:12])
}

// Fingerprint returns a loggable attribute for a bearer token
func Fingerprint(token string) slog.Attr {
	return slog.Any("token_fp", TokenFingerprint(token))
}
