package tokenware

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strings"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

// Keys is the key material tokens are signed and verified with.
// Secret serves the HS* family. PrivateKey and PublicKey serve RS*, PS*, ES*
// and EdDSA. RemoteKeys, when set, resolves verification keys for asymmetric
// tokens from a JWKS instead of PublicKey.
type Keys struct {
	Secret     []byte
	PrivateKey crypto.PrivateKey
	PublicKey  crypto.PublicKey
	RemoteKeys jwt.Keyfunc
}

// SecretKeys returns Keys for a shared HMAC secret
func SecretKeys(secret string) Keys {
	return Keys{Secret: []byte(secret)}
}

// LoadPEMKeys reads a private and/or public key from PEM files.
// When only the private key is given, the public key is derived from it.
func LoadPEMKeys(privatePath, publicPath string) (Keys, error) {
	var keys Keys

	if privatePath != "" {
		data, err := os.ReadFile(privatePath)
		if err != nil {
			return keys, fmt.Errorf("failed to read private key: %w", err)
		}
		key, err := parsePrivateKey(data)
		if err != nil {
			return keys, fmt.Errorf("failed to parse private key %s: %w", privatePath, err)
		}
		keys.PrivateKey = key
		if signer, ok := key.(crypto.Signer); ok {
			keys.PublicKey = signer.Public()
		}
	}

	if publicPath != "" {
		data, err := os.ReadFile(publicPath)
		if err != nil {
			return keys, fmt.Errorf("failed to read public key: %w", err)
		}
		key, err := parsePublicKey(data)
		if err != nil {
			return keys, fmt.Errorf("failed to parse public key %s: %w", publicPath, err)
		}
		keys.PublicKey = key
	}

	return keys, nil
}

func parsePrivateKey(data []byte) (crypto.PrivateKey, error) {
	if key, err := jwt.ParseRSAPrivateKeyFromPEM(data); err == nil {
		return key, nil
	}
	if key, err := jwt.ParseECPrivateKeyFromPEM(data); err == nil {
		return key, nil
	}
	if key, err := jwt.ParseEdPrivateKeyFromPEM(data); err == nil {
		return key, nil
	}
	return nil, errors.New("unsupported private key type")
}

func parsePublicKey(data []byte) (crypto.PublicKey, error) {
	if key, err := jwt.ParseRSAPublicKeyFromPEM(data); err == nil {
		return key, nil
	}
	if key, err := jwt.ParseECPublicKeyFromPEM(data); err == nil {
		return key, nil
	}
	if key, err := jwt.ParseEdPublicKeyFromPEM(data); err == nil {
		return key, nil
	}
	return nil, errors.New("unsupported public key type")
}

// NewRemoteKeys returns a Keyfunc backed by an auto-refreshing JWKS.
// The refresh goroutine stops when ctx is cancelled.
func NewRemoteKeys(ctx context.Context, jwksURLs ...string) (jwt.Keyfunc, error) {
	if len(jwksURLs) == 0 {
		return nil, errors.New("jwks url required")
	}
	kf, err := keyfunc.NewDefaultCtx(ctx, jwksURLs)
	if err != nil {
		return nil, fmt.Errorf("jwks init failed: %w", err)
	}
	return kf.Keyfunc, nil
}

// DiscoverJWKS looks up the jwks_uri advertised by an OpenID provider
func DiscoverJWKS(ctx context.Context, issuer string) (string, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return "", fmt.Errorf("oidc discovery failed: %w", err)
	}
	var meta struct {
		JwksURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&meta); err != nil {
		return "", fmt.Errorf("invalid discovery metadata: %w", err)
	}
	if meta.JwksURI == "" {
		return "", errors.New("discovery incomplete: missing jwks_uri")
	}
	return meta.JwksURI, nil
}

// defaultAlgorithm picks the algorithm used when none is configured
func (k Keys) defaultAlgorithm() string {
	if len(k.Secret) > 0 {
		return jwt.SigningMethodHS256.Alg()
	}
	key := k.PublicKey
	if key == nil && k.PrivateKey != nil {
		if signer, ok := k.PrivateKey.(crypto.Signer); ok {
			key = signer.Public()
		}
	}
	switch pub := key.(type) {
	case *ecdsa.PublicKey:
		switch pub.Curve {
		case elliptic.P384():
			return jwt.SigningMethodES384.Alg()
		case elliptic.P521():
			return jwt.SigningMethodES512.Alg()
		}
		return jwt.SigningMethodES256.Alg()
	case ed25519.PublicKey:
		return jwt.SigningMethodEdDSA.Alg()
	}
	return jwt.SigningMethodRS256.Alg()
}

// signingKey returns the key method signs with
func (k Keys) signingKey(alg string) (any, error) {
	if isHMAC(alg) {
		if len(k.Secret) == 0 {
			return nil, fmt.Errorf("no secret configured for %s", alg)
		}
		return k.Secret, nil
	}
	if k.PrivateKey == nil {
		return nil, fmt.Errorf("no private key configured for %s", alg)
	}
	return k.PrivateKey, nil
}

// canVerify reports whether some key can verify alg
func (k Keys) canVerify(alg string) bool {
	if isHMAC(alg) {
		return len(k.Secret) > 0
	}
	return k.RemoteKeys != nil || k.PublicKey != nil
}

// keyfunc resolves the verification key for a parsed token
func (k Keys) keyfunc(t *jwt.Token) (any, error) {
	alg := t.Method.Alg()
	if isHMAC(alg) {
		if len(k.Secret) == 0 {
			return nil, fmt.Errorf("no secret configured for %s", alg)
		}
		return k.Secret, nil
	}
	if k.RemoteKeys != nil {
		return k.RemoteKeys(t)
	}
	if k.PublicKey == nil {
		return nil, fmt.Errorf("no public key configured for %s", alg)
	}
	return k.PublicKey, nil
}

func isHMAC(alg string) bool {
	return strings.HasPrefix(alg, "HS")
}

// publicKeyMatches is used at construction to catch an RSA key paired with an EC algorithm and the like
func publicKeyMatches(alg string, key crypto.PublicKey) bool {
	switch key.(type) {
	case *rsa.PublicKey:
		return strings.HasPrefix(alg, "RS") || strings.HasPrefix(alg, "PS")
	case *ecdsa.PublicKey:
		return strings.HasPrefix(alg, "ES")
	case ed25519.PublicKey:
		return alg == jwt.SigningMethodEdDSA.Alg()
	}
	return true
}
