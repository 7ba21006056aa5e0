package tokenware

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

func newTestProvider(t *testing.T, keys Keys, opts Options) *Provider {
	t.Helper()
	sign, verify := Resolve(opts)
	p, err := NewProvider(keys, sign, verify)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	return p
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestVerifyFixtureToken(t *testing.T) {
	p := newTestProvider(t, SecretKeys(fixtureSecret), Options{})

	claims, err := p.Verify(context.Background(), fixtureToken)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims["user"] != "someUserName" {
		t.Errorf("user = %v", claims["user"])
	}
}

func TestVerifyFixtureTokenPastMaxAge(t *testing.T) {
	p := newTestProvider(t, SecretKeys(fixtureSecret), Options{ExpiresIn: time.Minute})

	_, err := p.Verify(context.Background(), fixtureToken)
	if KindOf(err) != TokenExpiredError {
		t.Fatalf("expected TokenExpiredError, got %v", err)
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	p := newTestProvider(t, SecretKeys("s3cret"), Options{Audience: "api", Issuer: "tokenware", ExpiresIn: time.Hour})
	now := time.Unix(1_700_000_000, 0)
	p.now = fixedClock(now)

	token, err := p.Sign(Claims{"user": "alice"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	claims, err := p.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims["user"] != "alice" || claims["aud"] != "api" || claims["iss"] != "tokenware" {
		t.Errorf("unexpected claims %v", claims)
	}
	if claims["iat"] != float64(now.Unix()) {
		t.Errorf("iat = %v, want %d", claims["iat"], now.Unix())
	}
	if claims["exp"] != float64(now.Add(time.Hour).Unix()) {
		t.Errorf("exp = %v, want %d", claims["exp"], now.Add(time.Hour).Unix())
	}
}

func TestSignDoesNotMutatePayload(t *testing.T) {
	p := newTestProvider(t, SecretKeys("s3cret"), Options{ExpiresIn: time.Hour})
	payload := Claims{"user": "alice"}

	if _, err := p.Sign(payload); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(payload) != 1 {
		t.Errorf("payload was modified: %v", payload)
	}
}

func TestSignRejectsConflictingClaims(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		payload Claims
	}{
		{"exp", Options{ExpiresIn: time.Hour}, Claims{"exp": 1}},
		{"aud", Options{Audience: "api"}, Claims{"aud": "other"}},
		{"iss", Options{Issuer: "tokenware"}, Claims{"iss": "other"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, SecretKeys("s3cret"), tt.opts)
			if _, err := p.Sign(tt.payload); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestVerifyExpired(t *testing.T) {
	p := newTestProvider(t, SecretKeys("s3cret"), Options{ExpiresIn: time.Second})
	issued := time.Unix(1_700_000_000, 0)
	p.now = fixedClock(issued)

	token, err := p.Sign(Claims{"user": "alice"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	p.now = fixedClock(issued.Add(2 * time.Second))
	_, err = p.Verify(context.Background(), token)
	if KindOf(err) != TokenExpiredError {
		t.Fatalf("expected TokenExpiredError, got %v", err)
	}
}

func TestVerifyLeewayToleratesSkew(t *testing.T) {
	p := newTestProvider(t, SecretKeys("s3cret"), Options{ExpiresIn: time.Second, Leeway: 5 * time.Second})
	issued := time.Unix(1_700_000_000, 0)
	p.now = fixedClock(issued)

	token, err := p.Sign(Claims{"user": "alice"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	p.now = fixedClock(issued.Add(3 * time.Second))
	if _, err := p.Verify(context.Background(), token); err != nil {
		t.Fatalf("expected leeway to accept the token, got %v", err)
	}
}

func TestVerifyIgnoreExpiration(t *testing.T) {
	past := time.Now().Add(-time.Hour).Unix()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user": "alice", "exp": past}).
		SignedString([]byte("s3cret"))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	lenient := newTestProvider(t, SecretKeys("s3cret"), Options{})
	if _, err := lenient.Verify(context.Background(), token); err != nil {
		t.Errorf("expected exp to be ignored without expiresIn, got %v", err)
	}

	strict := newTestProvider(t, SecretKeys("s3cret"), Options{IgnoreExpiration: Bool(false)})
	if _, err := strict.Verify(context.Background(), token); KindOf(err) != TokenExpiredError {
		t.Errorf("expected TokenExpiredError, got %v", err)
	}
}

func TestVerifyRejections(t *testing.T) {
	other := newTestProvider(t, SecretKeys("s3cret"), Options{Audience: "other", Issuer: "someone"})
	foreign, err := other.Sign(Claims{"user": "alice"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	hs384 := newTestProvider(t, SecretKeys("s3cret"), Options{Algorithm: "HS384"})
	wrongAlg, err := hs384.Sign(Claims{"user": "alice"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	notYet, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"nbf": time.Now().Add(time.Hour).Unix()}).
		SignedString([]byte("s3cret"))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	tests := []struct {
		name  string
		opts  Options
		token string
	}{
		{"bad signature", Options{}, fixtureToken},
		{"garbage", Options{}, "INVALID" + fixtureToken},
		{"not a jwt", Options{}, "abc"},
		{"wrong audience", Options{Audience: "api"}, foreign},
		{"wrong issuer", Options{Issuer: "tokenware"}, foreign},
		{"algorithm not allowed", Options{}, wrongAlg},
		{"not valid yet", Options{}, notYet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, SecretKeys("s3cret"), tt.opts)
			_, err := p.Verify(context.Background(), tt.token)
			if KindOf(err) != JsonWebTokenError {
				t.Fatalf("expected JsonWebTokenError, got %v", err)
			}
		})
	}
}

// A token without iat cannot be checked against a maximum age. No typed
// token error covers that, so it surfaces as Unknown.
func TestVerifyMissingIssuedAtWithMaxAgeIsUnknown(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user": "alice"}).
		SignedString([]byte("s3cret"))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	p := newTestProvider(t, SecretKeys("s3cret"), Options{ExpiresIn: time.Hour})
	_, err = p.Verify(context.Background(), token)
	if KindOf(err) != Unknown {
		t.Fatalf("expected Unknown, got %v", err)
	}
}

func TestNewProviderValidation(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	tests := []struct {
		name string
		keys Keys
		opts Options
	}{
		{"none algorithm", SecretKeys("s3cret"), Options{Algorithm: "none"}},
		{"unsupported algorithm", SecretKeys("s3cret"), Options{Algorithm: "XX256"}},
		{"asymmetric algorithm with a secret", SecretKeys("s3cret"), Options{Algorithm: "RS256"}},
		{"no keys", Keys{}, Options{}},
		{"key type mismatch", Keys{PublicKey: &rsaKey.PublicKey}, Options{Algorithm: "ES256"}},
		{"sub-second expiry", SecretKeys("s3cret"), Options{ExpiresIn: 500 * time.Millisecond}},
		{"fractional expiry", SecretKeys("s3cret"), Options{ExpiresIn: 1500 * time.Millisecond}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sign, verify := Resolve(tt.opts)
			if _, err := NewProvider(tt.keys, sign, verify); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestLoadPEMKeysRoundTrip(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalECPrivateKey: %v", err)
	}
	path := filepath.Join(t.TempDir(), "signing.pem")
	if err := os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	keys, err := LoadPEMKeys(path, "")
	if err != nil {
		t.Fatalf("LoadPEMKeys: %v", err)
	}
	if keys.PublicKey == nil {
		t.Fatal("expected the public key to be derived")
	}

	p := newTestProvider(t, keys, Options{})
	if got := p.SignOptions().Algorithm; got != "ES256" {
		t.Errorf("default algorithm = %s, want ES256", got)
	}
	token, err := p.Sign(Claims{"user": "alice"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := p.Verify(context.Background(), token); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestLoadPEMKeysMissingFile(t *testing.T) {
	if _, err := LoadPEMKeys(filepath.Join(t.TempDir(), "missing.pem"), ""); err == nil {
		t.Fatal("expected an error")
	}
}

func TestVerifyWithRemoteKeys(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &key.PublicKey,
		KeyID:     "test-key",
		Algorithm: "RS256",
		Use:       "sig",
	}}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	remote, err := NewRemoteKeys(ctx, srv.URL)
	if err != nil {
		t.Fatalf("NewRemoteKeys: %v", err)
	}

	p := newTestProvider(t, Keys{RemoteKeys: remote}, Options{Algorithm: "RS256"})

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{"user": "alice", "iat": time.Now().Unix()})
	tok.Header["kid"] = "test-key"
	signed, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	claims, err := p.Verify(ctx, signed)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims["user"] != "alice" {
		t.Errorf("user = %v", claims["user"])
	}

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	forged, err := tok.SignedString(other)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	if _, err := p.Verify(ctx, forged); KindOf(err) != JsonWebTokenError {
		t.Fatalf("expected JsonWebTokenError for a foreign key, got %v", err)
	}
}

func TestNewRemoteKeysRequiresURL(t *testing.T) {
	if _, err := NewRemoteKeys(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
}
