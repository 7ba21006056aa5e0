package tokenware

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/exp/slices"
)

// Claims is an application payload carried by a token
type Claims map[string]any

// ExpirationTime returns the exp claim, or nil when the token does not expire
func (c Claims) ExpirationTime() (*jwt.NumericDate, error) {
	return jwt.MapClaims(c).GetExpirationTime()
}

// Provider signs and verifies bearer tokens with golang-jwt.
type Provider struct {
	keys   Keys
	sign   SignOptions
	verify VerifyOptions
	now    func() time.Time
}

// NewProvider validates that keys can serve the resolved options
func NewProvider(keys Keys, sign SignOptions, verify VerifyOptions) (*Provider, error) {
	if sign.Algorithm == "" {
		sign.Algorithm = keys.defaultAlgorithm()
	}
	if jwt.GetSigningMethod(sign.Algorithm) == nil {
		return nil, fmt.Errorf("unsupported algorithm %q", sign.Algorithm)
	}
	// exp and iat are whole seconds
	if sign.ExpiresIn%time.Second != 0 {
		return nil, fmt.Errorf("expiresIn must be a whole number of seconds, got %s", sign.ExpiresIn)
	}
	if len(verify.Algorithms) == 0 {
		verify.Algorithms = []string{sign.Algorithm}
	}
	for _, alg := range verify.Algorithms {
		if alg == "none" {
			return nil, errors.New(`algorithm "none" is not allowed`)
		}
		if jwt.GetSigningMethod(alg) == nil {
			return nil, fmt.Errorf("unsupported algorithm %q", alg)
		}
		if !keys.canVerify(alg) {
			return nil, fmt.Errorf("no verification key configured for %s", alg)
		}
		if keys.RemoteKeys == nil && keys.PublicKey != nil && !isHMAC(alg) && !publicKeyMatches(alg, keys.PublicKey) {
			return nil, fmt.Errorf("public key type does not match algorithm %s", alg)
		}
	}

	return &Provider{
		keys:   keys,
		sign:   sign,
		verify: verify,
		now:    time.Now,
	}, nil
}

// SignOptions returns the resolved signing options
func (p *Provider) SignOptions() SignOptions { return p.sign }

// VerifyOptions returns the resolved verification options
func (p *Provider) VerifyOptions() VerifyOptions { return p.verify }

// Sign issues a token for claims. The payload is copied; iat is added unless
// present, and exp, aud and iss are added from the sign options. A payload
// that already carries one of those while the matching option is set is
// rejected rather than silently overwritten.
func (p *Provider) Sign(claims Claims) (string, error) {
	method := jwt.GetSigningMethod(p.sign.Algorithm)
	key, err := p.keys.signingKey(p.sign.Algorithm)
	if err != nil {
		return "", err
	}

	mc := jwt.MapClaims(maps.Clone(claims))
	if mc == nil {
		mc = jwt.MapClaims{}
	}

	iat := p.now().Unix()
	switch v := mc["iat"].(type) {
	case nil:
		mc["iat"] = iat
	case int64:
		iat = v
	case int:
		iat = int64(v)
	case float64:
		iat = int64(v)
	}

	if p.sign.ExpiresIn > 0 {
		if _, ok := mc["exp"]; ok {
			return "", errors.New(`payload already has an "exp" property`)
		}
		mc["exp"] = iat + int64(p.sign.ExpiresIn/time.Second)
	}
	if p.sign.Audience != "" {
		if _, ok := mc["aud"]; ok {
			return "", errors.New(`payload already has an "aud" property`)
		}
		mc["aud"] = p.sign.Audience
	}
	if p.sign.Issuer != "" {
		if _, ok := mc["iss"]; ok {
			return "", errors.New(`payload already has an "iss" property`)
		}
		mc["iss"] = p.sign.Issuer
	}

	return jwt.NewWithClaims(method, mc).SignedString(key)
}

// Verify checks token and returns its claims. The returned error is always a
// *Error whose Kind is JsonWebTokenError, TokenExpiredError or Unknown.
func (p *Provider) Verify(_ context.Context, token string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods(p.verify.Algorithms),
		jwt.WithoutClaimsValidation(),
	)
	parsed, err := parser.Parse(token, p.keys.keyfunc)
	if err != nil {
		return nil, tokenError(err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, wrapError(Unknown, "unexpected claims type", fmt.Errorf("%T", parsed.Claims))
	}

	if err := p.validateClaims(claims); err != nil {
		return nil, err
	}

	return Claims(claims), nil
}

func (p *Provider) validateClaims(claims jwt.MapClaims) error {
	checked := claims
	if p.verify.IgnoreExpiration {
		checked = maps.Clone(claims)
		delete(checked, "exp")
	}

	opts := []jwt.ParserOption{
		jwt.WithLeeway(p.verify.Leeway),
		jwt.WithTimeFunc(p.now),
	}
	if p.verify.Audience != "" {
		opts = append(opts, jwt.WithAudience(p.verify.Audience))
	}
	if p.verify.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.verify.Issuer))
	}
	if err := jwt.NewValidator(opts...).Validate(checked); err != nil {
		return tokenError(err)
	}

	if p.verify.MaxAge > 0 {
		iat, err := claims.GetIssuedAt()
		if err != nil {
			return tokenError(err)
		}
		// a token without iat cannot be aged; no typed token error covers it
		if iat == nil {
			return NewError(Unknown, "iat required when maxAge is specified")
		}
		if p.now().After(iat.Add(p.verify.MaxAge + p.verify.Leeway)) {
			return NewError(TokenExpiredError, "maxAge exceeded")
		}
	}

	return nil
}

var typedTokenErrors = []error{
	jwt.ErrTokenMalformed,
	jwt.ErrTokenUnverifiable,
	jwt.ErrTokenSignatureInvalid,
	jwt.ErrTokenRequiredClaimMissing,
	jwt.ErrTokenInvalidAudience,
	jwt.ErrTokenInvalidIssuer,
	jwt.ErrTokenInvalidSubject,
	jwt.ErrTokenUsedBeforeIssued,
	jwt.ErrTokenNotValidYet,
	jwt.ErrTokenInvalidId,
	jwt.ErrTokenInvalidClaims,
	jwt.ErrInvalidType,
	jwt.ErrInvalidKey,
	jwt.ErrInvalidKeyType,
}

// tokenError maps a golang-jwt error onto the closed error set
func tokenError(err error) *Error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return wrapError(TokenExpiredError, "jwt expired", err)
	}
	if slices.ContainsFunc(typedTokenErrors, func(target error) bool { return errors.Is(err, target) }) {
		return wrapError(JsonWebTokenError, "invalid token", err)
	}
	return wrapError(Unknown, "token could not be decoded", err)
}
