package tokenware

import "time"

// Options is the flat configuration a caller hands to New.
// Pointer fields distinguish "not set" from the zero value.
type Options struct {
	// Keys holds the signing and verification material
	Keys Keys

	// AllowAnonymous accepts requests without a usable token. Default false.
	AllowAnonymous *bool
	// AutoSendToken makes the sign stage answer with the token. Default true.
	AutoSendToken *bool
	// HandleErrors makes tokenware answer errors itself. Default true.
	HandleErrors *bool

	Algorithm        string
	Audience         string
	Issuer           string
	ExpiresIn        time.Duration
	IgnoreExpiration *bool

	// Leeway tolerates clock skew on exp, nbf, iat and max age checks
	Leeway time.Duration
}

// SignOptions controls token issuance
type SignOptions struct {
	Algorithm string
	Audience  string
	Issuer    string
	ExpiresIn time.Duration
}

// VerifyOptions controls token verification
type VerifyOptions struct {
	Algorithms       []string
	Audience         string
	Issuer           string
	MaxAge           time.Duration
	IgnoreExpiration bool
	Leeway           time.Duration
}

// Settings are the behavioural flags with defaults applied
type Settings struct {
	AllowAnonymous bool
	AutoSendToken  bool
	HandleErrors   bool
}

// Resolve derives the sign and verify sub-configurations from opts.
// Note the singular Algorithm on the sign side and the plural Algorithms on
// the verify side.
func Resolve(opts Options) (SignOptions, VerifyOptions) {
	var sign SignOptions
	var verify VerifyOptions

	if opts.Algorithm != "" {
		sign.Algorithm = opts.Algorithm
		verify.Algorithms = []string{opts.Algorithm}
	}
	if opts.Audience != "" {
		sign.Audience = opts.Audience
		verify.Audience = opts.Audience
	}
	if opts.Issuer != "" {
		sign.Issuer = opts.Issuer
		verify.Issuer = opts.Issuer
	}
	if opts.ExpiresIn > 0 {
		sign.ExpiresIn = opts.ExpiresIn
		verify.MaxAge = opts.ExpiresIn
		verify.IgnoreExpiration = false
	} else {
		verify.IgnoreExpiration = true
	}
	if opts.IgnoreExpiration != nil {
		verify.IgnoreExpiration = *opts.IgnoreExpiration
	}
	verify.Leeway = opts.Leeway

	return sign, verify
}

// Defaults applies the default behavioural flags
func Defaults(opts Options) Settings {
	return Settings{
		AllowAnonymous: boolOr(opts.AllowAnonymous, false),
		AutoSendToken:  boolOr(opts.AutoSendToken, true),
		HandleErrors:   boolOr(opts.HandleErrors, true),
	}
}

// Bool returns a pointer to b, for filling Options
func Bool(b bool) *bool {
	return &b
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
