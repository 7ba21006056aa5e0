// Package tokenware issues and verifies signed bearer tokens for net/http
// handler chains.
//
// The package is a set of composable stages, each a func(http.Handler)
// http.Handler so they slot into gorilla/mux or a plain chain:
//
//	SetHeaders   permissive CORS headers
//	Verify       classifies the request from its Authorization header
//	Sign         signs the payload an application handler left in State
//	Send         writes {"signedBearerToken": ...}
//	ErrorHandler answers an error attached by an earlier stage
//
// Authorize, Authenticate and Wrap bundle them the way a single combined
// middleware would.
//
// Request-scoped values (payload to sign, decoded claims, anonymous flag,
// attached error) live in one contextutil.State per request. Handlers read and
// write it through SetPayload, ClaimsFrom, IsAnonymous and ErrorFrom.
package tokenware

import (
	"fmt"

	"tokenware/internal/observability/logging"
	"tokenware/internal/observability/metrics"
	"tokenware/internal/revocation"
)

// Tokenware holds the resolved configuration shared by every stage.
// It is immutable after New and safe for concurrent use.
type Tokenware struct {
	provider *Provider
	settings Settings
	revoked  revocation.Checker
	logger   *logging.Logger
	metrics  *metrics.Collector
}

// New resolves opts and builds the stages' shared state.
// A nil checker revokes nothing; a nil logger discards; a nil collector records nothing.
func New(opts Options, checker revocation.Checker, logger *logging.Logger, collector *metrics.Collector) (*Tokenware, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithModule("tokenware")
	if checker == nil {
		checker = revocation.Never
	}

	sign, verify := Resolve(opts)
	provider, err := NewProvider(opts.Keys, sign, verify)
	if err != nil {
		return nil, fmt.Errorf("failed to configure token provider: %w", err)
	}
	settings := Defaults(opts)

	sign, verify = provider.SignOptions(), provider.VerifyOptions()
	logger.Debug("Tokenware configured",
		"algorithm", sign.Algorithm,
		"algorithms", verify.Algorithms,
		"audience", verify.Audience,
		"issuer", verify.Issuer,
		"expires_in", sign.ExpiresIn,
		"ignore_expiration", verify.IgnoreExpiration,
		"allow_anonymous", settings.AllowAnonymous,
		"auto_send_token", settings.AutoSendToken,
		"handle_errors", settings.HandleErrors,
	)

	return &Tokenware{
		provider: provider,
		settings: settings,
		revoked:  checker,
		logger:   logger,
		metrics:  collector,
	}, nil
}

// Provider exposes the underlying signer/verifier
func (t *Tokenware) Provider() *Provider {
	return t.provider
}

// Settings returns the behavioural flags in effect
func (t *Tokenware) Settings() Settings {
	return t.settings
}
