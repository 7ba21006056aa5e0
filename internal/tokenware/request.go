package tokenware

import (
	"errors"
	"net/http"

	"tokenware/internal/contextutil"
)

// SetPayload stores claims for a later Sign, Authenticate or Wrap stage.
// The returned request must be passed down the chain; when the request
// already carries a State (any tokenware stage ran before) it is r itself.
func SetPayload(r *http.Request, claims Claims) *http.Request {
	r, state := contextutil.EnsureState(r)
	state.Payload = claims
	return r
}

// ClaimsFrom returns the verified claims, or nil if the request is not authenticated
func ClaimsFrom(r *http.Request) Claims {
	if state := contextutil.GetState(r.Context()); state != nil && state.Claims != nil {
		return Claims(state.Claims)
	}
	return nil
}

// BearerTokenFrom returns the verified bearer token, or "" if there is none
func BearerTokenFrom(r *http.Request) string {
	if state := contextutil.GetState(r.Context()); state != nil {
		return state.Token
	}
	return ""
}

// IsAnonymous reports whether the request was accepted without a credential
func IsAnonymous(r *http.Request) bool {
	state := contextutil.GetState(r.Context())
	return state != nil && state.Anonymous
}

// SignedTokenFrom returns the token produced by Sign, or "" before signing
func SignedTokenFrom(r *http.Request) string {
	if state := contextutil.GetState(r.Context()); state != nil {
		return state.SignedToken
	}
	return ""
}

// ErrorFrom returns the error an earlier stage attached when automatic
// error handling is off
func ErrorFrom(r *http.Request) *Error {
	state := contextutil.GetState(r.Context())
	if state == nil || state.Err == nil {
		return nil
	}
	var e *Error
	if errors.As(state.Err, &e) {
		return e
	}
	return wrapError(Unknown, state.Err.Error(), state.Err)
}
