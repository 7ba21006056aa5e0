package tokenware

import (
	"net/http"

	"tokenware/internal/contextutil"
	"tokenware/internal/httputils"
	"tokenware/internal/observability/logging"
)

// SetHeaders adds permissive CORS headers unless a response was already started
func (t *Tokenware) SetHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !httputils.Committed(w) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", "*")
			h.Set("Access-Control-Allow-Methods", "GET, POST")
			h.Set("Access-Control-Allow-Headers", "X-Requested-With,content-type, Authorization")
		}
		next.ServeHTTP(w, r)
	})
}

// Verify classifies the request and records the outcome in its State.
// A rejection is answered here when errors are handled automatically;
// otherwise it is attached to State and the chain continues.
func (t *Tokenware) Verify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, state := contextutil.EnsureState(r)

		values := r.Header.Values("Authorization")
		header := ""
		if len(values) > 0 {
			header = values[0]
		}

		outcome := t.Classify(r.Context(), header, len(values) > 0)
		switch outcome.Kind {
		case Anonymous:
			state.Anonymous = true
		case Authenticated:
			state.Token = outcome.Token
			state.Claims = outcome.Claims
		case Rejected:
			if t.fail(w, r, state, outcome.Err) {
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// Sign signs the payload in State. With AutoSendToken the token is written
// immediately and the chain stops; otherwise it is stored for Send.
func (t *Tokenware) Sign(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, state := contextutil.EnsureState(r)

		if t.issue(w, r, state) {
			return
		}
		if state.SignedToken != "" && t.settings.AutoSendToken {
			t.sendToken(w, state.SignedToken)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Send writes the token produced by Sign and ends the chain. next only runs
// when the token is missing and errors are not handled; it may be nil.
func (t *Tokenware) Send(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, state := contextutil.EnsureState(r)

		if state.SignedToken == "" {
			if !t.fail(w, r, state, NewError(SignedBearerTokenMissing, msgTokenMissing)) && next != nil {
				next.ServeHTTP(w, r)
			}
			return
		}

		t.sendToken(w, state.SignedToken)
	})
}

// ErrorHandler answers an error attached to State by an earlier stage.
// Without one the request continues to next, which may be nil at the end of a chain.
func (t *Tokenware) ErrorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if state := contextutil.GetState(r.Context()); state != nil && state.Err != nil {
			t.Respond(w, r, state.Err)
			return
		}
		if next != nil {
			next.ServeHTTP(w, r)
		}
	})
}

// Authorize is SetHeaders followed by Verify
func (t *Tokenware) Authorize(next http.Handler) http.Handler {
	return t.SetHeaders(t.Verify(next))
}

// Authenticate signs and sends a token when the request's State carries a
// payload, and passes through otherwise.
func (t *Tokenware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, state := contextutil.EnsureState(r)
		if state.Payload != nil && t.authenticate(w, r, state) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Wrap guards routes the way the combined middleware does: requests are
// authorized before routes run, and a payload the routes leave in State is
// signed and sent after they return, unless they already wrote a response.
func (t *Tokenware) Wrap(routes http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := httputils.NewResponseWriter(w)
		r, state := contextutil.EnsureState(r)

		t.Authorize(routes).ServeHTTP(rw, r)

		if state.Payload != nil && !rw.HeaderWritten {
			_ = t.authenticate(rw, r, state)
		}
	})
}

// authenticate signs the payload and sends it when configured to. It reports
// whether a response was written.
func (t *Tokenware) authenticate(w http.ResponseWriter, r *http.Request, state *contextutil.State) bool {
	if t.issue(w, r, state) {
		return true
	}
	if state.SignedToken != "" && t.settings.AutoSendToken {
		t.sendToken(w, state.SignedToken)
		return true
	}
	return false
}

// issue signs state's payload into state.SignedToken. It reports whether a
// response was written; on failure with HandleErrors off the error is
// attached to state and SignedToken stays empty.
func (t *Tokenware) issue(w http.ResponseWriter, r *http.Request, state *contextutil.State) bool {
	if state.Payload == nil {
		return t.fail(w, r, state, NewError(PayloadMissing, msgPayloadMissing))
	}

	token, err := t.provider.Sign(Claims(state.Payload))
	t.metrics.RecordIssued(err == nil)
	if err != nil {
		logging.FromContextOr(r.Context(), t.logger).Error("Failed to sign bearer token", logging.Err(err))
		return t.fail(w, r, state, wrapError(SignedBearerTokenMissing, msgTokenMissing, err))
	}

	state.SignedToken = token
	logging.FromContextOr(r.Context(), t.logger).Debug("Bearer token signed", logging.Fingerprint(token))
	return false
}

func (t *Tokenware) sendToken(w http.ResponseWriter, token string) {
	writeJSON(w, http.StatusOK, map[string]string{"signedBearerToken": token})
}

// fail either answers err (returning true) or attaches it to state for a
// downstream handler (returning false). An error already attached is kept.
func (t *Tokenware) fail(w http.ResponseWriter, r *http.Request, state *contextutil.State, err *Error) bool {
	t.metrics.RecordError(err.Name())

	if t.settings.HandleErrors {
		logging.FromContextOr(r.Context(), t.logger).Debug("Error handled internally", "name", err.Name())
		t.Respond(w, r, err)
		return true
	}

	logging.FromContextOr(r.Context(), t.logger).Debug("Error passed to next handler", "name", err.Name())
	if state.Err == nil {
		state.Err = err
	}
	return false
}
