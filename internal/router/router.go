// internal/router/router.go
package router

import (
	"encoding/json"
	"maps"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"tokenware/internal/observability/logging"
	"tokenware/internal/observability/metrics"
	"tokenware/internal/revocation"
	"tokenware/internal/tokenware"
)

// Router serves the demo API around the tokenware stages
type Router struct {
	*mux.Router
	tokens  *tokenware.Tokenware
	store   revocation.Store
	users   map[string]string
	backend string
	logger  *logging.Logger
	metrics *metrics.Collector
}

// Config holds router configuration
type Config struct {
	// Users maps user names to bcrypt password hashes accepted by POST /token
	Users map[string]string

	// Backend names the revocation store, for metrics
	Backend string
}

// LoginRequest is the body of POST /token
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// registered claims that are set again on every issued token
var registeredClaims = []string{"iat", "exp", "aud", "iss", "nbf"}

// New creates a new router
func New(config Config, tokens *tokenware.Tokenware, store revocation.Store, logger *logging.Logger, metricsCollector *metrics.Collector) *Router {
	r := &Router{
		Router:  mux.NewRouter(),
		tokens:  tokens,
		store:   store,
		users:   config.Users,
		backend: config.Backend,
		logger:  logger.WithModule("router"),
		metrics: metricsCollector,
	}

	r.setupRoutes()

	return r
}

// setupRoutes wires each endpoint to its tokenware chain
func (r *Router) setupRoutes() {
	tw := r.tokens

	r.Path("/healthz").Methods(http.MethodGet).HandlerFunc(r.health)

	// login, then sign and send the token
	r.Path("/token").Methods(http.MethodPost).Handler(
		tw.SetHeaders(r.login(tw.Sign(tw.Send(tw.ErrorHandler(nil))))),
	)

	r.Path("/me").Methods(http.MethodGet).Handler(
		tw.Authorize(tw.ErrorHandler(http.HandlerFunc(r.me))),
	)

	// the routes leave a payload behind and Wrap signs it afterwards
	r.Path("/refresh").Methods(http.MethodPost).Handler(
		tw.Wrap(tw.ErrorHandler(http.HandlerFunc(r.refresh))),
	)

	r.Path("/revoke").Methods(http.MethodPost).Handler(
		tw.Authorize(tw.ErrorHandler(http.HandlerFunc(r.revoke))),
	)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.logger.Warn("Request received for undefined route", "path", req.URL.Path)
		writeError(w, http.StatusNotFound, "404 page not found")
	})
}

func (r *Router) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// login checks the posted credentials and hands the user's claims to next
func (r *Router) login(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		logger := logging.FromContextOr(req.Context(), r.logger)

		var body LoginRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			logger.Debug("Login body could not be decoded", logging.Err(err))
			writeError(w, http.StatusBadRequest, "Request body must be {\"username\", \"password\"}")
			return
		}

		if !r.checkPassword(body.Username, body.Password) {
			logger.Info("Login failed", "user", body.Username)
			writeError(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}

		logger.Debug("Login succeeded", "user", body.Username)
		next.ServeHTTP(w, tokenware.SetPayload(req, tokenware.Claims{"user": body.Username}))
	})
}

func (r *Router) checkPassword(user, password string) bool {
	hash, ok := r.users[user]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (r *Router) me(w http.ResponseWriter, req *http.Request) {
	if tokenware.IsAnonymous(req) {
		writeJSON(w, http.StatusOK, map[string]bool{"anonymous": true})
		return
	}
	writeJSON(w, http.StatusOK, tokenware.ClaimsFrom(req))
}

// refresh re-issues the caller's claims with fresh registered claims
func (r *Router) refresh(w http.ResponseWriter, req *http.Request) {
	claims := tokenware.ClaimsFrom(req)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "A valid bearer token is required to refresh")
		return
	}

	payload := maps.Clone(claims)
	for _, name := range registeredClaims {
		delete(payload, name)
	}
	tokenware.SetPayload(req, payload)
}

// revoke withdraws the caller's own bearer token until it would have expired,
// or for good when it never expires
func (r *Router) revoke(w http.ResponseWriter, req *http.Request) {
	logger := logging.FromContextOr(req.Context(), r.logger)

	token := tokenware.BearerTokenFrom(req)
	if token == "" {
		writeError(w, http.StatusBadRequest, "A valid bearer token is required to revoke")
		return
	}

	// a token whose exp is ignored keeps verifying after it, so its revocation must not lapse
	var expiresAt time.Time
	if !r.tokens.Provider().VerifyOptions().IgnoreExpiration {
		if exp, err := tokenware.ClaimsFrom(req).ExpirationTime(); err == nil && exp != nil {
			expiresAt = exp.Time
		}
	}

	err := r.store.Revoke(req.Context(), token, expiresAt)
	r.metrics.RecordRevocation(r.backend, err == nil)
	if err != nil {
		logger.Error("Failed to revoke token", logging.Err(err), logging.Fingerprint(token))
		writeError(w, http.StatusServiceUnavailable, "Revocation store unavailable")
		return
	}

	logger.Info("Token revoked", logging.Fingerprint(token), "backend", r.backend)
	writeJSON(w, http.StatusOK, map[string]bool{"revoked": true})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
