// Package contextutil carries request-scoped values through the handler chain.
package contextutil

import (
	"context"
	"net/http"

	"tokenware/internal/observability/logging"
)

// Key is a type-safe key for context values
type Key string

const (
	// TraceIDKey is the key for the trace ID
	TraceIDKey Key = "context:trace_id"

	// SpanIDKey is the key for the span ID
	SpanIDKey Key = "context:span_id"

	// StateKey is the key for the tokenware request state
	StateKey Key = "context:tokenware_state"
)

// State is the per-request namespace shared by the tokenware stages and the
// application handlers between them. It is created once per request and is
// mutated in place, so handlers that run between two stages can hand values
// back to the later one without rebuilding the request.
//
// A request is only ever touched by one goroutine at a time, so State has no lock.
type State struct {
	// Payload holds the claims an application handler wants signed
	Payload map[string]any

	// SignedToken is the token produced by the sign stage
	SignedToken string

	// Token is the raw bearer token read from the Authorization header
	Token string

	// Claims holds the decoded claims of a verified token
	Claims map[string]any

	// Anonymous is set when the request was accepted without a credential
	Anonymous bool

	// Err is the error attached for a downstream handler when automatic
	// error handling is disabled
	Err error
}

// WithState attaches a fresh State to ctx
func WithState(ctx context.Context, state *State) context.Context {
	return context.WithValue(ctx, StateKey, state)
}

// GetState retrieves the State from ctx
func GetState(ctx context.Context) *State {
	if state, ok := ctx.Value(StateKey).(*State); ok {
		return state
	}
	return nil
}

// EnsureState returns the request's State, attaching a new one when absent.
// The returned request must be used for the rest of the chain.
func EnsureState(r *http.Request) (*http.Request, *State) {
	if state := GetState(r.Context()); state != nil {
		return r, state
	}
	state := &State{}
	return r.WithContext(WithState(r.Context(), state)), state
}

// WithTraceID adds a trace ID to a context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves a trace ID from a context
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// WithSpanID adds a span ID to a context
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, SpanIDKey, spanID)
}

// GetSpanID retrieves a span ID from a context
func GetSpanID(ctx context.Context) string {
	if spanID, ok := ctx.Value(SpanIDKey).(string); ok {
		return spanID
	}
	return ""
}

// EnrichContext adds trace and span IDs and a correlated logger to a context
func EnrichContext(ctx context.Context, logger *logging.Logger) context.Context {
	traceID := GetTraceID(ctx)
	if traceID == "" {
		traceID = logging.NewTraceID()
		ctx = WithTraceID(ctx, traceID)
	}

	spanID := logging.NewSpanID()
	ctx = WithSpanID(ctx, spanID)

	if logger != nil {
		logger = logger.With(
			logging.TraceIDKey, traceID,
			logging.SpanIDKey, spanID,
		)
		ctx = logging.ContextWithLogger(ctx, logger)
	}

	return ctx
}
