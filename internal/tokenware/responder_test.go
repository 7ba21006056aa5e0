package tokenware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestResponseFor(t *testing.T) {
	tests := []struct {
		err         error
		wantStatus  int
		wantMessage string
		wantWarn    bool
	}{
		{NewError(JsonWebTokenError, "invalid signature"), http.StatusUnauthorized, "Unauthorized request", false},
		{NewError(TokenExpiredError, "jwt expired"), http.StatusUnauthorized, "Expired request authorization", false},
		{NewError(MalformedAuthorizationHeader, msgMalformedHeader), http.StatusBadRequest, msgMalformedHeader, false},
		{NewError(NoAuthorizationHeader, msgNoHeader), http.StatusBadRequest, msgNoHeader, false},
		{NewError(RevokedToken, msgRevoked), http.StatusUnauthorized, msgRevoked, false},
		{NewError(PayloadMissing, msgPayloadMissing), http.StatusInternalServerError, msgPayloadMissing, true},
		{NewError(SignedBearerTokenMissing, msgTokenMissing), http.StatusInternalServerError, msgTokenMissing, true},
		{NewError(Unknown, "something odd"), http.StatusBadRequest, "something odd", false},
		{NewError(ErrorKind(99), "made up"), http.StatusInternalServerError, msgInternal, true},
		{errors.New("plain error"), http.StatusInternalServerError, msgInternal, true},
		{fmt.Errorf("wrapped: %w", NewError(RevokedToken, msgRevoked)), http.StatusUnauthorized, msgRevoked, false},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, message, warn := ResponseFor(tt.err)
			if status != tt.wantStatus || message != tt.wantMessage || warn != tt.wantWarn {
				t.Errorf("ResponseFor = (%d, %q, %v), want (%d, %q, %v)",
					status, message, warn, tt.wantStatus, tt.wantMessage, tt.wantWarn)
			}
		})
	}
}

func TestRespondWritesErrorBody(t *testing.T) {
	tw, logs := newCapturingTokenware(t, Options{})

	rec := httptest.NewRecorder()
	tw.Respond(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("boom"))

	expectError(t, rec, http.StatusInternalServerError, msgInternal)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("expected JSON content type, got %q", ct)
	}
	if !strings.Contains(logs.String(), "Unknown error passed to built-in error handler") {
		t.Errorf("expected a warning for an unknown error, logs: %s", logs.String())
	}
}

func TestRespondWarnsOnInternalMisuse(t *testing.T) {
	tw, logs := newCapturingTokenware(t, Options{})

	rec := httptest.NewRecorder()
	tw.Respond(rec, httptest.NewRequest(http.MethodGet, "/", nil), NewError(PayloadMissing, msgPayloadMissing))

	expectError(t, rec, http.StatusInternalServerError, msgPayloadMissing)
	if !strings.Contains(logs.String(), `"level":"WARN"`) || !strings.Contains(logs.String(), msgPayloadMissing) {
		t.Errorf("expected a warning naming the error, logs: %s", logs.String())
	}
}

func TestErrorMarshalJSON(t *testing.T) {
	data, err := json.Marshal(NewError(RevokedToken, msgRevoked))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"name":"revokedToken","message":"Request authorization was previously revoked"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestErrorIsMatchesKind(t *testing.T) {
	cause := errors.New("redis down")
	err := fmt.Errorf("check: %w", wrapError(RevokedToken, msgRevoked, cause))

	if !errors.Is(err, NewError(RevokedToken, "")) {
		t.Error("expected errors.Is to match on kind")
	}
	if errors.Is(err, NewError(Unknown, "")) {
		t.Error("expected errors.Is not to match a different kind")
	}
	if !errors.Is(err, cause) {
		t.Error("expected the cause to stay reachable")
	}
	if KindOf(err) != RevokedToken {
		t.Errorf("KindOf = %v", KindOf(err))
	}
	if KindOf(cause) != 0 {
		t.Errorf("KindOf(plain) = %v, want 0", KindOf(cause))
	}
}
