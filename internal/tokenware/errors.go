package tokenware

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorKind enumerates the reasons a request can be rejected or a token
// pipeline can fail. The zero value is not a valid kind.
type ErrorKind int

const (
	// MalformedAuthorizationHeader means the header is not "Bearer <token>"
	MalformedAuthorizationHeader ErrorKind = iota + 1
	// NoAuthorizationHeader means the request carried no Authorization header
	NoAuthorizationHeader
	// RevokedToken means the token verified but was revoked
	RevokedToken
	// PayloadMissing means the sign stage ran without a payload
	PayloadMissing
	// SignedBearerTokenMissing means the send stage ran without a signed token
	SignedBearerTokenMissing
	// JsonWebTokenError means the token failed verification
	JsonWebTokenError
	// TokenExpiredError means the token is past exp or its maximum age
	TokenExpiredError
	// Unknown means decoding failed before a typed token error was produced
	Unknown
)

var kindNames = map[ErrorKind]string{
	MalformedAuthorizationHeader: "malformedAuthorizationHeader",
	NoAuthorizationHeader:        "noAuthorizationHeader",
	RevokedToken:                 "revokedToken",
	PayloadMissing:               "payloadMissing",
	SignedBearerTokenMissing:     "signedBearerTokenMissing",
	JsonWebTokenError:            "JsonWebTokenError",
	TokenExpiredError:            "TokenExpiredError",
	Unknown:                      "unknown",
}

// String returns the wire name of the kind
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Messages used by the errors tokenware creates itself.
const (
	msgMalformedHeader = "Authorization header is malformed, should be in the form of: Bearer <token>"
	msgNoHeader        = "No authorization header was found"
	msgRevoked         = "Request authorization was previously revoked"
	msgPayloadMissing  = "Bearer token payload is missing"
	msgTokenMissing    = "Signed bearer token is missing"
)

// Error is a tokenware failure. It marshals to {"name","message"} so a
// downstream error handler sees the same shape regardless of where the
// failure came from.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

// NewError creates an Error of the given kind
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func wrapError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Name returns the wire name of the error's kind
func (e *Error) Name() string {
	return e.Kind.String()
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches another *Error of the same kind, so sentinel comparisons work
// with errors.Is(err, tokenware.NewError(tokenware.RevokedToken, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// MarshalJSON implements json.Marshaler
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}{e.Name(), e.Message})
}

// KindOf returns the kind of err, or 0 when err is not a tokenware error
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
