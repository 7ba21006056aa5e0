package tokenware

import (
	"context"
	"strings"

	"tokenware/internal/observability/logging"
)

// OutcomeKind is the classification of one request
type OutcomeKind int

const (
	// Anonymous requests carry no usable token and anonymous access is allowed
	Anonymous OutcomeKind = iota + 1
	// Authenticated requests carry a valid, unrevoked token
	Authenticated
	// Rejected requests failed and anonymous access is not allowed
	Rejected
)

func (k OutcomeKind) String() string {
	switch k {
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	case Rejected:
		return "rejected"
	}
	return "invalid"
}

// Outcome is the result of Classify. Claims and Token are set only for
// Authenticated, Err only for Rejected.
type Outcome struct {
	Kind   OutcomeKind
	Token  string
	Claims Claims
	Err    *Error
}

// Classify decides whether a request is anonymous, authenticated or rejected
// from the value of its Authorization header. present distinguishes a
// missing header from an empty one.
func (t *Tokenware) Classify(ctx context.Context, header string, present bool) Outcome {
	outcome := t.classify(ctx, header, present)

	logger := logging.FromContextOr(ctx, t.logger)
	if outcome.Kind == Rejected && t.settings.AllowAnonymous {
		logger.Debug("Token rejected, accepting request as anonymous",
			"name", outcome.Err.Name(), "reason", outcome.Err.Message)
		outcome = Outcome{Kind: Anonymous}
	}

	switch outcome.Kind {
	case Rejected:
		logger.Debug("Request rejected", "name", outcome.Err.Name(), "reason", outcome.Err.Message)
	case Authenticated:
		logger.Debug("Request authenticated", logging.Fingerprint(outcome.Token))
	default:
		logger.Debug("Request is anonymous")
	}
	t.metrics.RecordClassification(outcome.Kind.String())

	return outcome
}

func (t *Tokenware) classify(ctx context.Context, header string, present bool) Outcome {
	if !present {
		if t.settings.AllowAnonymous {
			return Outcome{Kind: Anonymous}
		}
		return rejected(NewError(NoAuthorizationHeader, msgNoHeader))
	}

	token, ok := parseBearer(header)
	if !ok {
		return rejected(NewError(MalformedAuthorizationHeader, msgMalformedHeader))
	}

	claims, err := t.provider.Verify(ctx, token)
	if err != nil {
		return rejected(asError(err))
	}

	revoked, err := t.revoked.IsRevoked(ctx, token)
	if err != nil {
		logging.FromContextOr(ctx, t.logger).Error("Revocation check failed, treating token as revoked",
			logging.Err(err), logging.Fingerprint(token))
		return rejected(wrapError(RevokedToken, msgRevoked, err))
	}
	if revoked {
		return rejected(NewError(RevokedToken, msgRevoked))
	}

	return Outcome{Kind: Authenticated, Token: token, Claims: claims}
}

// parseBearer splits "Bearer <token>"; anything else is malformed
func parseBearer(header string) (string, bool) {
	fields := strings.Fields(header)
	if len(fields) != 2 || fields[0] != "Bearer" {
		return "", false
	}
	return fields[1], true
}

func rejected(err *Error) Outcome {
	return Outcome{Kind: Rejected, Err: err}
}

func asError(err error) *Error {
	if e, ok := err.(*Error); ok {
		return e
	}
	return wrapError(Unknown, "token could not be decoded", err)
}
