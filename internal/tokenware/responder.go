package tokenware

import (
	"encoding/json"
	"errors"
	"net/http"

	"tokenware/internal/observability/logging"
)

// response is how an error kind is answered. An empty message means the
// error's own message is sent.
type response struct {
	status  int
	message string
	warn    bool
}

var responseTable = map[ErrorKind]response{
	JsonWebTokenError:            {status: http.StatusUnauthorized, message: "Unauthorized request"},
	TokenExpiredError:            {status: http.StatusUnauthorized, message: "Expired request authorization"},
	MalformedAuthorizationHeader: {status: http.StatusBadRequest},
	NoAuthorizationHeader:        {status: http.StatusBadRequest},
	RevokedToken:                 {status: http.StatusUnauthorized},
	PayloadMissing:               {status: http.StatusInternalServerError, warn: true},
	SignedBearerTokenMissing:     {status: http.StatusInternalServerError, warn: true},
	Unknown:                      {status: http.StatusBadRequest},
}

const msgInternal = "Unknown internal server error"

// ResponseFor maps any error to the status and message sent to the client,
// and whether the failure deserves a warning. Errors that are not tokenware
// errors, or carry a kind outside the table, become a generic 500.
func ResponseFor(err error) (status int, message string, warn bool) {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, msgInternal, true
	}
	resp, ok := responseTable[e.Kind]
	if !ok {
		return http.StatusInternalServerError, msgInternal, true
	}
	if resp.message == "" {
		return resp.status, e.Message, resp.warn
	}
	return resp.status, resp.message, resp.warn
}

// Respond writes the mapped response for err as {"error": message}
func (t *Tokenware) Respond(w http.ResponseWriter, r *http.Request, err error) {
	status, message, warn := ResponseFor(err)

	if warn {
		logger := logging.FromContextOr(r.Context(), t.logger)
		if message == msgInternal {
			logger.Warn("Unknown error passed to built-in error handler", logging.Err(err))
		} else {
			logger.Warn(message, logging.Err(err))
		}
	}

	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
