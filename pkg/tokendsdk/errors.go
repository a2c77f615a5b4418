package tokendsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fitzroyhq/tokend/pkg/httpx"
)

// Error codes carried in the "error" field of the wire envelope. The
// first group is RFC 6749 / RFC 6750 vocabulary; the second is ours.
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeInvalidGrant   = "invalid_grant"
	ErrorCodeInvalidToken   = "invalid_token"
	ErrorCodeServerError    = "server_error"

	ErrorCodeSessionLimitExceeded   = "session_limit_exceeded"
	ErrorCodeTemporarilyUnavailable = "temporarily_unavailable"
)

// OAuth2Error is the error envelope both sides of the API speak: handlers
// write it and the SDK returns it from failed calls, so a caller can
// errors.As straight to the wire-level code.
type OAuth2Error struct {
	// StatusCode travels in the HTTP status line, not the body.
	StatusCode int `json:"-"`

	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError renders the envelope as the HTTP response.
func (e *OAuth2Error) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

// NewOAuth2Error builds a custom envelope for cases the predefined
// values below do not cover.
func NewOAuth2Error(statusCode int, code, description string) *OAuth2Error {
	return &OAuth2Error{
		StatusCode:  statusCode,
		Code:        code,
		Description: description,
	}
}

var (
	// ErrInvalidRequest covers requests missing required parameters or
	// otherwise malformed.
	ErrInvalidRequest = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidJSONBody covers bodies that do not parse as JSON.
	ErrInvalidJSONBody = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "invalid JSON body",
	}

	// ErrInvalidContentType covers non-JSON content types.
	ErrInvalidContentType = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "content-type must be application/json",
	}

	ErrMethodNotAllowed = &OAuth2Error{
		StatusCode:  http.StatusMethodNotAllowed,
		Code:        ErrorCodeInvalidRequest,
		Description: "method not allowed",
	}

	// ErrInvalidGrant is the single answer for every way a grant can be
	// bad: unknown or inactive user, malformed, expired, revoked or
	// replayed refresh token. One body for all of them keeps the
	// endpoint from acting as a token oracle.
	ErrInvalidGrant = &OAuth2Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidGrant,
		Description: "invalid credentials",
	}

	// ErrInvalidToken is the bearer-side counterpart of ErrInvalidGrant.
	ErrInvalidToken = &OAuth2Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the access token is missing, invalid, expired or revoked",
	}

	// ErrSessionLimitExceeded tells the client to offer session
	// management instead of retrying.
	ErrSessionLimitExceeded = &OAuth2Error{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeSessionLimitExceeded,
		Description: "active session limit reached for this user",
	}

	ErrServerError = &OAuth2Error{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}

	// ErrServiceUnavailable signals a retryable store outage.
	ErrServiceUnavailable = &OAuth2Error{
		StatusCode:  http.StatusServiceUnavailable,
		Code:        ErrorCodeTemporarilyUnavailable,
		Description: "the token store is temporarily unavailable",
	}
)

// parseErrorResponse turns a non-2xx response into a typed *OAuth2Error.
// Bodies that are not the expected envelope still produce a usable error
// carrying the HTTP status.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var envelope ErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return &OAuth2Error{
			StatusCode:  resp.StatusCode,
			Code:        envelope.Error,
			Description: envelope.ErrorDescription,
		}
	}

	return &OAuth2Error{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
