package tokendsdk

// Wire types for the tokend HTTP API. The server handlers and the SDK
// share these, so the two sides cannot drift apart.

// ErrorResponse is the error envelope as it appears on the wire. The SDK
// parses it and hands callers the richer *OAuth2Error instead.
type ErrorResponse struct {
	// Error is the OAuth2 error code (e.g., "invalid_request", "invalid_grant")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// IssueTokenRequest is the body of POST /v1/token. The user id is one the
// upstream authenticator has already verified; tokend only checks the
// directory still knows and allows it.
type IssueTokenRequest struct {
	UserID string `json:"user_id"`
}

// RefreshRequest is the body of POST /v1/token/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RevokeRequest is the body of POST /v1/token/revoke.
type RevokeRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// IntrospectRequest is the body of POST /v1/introspect.
type IntrospectRequest struct {
	Token string `json:"token"`
}

// TokenResponse is the success body of POST /v1/token and
// POST /v1/token/refresh, shaped after RFC 6749 §5.1.
type TokenResponse struct {
	// AccessToken is the JWT access token used to authenticate API requests
	AccessToken string `json:"access_token"`

	// RefreshToken is the JWT refresh token used to obtain new access tokens
	RefreshToken string `json:"refresh_token"`

	// TokenType is always "Bearer" per OAuth2 spec
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in"`

	// SessionID identifies the device session this pair belongs to. Rotation
	// keeps the session id stable while the token jti changes.
	SessionID string `json:"session_id"`
}

// IntrospectionResponse mirrors RFC 7662: an inactive token yields only
// {"active": false} with every other field omitted.
type IntrospectionResponse struct {
	Active bool `json:"active"`

	Sub       string   `json:"sub,omitempty"`
	Email     string   `json:"email,omitempty"`
	Role      string   `json:"role,omitempty"`
	TokenType string   `json:"token_type,omitempty"`
	Exp       int64    `json:"exp,omitempty"`
	Iat       int64    `json:"iat,omitempty"`
	Iss       string   `json:"iss,omitempty"`
	Aud       []string `json:"aud,omitempty"`
	Jti       string   `json:"jti,omitempty"`
}

// SessionInfo is one device session in GET /v1/sessions.
type SessionInfo struct {
	// SessionID is the stable identifier shared by every token in the lineage
	SessionID string `json:"session_id"`

	// IssuedAt is when the session started (RFC3339 format)
	IssuedAt string `json:"issued_at"`

	// ExpiresAt is when the session's current refresh token expires (RFC3339 format)
	ExpiresAt string `json:"expires_at"`

	// IP is the client address recorded at the last issue or rotation
	IP string `json:"ip,omitempty"`

	// UserAgent is the client user agent recorded at the last issue or rotation
	UserAgent string `json:"user_agent,omitempty"`
}

// SessionsResponse is the success body of GET /v1/sessions.
type SessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

// RevokeAllSessionsResponse reports how many refresh token records a
// DELETE /v1/sessions call revoked.
type RevokeAllSessionsResponse struct {
	Revoked int64 `json:"revoked"`
}

// HealthResponse is the body of /livez and /readyz; only readyz
// populates Checks.
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks carries the per-dependency readiness verdicts.
type HealthChecks struct {
	// Database indicates the refresh token store connection status
	Database string `json:"database"`

	// Signer indicates the JWT signing capability status
	Signer string `json:"signer"`
}
