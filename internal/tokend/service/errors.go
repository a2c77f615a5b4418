package service

import "errors"

var (
	// ErrInvalidRefresh covers every refresh token the service will not
	// honour: bad signature, malformed, unknown jti, past expiry. The
	// HTTP boundary collapses all of them to one unauthorized response.
	ErrInvalidRefresh = errors.New("invalid_refresh_token")

	// ErrRefreshReuse marks a refresh token presented after it was
	// already rotated or revoked. By the time a caller sees this the
	// whole session lineage is dead.
	ErrRefreshReuse = errors.New("refresh_token_reuse")

	ErrInvalidAccess = errors.New("invalid_access_token")

	ErrUserNotFound = errors.New("user_not_found")
	ErrUserInactive = errors.New("user_inactive")

	ErrSessionLimitExceeded = errors.New("session_limit_exceeded")

	// ErrStoreUnavailable wraps failures of a backing dependency (store
	// or directory). Retryable, and never mistaken for unauthorized.
	ErrStoreUnavailable = errors.New("store_unavailable")
)
