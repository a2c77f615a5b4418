package tokendsdk

import (
	"context"
	"net/http"
)

// Session accounting - the bearer-authenticated /v1/sessions endpoints

// ListSessions lists the caller's active sessions across all devices.
// Automatically refreshes the access token if expired.
func (s *Session) ListSessions(ctx context.Context) (*SessionsResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/sessions", nil, nil)
	if err != nil {
		return nil, err
	}

	var sessions SessionsResponse
	if err := decodeJSON(resp, &sessions, http.StatusOK); err != nil {
		return nil, err
	}

	return &sessions, nil
}

// RevokeAllSessions revokes every session the caller holds, this one
// included. The session's refresh token is useless afterwards; only the
// already-minted access token keeps verifying until it expires.
func (s *Session) RevokeAllSessions(ctx context.Context) (*RevokeAllSessionsResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/sessions", nil, nil)
	if err != nil {
		return nil, err
	}

	var result RevokeAllSessionsResponse
	if err := decodeJSON(resp, &result, http.StatusOK); err != nil {
		return nil, err
	}

	return &result, nil
}
