package tokendsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient talks to the tokend HTTP API. Its own methods cover the
// unauthenticated surface; authenticated calls go through a Session.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient builds a client for the service at baseURL.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthenticateUser issues a fresh token pair for a user id the caller has
// already authenticated, and wraps it in an auto-refreshing Session. Each
// call starts a new session, so the server may refuse with
// ErrorCodeSessionLimitExceeded when the user is at their cap.
func (c *SDKClient) AuthenticateUser(ctx context.Context, userID string) (*Session, error) {
	tokenResp, err := c.IssueToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokenResp), nil
}

// ResumeSession creates an authenticated session from a stored refresh token.
// The token is rotated immediately, so the caller's stored copy is consumed;
// persist the session's new refresh token instead.
func (c *SDKClient) ResumeSession(ctx context.Context, refreshToken string) (*Session, error) {
	tokenResp, err := c.RefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokenResp), nil
}

// NewSessionFromTokens wraps tokens obtained elsewhere in a Session
// without a network round trip. Auto-refresh still applies once the
// access token nears expiry.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken, sessionID string, expiresIn int) *Session {
	return &Session{
		client:       c,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		sessionID:    sessionID,
		expiresAt:    time.Now().Add(time.Duration(expiresIn)*time.Second - refreshSkew),
	}
}
