package tokendsdk

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// refreshSkew is how early a session rotates its access token, so a
// token is never presented at the edge of its lifetime.
const refreshSkew = 30 * time.Second

// Session is an authenticated handle on the API. Methods rotate the
// access token on demand, so a long-lived Session keeps working across
// token expiries. Safe for concurrent use.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	sessionID    string
	expiresAt    time.Time
}

func newSession(client *SDKClient, tokenResp *TokenResponse) *Session {
	s := &Session{client: client}
	s.adopt(tokenResp)
	return s
}

// adopt stores a rotated token pair. Callers must hold the write lock,
// except during construction.
func (s *Session) adopt(tokenResp *TokenResponse) {
	s.accessToken = tokenResp.AccessToken
	s.refreshToken = tokenResp.RefreshToken
	if tokenResp.SessionID != "" {
		s.sessionID = tokenResp.SessionID
	}
	s.expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - refreshSkew)
}

// getValidToken returns the access token, rotating first when it is
// within refreshSkew of expiry.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	token, fresh := s.accessToken, time.Now().Before(s.expiresAt)
	s.mu.RUnlock()
	if fresh {
		return token, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have rotated while we waited on the lock.
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	if s.refreshToken == "" {
		return "", fmt.Errorf("access token expired and no refresh token available")
	}

	tokenResp, err := s.client.RefreshToken(ctx, s.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	s.adopt(tokenResp)

	return s.accessToken, nil
}

// Refresh forces a rotation now, regardless of how much life the current
// access token has left.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshToken == "" {
		return fmt.Errorf("no refresh token available")
	}

	tokenResp, err := s.client.RefreshToken(ctx, s.refreshToken)
	if err != nil {
		return err
	}
	s.adopt(tokenResp)

	return nil
}

// Revoke ends this session server-side by revoking its refresh token.
// The access token keeps verifying until its own expiry; it is
// short-lived on purpose.
func (s *Session) Revoke(ctx context.Context) error {
	s.mu.RLock()
	refreshToken := s.refreshToken
	s.mu.RUnlock()

	if refreshToken == "" {
		return fmt.Errorf("no refresh token to revoke")
	}

	return s.client.RevokeToken(ctx, refreshToken)
}

// AccessToken returns the current access token without an expiry check.
// Prefer the Session methods, which rotate automatically.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token. Callers persisting
// sessions should store this after every operation; rotation replaces it.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// SessionID returns the server-assigned id shared by every token in this
// session's lineage.
func (s *Session) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}
