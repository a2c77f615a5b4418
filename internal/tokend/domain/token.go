package domain

import "time"

// TokenPair represents what the token endpoints return: the short-lived
// access token and the rotating refresh token, both JWTs.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    int64  `json:"expires_in"`           // seconds until access expiry
	SessionID    string `json:"session_id,omitempty"`
}

// RefreshToken models the stored refresh token record in the DB. One row
// per issued refresh token, keyed by jti. Rows are never deleted on
// revocation: a revoked row is the evidence that detects replayed tokens,
// so it stays until the token would have expired anyway.
type RefreshToken struct {
	JTI         string
	UserID      string
	SessionID   string // persists across rotations within one session
	RotatedFrom string // jti of the predecessor, empty for session founders
	IssuedAt    time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time // nil while the token is live

	// Client metadata captured at issuance. Opaque strings, never parsed.
	IP        string
	UserAgent string
}

// Revoked reports whether the record has been consumed or killed.
func (rt *RefreshToken) Revoked() bool {
	return rt.RevokedAt != nil
}

// Expired reports whether the record is past its natural lifetime.
func (rt *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(rt.ExpiresAt)
}

// Active reports whether the record can still be presented for rotation.
func (rt *RefreshToken) Active(now time.Time) bool {
	return !rt.Revoked() && !rt.Expired(now)
}
