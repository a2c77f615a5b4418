package domain

import "time"

// Session is the caller-facing view of one active session: the live
// refresh record of a lineage, keyed by the session id that survives
// rotation.
type Session struct {
	SessionID string    `json:"session_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}
