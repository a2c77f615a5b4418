package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default lifetimes applied when a deployment does not configure its own.
const (
	// DefaultAccessTokenTTL keeps access tokens short-lived; revocation
	// is stateless for them, so the TTL is the revocation latency.
	DefaultAccessTokenTTL = 60 * time.Minute

	// DefaultRefreshTokenTTL bounds how long an idle session survives.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Values of the "type" claim. The two classes are signed with independent
// secrets, but the claim states the class on the wire as well so a
// misrouted token fails loudly rather than verifying by accident.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the single claims shape for both token classes. Fields that
// only apply to one class are omitempty, so each class serializes only
// what it carries.
type Claims struct {
	jwt.RegisteredClaims

	// TokenType is "access" or "refresh".
	TokenType string `json:"type,omitempty"`

	// Role of the authenticated user. Access tokens only.
	Role string `json:"role,omitempty"`

	// Email of the authenticated user. Access tokens only.
	Email string `json:"email,omitempty"`

	// SessionID ties a refresh token to its session lineage. Refresh
	// tokens only.
	SessionID string `json:"session_id,omitempty"`
}

// NewAccessClaims builds minimally-correct access-token claims with a
// fresh jti.
func NewAccessClaims(
	subject, email, role string,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	now = now.UTC()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		TokenType: TokenTypeAccess,
		Role:      role,
		Email:     email,
	}
}

// NewRefreshClaims builds refresh-token claims. The jti is caller-supplied
// because the matching server-side record is keyed by it and both must
// agree before the token is handed out.
func NewRefreshClaims(
	subject, sessionID, jti string,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	now = now.UTC()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
		TokenType: TokenTypeRefresh,
		SessionID: sessionID,
	}
}

// NewJTI returns a random identifier for the "jti" claim.
func NewJTI() string {
	return uuid.NewString()
}

// ValidateIssuer checks the "iss" claim. An empty expectation enforces
// nothing.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected != "" && c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience passes when any expected audience appears in "aud".
// An empty expectation enforces nothing.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateTokenType checks the "type" claim against the expected class.
// An empty expectation enforces nothing.
func (c *Claims) ValidateTokenType(expected string) error {
	if expected != "" && c.TokenType != expected {
		return ErrTokenType
	}
	return nil
}
