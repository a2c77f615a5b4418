package jwtx

import (
	"errors"
	"time"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// VerifierOption tweaks verification behaviour beyond the issuer and
// audience expectations every verifier carries.
type VerifierOption func(*HS256Verifier)

// WithLeeway allows small clock skew when validating exp/nbf.
// Because time sync is never perfect.
func WithLeeway(d time.Duration) VerifierOption {
	return func(v *HS256Verifier) { v.leeway = d }
}

// WithTimeFunc overrides the clock used for expiry checks. Tests use this
// to walk tokens across their expiry boundary without sleeping.
func WithTimeFunc(f func() time.Time) VerifierOption {
	return func(v *HS256Verifier) { v.now = f }
}

// WithTokenType makes the verifier reject tokens whose "type" claim does
// not match. An access verifier configured this way cannot be fooled by a
// refresh token and vice versa.
func WithTokenType(tokenType string) VerifierOption {
	return func(v *HS256Verifier) { v.tokenType = tokenType }
}

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrTokenType    = errors.New("jwtx: wrong token type")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)
