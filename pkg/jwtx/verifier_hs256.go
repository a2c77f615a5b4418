package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HS256Verifier validates JWTs signed using HS256.
type HS256Verifier struct {
	key       []byte
	issuer    string
	aud       []string
	tokenType string
	leeway    time.Duration
	now       func() time.Time
}

// NewVerifierHS256 creates a verifier holding the shared HS256 secret.
// The same length floor applies as for signing.
func NewVerifierHS256(secret []byte, issuer string, aud []string, opts ...VerifierOption) (*HS256Verifier, error) {
	if len(secret) < MinHS256SecretLen {
		return nil, fmt.Errorf("jwtx: HS256 secret too short: need at least %d bytes, got %d", MinHS256SecretLen, len(secret))
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	v := &HS256Verifier{
		key:    key,
		issuer: issuer,
		aud:    aud,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify validates the JWT string and returns its parsed Claims.
//
// The signature is checked before expiry, so a tampered token always
// reports ErrInvalidSig even when its exp is in the past. On ErrExpired
// the parsed claims are still returned: the signature held, so callers
// may trust the identity inside and act on it (e.g. revoke the matching
// server-side record).
func (v *HS256Verifier) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithLeeway(v.leeway),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			// Covers both bad signatures and disallowed algs (alg=none etc.)
			return Claims{}, ErrInvalidSig
		case errors.Is(err, jwt.ErrTokenExpired):
			return claimsOf(token), ErrExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return Claims{}, ErrNotYetValid
		default:
			return Claims{}, fmt.Errorf("%w: %v", ErrInvalidClaim, err)
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidClaim
	}

	// Now check all the claim requirements
	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(v.aud); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateTokenType(v.tokenType); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}

// claimsOf pulls typed claims out of a possibly-nil token.
func claimsOf(token *jwt.Token) Claims {
	if token == nil {
		return Claims{}
	}
	if c, ok := token.Claims.(*Claims); ok {
		return *c
	}
	return Claims{}
}
