package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinHS256SecretLen is the minimum HS256 secret length in bytes. HMAC-SHA256
// secrets shorter than the hash output weaken the MAC, so we refuse them.
const MinHS256SecretLen = 32

// HS256Signer implements the Signer interface using HMAC SHA-256.
type HS256Signer struct {
	key []byte
	alg string
}

// newHS256Signer wraps a symmetric secret. There is no key material to
// parse, only a length floor to enforce.
func newHS256Signer(secret []byte) (*HS256Signer, error) {
	if len(secret) < MinHS256SecretLen {
		return nil, fmt.Errorf("jwtx: HS256 secret too short: need at least %d bytes, got %d", MinHS256SecretLen, len(secret))
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	return &HS256Signer{
		key: key,
		alg: jwt.SigningMethodHS256.Alg(),
	}, nil
}

func (s *HS256Signer) Alg() string { return s.alg }

// Sign takes your claims and turns them into a signed JWT string.
func (s *HS256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.key)
}

// Validate does a quick sanity check to make sure we actually have a key.
func (s *HS256Signer) Validate() error {
	if len(s.key) < MinHS256SecretLen {
		return errors.New("jwtx: HS256 secret missing or too short")
	}
	return nil
}
