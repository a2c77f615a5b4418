package jwtx

// Signer mints compact serialized tokens from Claims. Validate reports
// whether the signer is usable, which readiness checks call at runtime.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
	Validate() error
}

// NewSignerHS256 builds an HS256 signer. Secrets shorter than
// MinHS256SecretLen bytes are rejected.
func NewSignerHS256(secret []byte) (Signer, error) {
	return newHS256Signer(secret)
}
