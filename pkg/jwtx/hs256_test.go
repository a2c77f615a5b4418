package jwtx_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fitzroyhq/tokend/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "tokend"

var exampleSecret = bytes.Repeat([]byte{0x42}, 32)

func TestHS256SignAndVerify(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(exampleSecret)
	require.NoError(t, err)
	require.NoError(t, signer.Validate())

	// Build claims using helper function
	now := time.Now().UTC()
	claims := jwtx.NewAccessClaims(
		"user-123",          // subject
		"user@example.com",  // email
		"member",            // role
		2*time.Minute,       // TTL
		exampleIssuer,       // issuer
		[]string{"api"},     // audience
		now,                 // issued at
	)

	// Sign token
	token, err := signer.Sign(claims)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Create verifier
	verifier, err := jwtx.NewVerifierHS256(exampleSecret, exampleIssuer, []string{"api"})
	require.NoError(t, err)

	// Verify token
	parsed, err := verifier.Verify(token)
	require.NoError(t, err)

	require.Equal(t, claims.Issuer, parsed.Issuer)
	require.Equal(t, claims.Subject, parsed.Subject)
	require.ElementsMatch(t, claims.Audience, parsed.Audience)
	require.Equal(t, claims.TokenType, parsed.TokenType)
	require.Equal(t, claims.Email, parsed.Email)
	require.Equal(t, claims.Role, parsed.Role)
	require.Equal(t, claims.ID, parsed.ID)
}

func TestHS256SecretTooShort(t *testing.T) {
	short := []byte("sixteen-byte-key")

	_, err := jwtx.NewSignerHS256(short)
	require.Error(t, err)

	_, err = jwtx.NewVerifierHS256(short, exampleIssuer, nil)
	require.Error(t, err)
}

func TestHS256VerifyFailsForWrongSecret(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(exampleSecret)
	require.NoError(t, err)

	now := time.Now().UTC()
	claims := jwtx.NewAccessClaims("user-123", "", "", time.Minute, exampleIssuer, nil, now)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	other := bytes.Repeat([]byte{0x24}, 32)
	verifier, err := jwtx.NewVerifierHS256(other, exampleIssuer, nil)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestHS256VerifyFailsForTamperedSignature(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(exampleSecret)
	require.NoError(t, err)

	now := time.Now().UTC()
	claims := jwtx.NewAccessClaims("user-123", "", "", time.Minute, exampleIssuer, nil, now)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	verifier, err := jwtx.NewVerifierHS256(exampleSecret, exampleIssuer, nil)
	require.NoError(t, err)

	// Flip a single byte of the signature segment
	_, err = verifier.Verify(flipLastSigByte(t, token))
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestHS256SignatureCheckedBeforeExpiry(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(exampleSecret)
	require.NoError(t, err)

	// Token that is already expired
	now := time.Now().UTC()
	claims := jwtx.NewAccessClaims("user-123", "", "", time.Minute, exampleIssuer, nil, now.Add(-time.Hour))
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	verifier, err := jwtx.NewVerifierHS256(exampleSecret, exampleIssuer, nil)
	require.NoError(t, err)

	// Untampered it reports expiry
	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)

	// Tampered it must report the signature, never the expiry
	_, err = verifier.Verify(flipLastSigByte(t, token))
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestHS256ExpiredStillReturnsClaims(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(exampleSecret)
	require.NoError(t, err)

	now := time.Now().UTC()
	jti := jwtx.NewJTI()
	claims := jwtx.NewRefreshClaims("user-123", "sess-1", jti, time.Minute, exampleIssuer, nil, now.Add(-time.Hour))
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	verifier, err := jwtx.NewVerifierHS256(exampleSecret, exampleIssuer, nil)
	require.NoError(t, err)

	parsed, err := verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)

	// Signature held, so the identity inside is still usable
	require.Equal(t, jti, parsed.ID)
	require.Equal(t, "user-123", parsed.Subject)
	require.Equal(t, "sess-1", parsed.SessionID)
}

func TestHS256ExpiryBoundary(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(exampleSecret)
	require.NoError(t, err)

	issued := time.Date(2031, 1, 1, 12, 0, 0, 0, time.UTC)
	ttl := time.Hour
	claims := jwtx.NewAccessClaims("user-123", "", "", ttl, exampleIssuer, nil, issued)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	current := issued
	verifier, err := jwtx.NewVerifierHS256(exampleSecret, exampleIssuer, nil,
		jwtx.WithTimeFunc(func() time.Time { return current }),
	)
	require.NoError(t, err)

	// One second before expiry the token is accepted
	current = issued.Add(ttl - time.Second)
	_, err = verifier.Verify(token)
	require.NoError(t, err)

	// One second after expiry it is not
	current = issued.Add(ttl + time.Second)
	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestHS256VerifyFailsForWrongIssuer(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(exampleSecret)
	require.NoError(t, err)

	now := time.Now().UTC()
	claims := jwtx.NewAccessClaims("user-123", "", "", time.Minute, exampleIssuer, nil, now)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	verifier, err := jwtx.NewVerifierHS256(exampleSecret, "wrong-issuer", nil)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestHS256VerifyFailsForWrongAudience(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(exampleSecret)
	require.NoError(t, err)

	now := time.Now().UTC()
	claims := jwtx.NewAccessClaims("user-123", "", "", time.Minute, exampleIssuer, []string{"api"}, now)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	verifier, err := jwtx.NewVerifierHS256(exampleSecret, exampleIssuer, []string{"billing"})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrAudience)
}

func TestHS256VerifyEnforcesTokenType(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(exampleSecret)
	require.NoError(t, err)

	now := time.Now().UTC()
	access := jwtx.NewAccessClaims("user-123", "", "", time.Minute, exampleIssuer, nil, now)
	token, err := signer.Sign(access)
	require.NoError(t, err)

	verifier, err := jwtx.NewVerifierHS256(exampleSecret, exampleIssuer, nil,
		jwtx.WithTokenType(jwtx.TokenTypeRefresh),
	)
	require.NoError(t, err)

	// An access token presented where a refresh token belongs
	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrTokenType)
}

func TestHS256VerifyRejectsGarbage(t *testing.T) {
	verifier, err := jwtx.NewVerifierHS256(exampleSecret, exampleIssuer, nil)
	require.NoError(t, err)

	for _, s := range []string{"", "not-a-jwt", "a.b", "a.b.c.d"} {
		_, err := verifier.Verify(s)
		require.ErrorIs(t, err, jwtx.ErrMalformed, "input %q", s)
	}
}

func TestHS256VerifyRejectsUnsignedAlg(t *testing.T) {
	now := time.Now().UTC()
	claims := jwtx.NewAccessClaims("user-123", "", "", time.Minute, exampleIssuer, nil, now)

	// Craft an alg=none token carrying otherwise-valid claims
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	verifier, err := jwtx.NewVerifierHS256(exampleSecret, exampleIssuer, nil)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestHS256VerifyWithLeeway(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(exampleSecret)
	require.NoError(t, err)

	issued := time.Date(2031, 1, 1, 12, 0, 0, 0, time.UTC)
	claims := jwtx.NewAccessClaims("user-123", "", "", time.Minute, exampleIssuer, nil, issued)
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	current := issued.Add(time.Minute + 10*time.Second)
	verifier, err := jwtx.NewVerifierHS256(exampleSecret, exampleIssuer, nil,
		jwtx.WithTimeFunc(func() time.Time { return current }),
		jwtx.WithLeeway(30*time.Second),
	)
	require.NoError(t, err)

	// 10s past expiry with 30s leeway still passes
	_, err = verifier.Verify(token)
	require.NoError(t, err)
}

// flipLastSigByte corrupts exactly one character of the signature segment.
func flipLastSigByte(t *testing.T, token string) string {
	t.Helper()

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	sig := []byte(parts[2])
	last := len(sig) - 1
	if sig[last] == 'A' {
		sig[last] = 'B'
	} else {
		sig[last] = 'A'
	}
	parts[2] = string(sig)
	return strings.Join(parts, ".")
}
