package jwtx_test

import (
	"testing"
	"time"

	"github.com/fitzroyhq/tokend/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewAccessClaims(t *testing.T) {
	now := time.Now().UTC()
	c := jwtx.NewAccessClaims(
		"user-123",
		"user@example.com",
		"admin",
		time.Hour,
		"tokend",
		[]string{"api"},
		now,
	)

	require.Equal(t, jwtx.TokenTypeAccess, c.TokenType)
	require.Equal(t, "user-123", c.Subject)
	require.Equal(t, "user@example.com", c.Email)
	require.Equal(t, "admin", c.Role)
	require.Empty(t, c.SessionID)
	require.Equal(t, now.Add(time.Hour).Unix(), c.ExpiresAt.Unix())

	// Each call mints its own jti.
	c2 := jwtx.NewAccessClaims("user-123", "user@example.com", "admin", time.Hour, "tokend", []string{"api"}, now)
	require.NotEmpty(t, c.ID)
	require.NotEqual(t, c.ID, c2.ID)
}

func TestNewRefreshClaims(t *testing.T) {
	now := time.Now().UTC()
	jti := jwtx.NewJTI()
	c := jwtx.NewRefreshClaims(
		"user-123",
		"01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV",
		jti,
		7*24*time.Hour,
		"tokend",
		[]string{"api"},
		now,
	)

	require.Equal(t, jwtx.TokenTypeRefresh, c.TokenType)
	require.Equal(t, jti, c.ID) // jti is pinned, not minted
	require.Equal(t, "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV", c.SessionID)
	require.Empty(t, c.Email)
	require.Empty(t, c.Role)
}

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "tokend"},
	}

	require.NoError(t, c.ValidateIssuer("tokend"))
	require.NoError(t, c.ValidateIssuer(""), "empty expectation enforces nothing")
	require.ErrorIs(t, c.ValidateIssuer("someone-else"), jwtx.ErrIssuer)
}

func TestValidateAudience(t *testing.T) {
	c := &jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Audience: []string{"api", "admin"}},
	}

	require.NoError(t, c.ValidateAudience([]string{"api"}))
	require.NoError(t, c.ValidateAudience([]string{"foo", "admin"}), "any overlap passes")
	require.NoError(t, c.ValidateAudience(nil), "empty expectation enforces nothing")
	require.ErrorIs(t, c.ValidateAudience([]string{"billing"}), jwtx.ErrAudience)
}

func TestValidateTokenType(t *testing.T) {
	c := &jwtx.Claims{TokenType: jwtx.TokenTypeRefresh}

	require.NoError(t, c.ValidateTokenType(jwtx.TokenTypeRefresh))
	require.NoError(t, c.ValidateTokenType(""), "empty expectation enforces nothing")
	require.ErrorIs(t, c.ValidateTokenType(jwtx.TokenTypeAccess), jwtx.ErrTokenType)
}
