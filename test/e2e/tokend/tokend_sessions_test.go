package tokend_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fitzroyhq/tokend/pkg/tokendsdk"
)

// TestListSessions verifies the session listing:
// 1. Log in from two "devices"
// 2. List sessions through one of them
// 3. Verify both sessions appear with their ids
func TestListSessions(t *testing.T) {
	baseURL, cleanup := setupTokendContainer(t)
	defer cleanup()

	client := tokendsdk.NewSDKClient(baseURL)

	phone, err := client.AuthenticateUser(t.Context(), "alice")
	require.NoError(t, err)
	laptop, err := client.AuthenticateUser(t.Context(), "alice")
	require.NoError(t, err)

	resp, err := phone.ListSessions(t.Context())
	require.NoError(t, err)
	require.Len(t, resp.Sessions, 2, "Both devices should appear")

	ids := make(map[string]bool)
	for _, s := range resp.Sessions {
		ids[s.SessionID] = true
		require.NotEmpty(t, s.IssuedAt)
		require.NotEmpty(t, s.ExpiresAt)
	}
	require.True(t, ids[phone.SessionID()], "Phone session should be listed")
	require.True(t, ids[laptop.SessionID()], "Laptop session should be listed")

	t.Logf("Both sessions listed")
}

// TestListSessionsIsPerUser verifies a user only ever sees their own sessions.
func TestListSessionsIsPerUser(t *testing.T) {
	baseURL, cleanup := setupTokendContainer(t)
	defer cleanup()

	client := tokendsdk.NewSDKClient(baseURL)

	alice, err := client.AuthenticateUser(t.Context(), "alice")
	require.NoError(t, err)
	carol, err := client.AuthenticateUser(t.Context(), "carol")
	require.NoError(t, err)

	resp, err := carol.ListSessions(t.Context())
	require.NoError(t, err)
	require.Len(t, resp.Sessions, 1, "Carol should only see her own session")
	require.Equal(t, carol.SessionID(), resp.Sessions[0].SessionID)
	require.NotEqual(t, alice.SessionID(), resp.Sessions[0].SessionID)

	t.Logf("Session listing correctly scoped to the caller")
}

// TestRevokeAllSessions verifies the panic button:
// 1. Log in from two devices
// 2. Revoke all sessions from one of them
// 3. Verify the reported count and that both refresh tokens are dead
func TestRevokeAllSessions(t *testing.T) {
	baseURL, cleanup := setupTokendContainer(t)
	defer cleanup()

	client := tokendsdk.NewSDKClient(baseURL)

	phone, err := client.AuthenticateUser(t.Context(), "alice")
	require.NoError(t, err)
	laptop, err := client.AuthenticateUser(t.Context(), "alice")
	require.NoError(t, err)

	result, err := phone.RevokeAllSessions(t.Context())
	require.NoError(t, err)
	require.Equal(t, int64(2), result.Revoked, "Both sessions should be revoked")

	_, err = client.RefreshToken(t.Context(), phone.RefreshToken())
	assertUnauthorized(t, err, "Phone refresh token should be dead")
	_, err = client.RefreshToken(t.Context(), laptop.RefreshToken())
	assertUnauthorized(t, err, "Laptop refresh token should be dead")

	// Freeing the slots means alice can log in again.
	_, err = client.IssueToken(t.Context(), "alice")
	require.NoError(t, err, "Revoked sessions should free up the session limit")

	t.Logf("All sessions revoked, slots freed")
}

// TestSessionsRequireAuthentication verifies the session endpoints reject
// requests without a valid bearer token.
func TestSessionsRequireAuthentication(t *testing.T) {
	baseURL, cleanup := setupTokendContainer(t)
	defer cleanup()

	client := tokendsdk.NewSDKClient(baseURL)

	// A session helper built around a bogus access token with no refresh
	// token behind it: every authenticated call must fail with 401.
	bogus := client.NewSessionFromTokens("invalid-token-12345", "", "", 3600)

	_, err := bogus.ListSessions(t.Context())
	assertUnauthorized(t, err, "Invalid bearer token should be rejected")

	t.Logf("Invalid bearer correctly rejected with 401")
}
