package tokend_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fitzroyhq/tokend/pkg/tokendsdk"
)

// TestIssueAndRefresh tests the core rotation flow:
// 1. Issue a pair
// 2. Rotate the refresh token
// 3. Verify both tokens changed while the session id stayed put
func TestIssueAndRefresh(t *testing.T) {
	baseURL, cleanup := setupTokendContainer(t)
	defer cleanup()

	client := tokendsdk.NewSDKClient(baseURL)

	issued, err := client.IssueToken(t.Context(), "alice")
	require.NoError(t, err)
	assertTokenResponse(t, issued)

	t.Logf("Issued pair for session %s", issued.SessionID)

	rotated, err := client.RefreshToken(t.Context(), issued.RefreshToken)
	require.NoError(t, err)
	assertTokenResponse(t, rotated)

	require.NotEqual(t, issued.AccessToken, rotated.AccessToken, "Access token should be rotated")
	require.NotEqual(t, issued.RefreshToken, rotated.RefreshToken, "Refresh token should be rotated")
	require.Equal(t, issued.SessionID, rotated.SessionID, "Rotation should stay in the same session")

	t.Logf("Rotation successful, session id stable")
}

// TestRefreshTokenReplay verifies replay handling:
// presenting an already-consumed refresh token fails, and because replay
// means the token leaked, the whole session dies with it - the successor
// token from the legitimate rotation stops working too.
func TestRefreshTokenReplay(t *testing.T) {
	baseURL, cleanup := setupTokendContainer(t)
	defer cleanup()

	client := tokendsdk.NewSDKClient(baseURL)

	issued, err := client.IssueToken(t.Context(), "alice")
	require.NoError(t, err)

	rotated, err := client.RefreshToken(t.Context(), issued.RefreshToken)
	require.NoError(t, err)

	// Replay the consumed token.
	_, err = client.RefreshToken(t.Context(), issued.RefreshToken)
	assertUnauthorized(t, err, "Replayed refresh token should be rejected")

	// The replay killed the lineage: the legitimate successor is dead too.
	_, err = client.RefreshToken(t.Context(), rotated.RefreshToken)
	assertUnauthorized(t, err, "Successor of a replayed token should be dead")

	t.Logf("Replay detected and lineage revoked")
}

// TestRefreshChain verifies a session survives many consecutive rotations.
func TestRefreshChain(t *testing.T) {
	baseURL, cleanup := setupTokendContainer(t)
	defer cleanup()

	client := tokendsdk.NewSDKClient(baseURL)

	pair, err := client.IssueToken(t.Context(), "alice")
	require.NoError(t, err)
	sessionID := pair.SessionID

	for i := 0; i < 5; i++ {
		pair, err = client.RefreshToken(t.Context(), pair.RefreshToken)
		require.NoError(t, err, "Rotation %d should succeed", i+1)
		require.Equal(t, sessionID, pair.SessionID, "Session id should survive rotation %d", i+1)
	}

	t.Logf("Session %s survived 5 rotations", sessionID)
}

// TestSessionAutoRefresh verifies the SDK session helper transparently
// rotates and keeps working against authenticated endpoints.
func TestSessionAutoRefresh(t *testing.T) {
	baseURL, cleanup := setupTokendContainer(t)
	defer cleanup()

	client := tokendsdk.NewSDKClient(baseURL)

	session, err := client.AuthenticateUser(t.Context(), "alice")
	require.NoError(t, err)

	before := session.RefreshToken()

	// Force a rotation through the helper, then prove the rotated
	// credentials still work.
	require.NoError(t, session.Refresh(t.Context()))
	require.NotEqual(t, before, session.RefreshToken(), "Helper should hold the rotated refresh token")

	sessions, err := session.ListSessions(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, sessions.Sessions)

	t.Logf("SDK session rotated and kept working")
}

// TestRefreshGarbageToken verifies a malformed refresh token is rejected
// with the same uniform 401 as any other bad token.
func TestRefreshGarbageToken(t *testing.T) {
	baseURL, cleanup := setupTokendContainer(t)
	defer cleanup()

	client := tokendsdk.NewSDKClient(baseURL)

	_, err := client.RefreshToken(t.Context(), "not-even-a-jwt")
	assertUnauthorized(t, err, "Garbage refresh token should be rejected")
}
