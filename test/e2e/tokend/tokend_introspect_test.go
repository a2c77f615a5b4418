package tokend_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fitzroyhq/tokend/pkg/tokendsdk"
)

// TestIntrospectActiveToken verifies introspection reports the claims of a
// live access token.
func TestIntrospectActiveToken(t *testing.T) {
	baseURL, cleanup := setupTokendContainer(t)
	defer cleanup()

	client := tokendsdk.NewSDKClient(baseURL)

	pair, err := client.IssueToken(t.Context(), "carol")
	require.NoError(t, err)

	info, err := client.IntrospectToken(t.Context(), pair.AccessToken)
	require.NoError(t, err)

	require.True(t, info.Active)
	require.Equal(t, "carol", info.Sub)
	require.Equal(t, "carol@example.com", info.Email)
	require.Equal(t, "admin", info.Role)
	require.Equal(t, testIssuer, info.Iss)
	require.NotEmpty(t, info.Jti)
	require.Greater(t, info.Exp, time.Now().Unix(), "Expiry should be in the future")

	t.Logf("Introspection returned full claims for an active token")
}

// TestIntrospectInvalidToken verifies any invalid token introspects as
// inactive without an error - the endpoint never explains what was wrong.
func TestIntrospectInvalidToken(t *testing.T) {
	baseURL, cleanup := setupTokendContainer(t)
	defer cleanup()

	client := tokendsdk.NewSDKClient(baseURL)

	info, err := client.IntrospectToken(t.Context(), "not-a-real-token")
	require.NoError(t, err, "Invalid tokens should not produce an error")
	require.False(t, info.Active)
	require.Empty(t, info.Sub, "Inactive responses should carry no claims")

	t.Logf("Invalid token introspected as inactive")
}

// TestIntrospectRefreshToken verifies a refresh token is NOT accepted as an
// access token: the two classes are signed under independent secrets and a
// refresh token must introspect as inactive.
func TestIntrospectRefreshToken(t *testing.T) {
	baseURL, cleanup := setupTokendContainer(t)
	defer cleanup()

	client := tokendsdk.NewSDKClient(baseURL)

	pair, err := client.IssueToken(t.Context(), "alice")
	require.NoError(t, err)

	info, err := client.IntrospectToken(t.Context(), pair.RefreshToken)
	require.NoError(t, err)
	require.False(t, info.Active, "A refresh token must never pass as an access token")

	t.Logf("Refresh token correctly inactive under access introspection")
}

// TestIntrospectTamperedToken verifies a signature-tampered access token
// introspects as inactive.
func TestIntrospectTamperedToken(t *testing.T) {
	baseURL, cleanup := setupTokendContainer(t)
	defer cleanup()

	client := tokendsdk.NewSDKClient(baseURL)

	pair, err := client.IssueToken(t.Context(), "alice")
	require.NoError(t, err)

	// Flip the last character of the signature.
	tampered := pair.AccessToken[:len(pair.AccessToken)-1]
	if pair.AccessToken[len(pair.AccessToken)-1] == 'A' {
		tampered += "B"
	} else {
		tampered += "A"
	}

	info, err := client.IntrospectToken(t.Context(), tampered)
	require.NoError(t, err)
	require.False(t, info.Active, "Tampered token should be inactive")

	t.Logf("Tampered token correctly inactive")
}
