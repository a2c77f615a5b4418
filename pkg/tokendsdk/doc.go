/*
Package tokendsdk provides a client SDK for the tokend token service.

# Overview

The tokendsdk package wraps the tokend HTTP API: token issuance, refresh
rotation, revocation, introspection, and per-user session management. It is
organised around two main types:

  - SDKClient: Provides unauthenticated operations and creates authenticated sessions
  - Session: Holds an issued token pair and performs authenticated operations
    with automatic token refresh

Create an SDKClient to interact with the service:

	client := tokendsdk.NewSDKClient("https://tokend.example.com")

	// Check service health
	health, err := client.GetLiveness(ctx)

	// Issue a pair for an already-authenticated user id
	session, err := client.AuthenticateUser(ctx, userID)

Use a Session for the bearer-authenticated endpoints. Sessions automatically
handle access token expiration and refresh:

	// List the user's active sessions across devices
	sessions, err := session.ListSessions(ctx)

	// Revoke everything the user holds
	result, err := session.RevokeAllSessions(ctx)

# Automatic Token Refresh

Sessions refresh access tokens when they expire. All Session methods call
getValidToken() internally, which:

 1. Checks if the access token is still valid (with 30-second buffer)
 2. If expired, rotates the refresh token to obtain a new pair
 3. Updates the session with the new tokens

Rotation consumes the presented refresh token. If a stored refresh token is
replayed after the session has already rotated past it, the server treats it
as theft evidence and revokes the whole session; the SDK surfaces that as an
invalid_grant error.

# Error Handling

Server errors arrive as *OAuth2Error with the HTTP status and the OAuth2
error envelope:

	session, err := client.AuthenticateUser(ctx, userID)
	if err != nil {
		var oauthErr *tokendsdk.OAuth2Error
		if errors.As(err, &oauthErr) && oauthErr.Code == tokendsdk.ErrorCodeSessionLimitExceeded {
			// User is at their device cap
		}
		return err
	}

# Thread Safety

Sessions are safe for concurrent use. All Session methods use read/write
locks to protect access to tokens. Multiple goroutines can share a single
Session and make authenticated requests concurrently.
*/
package tokendsdk
