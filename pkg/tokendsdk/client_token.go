package tokendsdk

import (
	"context"
	"net/http"
)

// IssueToken mints a fresh access/refresh pair for a user id an upstream
// authenticator has already verified. Each call opens a new session.
func (c *SDKClient) IssueToken(ctx context.Context, userID string) (*TokenResponse, error) {
	resp, err := c.postJSON(ctx, "/v1/token", IssueTokenRequest{UserID: userID})
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}

	return &tokenResp, nil
}

// RefreshToken rotates a refresh token, returning a new pair in the same
// session. The presented token is consumed either way: on an invalid_grant
// error the token (and possibly the whole session, if the server decided the
// token was replayed) is no longer usable.
func (c *SDKClient) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	resp, err := c.postJSON(ctx, "/v1/token/refresh", RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}

	return &tokenResp, nil
}

// RevokeToken revokes a refresh token and its session. Per RFC 7009 the
// server answers 200 whether or not the token was live, so a nil error only
// means the token is no longer usable, not that it ever was.
func (c *SDKClient) RevokeToken(ctx context.Context, refreshToken string) error {
	resp, err := c.postJSON(ctx, "/v1/token/revoke", RevokeRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}

	return checkStatusOK(resp)
}

// IntrospectToken reports whether an access token is live, per RFC 7662.
// Invalid tokens of any kind come back as {active:false}, never as an error,
// so the endpoint leaks nothing about why a token failed.
func (c *SDKClient) IntrospectToken(ctx context.Context, token string) (*IntrospectionResponse, error) {
	resp, err := c.postJSON(ctx, "/v1/introspect", IntrospectRequest{Token: token})
	if err != nil {
		return nil, err
	}

	var introspectResp IntrospectionResponse
	if err := decodeJSON(resp, &introspectResp, http.StatusOK); err != nil {
		return nil, err
	}

	return &introspectResp, nil
}
