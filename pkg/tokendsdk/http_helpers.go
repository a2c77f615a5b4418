package tokendsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

func (c *SDKClient) url(path string) string {
	return c.BaseURL + path
}

// buildRequest assembles a request against the service. A non-empty
// bearer token becomes the Authorization header.
func (c *SDKClient) buildRequest(
	ctx context.Context, method, path string,
	body io.Reader, bearer string, headers map[string]string,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	return req, nil
}

func (c *SDKClient) send(req *http.Request) (*http.Response, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// doRequest sends an unauthenticated request.
func (c *SDKClient) doRequest(
	ctx context.Context, method, path string,
	body io.Reader, headers map[string]string,
) (*http.Response, error) {
	req, err := c.buildRequest(ctx, method, path, body, "", headers)
	if err != nil {
		return nil, err
	}
	return c.send(req)
}

// postJSON marshals payload and POSTs it as application/json.
func (c *SDKClient) postJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	return c.doRequest(ctx, http.MethodPost, path, bytes.NewReader(body), map[string]string{
		"Content-Type": "application/json",
	})
}

// doAuthRequest sends a request under the session's access token,
// refreshing it first if it is about to expire.
func (s *Session) doAuthRequest(
	ctx context.Context, method, path string,
	body io.Reader, headers map[string]string,
) (*http.Response, error) {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := s.client.buildRequest(ctx, method, path, body, token, headers)
	if err != nil {
		return nil, err
	}
	return s.client.send(req)
}

// decodeJSON consumes the response body. Any status other than
// expectedStatus is turned into a typed *OAuth2Error; otherwise the body
// is unmarshalled into target.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, raw)
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// checkStatusOK is decodeJSON for endpoints whose success body carries
// nothing the caller needs.
func checkStatusOK(resp *http.Response) error {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return parseErrorResponse(resp, raw)
	}
	return nil
}
