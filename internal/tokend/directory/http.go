package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fitzroyhq/tokend/internal/tokend/domain"
)

// HTTPDirectory looks users up against an upstream user service over its
// REST API: GET {base}/v1/users/{id}.
type HTTPDirectory struct {
	BaseURL    string
	HTTPClient *http.Client

	// AuthToken, when set, is sent as a bearer token on every lookup.
	AuthToken string
}

func NewHTTP(baseURL string) *HTTPDirectory {
	return &HTTPDirectory{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (d *HTTPDirectory) Lookup(ctx context.Context, userID string) (domain.User, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		d.BaseURL+"/v1/users/"+url.PathEscape(userID),
		nil,
	)
	if err != nil {
		return domain.User{}, fmt.Errorf("directory: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if d.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+d.AuthToken)
	}

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return domain.User{}, fmt.Errorf("directory: lookup %q: %w", userID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var u domain.User
		if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
			return domain.User{}, fmt.Errorf("directory: decode user: %w", err)
		}
		if u.ID == "" {
			u.ID = userID
		}
		return u, nil
	case http.StatusNotFound:
		return domain.User{}, ErrNotFound
	default:
		return domain.User{}, fmt.Errorf("directory: lookup %q: unexpected status %d", userID, resp.StatusCode)
	}
}
