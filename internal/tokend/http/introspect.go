package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fitzroyhq/tokend/internal/tokend/service"
	"github.com/fitzroyhq/tokend/pkg/httpx"
	"github.com/fitzroyhq/tokend/pkg/slogx"
	"github.com/fitzroyhq/tokend/pkg/tokendsdk"
)

// IntrospectionResponse represents the RFC7662 introspection response.
// When a token is inactive, only the "active" field should be returned.
type IntrospectionResponse struct {
	Active bool `json:"active"`

	// Optional fields (only present when active=true)
	TokenType string   `json:"token_type,omitempty"`
	Exp       int64    `json:"exp,omitempty"`
	Iat       int64    `json:"iat,omitempty"`
	Nbf       int64    `json:"nbf,omitempty"`
	Sub       string   `json:"sub,omitempty"`
	Email     string   `json:"email,omitempty"`
	Role      string   `json:"role,omitempty"`
	Aud       []string `json:"aud,omitempty"`
	Iss       string   `json:"iss,omitempty"`
	Jti       string   `json:"jti,omitempty"`
}

// IntrospectHandler serves POST /v1/introspect following RFC7662. It
// verifies an access token and reports its claims. Refresh tokens are
// deliberately not introspectable here; they are bearer credentials for
// exactly one endpoint and nothing else should ever see them.
type IntrospectHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Token Introspection Endpoint
//	@Description	Introspects an access token and returns metadata about it (RFC 7662)
//	@Description	Any invalid token answers {"active":false} without revealing why.
//	@Tags			Tokens
//	@Accept			json
//	@Produce		json
//	@Param			request	body		tokendsdk.IntrospectRequest	true	"Access token to introspect"
//	@Success		200		{object}	IntrospectionResponse		"Token introspection result"
//	@Failure		400		{object}	tokendsdk.ErrorResponse		"error, error_description"
//	@Header			200		{string}	Cache-Control				"no-store"
//	@Router			/v1/introspect [post].
func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/json") {
		tokendsdk.ErrInvalidContentType.WriteError(w)
		return
	}

	var req tokendsdk.IntrospectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		tokendsdk.ErrInvalidJSONBody.WriteError(w)
		return
	}

	if req.Token == "" {
		tokendsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	claims, err := h.TokenService.Authenticate(ctx, req.Token)
	if err != nil {
		log.Debug("token verification failed during introspection", "error", err)

		// Per RFC7662, return active=false without revealing why
		writeInactiveResponse(w)
		return
	}

	response := IntrospectionResponse{
		Active:    true,
		TokenType: "Bearer",
		Sub:       claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		Iss:       claims.Issuer,
		Aud:       claims.Audience,
		Jti:       claims.ID,
	}

	// Extract timestamps
	if claims.ExpiresAt != nil {
		response.Exp = claims.ExpiresAt.Unix()
	}
	if claims.IssuedAt != nil {
		response.Iat = claims.IssuedAt.Unix()
	}
	if claims.NotBefore != nil {
		response.Nbf = claims.NotBefore.Unix()
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, response)
}

// writeInactiveResponse returns the minimal RFC7662 response for inactive tokens.
func writeInactiveResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(http.StatusOK)

	_, _ = w.Write([]byte(`{"active":false}`))
}
