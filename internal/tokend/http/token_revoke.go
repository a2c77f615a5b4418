package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fitzroyhq/tokend/internal/tokend/service"
	"github.com/fitzroyhq/tokend/pkg/httpx"
	"github.com/fitzroyhq/tokend/pkg/slogx"
	"github.com/fitzroyhq/tokend/pkg/tokendsdk"
)

// RevokeHandler serves POST /v1/token/revoke following the RFC 7009 spec.
// Revoking the live refresh token ends its session: the head is the only
// live record in a lineage. All tokens, even invalid or unknown ones,
// return 200 OK to prevent token scanning attacks; the only non-200
// outcome is a store outage, because claiming success while the
// revocation never landed would be worse.
type RevokeHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Token Revocation Endpoint
//	@Description	Revokes a refresh token and its session (RFC 7009).
//	@Description	The endpoint is idempotent and returns 200 OK even for invalid/unknown tokens to prevent token scanning attacks.
//	@Tags			Tokens
//	@Accept			json
//	@Produce		json
//	@Param			request	body		tokendsdk.RevokeRequest	true	"Refresh token to revoke"
//	@Success		200		"Token revoked successfully (or was already invalid)"
//	@Failure		400		{object}	tokendsdk.ErrorResponse	"error, error_description"
//	@Failure		503		{object}	tokendsdk.ErrorResponse	"error, error_description - store unavailable"
//	@Header			200		{string}	Cache-Control			"no-store"
//	@Router			/v1/token/revoke [post].
func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/json") {
		tokendsdk.ErrInvalidContentType.WriteError(w)
		return
	}

	var req tokendsdk.RevokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		tokendsdk.ErrInvalidJSONBody.WriteError(w)
		return
	}

	if req.RefreshToken == "" {
		tokendsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.TokenService.RevokePair(ctx, req.RefreshToken); err != nil {
		if errors.Is(err, service.ErrStoreUnavailable) {
			writeStoreUnavailable(w)
			return
		}
		// Per RFC 7009, the server responds 200 OK even if the token is invalid/unknown.
		log.Warn("revoke refresh failed", "err", err)
	}

	// Return 200 OK with empty body per spec
	httpx.NoCache(w)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{}"))
}
