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

// RefreshHandler serves POST /v1/token/refresh. It rotates a refresh token:
// the presented token is consumed and a successor pair in the same session
// comes back. A token that was already rotated past trips replay detection
// and kills the whole session lineage.
type RefreshHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Token Refresh Endpoint
//	@Description	Rotates a refresh token, returning a new access/refresh pair in the same session.
//	@Description	Every failure mode (malformed, forged, expired, revoked, replayed, user gone) collapses to one 401 so callers learn nothing about server-side token state.
//	@Tags			Tokens
//	@Accept			json
//	@Produce		json
//	@Param			request	body		tokendsdk.RefreshRequest	true	"Refresh token to rotate"
//	@Success		200		{object}	tokendsdk.TokenResponse		"access_token, refresh_token, token_type, expires_in, session_id"
//	@Failure		400		{object}	tokendsdk.ErrorResponse		"error, error_description"
//	@Failure		401		{object}	tokendsdk.ErrorResponse		"error, error_description"
//	@Failure		503		{object}	tokendsdk.ErrorResponse		"error, error_description - store unavailable"
//	@Header			200		{string}	Cache-Control				"no-store"
//	@Router			/v1/token/refresh [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/json") {
		tokendsdk.ErrInvalidContentType.WriteError(w)
		return
	}

	var req tokendsdk.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		tokendsdk.ErrInvalidJSONBody.WriteError(w)
		return
	}

	if req.RefreshToken == "" {
		tokendsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.TokenService.Rotate(ctx, req.RefreshToken, clientMeta(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRefresh),
			errors.Is(err, service.ErrRefreshReuse),
			errors.Is(err, service.ErrUserNotFound),
			errors.Is(err, service.ErrUserInactive):
			// The service logs reuse with the fingerprint; the caller
			// only ever sees the uniform 401.
			tokendsdk.ErrInvalidGrant.WriteError(w)
		case errors.Is(err, service.ErrStoreUnavailable):
			writeStoreUnavailable(w)
		default:
			log.Error("token refresh failed", "err", err)
			tokendsdk.ErrServerError.WriteError(w)
		}
		return
	}

	response := tokendsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn),
		SessionID:    pair.SessionID,
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, response)
}
