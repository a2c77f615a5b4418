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

// IssueHandler serves POST /v1/token. It mints a fresh access/refresh pair
// for a user id the upstream gateway has already authenticated; tokend's own
// checks are directory membership and the per-user session cap.
type IssueHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Token Issue Endpoint
//	@Description	Issues a new access/refresh token pair for an already-authenticated user id, opening a new session.
//	@Description	The caller is expected to be a trusted gateway that has verified the user's credentials.
//	@Tags			Tokens
//	@Accept			json
//	@Produce		json
//	@Param			request	body		tokendsdk.IssueTokenRequest	true	"User to issue for"
//	@Success		200		{object}	tokendsdk.TokenResponse		"access_token, refresh_token, token_type, expires_in, session_id"
//	@Failure		400		{object}	tokendsdk.ErrorResponse		"error, error_description"
//	@Failure		401		{object}	tokendsdk.ErrorResponse		"error, error_description"
//	@Failure		409		{object}	tokendsdk.ErrorResponse		"error, error_description - session limit reached"
//	@Failure		503		{object}	tokendsdk.ErrorResponse		"error, error_description - store unavailable"
//	@Header			200		{string}	Cache-Control				"no-store"
//	@Router			/v1/token [post].
func (h *IssueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/json") {
		tokendsdk.ErrInvalidContentType.WriteError(w)
		return
	}

	var req tokendsdk.IssueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		tokendsdk.ErrInvalidJSONBody.WriteError(w)
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		tokendsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.TokenService.IssuePair(ctx, userID, clientMeta(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrUserInactive):
			// One answer for both, no user oracle
			tokendsdk.ErrInvalidGrant.WriteError(w)
		case errors.Is(err, service.ErrSessionLimitExceeded):
			tokendsdk.ErrSessionLimitExceeded.WriteError(w)
		case errors.Is(err, service.ErrStoreUnavailable):
			writeStoreUnavailable(w)
		default:
			log.Error("token issue failed", "err", err)
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

// clientMeta captures what we record alongside a refresh token. The IP goes
// through the same extractor the rate limiter keys on, so the two always
// agree about who the caller was.
func clientMeta(r *http.Request) service.ClientMeta {
	return service.ClientMeta{
		IP:        httpx.IPKeyExtractor(r),
		UserAgent: r.Header.Get("User-Agent"),
	}
}

// writeStoreUnavailable answers a store outage with a retry hint. The
// condition is transient; 401 here would log users out for nothing.
func writeStoreUnavailable(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "5")
	tokendsdk.ErrServiceUnavailable.WriteError(w)
}
