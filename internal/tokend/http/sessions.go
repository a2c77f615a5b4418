package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/fitzroyhq/tokend/internal/tokend/service"
	"github.com/fitzroyhq/tokend/pkg/httpx"
	"github.com/fitzroyhq/tokend/pkg/slogx"
	"github.com/fitzroyhq/tokend/pkg/tokendsdk"
)

// SessionsHandler serves the bearer-authenticated /v1/sessions endpoints.
// The subject always comes from the verified access token, never from the
// request, so a caller can only ever see and kill their own sessions.
type SessionsHandler struct {
	TokenService *service.TokenService
}

// HandleList godoc
//
//	@Summary		List Active Sessions
//	@Description	Lists the caller's active sessions across all devices, newest rotation state per session.
//	@Tags			Sessions
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	tokendsdk.SessionsResponse	"sessions"
//	@Failure		401	{object}	tokendsdk.ErrorResponse		"error, error_description"
//	@Failure		503	{object}	tokendsdk.ErrorResponse		"error, error_description - store unavailable"
//	@Header			200	{string}	Cache-Control				"no-store"
//	@Router			/v1/sessions [get].
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromCtx(ctx)
	if !ok {
		tokendsdk.ErrInvalidToken.WriteError(w)
		return
	}

	sessions, err := h.TokenService.ActiveSessions(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrStoreUnavailable) {
			writeStoreUnavailable(w)
			return
		}
		log.Error("session list failed", "err", err, "user_id", userID)
		tokendsdk.ErrServerError.WriteError(w)
		return
	}

	response := tokendsdk.SessionsResponse{
		Sessions: make([]tokendsdk.SessionInfo, 0, len(sessions)),
	}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, tokendsdk.SessionInfo{
			SessionID: s.SessionID,
			IssuedAt:  s.IssuedAt.Format(time.RFC3339),
			ExpiresAt: s.ExpiresAt.Format(time.RFC3339),
			IP:        s.IP,
			UserAgent: s.UserAgent,
		})
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, response)
}

// HandleRevokeAll godoc
//
//	@Summary		Revoke All Sessions
//	@Description	Revokes every session the caller holds, including the one behind this request. The panic button for a stolen device.
//	@Tags			Sessions
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	tokendsdk.RevokeAllSessionsResponse	"revoked"
//	@Failure		401	{object}	tokendsdk.ErrorResponse				"error, error_description"
//	@Failure		503	{object}	tokendsdk.ErrorResponse				"error, error_description - store unavailable"
//	@Header			200	{string}	Cache-Control						"no-store"
//	@Router			/v1/sessions [delete].
func (h *SessionsHandler) HandleRevokeAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromCtx(ctx)
	if !ok {
		tokendsdk.ErrInvalidToken.WriteError(w)
		return
	}

	revoked, err := h.TokenService.RevokeAllSessions(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrStoreUnavailable) {
			writeStoreUnavailable(w)
			return
		}
		log.Error("session revoke-all failed", "err", err, "user_id", userID)
		tokendsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, tokendsdk.RevokeAllSessionsResponse{Revoked: revoked})
}
