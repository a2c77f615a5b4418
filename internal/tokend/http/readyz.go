package http

import (
	"net/http"
	"time"

	"github.com/fitzroyhq/tokend/internal/tokend/service"
	"github.com/fitzroyhq/tokend/internal/tokend/store"
	"github.com/fitzroyhq/tokend/pkg/httpx"
	"github.com/fitzroyhq/tokend/pkg/tokendsdk"
)

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe endpoint returning service health status and checks for critical dependencies
//	@Description	Includes uptime, version, and status of the refresh token store and the token signers
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	tokendsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	tokendsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	svc *service.TokenService,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &tokendsdk.HealthChecks{Database: "ok", Signer: "ok"}
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			statusCode = http.StatusServiceUnavailable
		}

		// Both token classes must be signable for the service to be ready.
		switch {
		case svc == nil || svc.AccessSigner == nil || svc.RefreshSigner == nil:
			checks.Signer = "error: no signer configured"
			statusCode = http.StatusServiceUnavailable
		case svc.AccessSigner.Validate() != nil || svc.RefreshSigner.Validate() != nil:
			checks.Signer = "error: signer misconfigured"
			statusCode = http.StatusServiceUnavailable
		}

		overall := "ok"
		if statusCode != http.StatusOK {
			overall = "degraded"
		}

		httpx.WriteJSON(w, statusCode, tokendsdk.HealthResponse{
			Status:  overall,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
