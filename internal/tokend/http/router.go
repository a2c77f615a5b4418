package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fitzroyhq/tokend/internal/tokend/metrics"
	"github.com/fitzroyhq/tokend/internal/tokend/service"
	"github.com/fitzroyhq/tokend/internal/tokend/store"
	"github.com/fitzroyhq/tokend/pkg/httpx"
	"github.com/fitzroyhq/tokend/pkg/jwtx"
	"github.com/fitzroyhq/tokend/pkg/slogx"

	_ "github.com/fitzroyhq/tokend/api/tokend" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router owns the mux and the dependencies the handlers pull from.
type Router struct {
	Mux *http.ServeMux

	// Attached by the app after construction, before ApplyRoutes.
	TokenService *service.TokenService
	Metrics      *metrics.Metrics

	middlewares  []httpx.Middleware
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store
}

// NewRouter wires the shared pieces. The access-token verifier guards the
// bearer-authenticated session endpoints.
func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,

		// Request logging wraps everything, the swagger mount included.
		middlewares: []httpx.Middleware{
			slogx.HTTPMiddleware(logger),
		},
	}
}

func (r *Router) ApplyRoutes() {
	r.registerTokens()
	r.registerSessions()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Tokend Token Service API
//	@version		0.1.0
//	@description	Token lifecycle service: issues short-lived JWT access tokens paired with rotating refresh tokens, detects refresh token replay, and tracks per-user sessions.
//	@description
//	@description				Both token classes are signed with HS256 under independent secrets; a refresh token can never pass as an access token.
//
//	@contact.name				Fitzroy Platform Team
//	@contact.url				https://github.com/fitzroyhq/tokend
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerTokens() {
	// POST /v1/token - strict rate limit by IP (every call opens a session)
	r.Mux.Handle("POST /v1/token",
		httpx.Chain(&IssueHandler{TokenService: r.TokenService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /v1/token/refresh - strict rate limit by IP (rotation mints tokens too)
	r.Mux.Handle("POST /v1/token/refresh",
		httpx.Chain(&RefreshHandler{TokenService: r.TokenService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /v1/token/revoke - moderate rate limit
	r.Mux.Handle("POST /v1/token/revoke",
		httpx.Chain(&RevokeHandler{TokenService: r.TokenService},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /v1/introspect - moderate rate limit; meant for resource servers
	// on the internal network, so it is not bearer-gated
	r.Mux.Handle("POST /v1/introspect",
		httpx.Chain(&IntrospectHandler{TokenService: r.TokenService},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{TokenService: r.TokenService}

	// GET /v1/sessions - list the caller's devices - moderate rate limit by user
	r.Mux.Handle("GET /v1/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			httpx.AuthnMiddleware(r.verifier), // verify JWT (iss/aud/exp)
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// DELETE /v1/sessions - panic button, kills every session - moderate rate limit by user
	r.Mux.Handle("DELETE /v1/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleRevokeAll),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Probes get lenient limits so frequent polling never trips 429s.
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.TokenService),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// Prometheus scrape target - public limit, scrapers hit this constantly
	r.Mux.Handle("GET /metrics",
		httpx.Chain(r.Metrics.Handler(),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
