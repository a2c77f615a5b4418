package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/fitzroyhq/tokend/pkg/jwtx"
	"github.com/fitzroyhq/tokend/pkg/slogx"
)

// unauthorizedBearer answers with an RFC 6750 challenge. The description
// is deliberately generic so callers cannot probe which check failed.
func unauthorizedBearer(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}

// AuthnMiddleware gates a route behind a bearer access token. The
// verifier carries the issuer/audience/type expectations, so any token it
// accepts is a live access token minted by this service. On success the
// caller's identity is attached to the request context under CtxKeyUserID,
// CtxKeyRole and CtxKeyClaims.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				unauthorizedBearer(w, "missing bearer token")
				return
			}

			claims, err := v.Verify(strings.TrimSpace(raw))
			if err != nil {
				slogx.FromContext(r.Context()).Warn("bearer token rejected", "err", err)
				unauthorizedBearer(w, "token verification failed")
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, CtxKeyUserID, claims.Subject)
			ctx = context.WithValue(ctx, CtxKeyRole, claims.Role)
			ctx = context.WithValue(ctx, CtxKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
