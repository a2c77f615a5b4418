package httpx

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fitzroyhq/tokend/pkg/slogx"
	"golang.org/x/time/rate"
)

// KeyExtractor derives the bucket key for a request. Requests sharing a
// key share a rate-limit budget.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor keys requests by client IP, trusting proxy headers when
// present: the first X-Forwarded-For hop, then X-Real-IP, then the
// connection's remote address.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UserIDKeyExtractor keys requests by the authenticated user id placed in
// the context by AuthnMiddleware. Empty when the request is anonymous.
func UserIDKeyExtractor(r *http.Request) string {
	userID, _ := r.Context().Value(CtxKeyUserID).(string)
	return userID
}

// CompositeKeyExtractor joins the non-empty results of several extractors
// with sep, so a key like "user-42:10.0.0.7" can scope a budget to a user
// on a given address.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, extract := range extractors {
			if part := extract(r); part != "" {
				parts = append(parts, part)
			}
		}
		return strings.Join(parts, sep)
	}
}

// RateLimitConfig describes one token-bucket profile: RequestsPerWindow
// tokens refill over Window, and up to Burst may be spent at once.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

// Endpoint profiles, tunable per deployment through
// RATELIMIT_{STRICT|MODERATE|LENIENT|PUBLIC}_{REQUESTS|WINDOW_SEC|BURST}.
var (
	// StrictLimit guards credential-bearing endpoints: issuance and
	// rotation.
	StrictLimit = RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	// ModerateLimit covers authenticated session management.
	ModerateLimit = RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20}

	// LenientLimit covers low-sensitivity endpoints such as health checks.
	LenientLimit = RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100}

	// PublicLimit covers unauthenticated read-only endpoints.
	PublicLimit = RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
)

func init() {
	StrictLimit = ParseRateLimitFromEnv("STRICT", StrictLimit)
	ModerateLimit = ParseRateLimitFromEnv("MODERATE", ModerateLimit)
	LenientLimit = ParseRateLimitFromEnv("LENIENT", LenientLimit)
	PublicLimit = ParseRateLimitFromEnv("PUBLIC", PublicLimit)
}

// ParseRateLimitFromEnv overlays def with any RATELIMIT_{prefix}_REQUESTS,
// RATELIMIT_{prefix}_WINDOW_SEC and RATELIMIT_{prefix}_BURST set in the
// environment. Unset, non-numeric, and non-positive values keep the
// default, so a bad override can loosen a limit but never disable one.
func ParseRateLimitFromEnv(prefix string, def RateLimitConfig) RateLimitConfig {
	cfg := def
	if n, ok := envPositiveInt("RATELIMIT_" + prefix + "_REQUESTS"); ok {
		cfg.RequestsPerWindow = n
	}
	if n, ok := envPositiveInt("RATELIMIT_" + prefix + "_WINDOW_SEC"); ok {
		cfg.Window = time.Duration(n) * time.Second
	}
	if n, ok := envPositiveInt("RATELIMIT_" + prefix + "_BURST"); ok {
		cfg.Burst = n
	}
	return cfg
}

func envPositiveInt(name string) (int, bool) {
	val := os.Getenv(name)
	if val == "" {
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// limiterSweepInterval is how often a table reclaims idle buckets.
const limiterSweepInterval = 5 * time.Minute

// limiterTable holds one token bucket per key. Buckets are created on
// first sight of a key and reclaimed once they sit full for a sweep
// interval, which keeps tables from growing without bound under churning
// client addresses.
type limiterTable struct {
	mu        sync.Mutex
	buckets   map[string]*rate.Limiter
	limit     rate.Limit
	burst     int
	nextSweep time.Time
}

func newLimiterTable(cfg RateLimitConfig) *limiterTable {
	return &limiterTable{
		buckets:   make(map[string]*rate.Limiter),
		limit:     rate.Limit(float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()),
		burst:     cfg.Burst,
		nextSweep: time.Now().Add(limiterSweepInterval),
	}
}

func (t *limiterTable) acquire(key string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if now := time.Now(); now.After(t.nextSweep) {
		t.nextSweep = now.Add(limiterSweepInterval)
		for k, b := range t.buckets {
			// A full bucket means the key has been quiet long enough
			// to refill completely; forget it.
			if b.Tokens() >= float64(t.burst) {
				delete(t.buckets, k)
			}
		}
	}

	b, ok := t.buckets[key]
	if !ok {
		b = rate.NewLimiter(t.limit, t.burst)
		t.buckets[key] = b
	}
	return b
}

// retryAfterSeconds reports how long until the bucket hands out another
// token, rounded down but never below one second.
func retryAfterSeconds(b *rate.Limiter) int {
	res := b.Reserve()
	delay := res.Delay()
	res.Cancel()
	return max(int(delay.Seconds()), 1)
}

// RateLimitMiddleware enforces cfg per key, with each call owning an
// independent table so separate routes keep separate budgets. A request
// whose key comes back empty is let through rather than funneled into a
// shared bucket where one noisy client could starve the rest.
func RateLimitMiddleware(cfg RateLimitConfig, extractKey KeyExtractor) Middleware {
	table := newLimiterTable(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			key := extractKey(r)
			if key == "" {
				log.Warn("rate limit: no key for request, allowing")
				next.ServeHTTP(w, r)
				return
			}

			bucket := table.acquire(key)
			if bucket.Allow() {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := retryAfterSeconds(bucket)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Window", cfg.Window.String())

			log.Warn("rate limit exceeded",
				"key", key,
				"endpoint", r.URL.Path,
				"retry_after", retryAfter,
			)

			WriteJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":             "rate_limit_exceeded",
				"error_description": "Too many requests. Please try again later.",
			})
		})
	}
}

// RateLimitByIP applies cfg per client IP.
func RateLimitByIP(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, IPKeyExtractor)
}

// RateLimitByUser applies cfg per authenticated user, falling back to the
// client IP for anonymous requests.
func RateLimitByUser(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":",
		UserIDKeyExtractor,
		IPKeyExtractor,
	))
}
