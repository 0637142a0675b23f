package api

import (
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/levelfi-io/referral-orchestrator/internal/observability/metrics"
	"github.com/levelfi-io/referral-orchestrator/internal/types"
)

const apiKeyHeader = "x-api-key"

// requestID tags each request with a uuid and binds a request-scoped logger
// to the context.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)

		logger := log.With().Str("request_id", id).Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		observe := metrics.StartAdminRequestTimer(r.Method, r.URL.Path)
		next.ServeHTTP(ww, r)
		observe(ww.Status())

		zerolog.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Msg("admin api request")
	})
}

// apiKeyAuth rejects requests without the configured key. When no key is
// configured the middleware is not installed at all.
func apiKeyAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(apiKeyHeader) != key {
				writeError(w, r, types.NewErrorWithMsg(types.AuthorizationError, "invalid or missing api key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// callerLimiter hands out one token bucket per caller, keyed by remote host.
type callerLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newCallerLimiter(perMinute, burst int) *callerLimiter {
	return &callerLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
	}
}

func (c *callerLimiter) limiterFor(caller string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.limiters[caller]; ok {
		return l
	}
	l := rate.NewLimiter(c.limit, c.burst)
	c.limiters[caller] = l
	return l
}

func (c *callerLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			caller = r.RemoteAddr
		}
		if !c.limiterFor(caller).Allow() {
			writeError(w, r, types.NewErrorWithMsg(types.RateLimitError, "rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
