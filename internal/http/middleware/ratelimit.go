package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"
	"github.com/integrateisp/ops-api/internal/config"
	"github.com/integrateisp/ops-api/internal/domain"
	"go.uber.org/zap"
)

// RateLimiter applies per-IP request limits
type RateLimiter struct {
	cfg            *config.RateLimitConfig
	logger         *zap.Logger
	whitelistIPs   map[string]bool
	whitelistPaths []string
}

// NewRateLimiter creates a new rate limiter with the given configuration
func NewRateLimiter(cfg *config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		cfg:          cfg,
		logger:       logger,
		whitelistIPs: make(map[string]bool, len(cfg.WhitelistIPs)),
	}
	for _, ip := range cfg.WhitelistIPs {
		rl.whitelistIPs[ip] = true
	}
	rl.whitelistPaths = append(rl.whitelistPaths, cfg.WhitelistPaths...)

	logger.Info("Rate limiter initialized",
		zap.Bool("enabled", cfg.Enabled),
		zap.Int("requests_per_minute", cfg.RequestsPerMinute),
		zap.Strings("whitelist_ips", cfg.WhitelistIPs),
		zap.Strings("whitelist_paths", cfg.WhitelistPaths),
	)

	return rl
}

// LimitByIP is the general per-IP limit for the whole API
func (rl *RateLimiter) LimitByIP(next http.Handler) http.Handler {
	return rl.limit(rl.cfg.RequestsPerMinute, "api")(next)
}

// LimitLogin builds a stricter per-IP limiter for credential endpoints.
// It is independent of the general limit and ignores the path whitelist.
func (rl *RateLimiter) LimitLogin(requestsPerMinute int) func(http.Handler) http.Handler {
	return rl.limit(requestsPerMinute, "login")
}

func (rl *RateLimiter) limit(requestsPerMinute int, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !rl.cfg.Enabled || requestsPerMinute <= 0 {
			return next
		}

		limited := httprate.Limit(
			requestsPerMinute,
			time.Minute,
			httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
				return scope + ":" + clientIP(r), nil
			}),
			httprate.WithLimitHandler(rl.rateLimitExceededHandler),
		)(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.whitelistIPs[clientIP(r)] || (scope != "login" && rl.isPathWhitelisted(r.URL.Path)) {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

// isPathWhitelisted matches exact paths and "/prefix/*" entries
func (rl *RateLimiter) isPathWhitelisted(path string) bool {
	for _, wp := range rl.whitelistPaths {
		if wp == path {
			return true
		}
		if prefix, ok := strings.CutSuffix(wp, "/*"); ok && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (rl *RateLimiter) rateLimitExceededHandler(w http.ResponseWriter, r *http.Request) {
	rl.logger.Warn("rate limit exceeded",
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
		zap.String("client_ip", clientIP(r)),
	)

	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("Retry-After", "60")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(domain.NewAPIError(http.StatusTooManyRequests, "Too many requests. Please try again later."))
}

// clientIP prefers proxy headers over the socket address
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
