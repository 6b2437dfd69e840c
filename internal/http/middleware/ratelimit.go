package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"
	"github.com/straye-as/crm-api/internal/auth"
	"github.com/straye-as/crm-api/internal/config"
	"github.com/straye-as/crm-api/internal/domain"
	"go.uber.org/zap"
)

// RateLimiter applies two httprate budgets: one per client address in
// front of authentication and one per principal behind it.
type RateLimiter struct {
	cfg            *config.RateLimitConfig
	logger         *zap.Logger
	byIP           func(http.Handler) http.Handler
	byPrincipal    func(http.Handler) http.Handler
	trustedIPs     map[string]struct{}
	whitelistPaths []string
}

func NewRateLimiter(cfg *config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		cfg:            cfg,
		logger:         logger,
		trustedIPs:     make(map[string]struct{}, len(cfg.WhitelistIPs)),
		whitelistPaths: cfg.WhitelistPaths,
	}
	for _, ip := range cfg.WhitelistIPs {
		rl.trustedIPs[ip] = struct{}{}
	}

	rl.byIP = httprate.Limit(cfg.RequestsPerMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rl.rejectTooMany),
	)
	rl.byPrincipal = httprate.Limit(cfg.RequestsPerMinuteAuth, time.Minute,
		httprate.WithKeyFuncs(rl.principalKey),
		httprate.WithLimitHandler(rl.rejectTooMany),
	)

	if cfg.Enabled {
		logger.Info("rate limiting on",
			zap.Int("requests_per_minute", cfg.RequestsPerMinute),
			zap.Int("requests_per_minute_auth", cfg.RequestsPerMinuteAuth),
			zap.Strings("whitelist_ips", cfg.WhitelistIPs),
			zap.Strings("whitelist_paths", cfg.WhitelistPaths),
		)
	}
	return rl
}

// LimitByIP is mounted globally, before authentication
func (rl *RateLimiter) LimitByIP(next http.Handler) http.Handler {
	return rl.wrap(rl.byIP, next)
}

// Limit applies the per-principal budget; mount it after authentication
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return rl.wrap(rl.byPrincipal, next)
}

func (rl *RateLimiter) wrap(limiter func(http.Handler) http.Handler, next http.Handler) http.Handler {
	if !rl.cfg.Enabled {
		return next
	}
	limited := limiter(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, trusted := rl.trustedIPs[remoteHost(r)]; trusted || rl.isPathWhitelisted(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) principalKey(r *http.Request) (string, error) {
	if p, ok := auth.FromContext(r.Context()); ok {
		return "principal:" + p.ID.String(), nil
	}
	return "ip:" + remoteHost(r), nil
}

// remoteHost strips the port from RemoteAddr. chi's RealIP middleware has
// already replaced it with the forwarded address when one was sent.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// isPathWhitelisted matches exactly, or by prefix for entries ending in /*
func (rl *RateLimiter) isPathWhitelisted(path string) bool {
	for _, wp := range rl.whitelistPaths {
		if prefix, ok := strings.CutSuffix(wp, "/*"); ok {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		} else if wp == path {
			return true
		}
	}
	return false
}

func (rl *RateLimiter) rejectTooMany(w http.ResponseWriter, r *http.Request) {
	fields := []zap.Field{
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
		zap.String("client_ip", remoteHost(r)),
	}
	if p, ok := auth.FromContext(r.Context()); ok {
		fields = append(fields, zap.String("principal_id", p.ID.String()))
	}
	rl.logger.Warn("rate limit exceeded", fields...)

	w.Header().Set("Retry-After", "60")
	writeJSONError(w, http.StatusTooManyRequests, &domain.APIError{
		Type:   domain.ErrorTypeRateLimited,
		Title:  "Too Many Requests",
		Status: http.StatusTooManyRequests,
		Detail: "Too many requests. Please try again later.",
	})
}

// writeJSONError is used where no chi render context is guaranteed
func writeJSONError(w http.ResponseWriter, status int, apiErr *domain.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiErr)
}
