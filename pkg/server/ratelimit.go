package server

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/tiltcast/tiltcast/pkg/log"
	"golang.org/x/time/rate"
)

type rateLimitConfig struct {
	RPS   float64 `json:"rps"`
	Burst int     `json:"burst"`
}

func defaultRateLimit() rateLimitConfig {
	return rateLimitConfig{RPS: 5, Burst: 10}
}

// ipLimiters tracks a token bucket per client IP.
type ipLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	cfg      rateLimitConfig
}

func newIPLimiters(cfg rateLimitConfig) *ipLimiters {
	return &ipLimiters{
		limiters: make(map[string]*rate.Limiter),
		cfg:      cfg,
	}
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.cfg.RPS), l.cfg.Burst)
		l.limiters[ip] = lim
	}
	return lim
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	if s.limiters == nil || s.rateLimit.RPS <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.limiters.get(ip).Allow() {
			ctx := r.Context()
			log.Ctx(ctx).WarnContext(ctx, "rate limited", slog.String("ip", ip))
			writeJSONError(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For hop since the service runs
// behind a load balancer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
