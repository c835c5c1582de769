package ratelimit

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/mind-engage/mindengage-courses/internal/api/problem"
)

// KeyFunc picks the bucket for a request. An empty key falls back to the
// client address.
type KeyFunc func(r *http.Request) string

// Middleware rejects requests over the limit with 429. Scope separates the
// budgets of different endpoints sharing one Limiter. When the limiter
// itself fails the request is let through and the failure logged.
func Middleware(l Limiter, scope string, key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := ""
			if key != nil {
				k = key(r)
			}
			if k == "" {
				k = clientIP(r)
			}
			ok, err := l.Allow(r.Context(), scope+":"+k)
			if err != nil {
				slog.WarnContext(r.Context(), "rate limiter unavailable", "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				problem.TooManyRequests(w, r, 1)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
