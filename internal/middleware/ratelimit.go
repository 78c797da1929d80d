package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/tempizhere/shortlink/internal/ratelimit"
)

// RateLimitMiddleware создаёт middleware, ограничивающее частоту запросов
// по IP клиента. При недоступности хранилища ограничитель пропускает
// запросы, поэтому middleware никогда не останавливает трафик само по себе.
func RateLimitMiddleware(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter.Blocked(r.Context(), ClientIP(r)) {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP возвращает IP клиента с учётом заголовков обратного прокси
func ClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
