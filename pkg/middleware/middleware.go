package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/clearchange/moc-tracker/pkg/composables"
	"github.com/clearchange/moc-tracker/pkg/configuration"
)

// WithPool attaches the connection pool to every request context so
// repositories can open transactions.
func WithPool(pool *pgxpool.Pool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(composables.WithPool(r.Context(), pool)))
		})
	}
}

// RequestParams collects per-request metadata (client IP, user agent) into
// the context.
func RequestParams() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			params := &composables.Params{
				IP:        clientIP(r),
				UserAgent: r.UserAgent(),
				Request:   r,
				Writer:    w,
			}
			next.ServeHTTP(w, r.WithContext(composables.WithParams(r.Context(), params)))
		})
	}
}

// WithLogger attaches a request-scoped log entry and logs each completed
// request with its duration and status-free summary fields.
func WithLogger(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			entry := logger.WithFields(logrus.Fields{
				"request-id": uuid.NewString(),
				"path":       r.RequestURI,
				"method":     r.Method,
			})
			next.ServeHTTP(w, r.WithContext(composables.WithLogger(r.Context(), entry)))
			entry.WithField("duration", time.Since(start).String()).Info("request completed")
		})
	}
}

func clientIP(r *http.Request) string {
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

// SessionToken extracts the session cookie, if present.
func SessionToken(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(configuration.Use().SidCookieKey)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
