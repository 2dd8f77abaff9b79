package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Middleware verifies a bearer token or the assertion cookie. Requests with
// no assertion, or one that fails verification, continue unauthenticated;
// the dispatch pipeline decides whether an identity is required.
func (m *Middleware) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearer(r)
			if raw == "" {
				if c, _ := r.Cookie(m.cfg.CookieName); c != nil {
					raw = c.Value
				}
			}
			if raw == "" || !m.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			u, err := m.validateAssertion(raw)
			if err != nil {
				m.log.Debug("assertion rejected", zap.String("path", r.URL.Path), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// WithUser stores u on ctx.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userCtxKey, u)
}
