package metrics

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/middleware"
	"github.com/joeydtaylor/steeze-gateway/pkg/middleware/auth"
)

// Collect records request counters and latency. It must run after the auth
// middleware so the role label sees the verified caller, and labels are
// taken after the handler returns so the matched route is known.
func Collect() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSkipPath(r) {
				next.ServeHTTP(w, r)
				return
			}
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			code := strconv.Itoa(status)
			role := ""
			if u, ok := auth.UserFromContext(r.Context()); ok {
				role = u.Role.Name
			}

			totalHttpRequestsFromRole.WithLabelValues(role).Inc()
			totalHttpRequestsToUri.WithLabelValues(code, normalizePath(r), r.Method).Inc()
			totalHttpRequests.WithLabelValues(code, r.Method).Inc()
			responseTime.Observe(time.Since(start).Seconds())
		})
	}
}
