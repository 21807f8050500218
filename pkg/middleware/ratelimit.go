package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/logger"
)

// Allower is satisfied by ratelimit.Limiter.
type Allower interface {
	Allow(key string) bool
}

// TenantRateLimit answers 429 once the tenant named in the query string has
// used up its budget. Requests without a tenant pass through; the handler
// rejects them anyway. A nil limiter disables the check.
func TenantRateLimit(l Allower) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenant := r.URL.Query().Get("tenant")
			if tenant != "" && !l.Allow(tenant) {
				logger.FromContext(r.Context()).Warn("tenant rate limit exceeded", "tenant", tenant, "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
