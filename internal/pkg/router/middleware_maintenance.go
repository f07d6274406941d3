package router

import (
	"net/http"
	"strconv"

	"github.com/shandysiswandi/estatebite/internal/pkg/config"
)

// middlewareMaintenance answers 503 on the routes listed in
// app.maintenance.endpoints, with a Retry-After hint when configured.
func middlewareMaintenance(cfg config.Config) Middleware {
	var (
		rules      routeRules
		retryAfter int
	)
	if cfg != nil {
		rules = parseRouteRules(cfg.GetArray("app.maintenance.endpoints"))
		retryAfter = int(cfg.GetSecond("app.maintenance.retry_after_seconds").Seconds())
	}

	return func(next http.Handler) http.Handler {
		if len(rules) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rules.match(r.Method, matchedRoutePath(r)) {
				next.ServeHTTP(w, r)
				return
			}
			if retryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			}
			writeJSON(w, errorResponse{Message: "Service is under maintenance"}, http.StatusServiceUnavailable)
		})
	}
}
