package router

import (
	"log/slog"
	"net/http"

	"github.com/shandysiswandi/estatebite/internal/pkg/jwt"
)

// Authorize returns a route middleware that requires the authenticated subject
// to hold the (obj, act) permission.
func (r *Router) Authorize(obj, act string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			clm := jwt.GetAuth(req.Context())
			if clm == nil {
				writeJSON(w, errorResponse{Message: "Authentication required"}, http.StatusUnauthorized)
				return
			}

			if r.enforcer == nil {
				writeJSON(w, errorResponse{Message: "Account not allowed"}, http.StatusForbidden)
				return
			}

			ok, err := r.enforcer.Enforce(clm.Subject, obj, act)
			if err != nil {
				slog.ErrorContext(req.Context(), "failed to check authorization", "subject", clm.Subject, "error", err)
				writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
				return
			}
			if !ok {
				writeJSON(w, errorResponse{Message: "Account not allowed"}, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, req)
		})
	}
}
