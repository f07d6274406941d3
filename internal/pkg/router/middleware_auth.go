package router

import (
	"net/http"
	"strings"

	"github.com/shandysiswandi/estatebite/internal/pkg/jwt"
)

// middlewareAuthentication demands a valid bearer token outside the public
// routes. On a public route a valid token still populates the claims and an
// invalid one is ignored.
func middlewareAuthentication(verifier jwt.JWT, public routeRules) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, hasToken := bearerToken(r)

			if public.match(r.Method, matchedRoutePath(r)) {
				if hasToken && verifier != nil {
					if claims, err := verifier.Verify(token); err == nil {
						r = r.WithContext(jwt.SetAuth(r.Context(), claims))
					}
				}
				next.ServeHTTP(w, r)
				return
			}

			if !hasToken {
				writeJSON(w, errorResponse{Message: "Authentication required"}, http.StatusUnauthorized)
				return
			}
			claims, err := verifier.Verify(token)
			if err != nil {
				writeJSON(w, errorResponse{Message: "Invalid or expired token"}, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(jwt.SetAuth(r.Context(), claims)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	token = strings.TrimSpace(token)
	if !ok || token == "" || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return token, true
}
