package router

import (
	"net/http"
	"strings"

	"github.com/shandysiswandi/estatebite/internal/pkg/instrument"
	"github.com/shandysiswandi/estatebite/internal/pkg/uid"
)

const (
	// HeaderCorrelationID is read from and echoed on every response.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is honored when proxies set it instead.
	HeaderRequestID = "X-Request-ID"

	maxCorrelationIDLen = 128
)

// sanitizeCID returns v trimmed, or "" when it is too long or holds
// anything but printable ASCII.
func sanitizeCID(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > maxCorrelationIDLen {
		return ""
	}
	if strings.ContainsFunc(v, func(c rune) bool { return c <= ' ' || c > '~' }) {
		return ""
	}
	return v
}

func correlationID(r *http.Request, gen uid.StringID) string {
	for _, h := range [...]string{HeaderCorrelationID, HeaderRequestID} {
		if cid := sanitizeCID(r.Header.Get(h)); cid != "" {
			return cid
		}
	}
	if gen == nil {
		return ""
	}
	return gen.Generate()
}

func middlewareCorrelationID(gen uid.StringID) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid := correlationID(r, gen)
			w.Header().Set(HeaderCorrelationID, cid)
			next.ServeHTTP(w, r.WithContext(instrument.SetCorrelationID(r.Context(), cid)))
		})
	}
}
