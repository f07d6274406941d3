package router

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/shandysiswandi/estatebite/internal/pkg/stacktrace"
)

// middlewareRecoverer turns a handler panic into a 500 and logs where it
// came from. http.ErrAbortHandler keeps its meaning and is re-raised.
func middlewareRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			switch rvr := recover(); {
			case rvr == nil:
				return
			//nolint:errorlint,err113 // compared by identity on purpose
			case rvr == http.ErrAbortHandler:
				panic(rvr)
			default:
				logPanic(r, rvr, debug.Stack())
				writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

//nolint:contextcheck // request context carries the correlation id
func logPanic(r *http.Request, rvr any, stack []byte) {
	var trace any = string(stack)
	if frames := stacktrace.InternalPaths(stack); len(frames) > 0 {
		trace = frames
	}
	slog.ErrorContext(r.Context(), "recovered from handler panic",
		"panic", rvr,
		"method", r.Method,
		"path", r.URL.Path,
		"stack", trace,
	)
}
