// Package router adapts application handlers, which return a payload or an
// error, to httprouter and wraps them in the shared middleware chain.
package router

import (
	"net/http"

	"github.com/casbin/casbin/v3"
	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/estatebite/internal/pkg/config"
	"github.com/shandysiswandi/estatebite/internal/pkg/instrument"
	"github.com/shandysiswandi/estatebite/internal/pkg/jwt"
	"github.com/shandysiswandi/estatebite/internal/pkg/uid"
)

// Handler returns a payload for the success envelope or an error.
type Handler func(r *Request) (any, error)

// Config holds what NewRouter wires into the middleware chain.
type Config struct {
	Config     config.Config
	UUID       uid.StringID
	JWT        jwt.JWT
	Instrument instrument.Instrumentation
	Enforcer   *casbin.Enforcer
	// PublicRoutes skip mandatory authentication, e.g. "POST /api/v1/credentials/otp".
	PublicRoutes []string
}

// Router serves "/" and "/health" bare and every registered endpoint
// through the middleware chain.
type Router struct {
	hr       *httprouter.Router
	enforcer *casbin.Enforcer
	mws      []Middleware
}

func NewRouter(cfg Config) *Router {
	hr := httprouter.New()
	hr.SaveMatchedRoutePath = true
	hr.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, errorResponse{Message: "endpoint not found"}, http.StatusNotFound)
	})
	hr.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, errorResponse{Message: "method not allowed"}, http.StatusMethodNotAllowed)
	})

	hr.GET("/", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		writeJSON(w, errorResponse{Message: "Welcome to API EstateBite"}, http.StatusOK)
	})
	hr.GET("/health", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		writeJSON(w, errorResponse{Message: "ok"}, http.StatusOK)
	})

	return &Router{
		hr:       hr,
		enforcer: cfg.Enforcer,
		mws: []Middleware{
			middlewareRecoverer,
			middlewareIP(cfg.Config.GetArray("app.server.trusted_proxies")),
			middlewareCorrelationID(cfg.UUID),
			middlewareObservability(cfg.Config, cfg.Instrument),
			middlewareMaintenance(cfg.Config),
			middlewareAuthentication(cfg.JWT, parseRouteRules(cfg.PublicRoutes)),
		},
	}
}

func (r *Router) GET(path string, h Handler, mws ...Middleware) {
	r.handle(http.MethodGet, path, h, mws)
}

func (r *Router) POST(path string, h Handler, mws ...Middleware) {
	r.handle(http.MethodPost, path, h, mws)
}

func (r *Router) DELETE(path string, h Handler, mws ...Middleware) {
	r.handle(http.MethodDelete, path, h, mws)
}

// handle registers h behind the shared chain followed by the route's own
// middlewares.
func (r *Router) handle(method, path string, h Handler, mws []Middleware) {
	endpoint := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resp, err := h(&Request{Request: req})
		if err == nil {
			writeSuccess(w, resp)
			return
		}
		// observability logs the cause
		if rec, ok := w.(interface{ SetError(error) }); ok {
			rec.SetError(err)
		}
		writeError(w, err)
	})

	chain := make([]Middleware, 0, len(r.mws)+len(mws))
	chain = append(append(chain, r.mws...), mws...)
	r.hr.Handler(method, path, Chain(endpoint, chain...))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.hr.ServeHTTP(w, req)
}
