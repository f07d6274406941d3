package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/shandysiswandi/estatebite/internal/pkg/clock"
	"github.com/shandysiswandi/estatebite/internal/pkg/config"
	"github.com/shandysiswandi/estatebite/internal/pkg/goerror"
	"github.com/shandysiswandi/estatebite/internal/pkg/instrument"
	"github.com/shandysiswandi/estatebite/internal/pkg/jwt"
	"github.com/shandysiswandi/estatebite/internal/pkg/uid"
)

const testSecret = "router-test-secret-router-test-secret-router-test-secret-0123456789"

type fixture struct {
	router *Router
	jwt    jwt.JWT
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(`
instrument:
  log_mask_fields: "code,authorization"
app:
  server:
    trusted_proxies: "10.0.0.0/8"
`))
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	signer, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(testSecret),
		Issuer:    "estatebite",
		Audiences: []string{"estatebite-web"},
		TTL:       time.Minute,
		Clock:     clock.New(),
		UUID:      uid.NewUUID(),
	})
	if err != nil {
		t.Fatalf("jwt: %v", err)
	}

	m, err := model.NewModelFromString(`
[request_definition]
r = sub, obj, act
[policy_definition]
p = sub, obj, act
[role_definition]
g = _, _
[policy_effect]
e = some(where (p.eft == allow))
[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`)
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		t.Fatalf("enforcer: %v", err)
	}
	if _, err := enforcer.AddPolicy("operator", "credential", "sweep"); err != nil {
		t.Fatalf("policy: %v", err)
	}
	if _, err := enforcer.AddGroupingPolicy("1", "operator"); err != nil {
		t.Fatalf("grouping: %v", err)
	}

	r := NewRouter(Config{
		Config:       cfg,
		UUID:         uid.NewUUID(),
		JWT:          signer,
		Instrument:   instrument.NewNoop(),
		Enforcer:     enforcer,
		PublicRoutes: []string{
			"POST /api/v1/credentials/otp",
			"POST /api/v1/credentials/otp/verify",
		},
	})
	r.POST("/api/v1/credentials/otp", func(req *Request) (any, error) {
		var body map[string]string
		if err := req.DecodeBody(&body); err != nil {
			return nil, err
		}
		if body["purpose"] == "missing" {
			return nil, goerror.NewBusiness("Subject not found", goerror.CodeNotFound)
		}
		if body["purpose"] == "boom" {
			return nil, errors.New("db down")
		}
		if body["purpose"] == "panic" {
			panic("unexpected")
		}
		return map[string]string{"purpose": body["purpose"]}, nil
	})
	r.POST("/api/v1/credentials/otp/sweep", func(*Request) (any, error) {
		return nil, nil
	}, r.Authorize("credential", "sweep"))

	return fixture{router: r, jwt: signer}
}

func (f fixture) token(t *testing.T, userID int64) string {
	t.Helper()

	token, err := f.jwt.Generate(userID, "u@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return token
}

func (f fixture) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var env struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return env.Message
}

func TestRouter_ResponsesAndErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{name: "success", body: `{"purpose":"login-2fa"}`, status: http.StatusOK, message: "request has been successfully"},
		{name: "business error", body: `{"purpose":"missing"}`, status: http.StatusNotFound, message: "Subject not found"},
		{name: "unknown field", body: `{"purpose":"x","extra":"y"}`, status: http.StatusBadRequest},
		{name: "plain error", body: `{"purpose":"boom"}`, status: http.StatusInternalServerError, message: "Internal server error"},
		{name: "panic", body: `{"purpose":"panic"}`, status: http.StatusInternalServerError, message: "Internal server error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Act
			rec := f.do(http.MethodPost, "/api/v1/credentials/otp", tc.body, "")

			// Assert
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d body=%s", tc.status, rec.Code, rec.Body.String())
			}
			if tc.message != "" && message(t, rec) != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, message(t, rec))
			}
		})
	}
}

func TestRouter_AuthenticationAndAuthorization(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{name: "anonymous", token: "", status: http.StatusUnauthorized},
		{name: "garbage token", token: "not-a-jwt", status: http.StatusUnauthorized},
		{name: "no role", token: f.token(t, 2), status: http.StatusForbidden},
		{name: "operator", token: f.token(t, 1), status: http.StatusNoContent},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Act
			rec := f.do(http.MethodPost, "/api/v1/credentials/otp/sweep", "", tc.token)

			// Assert
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
		})
	}
}

func TestRouter_NotFoundAndHealth(t *testing.T) {
	f := newFixture(t)

	if rec := f.do(http.MethodGet, "/nope", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMiddlewareCorrelationID(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		header   string
		generate bool
	}{
		{name: "echoes caller id", header: "req-123"},
		{name: "replaces unsafe id", header: "bad id\twith spaces", generate: true},
		{name: "replaces oversized id", header: strings.Repeat("a", 200), generate: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			req := httptest.NewRequest(http.MethodPost, "/api/v1/credentials/otp", strings.NewReader(`{"purpose":"login-2fa"}`))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set(HeaderCorrelationID, tc.header)
			rec := httptest.NewRecorder()

			// Act
			f.router.ServeHTTP(rec, req)

			// Assert
			got := rec.Header().Get(HeaderCorrelationID)
			if tc.generate && (got == "" || got == tc.header) {
				t.Fatalf("expected generated id, got %q", got)
			}
			if !tc.generate && got != tc.header {
				t.Fatalf("expected %q, got %q", tc.header, got)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name   string
		remote string
		header map[string]string
		want   string
	}{
		{name: "direct client ignores headers", remote: "203.0.113.9:5000", header: map[string]string{"X-Real-IP": "1.1.1.1"}, want: "203.0.113.9"},
		{name: "trusted proxy real ip", remote: "10.1.2.3:80", header: map[string]string{"X-Real-IP": "198.51.100.7"}, want: "198.51.100.7"},
		{name: "trusted proxy forwarded chain", remote: "10.1.2.3:80", header: map[string]string{"X-Forwarded-For": "198.51.100.7, 10.9.9.9"}, want: "198.51.100.7"},
		{name: "trusted proxy without headers", remote: "10.1.2.3:80", want: "10.1.2.3"},
		{name: "unparseable remote", remote: "pipe", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}

			if got := clientIP(req, trusted); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRequestBody(t *testing.T) {
	masker := instrument.NewMasker([]string{"code"})

	t.Run("json is masked and body stays readable", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"123456","purpose":"login-2fa"}`))
		req.Header.Set("Content-Type", "application/json")

		logged, ok := requestBody(req, masker).(map[string]any)
		if !ok || logged["code"] != "***" || logged["purpose"] != "login-2fa" {
			t.Fatalf("unexpected logged body %v", logged)
		}

		var decoded map[string]string
		if err := json.NewDecoder(req.Body).Decode(&decoded); err != nil || decoded["code"] != "123456" {
			t.Fatalf("body not restored: %v %v", decoded, err)
		}
	})

	t.Run("multipart is summarized", func(t *testing.T) {
		buf := &bytes.Buffer{}
		w := multipart.NewWriter(buf)
		part, _ := w.CreateFormFile("file", "a.png")
		_, _ = part.Write([]byte("\x89PNG"))
		_ = w.Close()
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(buf.Bytes()))
		req.Header.Set("Content-Type", w.FormDataContentType())

		logged, ok := requestBody(req, masker).(map[string]any)
		if !ok || logged["multipart"] != true {
			t.Fatalf("expected multipart summary, got %v", logged)
		}
		if req.ContentLength != int64(buf.Len()) {
			t.Fatalf("content length changed: %d", req.ContentLength)
		}
	})
}

func TestMiddlewareMaintenance(t *testing.T) {
	cfg, err := config.NewViperFromBytes("yaml", []byte(`
app:
  maintenance:
    endpoints: "POST /api/v1/media/uploads,/api/v1/credentials/otp/*"
    retry_after_seconds: 120
`))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	h := middlewareMaintenance(cfg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPost, "/api/v1/media/uploads", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/v1/media/uploads", http.StatusNoContent},
		{http.MethodPost, "/api/v1/credentials/otp/verify", http.StatusServiceUnavailable},
		{http.MethodPost, "/api/v1/media/presign", http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))

			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
			if tc.want == http.StatusServiceUnavailable && rec.Header().Get("Retry-After") != "120" {
				t.Fatalf("expected Retry-After 120, got %q", rec.Header().Get("Retry-After"))
			}
		})
	}
}
