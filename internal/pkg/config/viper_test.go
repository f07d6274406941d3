package config

import (
	"testing"
	"time"
)

const sample = `
app:
  server:
    http:
      address: ":8080"
      read_timeout_seconds: 15
modules:
  notification:
    consumer_names: ""
  media:
    allowed_content_types: "image/png, image/jpeg,,"
authz:
  roles: "1:operator, 2 : auditor,broken"
storage:
  gcs:
    signer_private_key: "a2V5"
    bad_binary: "%%%"
`

func newSample(t *testing.T) *Viper {
	t.Helper()

	cfg, err := NewViperFromBytes("yaml", []byte(sample))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return cfg
}

func TestViper_Getters(t *testing.T) {
	// Arrange
	cfg := newSample(t)

	// Assert
	if got := cfg.GetString("app.server.http.address"); got != ":8080" {
		t.Fatalf("address: %q", got)
	}
	if got := cfg.GetSecond("app.server.http.read_timeout_seconds"); got != 15*time.Second {
		t.Fatalf("timeout: %v", got)
	}
	if got := cfg.GetArray("modules.notification.consumer_names"); len(got) != 0 {
		t.Fatalf("expected empty array, got %q", got)
	}
	types := cfg.GetArray("modules.media.allowed_content_types")
	if len(types) != 2 || types[0] != "image/png" || types[1] != "image/jpeg" {
		t.Fatalf("types: %q", types)
	}
	roles := cfg.GetMap("authz.roles")
	if len(roles) != 2 || roles["1"] != "operator" || roles["2"] != "auditor" {
		t.Fatalf("roles: %v", roles)
	}
	if got := string(cfg.GetBinary("storage.gcs.signer_private_key")); got != "key" {
		t.Fatalf("binary: %q", got)
	}
	if got := cfg.GetBinary("storage.gcs.bad_binary"); got != nil {
		t.Fatalf("expected nil for invalid base64, got %q", got)
	}
}

func TestViper_EnvOverride(t *testing.T) {
	// Arrange
	t.Setenv("ESTATEBITE_APP_SERVER_HTTP_ADDRESS", ":9090")
	t.Setenv("ESTATEBITE_JWT_SECRET", "from-env")

	// Act
	cfg := newSample(t)

	// Assert
	if got := cfg.GetString("app.server.http.address"); got != ":9090" {
		t.Fatalf("expected env override, got %q", got)
	}
	if got := cfg.GetString("jwt.secret"); got != "from-env" {
		t.Fatalf("expected env-only key, got %q", got)
	}
}

func TestNewViperFromBytes_RequiresType(t *testing.T) {
	if _, err := NewViperFromBytes(" ", nil); err == nil {
		t.Fatal("expected error for empty config type")
	}
}

func TestViper_ListsAndMilliseconds(t *testing.T) {
	cfg, err := NewViperFromBytes("yaml", []byte(`
app:
  server:
    public_routes:
      - "POST /api/v1/credentials/otp"
      - " "
      - "POST /api/v1/credentials/otp/verify"
modules:
  media:
    retry_backoff_ms: 250
`))
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	routes := cfg.GetArray("app.server.public_routes")
	if len(routes) != 2 || routes[1] != "POST /api/v1/credentials/otp/verify" {
		t.Fatalf("routes: %q", routes)
	}
	if got := cfg.GetArray("app.server.missing"); got != nil {
		t.Fatalf("expected nil for a missing key, got %q", got)
	}
	if got := cfg.GetMillisecond("modules.media.retry_backoff_ms"); got != 250*time.Millisecond {
		t.Fatalf("backoff: %v", got)
	}
}
