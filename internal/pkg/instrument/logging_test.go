package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return line
}

func TestNewLogger_MasksAndCorrelates(t *testing.T) {
	// Arrange
	buf := &bytes.Buffer{}
	logger := NewLogger(LoggingConfig{
		ServiceName: "estatebite",
		Level:       slog.LevelInfo,
		MaskFields:  []string{"code", "Authorization"},
		Output:      buf,
	}, nil)
	ctx := SetCorrelationID(context.Background(), "cid-1")

	// Act
	logger.InfoContext(ctx, "verify received",
		"code", "123456",
		"body", `{"subject_id":"7","code":"654321"}`,
		"headers", map[string]string{"authorization": "Bearer x", "accept": "json"},
	)

	// Assert
	line := decodeLine(t, buf)
	if line["code"] != "***" {
		t.Fatalf("code not masked: %v", line["code"])
	}
	body, ok := line["body"].(map[string]any)
	if !ok || body["code"] != "***" || body["subject_id"] != "7" {
		t.Fatalf("body not masked: %v", line["body"])
	}
	headers, ok := line["headers"].(map[string]any)
	if !ok || headers["authorization"] != "***" || headers["accept"] != "json" {
		t.Fatalf("headers not masked: %v", line["headers"])
	}
	if line["_cID"] != "cid-1" || line["service"] != "estatebite" || line["severity"] != "INFO" {
		t.Fatalf("missing envelope fields: %v", line)
	}
}

func TestNewLogger_LevelAndWithAttrs(t *testing.T) {
	// Arrange
	buf := &bytes.Buffer{}
	logger := NewLogger(LoggingConfig{Level: ParseLevel("warn"), MaskFields: []string{"secret"}, Output: buf}, nil)

	// Act
	logger.Info("dropped")
	logger.With("secret", "s3cr3t").Warn("kept")

	// Assert
	line := decodeLine(t, buf)
	if line["msg"] != "kept" || line["secret"] != "***" {
		t.Fatalf("unexpected line: %v", line)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo, "loud": slog.LevelInfo}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("%q: expected %v, got %v", in, want, got)
		}
	}
}

func TestMasker(t *testing.T) {
	m := NewMasker([]string{" Code ", ""})

	if _, ok := m.JSON([]byte("plain text")); ok {
		t.Fatal("plain text should not decode")
	}
	doc, ok := m.JSON([]byte(`[{"code":"1"},{"nested":{"CODE":"2"}}]`))
	if !ok {
		t.Fatal("expected json array to decode")
	}
	items := doc.([]any)
	if items[0].(map[string]any)["code"] != "***" || items[1].(map[string]any)["nested"].(map[string]any)["CODE"] != "***" {
		t.Fatalf("unexpected masking: %v", doc)
	}

	form := m.Form(url.Values{"code": {"1"}, "purpose": {"avatar"}, "tags": {"a", "b"}})
	if form["code"] != "***" || form["purpose"] != "avatar" || len(form["tags"].([]string)) != 2 {
		t.Fatalf("unexpected form: %v", form)
	}

	h := m.Header(http.Header{"Code": {"x"}, "Accept": {"y"}})
	if h.Get("Code") != "***" || h.Get("Accept") != "y" {
		t.Fatalf("unexpected header: %v", h)
	}
	if !NewMasker(nil).Empty() {
		t.Fatal("expected empty masker")
	}
}
