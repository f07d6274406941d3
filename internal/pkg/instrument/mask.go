package instrument

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

const masked = "***"

// Masker redacts values whose key matches one of the configured field names.
// Matching is case-insensitive and applies at every nesting level.
type Masker struct {
	keys map[string]struct{}
}

// NewMasker builds a Masker; blank field names are ignored.
func NewMasker(fields []string) *Masker {
	keys := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			keys[f] = struct{}{}
		}
	}
	return &Masker{keys: keys}
}

// Empty reports whether the masker redacts nothing.
func (m *Masker) Empty() bool {
	return m == nil || len(m.keys) == 0
}

// Hides reports whether key is redacted.
func (m *Masker) Hides(key string) bool {
	if m.Empty() {
		return false
	}
	_, ok := m.keys[strings.ToLower(key)]
	return ok
}

// Value redacts a decoded JSON-like value (maps, slices, scalars).
func (m *Masker) Value(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v2 := range val {
			if m.Hides(k) {
				out[k] = masked
				continue
			}
			out[k] = m.Value(v2)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, v2 := range val {
			out[k] = v2
		}
		return m.Value(out)
	case []any:
		out := make([]any, len(val))
		for i, v2 := range val {
			out[i] = m.Value(v2)
		}
		return out
	default:
		return v
	}
}

// JSON decodes payload and returns the redacted document. ok is false when
// payload is not a JSON object or array.
func (m *Masker) JSON(payload []byte) (any, bool) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return nil, false
	}

	var doc any
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return nil, false
	}
	return m.Value(doc), true
}

// Form redacts url-encoded form values.
func (m *Masker) Form(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		switch {
		case m.Hides(k):
			out[k] = masked
		case len(v) == 1:
			out[k] = v[0]
		default:
			out[k] = v
		}
	}
	return out
}

// Header returns a copy of h with hidden headers replaced.
func (m *Masker) Header(h http.Header) http.Header {
	if m.Empty() {
		return h
	}

	out := h.Clone()
	for k := range out {
		if m.Hides(k) {
			out.Set(k, masked)
		}
	}
	return out
}
