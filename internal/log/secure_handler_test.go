package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestSecureHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		key      string
		value    string
		wantMask bool
	}{
		{name: "cookie key", key: "cookie", value: "qgqp_b_id=abc", wantMask: true},
		{name: "authorization key", key: "Authorization", value: "xyz", wantMask: true},
		{name: "key containing token", key: "csrf_token_value", value: "abc", wantMask: true},
		{name: "bearer value", key: "header", value: "Bearer abc.def", wantMask: true},
		{name: "jwt value", key: "data", value: "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.sig", wantMask: true},
		{name: "session cookie value", key: "raw", value: "JSESSIONID=1234", wantMask: true},
		{name: "author is not sensitive", key: "author", value: "someone", wantMask: false},
		{name: "plain url", key: "url", value: "https://example.com/a.html", wantMask: false},
		{name: "keyword", key: "keyword", value: "rates", wantMask: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := NewSecureLogger(&buf, true)
			logger.Info("test", tt.key, tt.value)

			out := buf.String()
			if tt.wantMask {
				if strings.Contains(out, tt.value) {
					t.Errorf("value %q leaked: %s", tt.value, out)
				}
				if !strings.Contains(out, MaskValue) {
					t.Errorf("mask missing: %s", out)
				}
				return
			}
			if !strings.Contains(out, tt.value) {
				t.Errorf("value %q unexpectedly masked: %s", tt.value, out)
			}
		})
	}
}

func TestSecureHandlerMasksURLQuery(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureJSONLogger(&buf, false)
	logger.Info("fetch", "url", "https://search.example.com/api?keyword=rates&token=s3cr3t&page=2")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	got, _ := rec["url"].(string)
	if strings.Contains(got, "s3cr3t") {
		t.Errorf("token leaked: %s", got)
	}
	if !strings.Contains(got, "keyword=rates") {
		t.Errorf("keyword should survive: %s", got)
	}
}

func TestSecureHandlerGroupsAndWithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, false).With("cookie", "abc123")
	logger.Info("req", slog.Group("headers", slog.String("Cookie", "def456"), slog.String("Referer", "https://a.example/")))

	out := buf.String()
	for _, leaked := range []string{"abc123", "def456"} {
		if strings.Contains(out, leaked) {
			t.Errorf("%s leaked: %s", leaked, out)
		}
	}
	if !strings.Contains(out, "https://a.example/") {
		t.Errorf("referer should be kept: %s", out)
	}
}

func TestNewSecureLoggerLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewSecureLogger(&buf, false).Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug should be hidden without verbose: %s", buf.String())
	}

	NewSecureLogger(&buf, true).Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("debug should be shown with verbose: %s", buf.String())
	}
}
