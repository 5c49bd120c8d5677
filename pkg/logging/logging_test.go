package logging

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCompactHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	log.With("component", "session").Info("node created", "id", "textNode_1", "label", "text message")

	line := buf.String()
	if !strings.HasPrefix(line, "[INFO]  ") {
		t.Errorf("Expected INFO prefix, got %q", line)
	}
	if !strings.Contains(line, "(session) node created") {
		t.Errorf("Expected component tag before message, got %q", line)
	}
	if !strings.Contains(line, `| id=textNode_1 label="text message"`) {
		t.Errorf("Expected quoted attributes, got %q", line)
	}
}

func TestCompactHandlerGroups(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, nil))

	log.WithGroup("banner").Info("shown", "kind", "x")

	if !strings.Contains(buf.String(), "banner.kind=x") {
		t.Errorf("Expected grouped key, got %q", buf.String())
	}
}

func TestCompactHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	log.Info("hidden")
	log.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("Info line should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "[WARN]") {
		t.Error("Warn line missing")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		want    slog.Level
		wantErr bool
	}{
		{"", 0, slog.LevelInfo, false},
		{"", 1, slog.LevelDebug, false},
		{"", 3, LevelTrace, false},
		{"warn", 2, slog.LevelWarn, false},
		{"ERROR", 0, slog.LevelError, false},
		{"loud", 0, slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.name, tt.count)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q, %d) error = %v, wantErr %v", tt.name, tt.count, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q, %d) = %v, want %v", tt.name, tt.count, got, tt.want)
		}
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/flow", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "fixed-id" {
		t.Errorf("Expected request id fixed-id in context, got %q", seen)
	}
	if rec.Header().Get("X-Request-ID") != "fixed-id" {
		t.Errorf("Expected request id echoed in header, got %q", rec.Header().Get("X-Request-ID"))
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("Expected status to pass through, got %d", rec.Code)
	}

	// Without a header a fresh id is generated
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("Expected generated request id")
	}
}

func TestComponentLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{Level: slog.LevelInfo, JSON: true, Output: &buf})
	defer Configure(Options{Level: slog.LevelInfo})

	New("watcher").Info("assets changed", "files", 2)

	got := buf.String()
	for _, want := range []string{`"msg":"assets changed"`, `"component":"watcher"`, `"files":2`} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %s in %q", want, got)
		}
	}
}
