package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentLedger, Format: "json", Output: &buf})

	logger.Info("summary built", FieldGroupID, "g1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if rec[FieldComponent] != ComponentLedger || rec[FieldGroupID] != "g1" {
		t.Fatalf("unexpected record: %v", rec)
	}

	buf.Reset()
	logger.WithComponent(ComponentCache).Debug("hit")
	if !strings.Contains(buf.String(), `"component":"cache"`) {
		t.Fatalf("WithComponent not applied: %s", buf.String())
	}
}

func TestFromContextDefault(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("FromContext without logger = %+v", l)
	}
}

func TestMiddlewareCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf})

	h := chimw.RequestID(Middleware(logger)(RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/groups/g1/expenses", nil))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if rec["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", rec["level"])
	}
	if rec[FieldStatusCode] != float64(http.StatusUnprocessableEntity) {
		t.Errorf("status = %v", rec[FieldStatusCode])
	}
	if id, _ := rec[FieldRequestID].(string); id == "" {
		t.Errorf("missing request id in %v", rec)
	}
	if rec[FieldComponent] != ComponentHTTP {
		t.Errorf("component = %v", rec[FieldComponent])
	}
}
