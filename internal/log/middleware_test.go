package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return New(Config{
		Component: ComponentHTTP,
		Handler:   slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}),
	})
}

func decodeRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var recs []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			t.Fatalf("decode log record: %v", err)
		}
		recs = append(recs, rec)
	}
	return recs
}

func TestRequestScopedLoggingCarriesRequestIDAndUser(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)
	hl := NewHTTPLogger(logger)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hl.LogStart(r.Context(), r, "10.0.0.1")
		hl.LogEnd(r.Context(), r, http.StatusOK, 5, "10.0.0.1", 42)
	})
	handler := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req-123" })(inner))

	req := httptest.NewRequest(http.MethodGet, "/lines", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	recs := decodeRecords(t, &buf)
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	for i, rec := range recs {
		if rec[FieldRequestID] != "req-123" {
			t.Errorf("record %d: request_id = %v, want req-123", i, rec[FieldRequestID])
		}
	}
	end := recs[1]
	if end["msg"] != "HTTP request completed" {
		t.Fatalf("unexpected completion message: %v", end["msg"])
	}
	if end[FieldUserID] != float64(42) {
		t.Errorf("user_id = %v, want 42", end[FieldUserID])
	}
	if end[FieldStatusCode] != float64(http.StatusOK) {
		t.Errorf("status_code = %v, want 200", end[FieldStatusCode])
	}
}

func TestLogEndLevels(t *testing.T) {
	cases := []struct {
		status int
		want   string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusSeeOther, "INFO"},
		{http.StatusForbidden, "WARN"},
		{http.StatusNotFound, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		hl := NewHTTPLogger(newBufferLogger(&buf))

		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		hl.LogEnd(context.Background(), req, tc.status, 1, "10.0.0.1", 0)

		recs := decodeRecords(t, &buf)
		if len(recs) != 1 {
			t.Fatalf("status %d: expected 1 record, got %d", tc.status, len(recs))
		}
		if recs[0]["level"] != tc.want {
			t.Errorf("status %d: level = %v, want %s", tc.status, recs[0]["level"], tc.want)
		}
		if _, ok := recs[0][FieldUserID]; ok {
			t.Errorf("status %d: anonymous request must not carry user_id", tc.status)
		}
	}
}

func TestFromContextWithoutLogger(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil || logger.Logger == nil {
		t.Fatal("FromContext must return a usable fallback logger")
	}
}
