package httphandler_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/ericfisherdev/issuetriage/internal/adapter/driving/http"
)

func newLoggedMux(t *testing.T) (http.Handler, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /issue/{number}/close", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/issue/43", http.StatusSeeOther)
	})
	mux.HandleFunc("GET /static/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /issue/{number}", func(_ http.ResponseWriter, _ *http.Request) {
		panic("render failed")
	})
	mux.HandleFunc("GET /api/issues/{number}", func(_ http.ResponseWriter, _ *http.Request) {
		panic("lookup failed")
	})
	return httphandler.ApplyMiddleware(mux, logger), &buf
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}

func TestLoggingMiddleware_TagsIssueActions(t *testing.T) {
	h, buf := newLoggedMux(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/issue/42/close", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	lines := logLines(t, buf)
	require.Len(t, lines, 1)
	entry := lines[0]
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "http request", entry["msg"])
	assert.Equal(t, "42", entry["issue_number"])
	assert.Equal(t, "close", entry["action"])
	assert.Equal(t, "POST /issue/{number}/close", entry["route"])
	assert.Equal(t, float64(http.StatusSeeOther), entry["status"])
}

func TestLoggingMiddleware_StaticAtDebug(t *testing.T) {
	h, buf := newLoggedMux(t)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/static/app.css", nil))

	lines := logLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "DEBUG", lines[0]["level"])
	assert.NotContains(t, lines[0], "issue_number")
	assert.NotContains(t, lines[0], "action")
}

func TestRecoveryMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		contentType string
	}{
		{name: "page", target: "/issue/7", contentType: "text/plain"},
		{name: "api", target: "/api/issues/7", contentType: "application/json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, buf := newLoggedMux(t)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), tt.contentType)

			lines := logLines(t, buf)
			require.Len(t, lines, 2)
			assert.Equal(t, "panic recovered", lines[0]["msg"])
			assert.Equal(t, "7", lines[0]["issue_number"])
			assert.Equal(t, "ERROR", lines[1]["level"])
			assert.Equal(t, float64(http.StatusInternalServerError), lines[1]["status"])
		})
	}
}
