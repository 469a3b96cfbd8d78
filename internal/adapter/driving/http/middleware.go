package httphandler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// statusWriter records the status code and whether headers were sent.
type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (sw *statusWriter) WriteHeader(status int) {
	if !sw.wrote {
		sw.status = status
		sw.wrote = true
	}
	sw.ResponseWriter.WriteHeader(status)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.wrote = true
	return sw.ResponseWriter.Write(b)
}

// loggingMiddleware logs one line per request. Requests that act on an
// issue carry its number, and POSTs are logged with the action they
// performed. Static assets and health checks log at debug so research
// polling and page loads do not drown out the triage actions.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		// The mux fills in the matched pattern and path values on r.
		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", sw.status),
			slog.Duration("duration", time.Since(start).Round(time.Microsecond)),
		}
		if r.Pattern != "" {
			attrs = append(attrs, slog.String("route", r.Pattern))
		}
		if n := r.PathValue("number"); n != "" {
			attrs = append(attrs, slog.String("issue_number", n))
		}
		if action := actionName(r); action != "" {
			attrs = append(attrs, slog.String("action", action))
		}

		logger.LogAttrs(context.Background(), requestLevel(r, sw.status), "http request", attrs...)
	})
}

// actionName names the triage action a POST performed: the last path
// segment for the HTML forms, or "api" for the JSON endpoint whose action
// travels in the body.
func actionName(r *http.Request) string {
	if r.Method != http.MethodPost {
		return ""
	}
	if r.URL.Path == "/api/action" {
		return "api"
	}
	path := strings.TrimSuffix(r.URL.Path, "/")
	return path[strings.LastIndex(path, "/")+1:]
}

func requestLevel(r *http.Request, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest, r.Method == http.MethodPost:
		return slog.LevelInfo
	case strings.HasPrefix(r.URL.Path, "/static/"), r.URL.Path == "/api/health":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// recoveryMiddleware turns a handler panic into a 500. API routes get the
// JSON error body; pages get plain text. Nothing is written once the
// handler has started its response.
func recoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw, ok := w.(*statusWriter)
		if !ok {
			sw = &statusWriter{ResponseWriter: w, status: http.StatusOK}
		}
		defer func() {
			if v := recover(); v != nil {
				logger.Error("panic recovered",
					"panic", v,
					"path", r.URL.Path,
					"issue_number", r.PathValue("number"),
				)
				if sw.wrote {
					return
				}
				if strings.HasPrefix(r.URL.Path, "/api/") {
					writeError(sw, http.StatusInternalServerError, "internal server error")
					return
				}
				http.Error(sw, "internal server error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(sw, r)
	})
}
