package web

import (
	"io/fs"
	"net/http"

	"github.com/ericfisherdev/issuetriage/internal/application"
)

// RegisterRoutes registers the review loop routes on the provided mux.
// Static assets are served from the embedded filesystem at /static/*.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	mux.HandleFunc("GET /{$}", h.Dashboard)
	mux.HandleFunc("GET /issue/{number}", h.Issue)
	mux.HandleFunc("POST /issue/{number}/close", h.action(application.ActionKindClose))
	mux.HandleFunc("POST /issue/{number}/close-wontfix", h.action(application.ActionKindCloseWontfix))
	mux.HandleFunc("POST /issue/{number}/comment", h.action(application.ActionKindComment))
	mux.HandleFunc("POST /issue/{number}/skip", h.action(application.ActionKindSkip))
	mux.HandleFunc("POST /issue/{number}/deep-dive", h.DeepDive)
	mux.HandleFunc("GET /export", h.Export)
}
