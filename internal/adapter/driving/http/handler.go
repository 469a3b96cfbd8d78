package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/issuetriage/internal/application"
	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

// maxActionBody caps the size of a JSON action request.
const maxActionBody = 64 << 10

// Handler is the HTTP driving adapter that serves the JSON API.
type Handler struct {
	session  *application.SessionService
	actions  *application.ActionService
	deepDive *application.DeepDiveService
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	session *application.SessionService,
	actions *application.ActionService,
	deepDive *application.DeepDiveService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		session:  session,
		actions:  actions,
		deepDive: deepDive,
		logger:   logger,
	}
}

// RegisterRoutes registers the JSON API on mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/findings", h.ListFindings)
	mux.HandleFunc("GET /api/state", h.GetState)
	mux.HandleFunc("GET /api/summary", h.GetSummary)
	mux.HandleFunc("GET /api/issues/{number}", h.GetIssue)
	mux.HandleFunc("GET /api/deep-dive/{number}", h.GetResearch)
	mux.HandleFunc("POST /api/action", h.PostAction)
	mux.HandleFunc("GET /api/health", h.Health)
}

// ApplyMiddleware wraps next with logging and recovery middleware.
func ApplyMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, next)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListFindings returns the findings file as stored.
func (h *Handler) ListFindings(w http.ResponseWriter, r *http.Request) {
	state, err := h.session.Load(r.Context())
	if err != nil {
		h.storeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFindingSetResponse(state.Findings))
}

// GetState returns every recorded decision keyed by issue number.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := h.session.Load(r.Context())
	if err != nil {
		h.storeError(w, err)
		return
	}

	resp := StateResponse{Triaged: make(map[string]DecisionResponse, len(state.Decisions))}
	for n, d := range state.Decisions {
		resp.Triaged[strconv.Itoa(n)] = toDecisionResponse(d)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetSummary returns the verdict and triage counts.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.session.Summary(r.Context())
	if err != nil {
		h.storeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSummaryResponse(sum))
}

// GetIssue returns one snapshot issue together with its finding, decision
// and research status.
func (h *Handler) GetIssue(w http.ResponseWriter, r *http.Request) {
	number, ok := issueNumber(w, r)
	if !ok {
		return
	}

	state, err := h.session.Load(r.Context())
	if err != nil {
		h.storeError(w, err)
		return
	}
	view, err := application.BuildIssueView(state, number, time.Now())
	if err != nil {
		writeError(w, http.StatusNotFound, "issue not found")
		return
	}

	writeJSON(w, http.StatusOK, IssueDetailResponse{
		Issue:    toIssueResponse(view),
		Finding:  toFindingResponse(view.Finding),
		Decision: toDecisionPtr(view.Decision),
		Research: toResearchResponse(h.research(number)),
	})
}

// GetResearch returns the deep dive status for an issue.
func (h *Handler) GetResearch(w http.ResponseWriter, r *http.Request) {
	number, ok := issueNumber(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, toResearchResponse(h.research(number)))
}

// PostAction applies a reviewer action. Only JSON bodies are accepted, which
// keeps plain cross-site form posts out.
func (h *Handler) PostAction(w http.ResponseWriter, r *http.Request) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		writeError(w, http.StatusUnsupportedMediaType, "content type must be application/json")
		return
	}

	var req ActionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxActionBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind, err := application.ParseActionKind(req.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	decision, err := h.actions.Apply(r.Context(), application.ActionRequest{
		Number:  req.Number,
		Kind:    kind,
		Comment: req.Comment,
		Labels:  req.Labels,
	})
	if err != nil {
		h.actionError(w, err, decision)
		return
	}

	writeJSON(w, http.StatusOK, ActionResponse{OK: true, Decision: toDecisionPtr(&decision)})
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) research(number int) model.Research {
	if h.deepDive == nil {
		return model.Research{Number: number, State: model.ResearchIdle}
	}
	r, _ := h.deepDive.Status(number)
	return r
}

func (h *Handler) actionError(w http.ResponseWriter, err error, decision model.Decision) {
	var (
		verr   *model.ValidationError
		remote *model.RemoteActionError
	)
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, verr.Error())
	case errors.Is(err, model.ErrIssueNotFound):
		writeError(w, http.StatusNotFound, "issue not found")
	case errors.As(err, &remote):
		resp := ActionResponse{Error: remote.Error(), Step: string(remote.Step)}
		if decision.IsPartial() {
			resp.Decision = toDecisionPtr(&decision)
		}
		writeJSON(w, http.StatusBadGateway, resp)
	default:
		h.storeError(w, err)
	}
}

// storeError maps store failures to status codes. Corrupt stores name the
// file so the operator can fix it.
func (h *Handler) storeError(w http.ResponseWriter, err error) {
	var corrupt *model.StoreCorruptionError
	switch {
	case errors.As(err, &corrupt):
		h.logger.Error("triage store is corrupt", "store", corrupt.Store, "path", corrupt.Path, "error", corrupt.Err)
		writeError(w, http.StatusInternalServerError, corrupt.Error())
	case errors.Is(err, model.ErrStoreMissing):
		writeError(w, http.StatusServiceUnavailable, "no triage data: run `issuetriage gather` first")
	default:
		h.logger.Error("failed to load triage state", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func issueNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number <= 0 {
		writeError(w, http.StatusBadRequest, "invalid issue number")
		return 0, false
	}
	return number, true
}
