// Package web implements the HTML review loop driving adapter using templ
// components.
package web

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/issuetriage/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/issuetriage/internal/adapter/driving/web/templates/pages"
	vm "github.com/ericfisherdev/issuetriage/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/issuetriage/internal/application"
	"github.com/ericfisherdev/issuetriage/internal/domain/model"
	"github.com/ericfisherdev/issuetriage/internal/domain/port/driven"
)

const flashCookieName = "flash"

// Handler is the web GUI driving adapter that serves HTML via templ components.
type Handler struct {
	session      *application.SessionService
	actions      *application.ActionService
	deepDive     *application.DeepDiveService
	journal      driven.Journal
	pollInterval time.Duration
	canRemote    bool
	now          func() time.Time
	logger       *slog.Logger
}

// NewHandler creates a Handler. journal may be nil. canRemote controls
// whether close and comment controls are offered.
func NewHandler(
	session *application.SessionService,
	actions *application.ActionService,
	deepDive *application.DeepDiveService,
	journal driven.Journal,
	pollInterval time.Duration,
	canRemote bool,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		session:      session,
		actions:      actions,
		deepDive:     deepDive,
		journal:      journal,
		pollInterval: pollInterval,
		canRemote:    canRemote,
		now:          time.Now,
		logger:       logger,
	}
}

// Dashboard renders the filtered issue list.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	q, err := application.ParseQuery(r.URL.Query())
	if err != nil {
		h.renderProblem(w, r, http.StatusBadRequest, vm.ProblemViewModel{Title: "Bad filter", Message: err.Error()})
		return
	}

	state, err := h.session.Load(r.Context())
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	d := application.BuildDashboard(state, q, h.now())
	page := toDashboardViewModel(d, takeFlash(w, r))
	h.render(w, r, http.StatusOK, templates.Layout("Dashboard", pages.Dashboard(page)))
}

// Issue renders the detail page, or the research status while a deep dive
// on the issue is running.
func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	number, ok := h.issueNumber(w, r)
	if !ok {
		return
	}
	q, err := application.ParseQuery(r.URL.Query())
	if err != nil {
		h.renderProblem(w, r, http.StatusBadRequest, vm.ProblemViewModel{Title: "Bad filter", Message: err.Error()})
		return
	}
	h.renderDetail(w, r, number, q, http.StatusOK, "", nil)
}

// action handles the four triage buttons.
func (h *Handler) action(kind application.ActionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number, ok := h.issueNumber(w, r)
		if !ok {
			return
		}
		if !validateCSRF(r) {
			h.renderProblem(w, r, http.StatusForbidden, vm.ProblemViewModel{
				Title:   "Form expired",
				Message: "The form's security token did not match. Go back, reload the page and try again.",
			})
			return
		}
		q, err := application.ParseQuery(r.URL.Query())
		if err != nil {
			q = application.DefaultQuery()
		}

		comment := r.PostFormValue("comment")
		decision, err := h.actions.Apply(r.Context(), application.ActionRequest{
			Number:  number,
			Kind:    kind,
			Comment: comment,
			Labels:  r.PostForm["labels"],
		})
		if err != nil {
			h.actionError(w, r, number, q, err, comment)
			return
		}

		setFlash(w, vm.Flash{Kind: "success", Message: fmt.Sprintf("#%d %s", number, describeDecision(decision))})
		http.Redirect(w, r, h.nextTarget(r, q, number), http.StatusSeeOther)
	}
}

// DeepDive starts a re-analysis and redirects to the issue, which shows the
// research status until it finishes.
func (h *Handler) DeepDive(w http.ResponseWriter, r *http.Request) {
	number, ok := h.issueNumber(w, r)
	if !ok {
		return
	}
	if !validateCSRF(r) {
		h.renderProblem(w, r, http.StatusForbidden, vm.ProblemViewModel{
			Title:   "Form expired",
			Message: "The form's security token did not match. Go back, reload the page and try again.",
		})
		return
	}
	q, err := application.ParseQuery(r.URL.Query())
	if err != nil {
		q = application.DefaultQuery()
	}

	if _, _, err := h.deepDive.Start(r.Context(), number); err != nil {
		switch {
		case errors.Is(err, model.ErrAnalyzerUnavailable):
			h.renderDetail(w, r, number, q, http.StatusServiceUnavailable, err.Error(), nil)
		default:
			h.actionError(w, r, number, q, err, "")
		}
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/issue/%d%s", number, q.Suffix()), http.StatusSeeOther)
}

// Export serves the Markdown report as a download.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	report, err := h.session.Export(r.Context())
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", application.ExportFilename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(report))
}

// nextTarget computes the redirect after an action: the next untriaged
// issue, or the dashboard when none is left.
func (h *Handler) nextTarget(r *http.Request, q application.Query, current int) string {
	state, err := h.session.Load(r.Context())
	if err != nil {
		h.logger.Error("failed to reload state after action", "error", err)
		return "/" + q.Suffix()
	}
	if next, ok := application.NextUntriaged(state, q, current); ok {
		return fmt.Sprintf("/issue/%d%s", next, q.Suffix())
	}
	return "/" + q.Suffix()
}

// actionError re-renders the detail page for a failed action. Validation
// and remote failures stay on the page with the reviewer's text intact.
func (h *Handler) actionError(w http.ResponseWriter, r *http.Request, number int, q application.Query, err error, comment string) {
	var (
		verr    *model.ValidationError
		remote  *model.RemoteActionError
		corrupt *model.StoreCorruptionError
	)
	switch {
	case errors.As(err, &verr):
		h.renderDetail(w, r, number, q, http.StatusUnprocessableEntity, verr.Error(), &comment)
	case errors.As(err, &remote):
		msg := fmt.Sprintf("The %s step failed: %v", remote.Step, remote.Err)
		h.renderDetail(w, r, number, q, http.StatusBadGateway, msg, &comment)
	case errors.Is(err, model.ErrIssueNotFound):
		h.renderProblem(w, r, http.StatusNotFound, vm.ProblemViewModel{Title: "Issue not found", Message: err.Error()})
	case errors.As(err, &corrupt), errors.Is(err, model.ErrStoreMissing):
		h.storeError(w, r, err)
	default:
		h.logger.Error("action failed", "issue_number", number, "error", err)
		h.renderProblem(w, r, http.StatusInternalServerError, vm.ProblemViewModel{Title: "Action failed", Message: err.Error()})
	}
}

// renderDetail renders the detail page with status. formError and comment
// carry an inline error and the reviewer's text back after a failed action.
func (h *Handler) renderDetail(
	w http.ResponseWriter,
	r *http.Request,
	number int,
	q application.Query,
	status int,
	formError string,
	comment *string,
) {
	ctx := r.Context()
	now := h.now()

	research := model.Research{Number: number, State: model.ResearchIdle}
	if h.deepDive != nil {
		research, _ = h.deepDive.Status(number)
	}

	state, err := h.session.Load(ctx)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	view, err := application.BuildIssueView(state, number, now)
	if err != nil {
		h.renderProblem(w, r, http.StatusNotFound, vm.ProblemViewModel{Title: "Issue not found", Message: err.Error()})
		return
	}

	if research.InFlight() {
		page := toResearchViewModel(view.Issue, research, q, h.pollInterval, now)
		title := fmt.Sprintf("Researching #%d", number)
		h.render(w, r, http.StatusOK, templates.PollingLayout(title, page.RefreshSeconds, pages.Research(page)))
		return
	}

	var history []model.ActivityEntry
	if h.journal != nil {
		history, err = h.journal.ListByIssue(ctx, number)
		if err != nil {
			h.logger.Warn("failed to load issue history", "issue_number", number, "error", err)
		}
	}

	page := toIssueDetailViewModel(detailInput{
		view:      view,
		research:  research,
		history:   history,
		query:     q,
		csrfToken: csrfToken(w, r),
		flash:     takeFlash(w, r),
		formError: formError,
		comment:   comment,
		canDive:   h.deepDive != nil && h.deepDive.Available(),
		canRemote: h.canRemote,
	})
	title := fmt.Sprintf("#%d: %s", number, view.Issue.Title)
	h.render(w, r, status, templates.Layout(title, pages.IssueDetail(page)))
}

// storeError renders the operator-facing page for unreadable stores.
func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, err error) {
	var corrupt *model.StoreCorruptionError
	switch {
	case errors.As(err, &corrupt):
		h.logger.Error("triage store is corrupt", "store", corrupt.Store, "path", corrupt.Path, "error", corrupt.Err)
		h.renderProblem(w, r, http.StatusInternalServerError, vm.ProblemViewModel{
			Title:   "Triage data is corrupt",
			Message: err.Error(),
			Path:    corrupt.Path,
			Hint:    "Nothing was changed. Fix or regenerate the file, then reload.",
		})
	case errors.Is(err, model.ErrStoreMissing):
		h.renderProblem(w, r, http.StatusServiceUnavailable, vm.ProblemViewModel{
			Title:   "No triage data",
			Message: err.Error(),
			Hint:    "Run `issuetriage gather` and start the server without --serve-only.",
		})
	default:
		h.logger.Error("failed to load triage state", "error", err)
		h.renderProblem(w, r, http.StatusInternalServerError, vm.ProblemViewModel{
			Title:   "Internal error",
			Message: err.Error(),
		})
	}
}

func (h *Handler) renderProblem(w http.ResponseWriter, r *http.Request, status int, p vm.ProblemViewModel) {
	h.render(w, r, status, templates.Layout(p.Title, pages.Problem(p)))
}

// render buffers the page so a template error never leaves a half-written
// response.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	var buf bytes.Buffer
	if err := c.Render(r.Context(), &buf); err != nil {
		h.logger.Error("failed to render page", "path", r.URL.Path, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) issueNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number <= 0 {
		h.renderProblem(w, r, http.StatusBadRequest, vm.ProblemViewModel{
			Title:   "Bad issue number",
			Message: fmt.Sprintf("%q is not an issue number", r.PathValue("number")),
		})
		return 0, false
	}
	return number, true
}

func describeDecision(d model.Decision) string {
	switch d.Action {
	case model.ActionClosed:
		if d.CommentPosted {
			return "closed with comment"
		}
		return "closed"
	case model.ActionCommented:
		return "commented"
	default:
		return "skipped"
	}
}

// setFlash stores a one-shot message for the page after a redirect.
func setFlash(w http.ResponseWriter, f vm.Flash) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(f.Kind + ":" + f.Message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash returns and clears the pending flash message, if any.
func takeFlash(w http.ResponseWriter, r *http.Request) *vm.Flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookieName, Value: "", Path: "/", MaxAge: -1})

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil
	}
	kind, msg, ok := strings.Cut(raw, ":")
	if !ok || (kind != "success" && kind != "error") {
		return nil
	}
	return &vm.Flash{Kind: kind, Message: msg}
}
