package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/issuetriage/internal/application"
	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// EvidenceResponse is one evidence record.
type EvidenceResponse struct {
	Type    string `json:"type"`
	Ref     string `json:"ref"`
	Message string `json:"message"`
	Date    string `json:"date,omitempty"`
}

// FindingResponse is the JSON representation of a finding.
type FindingResponse struct {
	Number          int                `json:"number"`
	Title           string             `json:"title"`
	Verdict         string             `json:"verdict"`
	Confidence      string             `json:"confidence"`
	Summary         string             `json:"summary"`
	Evidence        []EvidenceResponse `json:"evidence"`
	ProposedComment string             `json:"proposed_comment"`
	ProposedAction  string             `json:"proposed_action,omitempty"`
}

// FindingSetResponse mirrors findings.json.
type FindingSetResponse struct {
	Repo       string            `json:"repo"`
	AnalyzedAt string            `json:"analyzed_at"`
	Issues     []FindingResponse `json:"issues"`
}

// DecisionResponse is the JSON representation of a recorded decision.
type DecisionResponse struct {
	Action        string `json:"action"`
	At            string `json:"at"`
	CommentPosted bool   `json:"comment_posted"`
	Comment       string `json:"comment,omitempty"`
	Note          string `json:"note,omitempty"`
	Error         string `json:"error,omitempty"`
}

// StateResponse mirrors state.json.
type StateResponse struct {
	Triaged map[string]DecisionResponse `json:"triaged"`
}

// IssueResponse is a snapshot issue with its derived columns.
type IssueResponse struct {
	Number        int      `json:"number"`
	Title         string   `json:"title"`
	Body          string   `json:"body"`
	Labels        []string `json:"labels"`
	State         string   `json:"state"`
	Author        string   `json:"author"`
	URL           string   `json:"url"`
	CommentsCount int      `json:"comments_count"`
	CreatedAt     string   `json:"created_at"`
	LastCommentAt string   `json:"last_comment_at,omitempty"`
	AgeDays       int      `json:"age_days"`
	Activity      string   `json:"activity"`
	Status        string   `json:"status"`
}

// ResearchResponse is the deep dive status of one issue.
type ResearchResponse struct {
	Number       int    `json:"number"`
	State        string `json:"status"`
	InvocationID string `json:"invocation_id,omitempty"`
	StartedAt    string `json:"started_at,omitempty"`
	FinishedAt   string `json:"finished_at,omitempty"`
	Error        string `json:"error,omitempty"`
}

// IssueDetailResponse bundles everything known about one issue.
type IssueDetailResponse struct {
	Issue    IssueResponse     `json:"issue"`
	Finding  FindingResponse   `json:"finding"`
	Decision *DecisionResponse `json:"decision"`
	Research ResearchResponse  `json:"research"`
}

// VerdictCountResponse is one row of the summary.
type VerdictCountResponse struct {
	Verdict string `json:"verdict"`
	Count   int    `json:"count"`
}

// SummaryResponse is the JSON form of the session summary.
type SummaryResponse struct {
	Repo      string                 `json:"repo"`
	Total     int                    `json:"total"`
	Triaged   int                    `json:"triaged"`
	Untriaged int                    `json:"untriaged"`
	Partial   int                    `json:"partial"`
	Verdicts  []VerdictCountResponse `json:"verdicts"`
	Actions   map[string]int         `json:"actions"`
}

// ActionRequest is the JSON body for POST /api/action.
type ActionRequest struct {
	Number  int      `json:"number"`
	Action  string   `json:"action"`
	Comment string   `json:"comment"`
	Labels  []string `json:"labels"`
}

// ActionResponse reports the outcome of an action.
type ActionResponse struct {
	OK       bool              `json:"ok"`
	Decision *DecisionResponse `json:"decision,omitempty"`
	Error    string            `json:"error,omitempty"`
	Step     string            `json:"step,omitempty"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toFindingResponse(f model.Finding) FindingResponse {
	evidence := make([]EvidenceResponse, 0, len(f.Evidence))
	for _, e := range f.Evidence {
		evidence = append(evidence, EvidenceResponse{Type: e.Kind, Ref: e.Ref, Message: e.Message, Date: e.Date})
	}
	return FindingResponse{
		Number:          f.Number,
		Title:           f.Title,
		Verdict:         string(f.Verdict),
		Confidence:      string(f.Confidence),
		Summary:         f.Summary,
		Evidence:        evidence,
		ProposedComment: f.ProposedComment,
		ProposedAction:  string(f.ProposedAction),
	}
}

func toFindingSetResponse(set *model.FindingSet) FindingSetResponse {
	issues := make([]FindingResponse, 0, len(set.Findings))
	for _, f := range set.Findings {
		issues = append(issues, toFindingResponse(f))
	}
	return FindingSetResponse{
		Repo:       set.Repo,
		AnalyzedAt: formatTime(set.AnalyzedAt),
		Issues:     issues,
	}
}

func toDecisionResponse(d model.Decision) DecisionResponse {
	return DecisionResponse{
		Action:        string(d.Action),
		At:            formatTime(d.At),
		CommentPosted: d.CommentPosted,
		Comment:       d.Comment,
		Note:          d.Note,
		Error:         d.Error,
	}
}

func toDecisionPtr(d *model.Decision) *DecisionResponse {
	if d == nil {
		return nil
	}
	resp := toDecisionResponse(*d)
	return &resp
}

func toIssueResponse(v application.IssueView) IssueResponse {
	labels := v.Issue.Labels
	if labels == nil {
		labels = []string{}
	}
	var lastComment string
	if v.Issue.LastCommentAt != nil {
		lastComment = formatTime(*v.Issue.LastCommentAt)
	}
	return IssueResponse{
		Number:        v.Issue.Number,
		Title:         v.Issue.Title,
		Body:          v.Issue.Body,
		Labels:        labels,
		State:         v.Issue.State,
		Author:        v.Issue.Author,
		URL:           v.Issue.URL,
		CommentsCount: v.Issue.CommentsCount,
		CreatedAt:     formatTime(v.Issue.CreatedAt),
		LastCommentAt: lastComment,
		AgeDays:       v.AgeDays,
		Activity:      v.Tier.String(),
		Status:        v.Status(),
	}
}

func toResearchResponse(r model.Research) ResearchResponse {
	resp := ResearchResponse{
		Number:    r.Number,
		State:     string(r.State),
		StartedAt: formatTime(r.StartedAt),
		Error:     r.Error,
	}
	if resp.State == "" {
		resp.State = string(model.ResearchIdle)
	}
	if r.InvocationID != uuid.Nil {
		resp.InvocationID = r.InvocationID.String()
	}
	if r.FinishedAt != nil {
		resp.FinishedAt = formatTime(*r.FinishedAt)
	}
	return resp
}

func toSummaryResponse(s application.Summary) SummaryResponse {
	verdicts := make([]VerdictCountResponse, 0, len(s.Verdicts))
	for _, v := range s.Verdicts {
		verdicts = append(verdicts, VerdictCountResponse{Verdict: string(v.Verdict), Count: v.Count})
	}
	actions := make(map[string]int, len(s.Actions))
	for a, n := range s.Actions {
		actions[string(a)] = n
	}
	return SummaryResponse{
		Repo:      s.Repo,
		Total:     s.Total,
		Triaged:   s.Triaged,
		Untriaged: s.Untriaged,
		Partial:   s.Partial,
		Verdicts:  verdicts,
		Actions:   actions,
	}
}
