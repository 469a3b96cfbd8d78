package web

import (
	"fmt"
	"strings"
	"time"

	vm "github.com/ericfisherdev/issuetriage/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/issuetriage/internal/application"
	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

// bodyPreviewLimit caps how much of an issue body the detail page renders.
const bodyPreviewLimit = 2000

const noDate = "—"

func verdictBadge(v model.Verdict) vm.Badge {
	return vm.Badge{Label: v.Label(), Class: "verdict-" + string(v)}
}

func confidenceBadge(c model.Confidence) vm.Badge {
	return vm.Badge{Label: string(c), Class: "confidence-" + strings.ToLower(string(c))}
}

func statusBadge(status string) vm.Badge {
	if status == "" {
		status = "pending"
	}
	return vm.Badge{Label: strings.ToUpper(status[:1]) + status[1:], Class: "status-" + status}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return noDate
	}
	return t.UTC().Format("2006-01-02")
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return noDate
	}
	return formatDate(*t)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return noDate
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}

func formatAge(days int, created time.Time) string {
	switch {
	case created.IsZero():
		return noDate
	case days == 0:
		return "today"
	case days == 1:
		return "1 day"
	default:
		return fmt.Sprintf("%d days", days)
	}
}

func labelsOrEmpty(labels []string) []string {
	if labels == nil {
		return []string{}
	}
	return labels
}

// toIssueRowViewModel converts one dashboard row.
func toIssueRowViewModel(row application.IssueView, q application.Query) vm.IssueRowViewModel {
	return vm.IssueRowViewModel{
		Number:      row.Issue.Number,
		Title:       row.Issue.Title,
		URL:         row.Issue.URL,
		DetailPath:  fmt.Sprintf("/issue/%d%s", row.Issue.Number, q.Suffix()),
		Created:     formatDate(row.Issue.CreatedAt),
		LastComment: formatOptionalDate(row.Issue.LastCommentAt),
		Age:         formatAge(row.AgeDays, row.Issue.CreatedAt),
		Activity:    row.Tier.String(),
		Labels:      labelsOrEmpty(row.Issue.Labels),
		Verdict:     verdictBadge(row.Finding.Verdict),
		Confidence:  confidenceBadge(row.Finding.Confidence),
		Status:      statusBadge(row.Status()),
	}
}

// toDashboardViewModel converts the navigation engine's dashboard.
func toDashboardViewModel(d application.Dashboard, flash *vm.Flash) vm.DashboardViewModel {
	q := d.Query
	out := vm.DashboardViewModel{
		Repo:   d.Repo,
		Flash:  flash,
		Search: q.Q,
		Rows:   make([]vm.IssueRowViewModel, 0, len(d.Rows)),
	}

	out.Summary = append(out.Summary, vm.SummaryItem{Count: d.Total, Label: "Total Issues"})
	for _, c := range d.Counts {
		out.Summary = append(out.Summary, vm.SummaryItem{
			Count: c.Count,
			Label: c.Verdict.Label(),
			Link:  "/" + q.With("verdict", string(c.Verdict)).Suffix(),
		})
	}
	out.Summary = append(out.Summary,
		vm.SummaryItem{Count: d.Triaged, Label: "Triaged", Link: "/" + q.With("show", string(application.ShowTriaged)).Suffix()},
		vm.SummaryItem{Count: d.Untriaged, Label: "Untriaged", Link: "/" + q.With("show", string(application.ShowPending)).Suffix()},
	)

	out.VerdictOptions = []vm.Option{{Value: "", Label: "All Verdicts", Selected: q.Verdict == ""}}
	for _, v := range model.Verdicts() {
		out.VerdictOptions = append(out.VerdictOptions, vm.Option{Value: string(v), Label: v.Label(), Selected: q.Verdict == v})
	}
	out.ConfidenceOptions = []vm.Option{{Value: "", Label: "All Confidence", Selected: q.Confidence == ""}}
	for _, c := range model.Confidences() {
		out.ConfidenceOptions = append(out.ConfidenceOptions, vm.Option{Value: string(c), Label: string(c), Selected: q.Confidence == c})
	}
	out.ShowOptions = []vm.Option{
		{Value: string(application.ShowPending), Label: "Untriaged", Selected: q.Show == application.ShowPending},
		{Value: string(application.ShowAll), Label: "All", Selected: q.Show == application.ShowAll},
		{Value: string(application.ShowTriaged), Label: "Triaged", Selected: q.Show == application.ShowTriaged},
	}
	out.SortOptions = []vm.Option{
		{Value: string(application.SortNumber), Label: "Sort by #", Selected: q.Sort == application.SortNumber},
		{Value: string(application.SortAge), Label: "Sort by Age", Selected: q.Sort == application.SortAge},
		{Value: string(application.SortConfidence), Label: "Sort by Confidence", Selected: q.Sort == application.SortConfidence},
	}

	for _, row := range d.Rows {
		out.Rows = append(out.Rows, toIssueRowViewModel(row, q))
	}
	return out
}

// detailInput gathers everything the detail page shows.
type detailInput struct {
	view      application.IssueView
	research  model.Research
	history   []model.ActivityEntry
	query     application.Query
	csrfToken string
	flash     *vm.Flash
	formError string
	comment   *string
	canDive   bool
	canRemote bool
}

// toIssueDetailViewModel converts one issue and its surroundings.
func toIssueDetailViewModel(in detailInput) vm.IssueDetailViewModel {
	issue := in.view.Issue
	finding := in.view.Finding
	base := fmt.Sprintf("/issue/%d", issue.Number)
	suffix := in.query.Suffix()

	body, truncated := truncateBody(issue.Body)
	summary := finding.Summary
	if summary == "" && finding.IsPending() {
		summary = "Analysis pending..."
	}

	out := vm.IssueDetailViewModel{
		Number:          issue.Number,
		Title:           issue.Title,
		URL:             issue.URL,
		Author:          issue.Author,
		Created:         formatDate(issue.CreatedAt),
		LastComment:     formatOptionalDate(issue.LastCommentAt),
		Age:             formatAge(in.view.AgeDays, issue.CreatedAt),
		Labels:          labelsOrEmpty(issue.Labels),
		CommentsCount:   issue.CommentsCount,
		Verdict:         verdictBadge(finding.Verdict),
		Confidence:      confidenceBadge(finding.Confidence),
		SummaryHTML:     RenderMarkdown(summary),
		BodyHTML:        RenderMarkdown(body),
		Truncated:       truncated,
		ProposedComment: finding.ProposedComment,
		Evidence:        make([]vm.EvidenceViewModel, 0, len(finding.Evidence)),
		History:         make([]vm.ActivityViewModel, 0, len(in.history)),
		Flash:           in.flash,
		Error:           in.formError,
		CSRFToken:       in.csrfToken,
		QuerySuffix:     suffix,
		BackPath:        "/" + suffix,
		CloseURL:        base + "/close" + suffix,
		WontfixURL:      base + "/close-wontfix" + suffix,
		CommentURL:      base + "/comment" + suffix,
		SkipURL:         base + "/skip" + suffix,
		DeepDiveURL:     base + "/deep-dive" + suffix,
		CanDeepDive:     in.canDive,
		CanActRemotely:  in.canRemote,
	}
	if in.comment != nil {
		out.ProposedComment = *in.comment
	}

	for _, e := range finding.Evidence {
		out.Evidence = append(out.Evidence, vm.EvidenceViewModel{Kind: e.Kind, Ref: e.Ref, Message: e.Message, Date: e.Date})
	}
	for _, a := range in.history {
		out.History = append(out.History, vm.ActivityViewModel{At: formatTimestamp(a.At), Kind: string(a.Kind), Detail: a.Detail})
	}

	if d := in.view.Decision; d != nil {
		dv := &vm.DecisionViewModel{
			Status:        statusBadge(d.Status()),
			At:            formatTimestamp(d.At),
			CommentPosted: d.CommentPosted,
			Note:          d.Note,
		}
		if d.IsPartial() {
			dv.Partial = d.Error
			if in.comment == nil && d.Comment != "" {
				out.ProposedComment = d.Comment
			}
		}
		out.Decision = dv
	}
	if in.research.State == model.ResearchFailed {
		out.ResearchError = in.research.Error
	}
	return out
}

func toResearchViewModel(issue model.Issue, r model.Research, q application.Query, poll time.Duration, now time.Time) vm.ResearchViewModel {
	refresh := int(poll.Round(time.Second) / time.Second)
	if refresh < 1 {
		refresh = 1
	}
	return vm.ResearchViewModel{
		Number:         issue.Number,
		Title:          issue.Title,
		StartedAt:      formatTimestamp(r.StartedAt),
		Elapsed:        now.Sub(r.StartedAt).Round(time.Second).String(),
		RefreshSeconds: refresh,
		DetailPath:     fmt.Sprintf("/issue/%d%s", issue.Number, q.Suffix()),
	}
}

// truncateBody cuts body to the preview limit.
func truncateBody(body string) (string, bool) {
	r := []rune(body)
	if len(r) <= bodyPreviewLimit {
		return body, false
	}
	return string(r[:bodyPreviewLimit]) + "\n\n... (truncated)", true
}
