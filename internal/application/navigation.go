package application

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

// SortKey selects the dashboard ordering. Every key falls back to issue
// number so the order is total.
type SortKey string

const (
	SortNumber     SortKey = "number"
	SortAge        SortKey = "age"
	SortConfidence SortKey = "confidence"
)

// ShowMode selects which issues the dashboard lists by triage status.
type ShowMode string

const (
	ShowPending ShowMode = "pending"
	ShowAll     ShowMode = "all"
	ShowTriaged ShowMode = "triaged"
)

// Query holds the dashboard filter and sort parameters. Zero values mean
// "no filter".
type Query struct {
	Verdict    model.Verdict
	Confidence model.Confidence
	Q          string
	Sort       SortKey
	Show       ShowMode
}

// DefaultQuery returns the query used when no parameters are given.
func DefaultQuery() Query {
	return Query{Sort: SortNumber, Show: ShowPending}
}

// ParseQuery reads query parameters. Unknown values are a ValidationError
// rather than being ignored.
func ParseQuery(values url.Values) (Query, error) {
	q := DefaultQuery()

	if v := values.Get("verdict"); v != "" {
		verdict, err := model.ParseVerdict(v)
		if err != nil {
			return Query{}, &model.ValidationError{Field: "verdict", Message: err.Error()}
		}
		q.Verdict = verdict
	}
	if c := values.Get("confidence"); c != "" {
		confidence, err := model.ParseConfidence(strings.ToUpper(c))
		if err != nil {
			return Query{}, &model.ValidationError{Field: "confidence", Message: err.Error()}
		}
		q.Confidence = confidence
	}
	q.Q = strings.TrimSpace(values.Get("q"))

	switch s := SortKey(values.Get("sort")); s {
	case "":
	case SortNumber, SortAge, SortConfidence:
		q.Sort = s
	default:
		return Query{}, &model.ValidationError{Field: "sort", Message: fmt.Sprintf("unknown sort %q", s)}
	}

	switch s := ShowMode(values.Get("show")); s {
	case "":
	case ShowPending, ShowAll, ShowTriaged:
		q.Show = s
	default:
		return Query{}, &model.ValidationError{Field: "show", Message: fmt.Sprintf("unknown show mode %q", s)}
	}

	return q, nil
}

// Values encodes the query back into parameters, omitting defaults.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Verdict != "" {
		v.Set("verdict", string(q.Verdict))
	}
	if q.Confidence != "" {
		v.Set("confidence", string(q.Confidence))
	}
	if q.Q != "" {
		v.Set("q", q.Q)
	}
	if q.Sort != "" && q.Sort != SortNumber {
		v.Set("sort", string(q.Sort))
	}
	if q.Show != "" && q.Show != ShowPending {
		v.Set("show", string(q.Show))
	}
	return v
}

// With returns a copy of q with one parameter replaced, for building links.
func (q Query) With(key, value string) Query {
	out := q
	switch key {
	case "verdict":
		out.Verdict = model.Verdict(value)
	case "confidence":
		out.Confidence = model.Confidence(value)
	case "sort":
		out.Sort = SortKey(value)
	case "show":
		out.Show = ShowMode(value)
	case "q":
		out.Q = value
	}
	return out
}

// Suffix returns "?<params>" or "" when every parameter is a default.
func (q Query) Suffix() string {
	if enc := q.Values().Encode(); enc != "" {
		return "?" + enc
	}
	return ""
}

// IssueView is one issue joined with its finding and decision.
type IssueView struct {
	Issue    model.Issue
	Finding  model.Finding
	Decision *model.Decision
	AgeDays  int
	Tier     ActivityTier
}

// Triaged reports whether the reviewer's action on the issue completed. A
// partial close still needs a retry, so it counts as untriaged.
func (v IssueView) Triaged() bool {
	return v.Decision != nil && !v.Decision.IsPartial()
}

// Status is the decision's status, or "pending".
func (v IssueView) Status() string {
	if v.Decision == nil {
		return "pending"
	}
	return v.Decision.Status()
}

// VerdictCount is one dashboard summary card.
type VerdictCount struct {
	Verdict model.Verdict
	Count   int
}

// Dashboard is the rendered content of the issue list page.
type Dashboard struct {
	Repo      string
	Query     Query
	Counts    []VerdictCount
	Total     int
	Triaged   int
	Untriaged int
	Rows      []IssueView
}

// BuildDashboard filters and orders the issues for q. Verdict counts are
// taken over every filter except the verdict filter itself, so the summary
// cards keep showing the other verdicts while one is selected.
func BuildDashboard(state *State, q Query, now time.Time) Dashboard {
	views := buildViews(state, now)

	counts := make(map[model.Verdict]int)
	var rows []IssueView
	for _, v := range views {
		if !matchesText(v, q) || !matchesConfidence(v, q) || !matchesShow(v, q) {
			continue
		}
		counts[v.Finding.Verdict]++
		if q.Verdict != "" && v.Finding.Verdict != q.Verdict {
			continue
		}
		rows = append(rows, v)
	}
	sortViews(rows, q.Sort)

	d := Dashboard{Repo: state.Snapshot.Repo, Query: q, Rows: rows, Total: len(views)}
	for _, verdict := range model.Verdicts() {
		if n := counts[verdict]; n > 0 {
			d.Counts = append(d.Counts, VerdictCount{Verdict: verdict, Count: n})
		}
	}
	for _, v := range views {
		if v.Triaged() {
			d.Triaged++
		}
	}
	d.Untriaged = d.Total - d.Triaged
	return d
}

// BuildIssueView returns the joined view of one snapshot issue.
func BuildIssueView(state *State, number int, now time.Time) (IssueView, error) {
	issue, ok := state.Snapshot.Issue(number)
	if !ok {
		return IssueView{}, fmt.Errorf("issue #%d: %w", number, model.ErrIssueNotFound)
	}
	return newView(state, issue, now), nil
}

// NextUntriaged picks where to go after acting on current: the first
// untriaged issue after current in the active order, else the
// lowest-numbered untriaged issue other than current. The show mode is ignored so
// the walk never depends on the issue just triaged. ok is false when every
// matching issue is triaged.
func NextUntriaged(state *State, q Query, current int) (next int, ok bool) {
	var candidates []IssueView
	for _, v := range buildViews(state, time.Time{}) {
		if matchesText(v, q) && matchesConfidence(v, q) &&
			(q.Verdict == "" || v.Finding.Verdict == q.Verdict) {
			candidates = append(candidates, v)
		}
	}
	sortViews(candidates, q.Sort)

	less := comparator(q.Sort)
	cur, found := viewOf(state, current)

	if found {
		for _, v := range candidates {
			if !v.Triaged() && v.Issue.Number != current && less(cur, v) {
				return v.Issue.Number, true
			}
		}
	}
	for _, v := range candidates {
		if !v.Triaged() && v.Issue.Number != current && (!ok || v.Issue.Number < next) {
			next, ok = v.Issue.Number, true
		}
	}
	return next, ok
}

func viewOf(state *State, number int) (IssueView, bool) {
	issue, ok := state.Snapshot.Issue(number)
	if !ok {
		return IssueView{}, false
	}
	return newView(state, issue, time.Time{}), true
}

func buildViews(state *State, now time.Time) []IssueView {
	views := make([]IssueView, 0, len(state.Snapshot.Issues))
	for _, issue := range state.Snapshot.Issues {
		views = append(views, newView(state, issue, now))
	}
	return views
}

func newView(state *State, issue model.Issue, now time.Time) IssueView {
	v := IssueView{Issue: issue, Finding: state.Finding(issue.Number)}
	if d, ok := state.Decision(issue.Number); ok {
		v.Decision = &d
	}
	if !now.IsZero() {
		v.AgeDays = issue.AgeDays(now)
		v.Tier = classifyActivity(issue.LastActivityAt(), now)
	}
	return v
}

func matchesText(v IssueView, q Query) bool {
	if q.Q == "" {
		return true
	}
	needle := strings.ToLower(q.Q)
	return strings.Contains(strings.ToLower(v.Issue.Title), needle) ||
		strings.Contains(strings.ToLower(v.Issue.Body), needle)
}

func matchesConfidence(v IssueView, q Query) bool {
	return q.Confidence == "" || v.Finding.Confidence == q.Confidence
}

func matchesShow(v IssueView, q Query) bool {
	switch q.Show {
	case ShowAll:
		return true
	case ShowTriaged:
		return v.Triaged()
	default:
		return !v.Triaged()
	}
}

func sortViews(views []IssueView, key SortKey) {
	less := comparator(key)
	sort.SliceStable(views, func(i, j int) bool { return less(views[i], views[j]) })
}

// comparator returns a strict total order for key.
func comparator(key SortKey) func(a, b IssueView) bool {
	byNumber := func(a, b IssueView) bool { return a.Issue.Number < b.Issue.Number }
	switch key {
	case SortAge:
		return func(a, b IssueView) bool {
			if !a.Issue.CreatedAt.Equal(b.Issue.CreatedAt) {
				return a.Issue.CreatedAt.Before(b.Issue.CreatedAt)
			}
			return byNumber(a, b)
		}
	case SortConfidence:
		return func(a, b IssueView) bool {
			ra, rb := a.Finding.Confidence.Rank(), b.Finding.Confidence.Rank()
			if ra != rb {
				return ra < rb
			}
			return byNumber(a, b)
		}
	default:
		return byNumber
	}
}
