// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// Badge is a coloured pill: a verdict, confidence or triage status.
type Badge struct {
	Label string
	Class string
}

// Option is one entry of a filter select.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// SummaryItem is one count in the dashboard summary bar.
type SummaryItem struct {
	Count int
	Label string
	// Link filters the dashboard to this item; empty for totals.
	Link string
}

// IssueRowViewModel holds one dashboard table row.
type IssueRowViewModel struct {
	Number      int
	Title       string
	URL         string
	DetailPath  string
	Created     string
	LastComment string
	Age         string
	Activity    string
	Labels      []string
	Verdict     Badge
	Confidence  Badge
	Status      Badge
}

// DashboardViewModel holds presentation-ready data for the issue list.
type DashboardViewModel struct {
	Repo    string
	Flash   *Flash
	Summary []SummaryItem

	VerdictOptions    []Option
	ConfidenceOptions []Option
	ShowOptions       []Option
	SortOptions       []Option
	Search            string

	Rows []IssueRowViewModel
}

// EvidenceViewModel holds one evidence line.
type EvidenceViewModel struct {
	Kind    string
	Ref     string
	Message string
	Date    string
}

// ActivityViewModel holds one history entry.
type ActivityViewModel struct {
	At     string
	Kind   string
	Detail string
}

// DecisionViewModel describes an existing triage decision.
type DecisionViewModel struct {
	Status        Badge
	At            string
	CommentPosted bool
	Note          string
	// Partial is set when a close failed after its comment was posted.
	Partial string
}

// IssueDetailViewModel holds presentation-ready data for one issue.
type IssueDetailViewModel struct {
	Number        int
	Title         string
	URL           string
	Author        string
	Created       string
	LastComment   string
	Age           string
	Labels        []string
	CommentsCount int

	Verdict     Badge
	Confidence  Badge
	SummaryHTML string
	Evidence    []EvidenceViewModel
	BodyHTML    string
	Truncated   bool

	ProposedComment string
	Decision        *DecisionViewModel
	ResearchError   string
	History         []ActivityViewModel

	Flash *Flash
	// Error is an inline error for the action form, e.g. a failed close.
	Error string

	CSRFToken      string
	QuerySuffix    string
	BackPath       string
	CloseURL       string
	WontfixURL     string
	CommentURL     string
	SkipURL        string
	DeepDiveURL    string
	CanDeepDive    bool
	CanActRemotely bool
}

// ResearchViewModel holds the interstitial shown while a deep dive runs.
type ResearchViewModel struct {
	Number         int
	Title          string
	StartedAt      string
	Elapsed        string
	RefreshSeconds int
	DetailPath     string
}

// ProblemViewModel is the operator-facing error page.
type ProblemViewModel struct {
	Title   string
	Message string
	Path    string
	Hint    string
}

// Flash is a one-shot message carried across a redirect.
type Flash struct {
	Kind    string
	Message string
}
