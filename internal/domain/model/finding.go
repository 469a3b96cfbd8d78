package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Evidence is one supporting record behind a verdict: a commit, a file, a
// related issue, and so on.
type Evidence struct {
	Kind    string `json:"type"`
	Ref     string `json:"ref"`
	Message string `json:"message"`
	Date    string `json:"date,omitempty"`
}

// EvidenceKindDuplicate tags evidence produced by duplicate detection.
const EvidenceKindDuplicate = "duplicate"

// Finding is the single analysis record kept for an issue.
type Finding struct {
	Number          int            `json:"number"`
	Title           string         `json:"title"`
	Verdict         Verdict        `json:"verdict"`
	Confidence      Confidence     `json:"confidence"`
	Summary         string         `json:"summary"`
	Evidence        []Evidence     `json:"evidence"`
	ProposedComment string         `json:"proposed_comment"`
	ProposedAction  ProposedAction `json:"proposed_action,omitempty"`
}

// NewPendingFinding returns the placeholder finding created at initialization.
func NewPendingFinding(issue Issue) Finding {
	return Finding{
		Number:     issue.Number,
		Title:      issue.Title,
		Verdict:    VerdictPending,
		Confidence: ConfidencePending,
		Evidence:   []Evidence{},
	}
}

// IsPending reports whether the finding still awaits analysis.
func (f Finding) IsPending() bool {
	return f.Verdict == VerdictPending
}

// Validate checks the finding is complete. Confidence is PENDING if and only
// if the verdict is pending.
func (f Finding) Validate() error {
	if f.Number <= 0 {
		return &ValidationError{Field: "number", Message: "must be a positive issue number"}
	}
	if _, err := ParseVerdict(string(f.Verdict)); err != nil {
		return &ValidationError{Field: "verdict", Message: err.Error()}
	}
	if _, err := ParseConfidence(string(f.Confidence)); err != nil {
		return &ValidationError{Field: "confidence", Message: err.Error()}
	}
	if (f.Verdict == VerdictPending) != (f.Confidence == ConfidencePending) {
		return &ValidationError{
			Field:   "confidence",
			Message: fmt.Sprintf("confidence %s does not match verdict %s", f.Confidence, f.Verdict),
		}
	}
	for i, e := range f.Evidence {
		if strings.TrimSpace(e.Kind) == "" {
			return &ValidationError{Field: fmt.Sprintf("evidence[%d].type", i), Message: "is required"}
		}
	}
	return nil
}

// FindingSet is the whole findings file.
type FindingSet struct {
	Repo       string    `json:"repo"`
	AnalyzedAt time.Time `json:"analyzed_at"`
	Findings   []Finding `json:"issues"`
}

// Get returns the finding for number.
func (s *FindingSet) Get(number int) (Finding, bool) {
	for _, f := range s.Findings {
		if f.Number == number {
			return f, true
		}
	}
	return Finding{}, false
}

// Put inserts or replaces the finding for f.Number, keeping the set ordered
// by issue number.
func (s *FindingSet) Put(f Finding) {
	for i := range s.Findings {
		if s.Findings[i].Number == f.Number {
			s.Findings[i] = f
			return
		}
	}
	s.Findings = append(s.Findings, f)
	sort.Slice(s.Findings, func(i, j int) bool {
		return s.Findings[i].Number < s.Findings[j].Number
	})
}

// ByNumber indexes the findings by issue number.
func (s *FindingSet) ByNumber() map[int]Finding {
	m := make(map[int]Finding, len(s.Findings))
	for _, f := range s.Findings {
		m[f.Number] = f
	}
	return m
}

// Validate checks every finding and rejects duplicate issue numbers.
func (s *FindingSet) Validate() error {
	seen := make(map[int]bool, len(s.Findings))
	for _, f := range s.Findings {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("finding #%d: %w", f.Number, err)
		}
		if seen[f.Number] {
			return fmt.Errorf("finding #%d appears more than once", f.Number)
		}
		seen[f.Number] = true
	}
	return nil
}
