package model

import "fmt"

// Verdict is the categorical conclusion of an issue analysis.
type Verdict string

const (
	VerdictPending            Verdict = "pending"
	VerdictLikelyResolved     Verdict = "likely_resolved"
	VerdictFeatureImplemented Verdict = "feature_implemented"
	VerdictStillOpen          Verdict = "still_open"
	VerdictNeedsInvestigation Verdict = "needs_investigation"
	VerdictStaleWontfix       Verdict = "stale_wontfix"
	VerdictDuplicate          Verdict = "duplicate"
	VerdictUnclear            Verdict = "unclear"
)

// Verdicts lists every verdict in dashboard display order.
func Verdicts() []Verdict {
	return []Verdict{
		VerdictLikelyResolved,
		VerdictFeatureImplemented,
		VerdictStillOpen,
		VerdictNeedsInvestigation,
		VerdictStaleWontfix,
		VerdictDuplicate,
		VerdictUnclear,
		VerdictPending,
	}
}

// ParseVerdict converts s to a Verdict, rejecting unknown values.
func ParseVerdict(s string) (Verdict, error) {
	for _, v := range Verdicts() {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown verdict %q", s)
}

// UnmarshalText rejects verdict strings outside the closed set.
func (v *Verdict) UnmarshalText(text []byte) error {
	parsed, err := ParseVerdict(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Label returns the human-readable form, e.g. "Likely Resolved".
func (v Verdict) Label() string {
	switch v {
	case VerdictPending:
		return "Pending"
	case VerdictLikelyResolved:
		return "Likely Resolved"
	case VerdictFeatureImplemented:
		return "Feature Implemented"
	case VerdictStillOpen:
		return "Still Open"
	case VerdictNeedsInvestigation:
		return "Needs Investigation"
	case VerdictStaleWontfix:
		return "Stale / Won't Fix"
	case VerdictDuplicate:
		return "Duplicate"
	case VerdictUnclear:
		return "Unclear"
	default:
		return string(v)
	}
}

// Confidence is how sure an analysis is of its verdict.
type Confidence string

const (
	ConfidencePending Confidence = "PENDING"
	ConfidenceLow     Confidence = "LOW"
	ConfidenceMedium  Confidence = "MEDIUM"
	ConfidenceHigh    Confidence = "HIGH"
)

// Confidences lists every confidence level from most to least certain.
func Confidences() []Confidence {
	return []Confidence{ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidencePending}
}

// ParseConfidence converts s to a Confidence, rejecting unknown values.
func ParseConfidence(s string) (Confidence, error) {
	for _, c := range Confidences() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown confidence %q", s)
}

// UnmarshalText rejects confidence strings outside the closed set.
func (c *Confidence) UnmarshalText(text []byte) error {
	parsed, err := ParseConfidence(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Rank orders confidences for sorting: HIGH=0 through PENDING=3.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 0
	case ConfidenceMedium:
		return 1
	case ConfidenceLow:
		return 2
	default:
		return 3
	}
}

// Action is the reviewer decision recorded for an issue.
type Action string

const (
	ActionClosed    Action = "closed"
	ActionCommented Action = "commented"
	ActionSkipped   Action = "skipped"
)

// ParseAction converts s to an Action, rejecting unknown values.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionClosed, ActionCommented, ActionSkipped:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown triage action %q", s)
}

// UnmarshalText rejects action strings outside the closed set.
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// CloseReason is the state reason sent to the tracker when closing.
type CloseReason string

const (
	CloseReasonCompleted  CloseReason = "completed"
	CloseReasonNotPlanned CloseReason = "not_planned"
)

// ProposedAction is the follow-up an analysis recommends.
type ProposedAction string

const (
	ProposedActionNone    ProposedAction = ""
	ProposedActionClose   ProposedAction = "close"
	ProposedActionComment ProposedAction = "comment"
	ProposedActionKeep    ProposedAction = "keep"
)
