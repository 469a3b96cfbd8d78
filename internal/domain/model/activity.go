package model

import "time"

// ActivityKind classifies a journal entry.
type ActivityKind string

const (
	ActivityClosed           ActivityKind = "action_closed"
	ActivityCommented        ActivityKind = "action_commented"
	ActivitySkipped          ActivityKind = "action_skipped"
	ActivityActionFailed     ActivityKind = "action_failed"
	ActivityDeepDiveStarted  ActivityKind = "deep_dive_started"
	ActivityDeepDiveDone     ActivityKind = "deep_dive_done"
	ActivityDeepDiveFailed   ActivityKind = "deep_dive_failed"
	ActivityDuplicateFlagged ActivityKind = "duplicate_flagged"
	ActivityFindingReplaced  ActivityKind = "finding_replaced"
)

// ActivityKindForAction maps a recorded decision to its journal kind.
func ActivityKindForAction(a Action) ActivityKind {
	switch a {
	case ActionClosed:
		return ActivityClosed
	case ActionCommented:
		return ActivityCommented
	default:
		return ActivitySkipped
	}
}

// ActivityEntry is one line of an issue's history.
type ActivityEntry struct {
	ID          int64        `json:"id"`
	IssueNumber int          `json:"issue_number"`
	Kind        ActivityKind `json:"kind"`
	Detail      string       `json:"detail"`
	At          time.Time    `json:"at"`
}
