package model

import (
	"errors"
	"fmt"
)

var (
	// ErrIssueNotFound is returned when an issue number is not in the snapshot.
	ErrIssueNotFound = errors.New("issue not found in snapshot")

	// ErrStoreMissing is returned when a required store file does not exist.
	ErrStoreMissing = errors.New("store file does not exist")

	// ErrAnalysisTimeout marks a deep dive abandoned after its deadline.
	ErrAnalysisTimeout = errors.New("analysis timed out")

	// ErrAnalyzerUnavailable is returned when no analyzer command is configured.
	ErrAnalyzerUnavailable = errors.New("no analyzer configured: set ISSUETRIAGE_ANALYZER_COMMAND")

	// ErrTrackerUnavailable is returned when remote actions are attempted
	// without tracker credentials.
	ErrTrackerUnavailable = errors.New("no GitHub token configured: set ISSUETRIAGE_GITHUB_TOKEN or GITHUB_TOKEN")
)

// ValidationError rejects a request before any external call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// RemoteStep names the tracker call a RemoteActionError came from.
type RemoteStep string

const (
	RemoteStepLabel   RemoteStep = "label"
	RemoteStepComment RemoteStep = "comment"
	RemoteStepClose   RemoteStep = "close"
)

// RemoteActionError reports a failed tracker mutation.
type RemoteActionError struct {
	Step   RemoteStep
	Number int
	Err    error
}

func (e *RemoteActionError) Error() string {
	return fmt.Sprintf("%s on issue #%d failed: %v", e.Step, e.Number, e.Err)
}

func (e *RemoteActionError) Unwrap() error { return e.Err }

// AnalysisError reports a failed deep dive. The prior finding is untouched.
type AnalysisError struct {
	Number int
	Err    error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis of issue #%d failed: %v", e.Number, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// StoreCorruptionError reports an unreadable or inconsistent store. It is
// fatal for the affected store: nothing is guessed or fabricated.
type StoreCorruptionError struct {
	Store string
	Path  string
	Err   error
}

func (e *StoreCorruptionError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s store is corrupt: %v", e.Store, e.Err)
	}
	return fmt.Sprintf("%s store %s is corrupt: %v", e.Store, e.Path, e.Err)
}

func (e *StoreCorruptionError) Unwrap() error { return e.Err }
