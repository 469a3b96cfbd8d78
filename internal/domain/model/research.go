package model

import (
	"time"

	"github.com/google/uuid"
)

// ResearchState is the lifecycle of a deep dive for one issue.
type ResearchState string

const (
	ResearchIdle        ResearchState = "idle"
	ResearchResearching ResearchState = "researching"
	ResearchDone        ResearchState = "done"
	ResearchFailed      ResearchState = "failed"
)

// Research is the observable status of the latest deep dive on an issue.
// InvocationID tags the running task so that a late result from an abandoned
// run can be recognised and discarded.
type Research struct {
	Number       int           `json:"number"`
	InvocationID uuid.UUID     `json:"invocation_id"`
	State        ResearchState `json:"state"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// InFlight reports whether the research is still running.
func (r Research) InFlight() bool {
	return r.State == ResearchResearching
}
