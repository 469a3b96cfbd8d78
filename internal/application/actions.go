package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
	"github.com/ericfisherdev/issuetriage/internal/domain/port/driven"
)

// WontfixLabel is added to issues closed as not planned.
const WontfixLabel = "wontfix"

// ActionKind is a reviewer request handled by ActionService.
type ActionKind string

const (
	ActionKindClose        ActionKind = "close"
	ActionKindCloseWontfix ActionKind = "close_wontfix"
	ActionKindComment      ActionKind = "comment"
	ActionKindSkip         ActionKind = "skip"
)

// ParseActionKind converts s to an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	switch k := ActionKind(strings.ReplaceAll(s, "-", "_")); k {
	case ActionKindClose, ActionKindCloseWontfix, ActionKindComment, ActionKindSkip:
		return k, nil
	}
	return "", &model.ValidationError{Field: "action", Message: fmt.Sprintf("unknown action %q", s)}
}

// ActionRequest is one reviewer action. For skip, Comment is the note.
type ActionRequest struct {
	Number  int
	Kind    ActionKind
	Comment string
	Labels  []string
}

// ActionService applies reviewer actions to the tracker and records the
// resulting decisions. Each action runs under its own timeout and is never
// retried automatically.
type ActionService struct {
	issues    driven.IssueStore
	decisions driven.DecisionStore
	tracker   driven.IssueTracker
	journal   driven.Journal
	repo      string
	timeout   time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewActionService creates an ActionService. tracker may be nil, in which
// case every remote action fails with model.ErrTrackerUnavailable and skip
// still works. journal may be nil.
func NewActionService(
	issues driven.IssueStore,
	decisions driven.DecisionStore,
	tracker driven.IssueTracker,
	journal driven.Journal,
	repo string,
	timeout time.Duration,
	logger *slog.Logger,
) *ActionService {
	return &ActionService{
		issues:    issues,
		decisions: decisions,
		tracker:   tracker,
		journal:   journal,
		repo:      repo,
		timeout:   timeout,
		now:       time.Now,
		logger:    logger,
	}
}

// Apply dispatches req to the matching action.
func (s *ActionService) Apply(ctx context.Context, req ActionRequest) (model.Decision, error) {
	switch req.Kind {
	case ActionKindClose:
		return s.Close(ctx, req.Number, req.Comment, req.Labels, model.CloseReasonCompleted)
	case ActionKindCloseWontfix:
		return s.Close(ctx, req.Number, req.Comment, append([]string{WontfixLabel}, req.Labels...), model.CloseReasonNotPlanned)
	case ActionKindComment:
		return s.Comment(ctx, req.Number, req.Comment)
	case ActionKindSkip:
		return s.Skip(ctx, req.Number, req.Comment)
	default:
		return model.Decision{}, &model.ValidationError{Field: "action", Message: fmt.Sprintf("unknown action %q", req.Kind)}
	}
}

// Close applies labels, posts comment when non-empty and closes the issue.
// A failed step stops the sequence. If the close fails after the comment was
// posted, the decision records the comment and the failure, not a close.
// A retry after such a partial close does not post the comment again, and
// rejects comment text that differs from what was already posted.
func (s *ActionService) Close(
	ctx context.Context,
	number int,
	comment string,
	labels []string,
	reason model.CloseReason,
) (model.Decision, error) {
	if err := s.requireIssue(ctx, number); err != nil {
		return model.Decision{}, err
	}
	labels = cleanLabels(labels)
	comment = strings.TrimSpace(comment)

	prior, hasPrior, err := s.decision(ctx, number)
	if err != nil {
		return model.Decision{}, err
	}
	alreadyPosted := hasPrior && prior.IsPartial() && prior.CommentPosted
	if alreadyPosted && comment != "" && prior.Comment != "" && comment != prior.Comment {
		return model.Decision{}, &model.ValidationError{
			Field:   "comment",
			Message: "a comment was already posted on this issue; restore its text or clear the field to retry the close",
		}
	}

	if s.tracker == nil {
		step := model.RemoteStepClose
		switch {
		case len(labels) > 0:
			step = model.RemoteStepLabel
		case comment != "" && !alreadyPosted:
			step = model.RemoteStepComment
		}
		return model.Decision{}, s.fail(ctx, step, number, model.ErrTrackerUnavailable)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if len(labels) > 0 {
		if err := s.tracker.AddLabels(callCtx, s.repo, number, labels); err != nil {
			return model.Decision{}, s.fail(ctx, model.RemoteStepLabel, number, err)
		}
	}

	posted := alreadyPosted
	if alreadyPosted {
		comment = prior.Comment
	}
	if comment != "" && !alreadyPosted {
		if err := s.tracker.CommentOnIssue(callCtx, s.repo, number, comment); err != nil {
			return model.Decision{}, s.fail(ctx, model.RemoteStepComment, number, err)
		}
		posted = true
	}

	if err := s.tracker.CloseIssue(callCtx, s.repo, number, reason); err != nil {
		remoteErr := s.fail(ctx, model.RemoteStepClose, number, err)
		if posted {
			partial := model.Decision{
				Number:        number,
				Action:        model.ActionCommented,
				At:            s.now().UTC(),
				CommentPosted: true,
				Comment:       comment,
				Error:         "close failed: " + err.Error(),
			}
			if saveErr := s.decisions.Save(ctx, partial); saveErr != nil {
				return model.Decision{}, errors.Join(remoteErr, fmt.Errorf("record partial close: %w", saveErr))
			}
			return partial, remoteErr
		}
		return model.Decision{}, remoteErr
	}

	note := ""
	if reason == model.CloseReasonNotPlanned {
		note = "closed as not planned"
	}
	return s.record(ctx, model.Decision{
		Number:        number,
		Action:        model.ActionClosed,
		CommentPosted: posted,
		Note:          note,
	})
}

// Comment posts comment without closing. Empty text is a ValidationError.
func (s *ActionService) Comment(ctx context.Context, number int, comment string) (model.Decision, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return model.Decision{}, &model.ValidationError{Field: "comment", Message: "comment text is required"}
	}
	if err := s.requireIssue(ctx, number); err != nil {
		return model.Decision{}, err
	}
	if s.tracker == nil {
		return model.Decision{}, s.fail(ctx, model.RemoteStepComment, number, model.ErrTrackerUnavailable)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.tracker.CommentOnIssue(callCtx, s.repo, number, comment); err != nil {
		return model.Decision{}, s.fail(ctx, model.RemoteStepComment, number, err)
	}
	return s.record(ctx, model.Decision{Number: number, Action: model.ActionCommented, CommentPosted: true})
}

// Skip records a skip with an optional note. It makes no remote call.
func (s *ActionService) Skip(ctx context.Context, number int, note string) (model.Decision, error) {
	if err := s.requireIssue(ctx, number); err != nil {
		return model.Decision{}, err
	}
	return s.record(ctx, model.Decision{Number: number, Action: model.ActionSkipped, Note: strings.TrimSpace(note)})
}

func (s *ActionService) requireIssue(ctx context.Context, number int) error {
	snap, err := s.issues.Load(ctx)
	if err != nil {
		return fmt.Errorf("load issues: %w", err)
	}
	if _, ok := snap.Issue(number); !ok {
		return fmt.Errorf("issue #%d: %w", number, model.ErrIssueNotFound)
	}
	return nil
}

func (s *ActionService) decision(ctx context.Context, number int) (model.Decision, bool, error) {
	all, err := s.decisions.Load(ctx)
	if err != nil {
		return model.Decision{}, false, fmt.Errorf("load triage state: %w", err)
	}
	d, ok := all[number]
	return d, ok, nil
}

func (s *ActionService) record(ctx context.Context, d model.Decision) (model.Decision, error) {
	d.At = s.now().UTC()
	if err := s.decisions.Save(ctx, d); err != nil {
		return model.Decision{}, fmt.Errorf("record decision: %w", err)
	}

	s.logger.Info("issue triaged", "issue_number", d.Number, "action", d.Action, "comment_posted", d.CommentPosted)

	detail := string(d.Action)
	if d.CommentPosted {
		detail += ", comment posted"
	}
	if d.Note != "" {
		detail += ": " + d.Note
	}
	recordActivity(ctx, s.journal, s.logger, model.ActivityEntry{
		IssueNumber: d.Number,
		Kind:        model.ActivityKindForAction(d.Action),
		Detail:      detail,
	})
	return d, nil
}

// fail wraps err as a RemoteActionError and journals it.
func (s *ActionService) fail(ctx context.Context, step model.RemoteStep, number int, err error) error {
	remoteErr := &model.RemoteActionError{Step: step, Number: number, Err: err}
	s.logger.Warn("remote action failed", "issue_number", number, "step", step, "error", err)
	recordActivity(ctx, s.journal, s.logger, model.ActivityEntry{
		IssueNumber: number,
		Kind:        model.ActivityActionFailed,
		Detail:      remoteErr.Error(),
	})
	return remoteErr
}

func cleanLabels(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	var out []string
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
