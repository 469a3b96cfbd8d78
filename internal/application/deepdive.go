package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
	"github.com/ericfisherdev/issuetriage/internal/domain/port/driven"
)

// analysisOutcome is what an analyzer run sends back to its supervisor.
type analysisOutcome struct {
	finding model.Finding
	err     error
}

// DeepDiveService runs one re-analysis per issue off the request path and
// tracks its state for polling. A run that outlives its timeout is marked
// failed and its eventual result is discarded.
type DeepDiveService struct {
	issues    driven.IssueStore
	findings  driven.FindingStore
	analyzer  driven.Analyzer
	journal   driven.Journal
	triageDir string
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time

	// baseCtx outlives the HTTP request that starts a run.
	baseCtx context.Context

	mu       sync.Mutex
	research map[int]*model.Research
	wg       sync.WaitGroup
}

// NewDeepDiveService creates a DeepDiveService. Runs are bound to baseCtx,
// normally the server's lifetime context. analyzer may be nil, in which case
// Start reports model.ErrAnalyzerUnavailable.
func NewDeepDiveService(
	baseCtx context.Context,
	issues driven.IssueStore,
	findings driven.FindingStore,
	analyzer driven.Analyzer,
	journal driven.Journal,
	triageDir string,
	timeout time.Duration,
	logger *slog.Logger,
) *DeepDiveService {
	return &DeepDiveService{
		issues:    issues,
		findings:  findings,
		analyzer:  analyzer,
		journal:   journal,
		triageDir: triageDir,
		timeout:   timeout,
		logger:    logger,
		now:       time.Now,
		baseCtx:   baseCtx,
		research:  make(map[int]*model.Research),
	}
}

// Available reports whether an analyzer is configured.
func (s *DeepDiveService) Available() bool {
	return s.analyzer != nil
}

// Start begins a deep dive on number unless one is already running, in
// which case the running research is returned and started is false.
func (s *DeepDiveService) Start(ctx context.Context, number int) (research model.Research, started bool, err error) {
	if s.analyzer == nil {
		return model.Research{}, false, &model.AnalysisError{Number: number, Err: model.ErrAnalyzerUnavailable}
	}

	s.mu.Lock()
	if r, ok := s.research[number]; ok && r.InFlight() {
		current := *r
		s.mu.Unlock()
		return current, false, nil
	}
	s.mu.Unlock()

	req, err := s.request(ctx, number)
	if err != nil {
		return model.Research{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check: another request may have started a run while the stores
	// were being read.
	if r, ok := s.research[number]; ok && r.InFlight() {
		return *r, false, nil
	}

	r := &model.Research{
		Number:       number,
		InvocationID: uuid.New(),
		State:        model.ResearchResearching,
		StartedAt:    s.now().UTC(),
	}
	s.research[number] = r

	s.wg.Add(1)
	go s.run(req, r.InvocationID)

	s.logger.Info("deep dive started", "issue_number", number, "invocation_id", r.InvocationID)
	recordActivity(ctx, s.journal, s.logger, model.ActivityEntry{
		IssueNumber: number,
		Kind:        model.ActivityDeepDiveStarted,
		Detail:      "invocation " + r.InvocationID.String(),
	})
	return *r, true, nil
}

// Status returns the latest research for number. ok is false when no deep
// dive was ever started for it in this session.
func (s *DeepDiveService) Status(number int) (model.Research, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.research[number]
	if !ok {
		return model.Research{Number: number, State: model.ResearchIdle}, false
	}
	return *r, true
}

// Wait blocks until every started run, including abandoned ones, has
// returned.
func (s *DeepDiveService) Wait() {
	s.wg.Wait()
}

func (s *DeepDiveService) request(ctx context.Context, number int) (driven.AnalysisRequest, error) {
	snap, err := s.issues.Load(ctx)
	if err != nil {
		return driven.AnalysisRequest{}, fmt.Errorf("load issues: %w", err)
	}
	issue, ok := snap.Issue(number)
	if !ok {
		return driven.AnalysisRequest{}, fmt.Errorf("issue #%d: %w", number, model.ErrIssueNotFound)
	}
	set, err := s.findings.Load(ctx)
	if err != nil {
		return driven.AnalysisRequest{}, fmt.Errorf("load findings: %w", err)
	}
	prior, ok := set.Get(number)
	if !ok {
		prior = model.NewPendingFinding(issue)
	}
	return driven.AnalysisRequest{
		Repo:      snap.Repo,
		HeadSHA:   snap.HeadSHA,
		TriageDir: s.triageDir,
		Issue:     issue,
		Prior:     prior,
	}, nil
}

// run supervises one analyzer invocation.
func (s *DeepDiveService) run(req driven.AnalysisRequest, id uuid.UUID) {
	defer s.wg.Done()

	number := req.Issue.Number
	runCtx, cancel := context.WithTimeout(s.baseCtx, s.timeout)

	results := make(chan analysisOutcome, 1)
	go func() {
		f, err := s.analyzer.Analyze(runCtx, req)
		results <- analysisOutcome{finding: f, err: err}
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case out := <-results:
		if out.err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			out.err = fmt.Errorf("%w: %v", model.ErrAnalysisTimeout, out.err)
		}
		cancel()
		s.complete(number, id, out)
	case <-timer.C:
		s.fail(number, id, model.ErrAnalysisTimeout)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer cancel()
			s.complete(number, id, <-results)
		}()
	}
}

// complete applies an analyzer result if the run is still the current one.
func (s *DeepDiveService) complete(number int, id uuid.UUID, out analysisOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.research[number]
	if !ok || r.InvocationID != id || !r.InFlight() {
		s.logger.Info("discarding stale deep dive result", "issue_number", number, "invocation_id", id)
		return
	}

	err := out.err
	var replaced model.Finding
	if err == nil {
		replaced, err = s.store(out.finding)
	}
	if err != nil {
		s.failLocked(r, err)
		return
	}

	finished := s.now().UTC()
	r.State = model.ResearchDone
	r.FinishedAt = &finished

	s.logger.Info("deep dive done",
		"issue_number", number,
		"verdict", out.finding.Verdict,
		"confidence", out.finding.Confidence,
	)
	recordActivity(s.baseCtx, s.journal, s.logger, model.ActivityEntry{
		IssueNumber: number,
		Kind:        model.ActivityFindingReplaced,
		Detail: fmt.Sprintf("%s (%s) replaced by %s (%s)",
			replaced.Verdict, replaced.Confidence, out.finding.Verdict, out.finding.Confidence),
	})
	recordActivity(s.baseCtx, s.journal, s.logger, model.ActivityEntry{
		IssueNumber: number,
		Kind:        model.ActivityDeepDiveDone,
		Detail:      fmt.Sprintf("%s (%s)", out.finding.Verdict, out.finding.Confidence),
	})
}

// store validates f and replaces the current finding with it, carrying any
// duplicate evidence over from the finding it replaces. It returns the
// replaced finding.
func (s *DeepDiveService) store(f model.Finding) (model.Finding, error) {
	if err := f.Validate(); err != nil {
		return model.Finding{}, err
	}
	if f.IsPending() {
		return model.Finding{}, errors.New("analyzer returned a pending finding")
	}

	var prior model.Finding
	err := s.findings.Update(s.baseCtx, func(set *model.FindingSet) error {
		prior, _ = set.Get(f.Number)
		f.Evidence = carryDuplicateEvidence(prior.Evidence, f.Evidence)
		set.Put(f)
		set.AnalyzedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return model.Finding{}, fmt.Errorf("save finding: %w", err)
	}
	return prior, nil
}

func carryDuplicateEvidence(prior, next []model.Evidence) []model.Evidence {
	have := make(map[string]bool, len(next))
	for _, e := range next {
		if e.Kind == model.EvidenceKindDuplicate {
			have[e.Ref] = true
		}
	}
	out := append([]model.Evidence{}, next...)
	for _, e := range prior {
		if e.Kind == model.EvidenceKindDuplicate && !have[e.Ref] {
			out = append(out, e)
		}
	}
	return out
}

func (s *DeepDiveService) fail(number int, id uuid.UUID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.research[number]
	if !ok || r.InvocationID != id || !r.InFlight() {
		return
	}
	s.failLocked(r, err)
}

func (s *DeepDiveService) failLocked(r *model.Research, err error) {
	analysisErr := &model.AnalysisError{Number: r.Number, Err: err}
	finished := s.now().UTC()
	r.State = model.ResearchFailed
	r.FinishedAt = &finished
	r.Error = analysisErr.Error()

	s.logger.Warn("deep dive failed", "issue_number", r.Number, "invocation_id", r.InvocationID, "error", err)
	recordActivity(s.baseCtx, s.journal, s.logger, model.ActivityEntry{
		IssueNumber: r.Number,
		Kind:        model.ActivityDeepDiveFailed,
		Detail:      analysisErr.Error(),
	})
}
