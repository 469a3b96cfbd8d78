package application_test

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/ericfisherdev/issuetriage/internal/application"
	"github.com/ericfisherdev/issuetriage/internal/domain/model"
	"github.com/ericfisherdev/issuetriage/internal/domain/port/driven"
)

var (
	_ driven.IssueStore    = (*mockIssueStore)(nil)
	_ driven.FindingStore  = (*mockFindingStore)(nil)
	_ driven.DecisionStore = (*mockDecisionStore)(nil)
	_ driven.IssueTracker  = (*mockTracker)(nil)
	_ driven.Journal       = (*mockJournal)(nil)
	_ driven.Analyzer      = analyzerFunc(nil)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func issue(number int, title string, labels ...string) model.Issue {
	return model.Issue{
		Number:    number,
		Title:     title,
		Labels:    labels,
		State:     "OPEN",
		CreatedAt: baseTime.Add(-time.Duration(number) * 24 * time.Hour),
		URL:       "https://github.com/acme/widgets/issues/" + strconv.Itoa(number),
	}
}

// --- Issue store ---

type mockIssueStore struct {
	snap *model.Snapshot
	err  error
}

func newIssueStore(issues ...model.Issue) *mockIssueStore {
	return &mockIssueStore{snap: &model.Snapshot{Repo: "acme/widgets", HeadSHA: "abc123", Issues: issues}}
}

func (m *mockIssueStore) Load(_ context.Context) (*model.Snapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.snap, nil
}

func (m *mockIssueStore) Replace(_ context.Context, snap *model.Snapshot) error {
	m.snap = snap
	return nil
}

// --- Finding store ---

type mockFindingStore struct {
	mu      sync.Mutex
	set     *model.FindingSet
	loadErr error
	writes  int
}

func newFindingStore(findings ...model.Finding) *mockFindingStore {
	set := &model.FindingSet{Repo: "acme/widgets"}
	for _, f := range findings {
		set.Put(f)
	}
	return &mockFindingStore{set: set}
}

func pendingFindings(issues ...model.Issue) *mockFindingStore {
	s := newFindingStore()
	for _, i := range issues {
		s.set.Put(model.NewPendingFinding(i))
	}
	return s
}

func (m *mockFindingStore) Load(_ context.Context) (*model.FindingSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return cloneSet(m.set), nil
}

func (m *mockFindingStore) Save(ctx context.Context, f model.Finding) error {
	if err := f.Validate(); err != nil {
		return err
	}
	return m.Update(ctx, func(set *model.FindingSet) error {
		set.Put(f)
		return nil
	})
}

func (m *mockFindingStore) Update(_ context.Context, fn func(*model.FindingSet) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := cloneSet(m.set)
	if err := fn(next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	m.set = next
	m.writes++
	return nil
}

func (m *mockFindingStore) get(number int) model.Finding {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, _ := m.set.Get(number)
	return f
}

func (m *mockFindingStore) analyzedAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set.AnalyzedAt
}

func cloneSet(s *model.FindingSet) *model.FindingSet {
	out := *s
	out.Findings = append([]model.Finding(nil), s.Findings...)
	return &out
}

// --- Decision store ---

type mockDecisionStore struct {
	mu    sync.Mutex
	saved map[int]model.Decision
}

func newDecisionStore(decisions ...model.Decision) *mockDecisionStore {
	m := &mockDecisionStore{saved: make(map[int]model.Decision)}
	for _, d := range decisions {
		m.saved[d.Number] = d
	}
	return m
}

func (m *mockDecisionStore) Load(_ context.Context) (map[int]model.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]model.Decision, len(m.saved))
	for k, v := range m.saved {
		out[k] = v
	}
	return out, nil
}

func (m *mockDecisionStore) Save(_ context.Context, d model.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[d.Number] = d
	return nil
}

// --- Tracker ---

type trackerCall struct {
	Method string
	Number int
	Arg    string
}

type mockTracker struct {
	mu         sync.Mutex
	calls      []trackerCall
	labelErr   error
	commentErr error
	closeErr   error
}

func (m *mockTracker) record(c trackerCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func (m *mockTracker) CommentOnIssue(_ context.Context, _ string, number int, body string) error {
	m.record(trackerCall{Method: "comment", Number: number, Arg: body})
	return m.commentErr
}

func (m *mockTracker) CloseIssue(_ context.Context, _ string, number int, reason model.CloseReason) error {
	m.record(trackerCall{Method: "close", Number: number, Arg: string(reason)})
	return m.closeErr
}

func (m *mockTracker) AddLabels(_ context.Context, _ string, number int, labels []string) error {
	arg := ""
	for i, l := range labels {
		if i > 0 {
			arg += ","
		}
		arg += l
	}
	m.record(trackerCall{Method: "label", Number: number, Arg: arg})
	return m.labelErr
}

func (m *mockTracker) methods() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.calls))
	for _, c := range m.calls {
		out = append(out, c.Method)
	}
	return out
}

// --- Journal ---

type mockJournal struct {
	mu      sync.Mutex
	entries []model.ActivityEntry
}

func (m *mockJournal) Record(_ context.Context, e model.ActivityEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockJournal) ListByIssue(_ context.Context, number int) ([]model.ActivityEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ActivityEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].IssueNumber == number {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

func (m *mockJournal) kinds() []model.ActivityKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ActivityKind, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Kind)
	}
	return out
}

// --- Analyzer ---

type analyzerFunc func(ctx context.Context, req driven.AnalysisRequest) (model.Finding, error)

func (f analyzerFunc) Analyze(ctx context.Context, req driven.AnalysisRequest) (model.Finding, error) {
	return f(ctx, req)
}

// newState builds a navigation state directly.
func newState(issues []model.Issue, findings []model.Finding, decisions ...model.Decision) *application.State {
	set := &model.FindingSet{Repo: "acme/widgets"}
	for _, i := range issues {
		set.Put(model.NewPendingFinding(i))
	}
	for _, f := range findings {
		set.Put(f)
	}
	dm := make(map[int]model.Decision, len(decisions))
	for _, d := range decisions {
		dm[d.Number] = d
	}
	return &application.State{
		Snapshot:  &model.Snapshot{Repo: "acme/widgets", Issues: issues},
		Findings:  set,
		Decisions: dm,
	}
}
