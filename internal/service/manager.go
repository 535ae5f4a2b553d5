package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CZERTAINLY/Testbed/internal/checkin"
	"github.com/CZERTAINLY/Testbed/internal/command"
	"github.com/CZERTAINLY/Testbed/internal/execution"
	"github.com/CZERTAINLY/Testbed/internal/lifecycle"
	"github.com/CZERTAINLY/Testbed/internal/log"
	"github.com/CZERTAINLY/Testbed/internal/logsink"
	"github.com/CZERTAINLY/Testbed/internal/metrics"
	"github.com/CZERTAINLY/Testbed/internal/model"
	"github.com/CZERTAINLY/Testbed/internal/suite"

	gocron "github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

type State string

const (
	AwaitingCheckIn State = "Awaiting check-in"
	Running         State = "Running"
	Completed       State = "Completed"
)

// CycleResult describes a single attempt to run a test cycle
type CycleResult struct {
	Request  *execution.Request
	Executed bool
	Cycle    uuid.UUID
	Steps    []suite.Step
	Leaves   int
	Entry    logsink.Entry
	// SinkErr is set when the log entry could not be appended to some sink,
	// the cycle itself is still completed
	SinkErr error
}

// Manager orchestrates check-in gated test cycles of scheduled executions.
// The check-in flag is consumed by the first completed cycle.
type Manager struct {
	mx        sync.Mutex // guards the check-in flag and checkIns
	cycleMx   sync.Mutex // serializes cycles
	runMx     sync.Mutex // serializes RunAll
	checkedIn atomic.Bool
	checkIns  uint64
	state     atomic.Value

	registry  *execution.Registry
	caretaker *execution.Caretaker
	subject   *lifecycle.Subject
	committer checkin.Committer
	sinks     []logsink.Sink
	tracer    suite.Tracer
	policy    command.Policy
	autoCheck bool
	metrics   *metrics.Recorder
	out       io.Writer
	now       func() time.Time

	trigger   chan struct{}
	scheduler gocron.Scheduler
	stopOnce  sync.Once
}

type Option func(*Manager)

func WithCommitter(c checkin.Committer) Option {
	return func(m *Manager) {
		m.committer = c
	}
}

func WithSinks(sinks ...logsink.Sink) Option {
	return func(m *Manager) {
		m.sinks = sinks
	}
}

// WithObservers attaches observers notified about every phase change.
// Observers run without the check-in lock, so they may call CheckIn, but
// they must not start a cycle as cycles are serialized.
func WithObservers(observers ...lifecycle.Observer) Option {
	return func(m *Manager) {
		for _, o := range observers {
			m.subject.Attach(o)
		}
	}
}

// WithTracer receives every executed test step
func WithTracer(t suite.Tracer) Option {
	return func(m *Manager) {
		m.tracer = t
	}
}

func WithPolicy(p command.Policy) Option {
	return func(m *Manager) {
		m.policy = p
	}
}

// WithAutoCheckIn prepends a check-in command to every execution pipeline
func WithAutoCheckIn(enabled bool) Option {
	return func(m *Manager) {
		m.autoCheck = enabled
	}
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(m *Manager) {
		m.metrics = r
	}
}

// WithOutput prints human readable progress messages to w
func WithOutput(w io.Writer) Option {
	return func(m *Manager) {
		m.out = w
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithScheduler sets a scheduler started and stopped by Do
func WithScheduler(s gocron.Scheduler) Option {
	return func(m *Manager) {
		m.scheduler = s
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		registry:  execution.NewRegistry(),
		caretaker: execution.NewCaretaker(),
		subject:   lifecycle.NewSubject(),
		policy:    command.PolicyContinue,
		now:       time.Now,
		trigger:   make(chan struct{}, 1),
	}
	m.state.Store(AwaitingCheckIn)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) State() State {
	return m.state.Load().(State)
}

func (m *Manager) CheckedIn() bool {
	return m.checkedIn.Load()
}

func (m *Manager) Phase() lifecycle.Phase {
	return m.subject.Phase()
}

// Subject returns the lifecycle subject observers can be attached to
func (m *Manager) Subject() *lifecycle.Subject {
	return m.subject
}

// CheckIn records a source code check-in, which allows a single test cycle
func (m *Manager) CheckIn(ctx context.Context) (checkin.Revision, error) {
	m.mx.Lock()
	defer m.mx.Unlock()

	if m.committer == nil {
		return checkin.Revision{}, errors.New("check-in backend not configured")
	}
	m.printf("[Execution] Checking in source code...\n")
	rev, err := m.committer.Commit(ctx, "source code check-in")
	m.metrics.CheckIn(err)
	if err != nil {
		return rev, fmt.Errorf("check-in: %w", err)
	}
	m.checkedIn.Store(true)
	m.checkIns++
	slog.InfoContext(ctx, "source code checked in", "hash", rev.Hash, "branch", rev.Branch)
	m.printf("[Command] Source code checked in.\n")
	return rev, nil
}

// StartCycle executes the test tree of req when the source code was checked
// in, otherwise model.ErrGateViolation is returned and nothing is executed.
// A failed log append is reported in CycleResult.SinkErr and does not fail
// the cycle. The check-in is consumed unless a new one arrived while the
// cycle was running.
func (m *Manager) StartCycle(ctx context.Context, req *execution.Request) (CycleResult, error) {
	if req == nil {
		return CycleResult{}, fmt.Errorf("%w: nil execution request", model.ErrInvalidInput)
	}
	m.cycleMx.Lock()
	defer m.cycleMx.Unlock()

	result := CycleResult{Request: req}
	m.mx.Lock()
	armed := m.checkedIn.Load()
	generation := m.checkIns
	m.mx.Unlock()
	if !armed {
		slog.WarnContext(ctx, "source code not checked in: cannot start testing cycle", "description", req.Description())
		m.printf("[Manager] Source code not checked in. Cannot start testing cycle.\n")
		m.metrics.Cycle(metrics.ResultRejected, 0, 0)
		return result, model.ErrGateViolation
	}

	result.Executed = true
	result.Cycle = uuid.New()
	ctx = log.ContextAttrs(ctx,
		slog.String("cycle", result.Cycle.String()),
		slog.String("description", req.Description()),
	)
	start := m.now()

	m.printf("[Manager] Starting testing cycle...\n")
	m.state.Store(Running)
	m.subject.SetPhase(ctx, lifecycle.Running)

	m.printf("[Execution] Executing tests for %s...\n", req.Platform())
	var trace suite.Trace
	if tree := req.Tree(); tree != nil {
		tree.Execute(ctx, suite.Tracers(&trace, m.tracer, suite.LogTracer{}))
	}
	result.Steps = trace.Steps()
	result.Leaves = trace.Leaves()

	result.Entry = logsink.NewEntry(req.Description(), string(req.Platform()), m.now(), result.Cycle)
	if err := m.append(ctx, result.Entry); err != nil {
		slog.WarnContext(ctx, "saving test log failed", "error", err)
		result.SinkErr = err
	}

	m.state.Store(Completed)
	m.subject.SetPhase(ctx, lifecycle.Completed)
	m.mx.Lock()
	if m.checkIns == generation {
		m.checkedIn.Store(false)
	}
	m.mx.Unlock()
	m.state.Store(AwaitingCheckIn)

	m.metrics.Cycle(metrics.ResultCompleted, m.now().Sub(start), result.Leaves)
	slog.InfoContext(ctx, "test cycle completed", "test_cases", result.Leaves)
	return result, nil
}

func (m *Manager) append(ctx context.Context, entry logsink.Entry) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Append(ctx, entry); err != nil {
			m.metrics.SinkError()
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) Schedule(req *execution.Request) {
	m.registry.Schedule(req)
	m.metrics.Pending(m.registry.Len())
}

func (m *Manager) Pending() []*execution.Request {
	return m.registry.Pending()
}

func (m *Manager) Clear() {
	m.registry.Clear()
	m.metrics.Pending(0)
}

// RunAll drains the registry and runs an execution pipeline for every
// drained request in the scheduling order. Requests rejected for a missing
// check-in are dropped.
func (m *Manager) RunAll(ctx context.Context) ([]CycleResult, error) {
	m.runMx.Lock()
	defer m.runMx.Unlock()

	reqs := m.registry.Drain()
	m.metrics.Pending(m.registry.Len())
	if len(reqs) == 0 {
		slog.InfoContext(ctx, "no test executions scheduled")
		return nil, nil
	}

	results := make([]CycleResult, 0, len(reqs))
	var errs []error
	for _, req := range reqs {
		m.caretaker.Save(req)

		cycler := &recordingCycler{m: m}
		inv := command.NewInvoker(m.policy)
		if m.autoCheck {
			inv.Add(command.CheckIn{Gate: gate{m: m}})
		}
		inv.Add(command.Execute{Cycler: cycler, Request: req})
		inv.Add(command.Report{Reporter: m, Request: req})

		if err := inv.ExecuteAll(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", req.Description(), err))
		}
		if cycler.result.Request == nil {
			cycler.result.Request = req
		}
		results = append(results, cycler.result)
	}
	return results, errors.Join(errs...)
}

// Report reports on a single request, it is not gated by a check-in
func (m *Manager) Report(ctx context.Context, req *execution.Request) error {
	if req == nil {
		return fmt.Errorf("%w: nil execution request", model.ErrInvalidInput)
	}
	slog.InfoContext(ctx, "reporting results", "description", req.Description(), "platform", req.Platform())
	m.printf("[Execution] Reporting results for: %s\n", req.Description())
	return nil
}

// ReportAll reports on all pending requests without draining them
func (m *Manager) ReportAll(ctx context.Context) error {
	inv := command.NewInvoker(m.policy)
	for _, req := range m.registry.Pending() {
		inv.Add(command.Report{Reporter: m, Request: req})
	}
	return inv.ExecuteAll(ctx)
}

// Restore returns the request saved under the description
func (m *Manager) Restore(description string) (*execution.Request, bool) {
	return m.caretaker.Restore(description)
}

// SavedStates returns descriptions of all saved requests
func (m *Manager) SavedStates() []string {
	return m.caretaker.Descriptions()
}

// ViewLogs returns the raw lines of the first viewable sink
func (m *Manager) ViewLogs(ctx context.Context) ([]string, error) {
	v, ok := logsink.FirstViewer(m.sinks)
	if !ok {
		return nil, nil
	}
	return v.Lines(ctx)
}

// Close stops the scheduler and closes all sinks
func (m *Manager) Close() error {
	m.stopScheduler(context.Background())
	return logsink.Close(m.sinks...)
}

func (m *Manager) printf(format string, args ...any) {
	if m.out == nil {
		return
	}
	_, _ = fmt.Fprintf(m.out, format, args...)
}

type gate struct {
	m *Manager
}

func (g gate) CheckIn(ctx context.Context) error {
	_, err := g.m.CheckIn(ctx)
	return err
}

type recordingCycler struct {
	m      *Manager
	result CycleResult
}

func (c *recordingCycler) StartCycle(ctx context.Context, req *execution.Request) error {
	var err error
	c.result, err = c.m.StartCycle(ctx, req)
	return err
}
