// Package engine implements the Guardian workflow state machine: a durable
// plan/classify/execute loop that suspends for human approval and resumes from
// out-of-band decisions.
//
// The loop is an explicit state machine persisted between steps, not a
// language-level coroutine: each completed step's session is written back to
// the store before the next step begins, so a process crash between steps
// loses no committed progress, and a suspension is a return to the caller
// rather than a blocked thread.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/aretw0/guardian/internal/logging"
	"github.com/aretw0/guardian/pkg/classify"
	"github.com/aretw0/guardian/pkg/domain"
	"github.com/aretw0/guardian/pkg/observability"
	"github.com/aretw0/guardian/pkg/ports"
)

const (
	// defaultMaxSteps bounds the plan/execute loop of a single run segment.
	defaultMaxSteps = 16
	// defaultLogTail is how many trailing transcript messages the planner sees.
	defaultLogTail = 3
	// faultSnippetLen caps the diagnostic snippet embedded in degraded answers.
	faultSnippetLen = 100
	// lockTTL bounds how long a crashed holder can keep a session lock.
	lockTTL = 30 * time.Second
)

// Engine drives workflow sessions. Only one step executes at a time for a
// given session; concurrent writers are serialized by the store's optimistic
// version check.
type Engine struct {
	planner  ports.Planner
	executor ports.CapabilityExecutor
	store    ports.SessionStore
	locker   ports.DistributedLocker
	logger   *slog.Logger
	maxSteps int
	logTail  int
	newID    func() string
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets a structured logger for engine events.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxSteps bounds the number of steps a single run segment may take
// before the session is failed.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithLogTail sets how many trailing transcript messages are handed to the
// planner on each turn.
func WithLogTail(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.logTail = n
		}
	}
}

// WithLocker sets a distributed locker that serializes Start/Resume activity
// on a session across replicas. Without one the engine relies on the store's
// optimistic version check alone.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithIDGenerator overrides session ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// New creates a workflow engine. The capability executor is injected rather
// than discovered globally so it is swappable and testable in isolation.
func New(planner ports.Planner, executor ports.CapabilityExecutor, store ports.SessionStore, opts ...Option) *Engine {
	e := &Engine{
		planner:  planner,
		executor: executor,
		store:    store,
		logger:   logging.NewNop(),
		maxSteps: defaultMaxSteps,
		logTail:  defaultLogTail,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start creates a new session for the request and runs the step loop until it
// suspends or terminates. The returned session is the persisted snapshot.
func (e *Engine) Start(ctx context.Context, request string) (*domain.Session, error) {
	s := domain.NewSession(e.newID(), request)
	s.Append(domain.RoleUser, request)

	return e.withLock(ctx, s.ID, func() (*domain.Session, error) {
		if err := e.persist(ctx, s); err != nil {
			return nil, err
		}

		observability.RecordSessionStarted()
		e.logger.Info("session started", "session_id", s.ID)

		return e.run(ctx, s)
	})
}

// Inspect returns the persisted snapshot of a session.
func (e *Engine) Inspect(ctx context.Context, sessionID string) (*domain.Session, error) {
	return e.store.Load(ctx, sessionID)
}

// run executes steps until the session suspends or reaches a terminal status.
func (e *Engine) run(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	for steps := 0; ; steps++ {
		if s.Status.Terminal() || s.Status == domain.StatusWaitingForApproval {
			return s, nil
		}

		if steps >= e.maxSteps {
			s.Status = domain.StatusFailed
			s.Summary = fmt.Sprintf("Workflow aborted after %d steps without reaching an answer.", e.maxSteps)
			s.PendingAction = nil
			s.PendingCategory = ""
			if err := e.persist(ctx, s); err != nil {
				return nil, err
			}
			observability.RecordSessionCompleted(string(s.Status))
			e.logger.Warn("session failed: step budget exhausted", "session_id", s.ID, "max_steps", e.maxSteps)
			return s, nil
		}

		var err error
		switch s.Status {
		case domain.StatusRunning:
			err = e.plan(ctx, s)
		case domain.StatusWaitingForTool:
			err = e.execute(ctx, s)
		default:
			return nil, fmt.Errorf("engine: unexpected session status %q", s.Status)
		}
		if err != nil {
			return nil, err
		}
	}
}

// plan invokes the external planner and routes its outcome through the risk
// classifier. Planner faults degrade to a user-visible apologetic answer; the
// engine never propagates a raw planner fault as a hard failure.
func (e *Engine) plan(ctx context.Context, s *domain.Session) error {
	start := time.Now()
	outcome, err := e.planner.Plan(ctx, s.OriginalRequest, tail(s.Log, e.logTail))
	observability.RecordStep("plan", time.Since(start))

	if err != nil {
		e.logger.Warn("planner fault, degrading to final answer", "session_id", s.ID, "err", err)
		s.Summary = fmt.Sprintf(
			"I encountered an error while processing your request. Please provide more specific details or rephrase your query. Error: %s",
			truncate(err.Error(), faultSnippetLen),
		)
		s.Append(domain.RoleAssistant, s.Summary)
		s.PendingAction = nil
		s.PendingCategory = ""
		s.Status = domain.StatusCompleted
		if perr := e.persist(ctx, s); perr != nil {
			return perr
		}
		observability.RecordSessionCompleted(string(s.Status))
		return nil
	}

	s.Append(domain.RoleAssistant, describeOutcome(outcome))

	verdict := classify.Outcome(outcome)
	switch {
	case verdict.RequiresApproval:
		s.PendingAction = outcome.Clone()
		s.PendingCategory = verdict.Category
		s.Status = domain.StatusWaitingForApproval
		observability.RecordSuspension(verdict.Category)
		e.logger.Info("session suspended for approval",
			"session_id", s.ID, "category", verdict.Category)

	case outcome.IsAnswer():
		s.Summary = outcome.Answer.Text
		s.PendingAction = nil
		s.PendingCategory = ""
		s.Status = domain.StatusCompleted
		observability.RecordSessionCompleted(string(s.Status))

	case outcome.IsAction():
		s.PendingAction = outcome.Clone()
		s.Status = domain.StatusWaitingForTool

	default:
		// Planner returned neither an action nor an answer.
		s.Summary = "The planner produced no actionable outcome for this request."
		s.Status = domain.StatusFailed
		observability.RecordSessionCompleted(string(s.Status))
	}

	return e.persist(ctx, s)
}

// execute runs the pending action through the capability executor. Execution
// faults are captured as structured error results and fed back into the next
// planning turn; they are data, not control-flow failures.
func (e *Engine) execute(ctx context.Context, s *domain.Session) error {
	if s.PendingAction == nil || s.PendingAction.Action == nil {
		return fmt.Errorf("engine: session %s is waiting_for_tool without a pending action", s.ID)
	}
	action := *s.PendingAction.Action

	start := time.Now()
	raw := e.executor.Execute(ctx, action.Capability, action.Input)
	observability.RecordStep("execute", time.Since(start))

	result := NormalizeResult(raw)

	s.History = append(s.History, domain.Step{Action: action, Result: result})
	s.LastResult = &result
	s.Append(domain.RoleTool, transcriptEntry(action, result))
	s.PendingAction = nil
	s.PendingCategory = ""
	s.Status = domain.StatusRunning

	if result.IsError() {
		e.logger.Debug("capability returned error result",
			"session_id", s.ID, "capability", action.Capability, "kind", result.Error.Kind)
	}

	return e.persist(ctx, s)
}

// withLock runs fn while holding the configured distributed lock for the
// session. With no locker configured fn runs directly.
func (e *Engine) withLock(ctx context.Context, sessionID string, fn func() (*domain.Session, error)) (*domain.Session, error) {
	if e.locker == nil {
		return fn()
	}
	unlock, err := e.locker.Lock(ctx, sessionID, lockTTL)
	if err != nil {
		return nil, fmt.Errorf("locking session %s: %w", sessionID, err)
	}
	defer func() {
		if uerr := unlock(ctx); uerr != nil {
			e.logger.Warn("failed to release session lock", "session_id", sessionID, "err", uerr)
		}
	}()
	return fn()
}

// persist writes the session back to the store. A version conflict here means
// another writer committed first; the caller surfaces it (resume retries once
// against fresh state, see resume.go).
func (e *Engine) persist(ctx context.Context, s *domain.Session) error {
	s.Touch()
	if err := e.store.Save(ctx, s); err != nil {
		return fmt.Errorf("persisting session %s: %w", s.ID, err)
	}
	return nil
}

// tail returns the last n messages of the transcript.
func tail(log []domain.Message, n int) []domain.Message {
	if len(log) <= n {
		return log
	}
	return log[len(log)-n:]
}

// truncate caps s at n bytes, backing up so the cut never splits a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// describeOutcome renders a planner outcome for the transcript.
func describeOutcome(o domain.Outcome) string {
	if o.IsAction() {
		return fmt.Sprintf("Action: %s\nAction Input: %s", o.Action.Capability, o.Action.Input.String())
	}
	if o.IsAnswer() {
		return o.Answer.Text
	}
	return ""
}
