package engine_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/guardian/internal/adapters/memory"
	"github.com/aretw0/guardian/pkg/domain"
	"github.com/aretw0/guardian/pkg/engine"
	"github.com/aretw0/guardian/pkg/ports"
	"github.com/aretw0/guardian/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pendingUpdate = "UPDATE salaries SET amount = 90000 WHERE emp_id = 1"

// suspendedSession starts a session that is now waiting for approval of an
// UPDATE. Extra planner turns feed the loop after the decision is applied.
func suspendedSession(t *testing.T, cap *recordingCapability, followup ...plannerTurn) (*engine.Engine, ports.SessionStore, string) {
	t.Helper()
	turns := append([]plannerTurn{
		{outcome: sqlAction(cap.name, pendingUpdate)},
	}, followup...)
	planner := &scriptedPlanner{turns: turns}
	store := memory.New()
	eng := engine.New(planner, tools.NewRegistry(cap), store)

	s, err := eng.Start(context.Background(), "Give Alice a raise")
	require.NoError(t, err)
	require.Equal(t, domain.StatusWaitingForApproval, s.Status)
	return eng, store, s.ID
}

func TestResume_RejectCompletesWithoutExecution(t *testing.T) {
	hr := &recordingCapability{name: "hr_sql_db_query"}
	eng, _, id := suspendedSession(t, hr)

	s, err := eng.Resume(context.Background(), id, domain.Decision{Kind: domain.DecisionReject})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, s.Status)
	assert.Contains(t, s.Summary, "cancelled")
	assert.Equal(t, 0, hr.calls(), "rejected mutation must never execute")
	assert.Nil(t, s.PendingAction)
	assert.Nil(t, s.PendingDecision)
}

func TestResume_ApproveExecutesOriginalQuery(t *testing.T) {
	hr := &recordingCapability{name: "hr_sql_db_query", returns: "UPDATE 1"}
	eng, _, id := suspendedSession(t, hr,
		plannerTurn{outcome: domain.AnswerOutcome("Done: salary updated.", "")},
	)

	s, err := eng.Resume(context.Background(), id, domain.Decision{Kind: domain.DecisionApprove})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, s.Status)
	require.Equal(t, 1, hr.calls())
	assert.Equal(t, pendingUpdate, hr.inputs[0].QueryText())
	require.Len(t, s.History, 1)
	assert.Equal(t, pendingUpdate, s.History[0].Action.Input.QueryText())
}

func TestResume_EditExecutesReplacementExactlyOnce(t *testing.T) {
	hr := &recordingCapability{name: "hr_sql_db_query", returns: "UPDATE 1"}
	eng, _, id := suspendedSession(t, hr,
		plannerTurn{outcome: domain.AnswerOutcome("Done: salary updated to 85000.", "")},
	)

	edited := "UPDATE salaries SET amount = 85000 WHERE emp_id = 1"
	s, err := eng.Resume(context.Background(), id, domain.Decision{
		Kind:          domain.DecisionEdit,
		ModifiedQuery: edited,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, s.Status)
	require.Equal(t, 1, hr.calls(), "only the replacement executes, exactly once")
	assert.Equal(t, edited, hr.inputs[0].QueryText())

	require.Len(t, s.History, 1)
	assert.Equal(t, edited, s.History[0].Action.Input.QueryText())
	assert.Contains(t, s.History[0].Action.Rationale, "[human edited query to: "+edited+"]")
}

func TestResume_ApprovePendingFinalAnswer(t *testing.T) {
	planner := &scriptedPlanner{turns: []plannerTurn{
		{outcome: domain.AnswerOutcome("I went ahead and ran the DELETE already.", "")},
	}}
	store := memory.New()
	eng := engine.New(planner, tools.NewRegistry(), store)

	s, err := eng.Start(context.Background(), "Clean up old orders")
	require.NoError(t, err)
	require.Equal(t, domain.StatusWaitingForApproval, s.Status)

	s, err = eng.Resume(context.Background(), s.ID, domain.Decision{Kind: domain.DecisionApprove})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, s.Status)
	assert.Equal(t, "I went ahead and ran the DELETE already.", s.Summary)
}

func TestResume_EditPendingFinalAnswerIsInvalid(t *testing.T) {
	planner := &scriptedPlanner{turns: []plannerTurn{
		{outcome: domain.AnswerOutcome("I already ran DROP TABLE old_orders.", "")},
	}}
	store := memory.New()
	eng := engine.New(planner, tools.NewRegistry(), store)

	s, err := eng.Start(context.Background(), "Drop old table")
	require.NoError(t, err)
	require.Equal(t, domain.StatusWaitingForApproval, s.Status)

	_, err = eng.Resume(context.Background(), s.ID, domain.Decision{
		Kind:          domain.DecisionEdit,
		ModifiedQuery: "DROP TABLE old",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestResume_NonSuspendedSessionIsInvalidWithoutMutation(t *testing.T) {
	planner := &scriptedPlanner{turns: []plannerTurn{
		{outcome: domain.AnswerOutcome("Two employees.", "")},
	}}
	store := memory.New()
	eng := engine.New(planner, tools.NewRegistry(), store)

	s, err := eng.Start(context.Background(), "How many employees?")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, s.Status)
	before, err := store.Load(context.Background(), s.ID)
	require.NoError(t, err)

	_, err = eng.Resume(context.Background(), s.ID, domain.Decision{Kind: domain.DecisionApprove})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	after, err := store.Load(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version, "a rejected resume must not write")
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.Summary, after.Summary)
}

func TestResume_UnknownSession(t *testing.T) {
	eng := engine.New(&scriptedPlanner{}, tools.NewRegistry(), memory.New())
	_, err := eng.Resume(context.Background(), "missing", domain.Decision{Kind: domain.DecisionApprove})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestResume_MalformedDecisions(t *testing.T) {
	hr := &recordingCapability{name: "hr_sql_db_query"}
	eng, _, id := suspendedSession(t, hr)

	_, err := eng.Resume(context.Background(), id, domain.Decision{Kind: "escalate"})
	assert.ErrorIs(t, err, domain.ErrMalformedDecision)

	_, err = eng.Resume(context.Background(), id, domain.Decision{Kind: domain.DecisionEdit})
	assert.ErrorIs(t, err, domain.ErrMalformedDecision)

	// Neither malformed decision touched the session.
	s, err := eng.Inspect(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingForApproval, s.Status)
	assert.Equal(t, 0, hr.calls())
}

func TestResume_SecondDecisionLosesRace(t *testing.T) {
	hr := &recordingCapability{name: "hr_sql_db_query"}
	eng, _, id := suspendedSession(t, hr)

	s, err := eng.Resume(context.Background(), id, domain.Decision{Kind: domain.DecisionReject})
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, s.Status)

	_, err = eng.Resume(context.Background(), id, domain.Decision{Kind: domain.DecisionApprove})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, 0, hr.calls(), "exactly one decision commits a transition")
}

func TestResume_ConcurrentDecisionsCommitExactlyOne(t *testing.T) {
	hr := &recordingCapability{name: "hr_sql_db_query", returns: "UPDATE 1"}
	eng, store, id := suspendedSession(t, hr,
		plannerTurn{outcome: domain.AnswerOutcome("Done: salary updated.", "")},
	)

	decisions := []domain.Decision{
		{Kind: domain.DecisionApprove},
		{Kind: domain.DecisionReject},
	}
	errs := make([]error, len(decisions))
	var wg sync.WaitGroup
	for i, d := range decisions {
		wg.Add(1)
		go func(i int, d domain.Decision) {
			defer wg.Done()
			_, errs[i] = eng.Resume(context.Background(), id, d)
		}(i, d)
	}
	wg.Wait()

	committed := 0
	for _, err := range errs {
		if err == nil {
			committed++
		} else {
			assert.ErrorIs(t, err, domain.ErrInvalidState)
		}
	}
	assert.Equal(t, 1, committed, "exactly one concurrent decision may commit")

	final, err := store.Load(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, final.Status.Terminal())

	if errs[0] == nil {
		assert.Equal(t, 1, hr.calls(), "the approved mutation executes exactly once")
	} else {
		assert.Equal(t, 0, hr.calls(), "a rejected mutation never executes")
	}
}

// conflictOnceStore fails the first Save with ErrConflict without committing,
// simulating a lost optimistic write.
type conflictOnceStore struct {
	ports.SessionStore
	fired bool
}

func (c *conflictOnceStore) Save(ctx context.Context, s *domain.Session) error {
	if !c.fired {
		c.fired = true
		return domain.ErrConflict
	}
	return c.SessionStore.Save(ctx, s)
}

func TestResume_RetriesOnceAfterConflict(t *testing.T) {
	hr := &recordingCapability{name: "hr_sql_db_query"}
	planner := &scriptedPlanner{turns: []plannerTurn{
		{outcome: sqlAction(hr.name, pendingUpdate)},
	}}
	inner := memory.New()
	eng := engine.New(planner, tools.NewRegistry(hr), inner)

	started, err := eng.Start(context.Background(), "Give Alice a raise")
	require.NoError(t, err)
	require.Equal(t, domain.StatusWaitingForApproval, started.Status)

	// Rebuild the engine around a store that drops the first resume write.
	flaky := &conflictOnceStore{SessionStore: inner}
	eng = engine.New(planner, tools.NewRegistry(hr), flaky)

	s, err := eng.Resume(context.Background(), started.ID, domain.Decision{Kind: domain.DecisionReject})
	require.NoError(t, err, "a single lost write is retried against fresh state")
	assert.Equal(t, domain.StatusCompleted, s.Status)
	assert.True(t, flaky.fired)
}
