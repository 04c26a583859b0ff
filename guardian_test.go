package guardian_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/guardian"
	"github.com/aretw0/guardian/internal/adapters/memory"
	"github.com/aretw0/guardian/pkg/domain"
	"github.com/aretw0/guardian/pkg/ports"
	"github.com/aretw0/guardian/pkg/tools"
)

func countingCapability(name string, calls *[]string) tools.Func {
	return tools.Func{
		CapName:        name,
		CapDescription: "test capability",
		Fn: func(ctx context.Context, input domain.Payload) (any, error) {
			*calls = append(*calls, input.QueryText())
			return []map[string]any{{"ok": true}}, nil
		},
	}
}

func scripted(outcomes ...domain.Outcome) ports.PlannerFunc {
	i := 0
	return func(ctx context.Context, request string, recent []domain.Message) (domain.Outcome, error) {
		out := outcomes[i]
		if i < len(outcomes)-1 {
			i++
		}
		return out, nil
	}
}

func TestNew_ReadOnlyQueryRoundTrip(t *testing.T) {
	var calls []string
	eng := guardian.New(
		scripted(
			domain.ActionOutcome(domain.ProposedAction{
				Capability: "hr_sql_db_query",
				Input:      domain.TextPayload("SELECT * FROM employees"),
			}),
			domain.AnswerOutcome("There are 3 employees.", ""),
		),
		guardian.WithCapabilities(countingCapability("hr_sql_db_query", &calls)),
	)

	session, err := eng.Start(context.Background(), "how many employees?")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, session.Status)
	assert.Equal(t, "There are 3 employees.", session.Summary)
	assert.Equal(t, []string{"SELECT * FROM employees"}, calls)
}

func TestNew_MutationSuspendsAndResumes(t *testing.T) {
	var calls []string
	store := memory.New()
	eng := guardian.New(
		scripted(
			domain.ActionOutcome(domain.ProposedAction{
				Capability: "hr_sql_db_query",
				Input:      domain.TextPayload("DELETE FROM employees WHERE id = 7"),
			}),
			domain.AnswerOutcome("Employee 7 removed.", ""),
		),
		guardian.WithStore(store),
		guardian.WithCapabilities(countingCapability("hr_sql_db_query", &calls)),
	)

	session, err := eng.Start(context.Background(), "remove employee 7")
	require.NoError(t, err)
	require.Equal(t, domain.StatusWaitingForApproval, session.Status)
	assert.Equal(t, "DELETE", session.PendingCategory)
	assert.Empty(t, calls)

	// The suspended session is durable in the configured store.
	loaded, err := eng.Inspect(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingForApproval, loaded.Status)

	resumed, err := eng.Resume(context.Background(), session.ID, domain.Decision{Kind: domain.DecisionApprove})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, resumed.Status)
	assert.Equal(t, []string{"DELETE FROM employees WHERE id = 7"}, calls)
}

func TestNew_DefaultsToInMemoryStore(t *testing.T) {
	eng := guardian.New(scripted(domain.AnswerOutcome("hi", "")))
	require.NotNil(t, eng.Store())

	session, err := eng.Start(context.Background(), "hello")
	require.NoError(t, err)

	loaded, err := eng.Store().Load(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, loaded.ID)
}
