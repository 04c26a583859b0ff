package tools_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/guardian/pkg/domain"
	"github.com/aretw0/guardian/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoCapability(name string) tools.Func {
	return tools.Func{
		CapName:        name,
		CapDescription: "echoes the query text",
		Fn: func(_ context.Context, input domain.Payload) (any, error) {
			return input.QueryText(), nil
		},
	}
}

func TestRegistry_Execute(t *testing.T) {
	r := tools.NewRegistry(echoCapability("hr_sql_db_query"))

	res := r.Execute(context.Background(), "hr_sql_db_query", domain.TextPayload("SELECT 1"))
	require.False(t, res.IsError())
	assert.Equal(t, "SELECT 1", res.Value)
}

func TestRegistry_UnknownCapability(t *testing.T) {
	r := tools.NewRegistry(echoCapability("hr_sql_db_query"), echoCapability("sales_sql_db_query"))

	res := r.Execute(context.Background(), "missing_tool", domain.TextPayload("SELECT 1"))
	require.True(t, res.IsError())
	assert.Equal(t, "capability_not_found", res.Error.Kind)

	// The result lists the known capability names so the planner can recover.
	value, ok := res.Value.(map[string]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"hr_sql_db_query", "sales_sql_db_query"}, value["available_capabilities"])
}

func TestRegistry_CapabilityErrorBecomesData(t *testing.T) {
	r := tools.NewRegistry(tools.Func{
		CapName:        "broken",
		CapDescription: "always fails",
		Fn: func(context.Context, domain.Payload) (any, error) {
			return nil, errors.New("relation does not exist")
		},
	})

	res := r.Execute(context.Background(), "broken", domain.TextPayload("SELECT 1"))
	require.True(t, res.IsError())
	assert.Equal(t, "execution", res.Error.Kind)
	assert.Contains(t, res.Error.Message, "relation does not exist")
}

func TestRegistry_NamesSorted(t *testing.T) {
	r := tools.NewRegistry(echoCapability("zeta"), echoCapability("alpha"))
	assert.Equal(t, []string{"alpha", "zeta"}, r.Names())
}
