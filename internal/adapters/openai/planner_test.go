package openai

import (
	"context"
	"errors"
	"testing"

	gopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/guardian/pkg/domain"
)

type fakeClient struct {
	reply    string
	err      error
	lastReq  gopenai.ChatCompletionRequest
	received bool
}

func (f *fakeClient) CreateChatCompletion(ctx context.Context, req gopenai.ChatCompletionRequest) (gopenai.ChatCompletionResponse, error) {
	f.lastReq = req
	f.received = true
	if f.err != nil {
		return gopenai.ChatCompletionResponse{}, f.err
	}
	return gopenai.ChatCompletionResponse{
		Choices: []gopenai.ChatCompletionChoice{
			{Message: gopenai.ChatCompletionMessage{Content: f.reply}},
		},
	}, nil
}

var testCapabilities = []CapabilitySpec{
	{Name: "hr_sql_db_query", Description: "Run SQL against the HR database"},
	{Name: "sales_sql_db_query", Description: "Run SQL against the Sales database"},
}

func TestPlan_ParsesAction(t *testing.T) {
	client := &fakeClient{reply: "Thought: I need the employee list.\n" +
		"Action: hr_sql_db_query\n" +
		"Action Input: SELECT * FROM employees"}
	planner := New(client, testCapabilities)

	outcome, err := planner.Plan(context.Background(), "List all employees", nil)
	require.NoError(t, err)

	require.True(t, outcome.IsAction())
	assert.Equal(t, "hr_sql_db_query", outcome.Action.Capability)
	assert.Equal(t, "SELECT * FROM employees", outcome.Action.Input.QueryText())
	assert.Contains(t, outcome.Action.Rationale, "Thought: I need the employee list.")
}

func TestPlan_ParsesFinalAnswer(t *testing.T) {
	client := &fakeClient{reply: "Thought: I now have sufficient information to answer\n" +
		"Final Answer: There are 12 employees."}
	planner := New(client, testCapabilities)

	outcome, err := planner.Plan(context.Background(), "How many employees?", nil)
	require.NoError(t, err)

	require.True(t, outcome.IsAnswer())
	assert.Equal(t, "There are 12 employees.", outcome.Answer.Text)
	assert.Contains(t, outcome.Answer.Rationale, "sufficient information")
}

func TestPlan_RequestShape(t *testing.T) {
	client := &fakeClient{reply: "Final Answer: ok"}
	planner := New(client, testCapabilities, WithModel("gpt-4o-mini"))

	recent := []domain.Message{
		{Role: domain.RoleTool, Content: "Tool: hr_sql_db_query\nResult: []"},
	}
	_, err := planner.Plan(context.Background(), "List employees", recent)
	require.NoError(t, err)

	require.True(t, client.received)
	req := client.lastReq
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, []string{"\nObservation:"}, req.Stop)
	require.Len(t, req.Messages, 2)

	system := req.Messages[0]
	assert.Equal(t, gopenai.ChatMessageRoleSystem, system.Role)
	assert.Contains(t, system.Content, "hr_sql_db_query: Run SQL against the HR database")
	assert.Contains(t, system.Content, "[hr_sql_db_query, sales_sql_db_query]")

	user := req.Messages[1]
	assert.Contains(t, user.Content, "Question: List employees")
	assert.Contains(t, user.Content, "Tool: hr_sql_db_query")
}

func TestPlan_ClientErrorPropagates(t *testing.T) {
	client := &fakeClient{err: errors.New("rate limited")}
	planner := New(client, testCapabilities)

	_, err := planner.Plan(context.Background(), "List employees", nil)
	assert.ErrorContains(t, err, "rate limited")
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		wantAction string
		wantQuery  string
		wantAnswer string
		wantErr    bool
	}{
		{
			name:       "plain action",
			reply:      "Thought: query needed\nAction: hr_sql_db_query\nAction Input: SELECT 1",
			wantAction: "hr_sql_db_query",
			wantQuery:  "SELECT 1",
		},
		{
			name:       "fenced sql input",
			reply:      "Action: sales_sql_db_query\nAction Input: ```sql\nSELECT * FROM orders\n```",
			wantAction: "sales_sql_db_query",
			wantQuery:  "SELECT * FROM orders",
		},
		{
			name:       "quoted input",
			reply:      "Action: hr_sql_db_query\nAction Input: \"SELECT name FROM employees\"",
			wantAction: "hr_sql_db_query",
			wantQuery:  "SELECT name FROM employees",
		},
		{
			name:       "structured json input",
			reply:      `Action: hr_sql_db_query` + "\n" + `Action Input: {"query": "DELETE FROM salaries", "limit": 1}`,
			wantAction: "hr_sql_db_query",
			wantQuery:  "DELETE FROM salaries",
		},
		{
			name:       "input followed by observation",
			reply:      "Action: hr_sql_db_query\nAction Input: SELECT 1\nObservation: [1]",
			wantAction: "hr_sql_db_query",
			wantQuery:  "SELECT 1",
		},
		{
			name:       "final answer wins over earlier action",
			reply:      "Action: hr_sql_db_query\nAction Input: SELECT 1\nObservation: [1]\nFinal Answer: the result is 1",
			wantAnswer: "the result is 1",
		},
		{
			name:    "unparseable reply",
			reply:   "I am not sure what to do here.",
			wantErr: true,
		},
		{
			name:    "action without input",
			reply:   "Action: hr_sql_db_query",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := ParseReply(tt.reply)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantAnswer != "" {
				require.True(t, outcome.IsAnswer())
				assert.Equal(t, tt.wantAnswer, outcome.Answer.Text)
				return
			}
			require.True(t, outcome.IsAction())
			assert.Equal(t, tt.wantAction, outcome.Action.Capability)
			assert.Equal(t, tt.wantQuery, outcome.Action.Input.QueryText())
		})
	}
}
