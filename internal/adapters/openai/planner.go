// Package openai implements the planner port against an OpenAI-compatible
// chat completion API using ReAct-style prompting: the model replies with
// either an Action/Action Input pair or a Final Answer, and the reply is
// parsed into a workflow outcome.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/aretw0/guardian/pkg/domain"
)

const defaultModel = openai.GPT4o

// ChatClient is the slice of the OpenAI client the planner needs, kept narrow
// for testability.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// CapabilitySpec names one capability the planner may propose.
type CapabilitySpec struct {
	Name        string
	Description string
}

// Planner turns natural language requests into proposed actions or final
// answers by prompting a chat model.
type Planner struct {
	client       ChatClient
	model        string
	capabilities []CapabilitySpec
	temperature  float32
}

// Option configures the Planner.
type Option func(*Planner)

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(p *Planner) {
		if model != "" {
			p.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(p *Planner) {
		p.temperature = t
	}
}

// New creates a planner over the given chat client.
func New(client ChatClient, capabilities []CapabilitySpec, opts ...Option) *Planner {
	p := &Planner{
		client:       client,
		model:        defaultModel,
		capabilities: capabilities,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewClient builds a go-openai client, optionally against a compatible
// non-OpenAI endpoint.
func NewClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

const systemPrompt = `You are SQL-Guardian, an expert database assistant for natural language to SQL translation with safety controls.

# AVAILABLE DATABASES

## HR Database (hr_*)
- **departments**: id, name
- **employees**: id, name, email, hire_date, dept_id
- **salaries**: id, amount, effective_date, emp_id

## Sales Database (sales_*)
- **customers**: id, name, email
- **products**: id, name, price
- **orders**: id, created_at, customer_id
- **order_items**: id, quantity, unit_price, order_id, product_id

# SAFETY PROTOCOL

**SELECT queries**: Execute immediately
**Write operations (INSERT, UPDATE, DELETE, DROP, ALTER, etc.)**: Return SQL for human approval only

# AVAILABLE TOOLS
%s

# REASONING FORMAT

Question: the input question you must answer
Thought: analyze what information is needed and which database/tables to query
Action: the action to take, must be one of [%s]
Action Input: the precise input for the action (for SQL tools, provide valid SQL)
Observation: the result of the action
... (repeat Thought/Action/Action Input/Observation as needed)
Thought: I now have sufficient information to answer
Final Answer: the complete answer to the user's question`

// Plan implements ports.Planner.
func (p *Planner) Plan(ctx context.Context, request string, recent []domain.Message) (domain.Outcome, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: p.temperature,
		Stop:        []string{"\nObservation:"},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.renderSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: renderTurn(request, recent)},
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Outcome{}, fmt.Errorf("chat completion: no choices in response")
	}

	return ParseReply(resp.Choices[0].Message.Content)
}

func (p *Planner) renderSystemPrompt() string {
	var tools strings.Builder
	names := make([]string, 0, len(p.capabilities))
	for _, c := range p.capabilities {
		fmt.Fprintf(&tools, "%s: %s\n", c.Name, c.Description)
		names = append(names, c.Name)
	}
	return fmt.Sprintf(systemPrompt, strings.TrimRight(tools.String(), "\n"), strings.Join(names, ", "))
}

// renderTurn folds the trailing transcript into the scratchpad so the model
// sees its recent actions and their observations.
func renderTurn(request string, recent []domain.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\nThought: ", request)
	for _, m := range recent {
		fmt.Fprintf(&b, "\n[%s] %s", m.Role, m.Content)
	}
	return b.String()
}
