package domain

// ProposedAction is a capability invocation the planner wants executed.
type ProposedAction struct {
	// Capability is the registered name of the executor to run.
	Capability string `json:"capability"`
	// Input is the payload handed to the capability.
	Input Payload `json:"input"`
	// Rationale is the planner's free-text reasoning. Human edits append an
	// audit note here.
	Rationale string `json:"rationale,omitempty"`
}

func (a *ProposedAction) clone() *ProposedAction {
	if a == nil {
		return nil
	}
	c := *a
	c.Input = a.Input.clone()
	return &c
}

// FinalAnswer is the planner's terminal output for a session.
type FinalAnswer struct {
	Text      string `json:"text"`
	Rationale string `json:"rationale,omitempty"`
}

// Outcome is the planner's output: exactly one of Action or Answer is set.
type Outcome struct {
	Action *ProposedAction `json:"action,omitempty"`
	Answer *FinalAnswer    `json:"answer,omitempty"`
}

// ActionOutcome wraps a proposed action.
func ActionOutcome(a ProposedAction) Outcome {
	return Outcome{Action: &a}
}

// AnswerOutcome wraps a final answer.
func AnswerOutcome(text, rationale string) Outcome {
	return Outcome{Answer: &FinalAnswer{Text: text, Rationale: rationale}}
}

// IsAction reports whether the outcome proposes a capability invocation.
func (o Outcome) IsAction() bool {
	return o.Action != nil
}

// IsAnswer reports whether the outcome is a final answer.
func (o Outcome) IsAnswer() bool {
	return o.Answer != nil
}

// Clone returns a deep copy of the outcome.
func (o *Outcome) Clone() *Outcome {
	if o == nil {
		return nil
	}
	c := Outcome{}
	if o.Action != nil {
		c.Action = o.Action.clone()
	}
	if o.Answer != nil {
		a := *o.Answer
		c.Answer = &a
	}
	return &c
}
