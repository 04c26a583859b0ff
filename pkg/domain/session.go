package domain

import "time"

// Status defines the current mode of the workflow engine for a session.
type Status string

const (
	StatusRunning            Status = "running"              // Planner's turn
	StatusWaitingForTool     Status = "waiting_for_tool"     // A non-gated action is queued for execution
	StatusWaitingForApproval Status = "waiting_for_approval" // Suspended, waiting for a human decision
	StatusCompleted          Status = "completed"            // Terminal
	StatusFailed             Status = "failed"               // Terminal
)

// Terminal reports whether the status accepts no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Message is one role-tagged entry in a session's conversation log.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role identifies the author of a conversation log entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleHuman     Role = "human" // Out-of-band approval decisions
)

// Step is one (action, result) pair in the execution trace.
type Step struct {
	Action ProposedAction `json:"action"`
	Result Result         `json:"result"`
}

// Session represents the durable state of one workflow instance.
// It is owned by the session store; the engine borrows it for the duration of
// one step and writes it back atomically.
type Session struct {
	// ID is the opaque session identifier.
	ID string `json:"id"`

	// OriginalRequest is the natural-language text that started the session.
	// Immutable after creation.
	OriginalRequest string `json:"originalRequest"`

	// Log is the append-only conversation transcript.
	Log []Message `json:"log,omitempty"`

	// PendingAction is set exactly when the engine is waiting on the tool
	// executor or on a human decision, and cleared once consumed.
	PendingAction *Outcome `json:"pendingAction,omitempty"`

	// PendingCategory is the risk category of the pending outcome when the
	// session is suspended for approval (e.g. "UPDATE", "DROP", "unknown").
	PendingCategory string `json:"pendingCategory,omitempty"`

	// PendingDecision holds a received human decision until the transition it
	// unblocks consumes it.
	PendingDecision *Decision `json:"pendingDecision,omitempty"`

	// LastResult is the most recent normalized capability result.
	LastResult *Result `json:"lastResult,omitempty"`

	// History is the append-only execution trace.
	History []Step `json:"history,omitempty"`

	// Summary is the final user-facing answer once the session terminates.
	Summary string `json:"summary,omitempty"`

	// Status governs which operations are legal.
	Status Status `json:"status"`

	// Version is the optimistic concurrency token checked by stores on save.
	Version uint64 `json:"version"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewSession creates a running session for the given request.
func NewSession(id, request string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:              id,
		OriginalRequest: request,
		Status:          StatusRunning,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Append adds an entry to the conversation log.
func (s *Session) Append(role Role, content string) {
	s.Log = append(s.Log, Message{Role: role, Content: content})
}

// Clone returns a deep copy of the session. Stores hand out clones so callers
// cannot mutate persisted state behind the store's back.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Log != nil {
		c.Log = make([]Message, len(s.Log))
		copy(c.Log, s.Log)
	}
	if s.History != nil {
		c.History = make([]Step, len(s.History))
		for i, step := range s.History {
			c.History[i] = Step{Action: *step.Action.clone(), Result: step.Result.clone()}
		}
	}
	if s.PendingAction != nil {
		c.PendingAction = s.PendingAction.Clone()
	}
	if s.PendingDecision != nil {
		d := *s.PendingDecision
		c.PendingDecision = &d
	}
	if s.LastResult != nil {
		r := s.LastResult.clone()
		c.LastResult = &r
	}
	return &c
}

// Touch updates the modification timestamp.
func (s *Session) Touch() {
	s.UpdatedAt = time.Now().UTC()
}
