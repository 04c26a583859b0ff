package domain

import "encoding/json"

// ResultError describes a capability fault captured as data. The engine never
// raises execution faults; the planner must be able to see and react to them
// on its next turn.
type ResultError struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// Result is the normalized output of one capability execution.
type Result struct {
	// Value is the structured result. Textual capability output that parses as
	// JSON is promoted here; otherwise Text carries the raw string.
	Value any `json:"value,omitempty"`
	// Text is the raw textual output when no structured form is available.
	Text string `json:"text,omitempty"`
	// Error is set when the execution faulted.
	Error *ResultError `json:"error,omitempty"`
}

// ValueResult wraps a structured value.
func ValueResult(v any) Result {
	return Result{Value: v}
}

// TextResult wraps raw text output.
func TextResult(s string) Result {
	return Result{Text: s}
}

// ErrorResult captures a fault as data.
func ErrorResult(kind, message string) Result {
	return Result{Error: &ResultError{Kind: kind, Message: message}}
}

// IsError reports whether the execution faulted.
func (r Result) IsError() bool {
	return r.Error != nil
}

func (r Result) clone() Result {
	c := r
	if r.Error != nil {
		e := *r.Error
		c.Error = &e
	}
	c.Value = copyValue(r.Value)
	return c
}

// copyValue deep-copies a structured value through a JSON round trip, so a
// cloned result never aliases maps or slices held by a store. Scalars pass
// through; a value that does not survive marshaling is kept as-is.
func copyValue(v any) any {
	switch v.(type) {
	case nil, string, bool, float64, int, int64:
		return v
	}
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
