package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/guardian/pkg/domain"
)

// NormalizeResult applies the single normalization rule to raw capability
// output: structured data passes through unchanged; textual output is parsed
// as JSON when it parses, otherwise kept as raw text. Error results pass
// through untouched.
func NormalizeResult(r domain.Result) domain.Result {
	if r.IsError() || r.Value == nil {
		return r
	}

	var text string
	switch v := r.Value.(type) {
	case []byte:
		text = string(v)
	case string:
		text = v
	default:
		return r
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.TextResult("")
	}

	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		return domain.ValueResult(parsed)
	}
	return domain.TextResult(text)
}

// transcriptEntry renders an executed step for the conversation log so the
// planner sees the tool, its input, and the observed result on its next turn.
func transcriptEntry(action domain.ProposedAction, result domain.Result) string {
	return fmt.Sprintf("Tool: %s\nInput: %s\nResult: %s",
		action.Capability, action.Input.String(), renderResult(result))
}

func renderResult(r domain.Result) string {
	if r.IsError() {
		b, err := json.MarshalIndent(r.Error, "", "  ")
		if err != nil {
			return r.Error.Message
		}
		return string(b)
	}
	if r.Value != nil {
		b, err := json.MarshalIndent(r.Value, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", r.Value)
		}
		return string(b)
	}
	return r.Text
}
