package openai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/guardian/pkg/domain"
)

var (
	finalAnswerPattern = regexp.MustCompile(`(?s)Final Answer:\s*(.*)`)
	actionPattern      = regexp.MustCompile(`(?m)^\s*Action:\s*(.+)$`)
	actionInputPattern = regexp.MustCompile(`(?s)Action Input:\s*(.*?)(?:\nObservation:|\z)`)
)

// ParseReply turns a ReAct-formatted model reply into an outcome. A reply
// containing Final Answer wins over a trailing Action block, matching how the
// model terminates its reasoning.
func ParseReply(reply string) (domain.Outcome, error) {
	if m := finalAnswerPattern.FindStringSubmatch(reply); m != nil {
		text := strings.TrimSpace(m[1])
		rationale := strings.TrimSpace(reply[:len(reply)-len(m[0])])
		return domain.AnswerOutcome(text, rationale), nil
	}

	actionMatch := actionPattern.FindStringSubmatch(reply)
	if actionMatch == nil {
		return domain.Outcome{}, fmt.Errorf("could not parse model reply: no Action or Final Answer found in %q", truncateReply(reply))
	}
	capability := strings.TrimSpace(actionMatch[1])

	inputMatch := actionInputPattern.FindStringSubmatch(reply)
	if inputMatch == nil {
		return domain.Outcome{}, fmt.Errorf("could not parse model reply: Action %q has no Action Input", capability)
	}

	return domain.ActionOutcome(domain.ProposedAction{
		Capability: capability,
		Input:      parsePayload(inputMatch[1]),
		Rationale:  strings.TrimSpace(reply),
	}), nil
}

// parsePayload interprets the Action Input text: a JSON object becomes a
// structured payload, anything else is query text with cosmetic quoting and
// code fences stripped.
func parsePayload(raw string) domain.Payload {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```sql")
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "{") {
		var fields map[string]any
		if err := json.Unmarshal([]byte(text), &fields); err == nil {
			return domain.StructuredPayload(fields)
		}
	}

	if len(text) >= 2 {
		switch {
		case strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`):
			text = strings.TrimSpace(text[1 : len(text)-1])
		case strings.HasPrefix(text, "'") && strings.HasSuffix(text, "'"):
			text = strings.TrimSpace(text[1 : len(text)-1])
		}
	}
	return domain.TextPayload(text)
}

func truncateReply(reply string) string {
	const max = 200
	if len(reply) <= max {
		return reply
	}
	return reply[:max] + "..."
}
