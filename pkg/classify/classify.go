// Package classify decides whether a planner outcome requires human approval.
//
// The classifier is a deliberately conservative text scan, not a SQL parser:
// any write or maintenance keyword appearing as a whole word anywhere in the
// normalized text flags the outcome, even inside a SELECT sub-clause. This can
// false-positive on legitimate prose mentioning a keyword (e.g. "the DROP in
// shipping rate"); that trade-off is intentional and documented rather than
// silently tightened.
package classify

import (
	"regexp"
	"strings"

	"github.com/aretw0/guardian/pkg/domain"
)

var (
	writePattern       = regexp.MustCompile(`\b(INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|REPLACE|TRUNCATE|GRANT|REVOKE|MERGE)\b`)
	maintenancePattern = regexp.MustCompile(`\b(ATTACH|DETACH|PRAGMA|VACUUM)\b`)
	whitespace         = regexp.MustCompile(`\s+`)
)

// categoryOrder fixes the canonical label priority when several keywords match.
var categoryOrder = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE",
	"REPLACE", "TRUNCATE", "GRANT", "REVOKE", "MERGE",
	"ATTACH", "DETACH", "PRAGMA", "VACUUM",
}

var categoryPatterns = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(categoryOrder))
	for _, kw := range categoryOrder {
		m[kw] = regexp.MustCompile(`\b` + kw + `\b`)
	}
	return m
}()

// CategoryUnknown labels flagged text that carries no canonical keyword, and
// all flagged final answers.
const CategoryUnknown = "unknown"

// Verdict is the classifier's output.
type Verdict struct {
	RequiresApproval bool
	// Category is the canonical label of the first matching keyword, or
	// CategoryUnknown for flagged text without one. Empty when no approval is
	// required.
	Category string
}

// Outcome classifies a planner outcome.
func Outcome(o domain.Outcome) Verdict {
	if o.IsAction() {
		return Action(o.Action.Input)
	}
	if o.IsAnswer() {
		return Answer(o.Answer.Text, o.Answer.Rationale)
	}
	return Verdict{}
}

// Action classifies a proposed action's input payload. Empty or unparseable
// input fails open toward automatic execution; matched keywords never do.
func Action(input domain.Payload) Verdict {
	text := normalize(input.QueryText())
	if text == "" {
		return Verdict{}
	}
	if writePattern.MatchString(text) || maintenancePattern.MatchString(text) {
		return Verdict{RequiresApproval: true, Category: category(text)}
	}
	return Verdict{}
}

// Answer scans a final answer's summary plus internal rationale. This guards
// against the planner narrating a mutation as already "done" without ever
// issuing a discrete action. Flagged answers always categorize as unknown.
func Answer(text, rationale string) Verdict {
	combined := strings.ToUpper(text + " " + rationale)
	if writePattern.MatchString(combined) || maintenancePattern.MatchString(combined) {
		return Verdict{RequiresApproval: true, Category: CategoryUnknown}
	}
	return Verdict{}
}

// normalize collapses whitespace and uppercases for matching.
func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(whitespace.ReplaceAllString(s, " ")))
}

// category returns the canonical label of the highest-priority keyword present.
func category(text string) string {
	for _, kw := range categoryOrder {
		if categoryPatterns[kw].MatchString(text) {
			return kw
		}
	}
	return CategoryUnknown
}
