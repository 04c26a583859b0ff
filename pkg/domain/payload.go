package domain

import (
	"encoding/json"
	"strings"
)

// Conventional keys a planner may use for the query-bearing field of a
// structured payload, checked in order.
var queryKeys = []string{"query", "sql", "command"}

// Payload is the tagged input variant for a proposed action: either a bare
// text string or a structured mapping. Exactly one side is populated.
type Payload struct {
	Text   string         `json:"text,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// TextPayload wraps a bare string.
func TextPayload(s string) Payload {
	return Payload{Text: s}
}

// StructuredPayload wraps a mapping.
func StructuredPayload(fields map[string]any) Payload {
	return Payload{Fields: fields}
}

// IsStructured reports whether the payload carries a mapping.
func (p Payload) IsStructured() bool {
	return p.Fields != nil
}

// QueryText extracts the query-bearing text: the first non-empty conventional
// key of a structured payload, or the whole text of a bare payload.
func (p Payload) QueryText() string {
	if p.Fields != nil {
		for _, k := range queryKeys {
			if v, ok := p.Fields[k].(string); ok && v != "" {
				return v
			}
		}
		return ""
	}
	return p.Text
}

// WithQueryText returns a copy of the payload with its query-bearing field
// replaced. For structured payloads only that field changes (defaulting to
// "query" when no conventional key is present); a bare payload is replaced
// wholesale.
func (p Payload) WithQueryText(q string) Payload {
	if p.Fields == nil {
		return TextPayload(q)
	}
	fields := make(map[string]any, len(p.Fields))
	for k, v := range p.Fields {
		fields[k] = v
	}
	for _, k := range queryKeys {
		if _, ok := fields[k]; ok {
			fields[k] = q
			return StructuredPayload(fields)
		}
	}
	fields["query"] = q
	return StructuredPayload(fields)
}

// String renders the payload for transcripts and approval descriptors.
func (p Payload) String() string {
	if p.Fields != nil {
		b, err := json.MarshalIndent(p.Fields, "", "  ")
		if err != nil {
			return ""
		}
		return string(b)
	}
	return p.Text
}

// Empty reports whether the payload carries no usable content.
func (p Payload) Empty() bool {
	return p.Fields == nil && strings.TrimSpace(p.Text) == ""
}

func (p Payload) clone() Payload {
	if p.Fields == nil {
		return p
	}
	fields := make(map[string]any, len(p.Fields))
	for k, v := range p.Fields {
		fields[k] = v
	}
	return Payload{Fields: fields}
}
