package engine_test

import (
	"testing"

	"github.com/aretw0/guardian/pkg/domain"
	"github.com/aretw0/guardian/pkg/engine"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeResult(t *testing.T) {
	tests := []struct {
		name string
		in   domain.Result
		want domain.Result
	}{
		{
			name: "structured value passes through",
			in:   domain.ValueResult([]any{map[string]any{"id": float64(1)}}),
			want: domain.ValueResult([]any{map[string]any{"id": float64(1)}}),
		},
		{
			name: "json text is parsed",
			in:   domain.Result{Value: `[{"id": 1, "name": "Alice"}]`},
			want: domain.ValueResult([]any{map[string]any{"id": float64(1), "name": "Alice"}}),
		},
		{
			name: "json bytes are parsed",
			in:   domain.Result{Value: []byte(`{"rows": 3}`)},
			want: domain.ValueResult(map[string]any{"rows": float64(3)}),
		},
		{
			name: "non-json text stays raw",
			in:   domain.Result{Value: "UPDATE 1"},
			want: domain.TextResult("UPDATE 1"),
		},
		{
			name: "whitespace-padded json still parses",
			in:   domain.Result{Value: "  [1, 2, 3]\n"},
			want: domain.ValueResult([]any{float64(1), float64(2), float64(3)}),
		},
		{
			name: "blank text normalizes to empty text",
			in:   domain.Result{Value: "   "},
			want: domain.TextResult(""),
		},
		{
			name: "error result untouched",
			in:   domain.ErrorResult("execution", "no such table"),
			want: domain.ErrorResult("execution", "no such table"),
		},
		{
			name: "empty result untouched",
			in:   domain.Result{},
			want: domain.Result{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.NormalizeResult(tt.in))
		})
	}
}
