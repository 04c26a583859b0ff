package ports

import (
	"context"

	"github.com/aretw0/guardian/pkg/domain"
)

// Planner is the external reasoning collaborator. Given the original request
// and the recent conversation log, it produces either a proposed action or a
// final answer. It may fault; the engine degrades planner faults into a
// user-visible explanation instead of failing the session.
type Planner interface {
	Plan(ctx context.Context, request string, recent []domain.Message) (domain.Outcome, error)
}

// PlannerFunc adapts a function to the Planner interface.
type PlannerFunc func(ctx context.Context, request string, recent []domain.Message) (domain.Outcome, error)

// Plan implements Planner.
func (f PlannerFunc) Plan(ctx context.Context, request string, recent []domain.Message) (domain.Outcome, error) {
	return f(ctx, request, recent)
}
