package ports

import (
	"context"

	"github.com/aretw0/guardian/pkg/domain"
)

// Capability is one named external operation (here, a SQL-executing tool) the
// executor can run. Execution errors are returned as Go errors and captured by
// the executor as structured error results.
type Capability interface {
	// Name is the registry key the planner addresses the capability by.
	Name() string
	// Description documents the capability for planner prompts.
	Description() string
	// Execute runs the capability against the payload and returns its raw output.
	Execute(ctx context.Context, input domain.Payload) (any, error)
}

// CapabilityExecutor runs capabilities by name. An unknown name yields a
// structured "capability not found" result listing the known names, not a fault.
type CapabilityExecutor interface {
	Execute(ctx context.Context, capability string, input domain.Payload) domain.Result
	// Names returns the registered capability names in stable order.
	Names() []string
}
