// Package tools provides the capability registry injected into the Guardian
// engine. Capabilities are registered by name and invoked by the planner
// through proposed actions; there is no global shared registry.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/guardian/pkg/domain"
	"github.com/aretw0/guardian/pkg/ports"
)

// Registry is a name-keyed set of capabilities. It implements
// ports.CapabilityExecutor and is safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[string]ports.Capability
}

// NewRegistry creates a registry holding the given capabilities.
func NewRegistry(caps ...ports.Capability) *Registry {
	r := &Registry{capabilities: make(map[string]ports.Capability, len(caps))}
	for _, c := range caps {
		r.Register(c)
	}
	return r
}

// Register adds or replaces a capability under its name.
func (r *Registry) Register(c ports.Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capabilities[c.Name()] = c
}

// Names returns the registered capability names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.capabilities))
	for name := range r.capabilities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns name/description pairs for planner prompts, sorted by name.
func (r *Registry) Describe() []domain.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.capabilities))
	for name := range r.capabilities {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]domain.Message, 0, len(names))
	for _, name := range names {
		out = append(out, domain.Message{
			Role:    domain.RoleTool,
			Content: fmt.Sprintf("%s: %s", name, r.capabilities[name].Description()),
		})
	}
	return out
}

// Execute runs the named capability. An unknown name yields a structured
// "capability not found" result listing known names; a capability error is
// captured as a structured error result. Neither is a fault: the planner must
// be able to see and react to them on its next turn.
func (r *Registry) Execute(ctx context.Context, capability string, input domain.Payload) domain.Result {
	r.mu.RLock()
	c, ok := r.capabilities[capability]
	r.mu.RUnlock()

	if !ok {
		res := domain.ErrorResult("capability_not_found", fmt.Sprintf("capability %q is not registered", capability))
		res.Value = map[string]any{"available_capabilities": r.Names()}
		return res
	}

	out, err := c.Execute(ctx, input)
	if err != nil {
		return domain.ErrorResult("execution", fmt.Sprintf("error executing %s: %v", capability, err))
	}
	return domain.Result{Value: out}
}

// Func adapts a plain function into a Capability.
type Func struct {
	CapName        string
	CapDescription string
	Fn             func(ctx context.Context, input domain.Payload) (any, error)
}

// Name implements ports.Capability.
func (f Func) Name() string { return f.CapName }

// Description implements ports.Capability.
func (f Func) Description() string { return f.CapDescription }

// Execute implements ports.Capability.
func (f Func) Execute(ctx context.Context, input domain.Payload) (any, error) {
	return f.Fn(ctx, input)
}
