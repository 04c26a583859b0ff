// Package guardian is the high-level entry point for the Guardian library: a
// natural language to SQL workflow engine with human-in-the-loop approval for
// database mutations.
//
// Guardian treats each request as a durable session driven by an explicit
// state machine. Read-only queries execute automatically; a proposed mutation
// suspends the session until a human approves, rejects, or edits it. Sessions
// survive process restarts through pluggable stores, so the approval can
// arrive minutes or days later, on any replica.
package guardian

import (
	"context"
	"log/slog"

	"github.com/aretw0/guardian/internal/adapters/memory"
	"github.com/aretw0/guardian/pkg/domain"
	"github.com/aretw0/guardian/pkg/engine"
	"github.com/aretw0/guardian/pkg/ports"
	"github.com/aretw0/guardian/pkg/tools"
)

// Version is the library version.
const Version = "0.1.0"

// Engine wraps the workflow core and provides a simplified API for consumers.
type Engine struct {
	core     *engine.Engine
	store    ports.SessionStore
	registry *tools.Registry

	logger    *slog.Logger
	locker    ports.DistributedLocker
	maxSteps  int
	logTail   int
	coreOpts  []engine.Option
	extraCaps []ports.Capability
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore injects a session store, replacing the default in-memory store.
func WithStore(store ports.SessionStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithCapabilities registers capabilities the planner may propose.
func WithCapabilities(caps ...ports.Capability) Option {
	return func(e *Engine) {
		e.extraCaps = append(e.extraCaps, caps...)
	}
}

// WithLocker injects a distributed locker that serializes session activity
// across replicas sharing one store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxSteps bounds the number of steps one run segment may take.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// WithLogTail sets how many trailing transcript messages the planner sees.
func WithLogTail(n int) Option {
	return func(e *Engine) {
		e.logTail = n
	}
}

// New initializes a Guardian engine around the given planner.
// By default sessions live in an in-memory store.
func New(planner ports.Planner, opts ...Option) *Engine {
	e := &Engine{registry: tools.NewRegistry()}
	for _, opt := range opts {
		opt(e)
	}

	if e.store == nil {
		e.store = memory.New()
	}
	for _, c := range e.extraCaps {
		e.registry.Register(c)
	}

	if e.logger != nil {
		e.coreOpts = append(e.coreOpts, engine.WithLogger(e.logger))
	}
	if e.locker != nil {
		e.coreOpts = append(e.coreOpts, engine.WithLocker(e.locker))
	}
	if e.maxSteps > 0 {
		e.coreOpts = append(e.coreOpts, engine.WithMaxSteps(e.maxSteps))
	}
	if e.logTail > 0 {
		e.coreOpts = append(e.coreOpts, engine.WithLogTail(e.logTail))
	}

	e.core = engine.New(planner, e.registry, e.store, e.coreOpts...)
	return e
}

// Start creates a session for the request and runs it until it suspends or
// terminates.
func (e *Engine) Start(ctx context.Context, request string) (*domain.Session, error) {
	return e.core.Start(ctx, request)
}

// Resume delivers a human decision to a suspended session.
func (e *Engine) Resume(ctx context.Context, sessionID string, decision domain.Decision) (*domain.Session, error) {
	return e.core.Resume(ctx, sessionID, decision)
}

// Inspect returns the persisted snapshot of a session.
func (e *Engine) Inspect(ctx context.Context, sessionID string) (*domain.Session, error) {
	return e.core.Inspect(ctx, sessionID)
}

// Capabilities returns the capability registry for late registration.
func (e *Engine) Capabilities() *tools.Registry {
	return e.registry
}

// Store returns the underlying session store.
func (e *Engine) Store() ports.SessionStore {
	return e.store
}
