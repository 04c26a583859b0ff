/*
Package ports defines the driven ports (interfaces) for the Guardian engine.

These interfaces decouple the workflow core from external implementations,
allowing the engine to work with various session stores, planners, and
capability executors.

# Key Interfaces

  - Planner: The external reasoning capability that turns a request plus
    conversation history into a proposed action or a final answer.
  - CapabilityExecutor: Runs a named capability against a payload and returns a
    normalized result; faults come back as data, never as control flow.
  - SessionStore: Persists sessions with optimistic concurrency so concurrent
    resumptions cannot interleave into a corrupted state.
  - DistributedLocker: Optional cross-replica serialization of session access.
*/
package ports
