/*
Package domain contains the core domain models for the Guardian engine.

It defines the durable entities of the approval workflow: the Session (the unit
of persisted state), the planner Outcome (a proposed action or a final answer),
the tagged Payload variant carried by actions, and the human Decision that
unblocks a suspended session. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - Session: Captures the runtime snapshot of one workflow (transcript, pending
    action, execution history, status).
  - Outcome: The planner's output, exactly one of ProposedAction or FinalAnswer.
  - Payload: Tagged variant for action input (structured mapping or bare text)
    with accessors for the query-bearing field.
  - Decision: A human approve/reject/edit verdict delivered out-of-band.
  - Result: The normalized output of a capability execution; faults are data.
*/
package domain
