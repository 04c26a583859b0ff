package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrConflict is returned by a store when a save loses an optimistic
// concurrency race. The losing writer must not apply its in-memory mutation.
var ErrConflict = errors.New("session version conflict")

// ErrInvalidState is returned when an operation is illegal for the session's
// current status (e.g. resuming a session that is not waiting for approval).
var ErrInvalidState = errors.New("invalid session state for operation")

// ErrMalformedDecision is returned when a resume decision is unrecognized or
// is missing its required replacement payload.
var ErrMalformedDecision = errors.New("malformed approval decision")
