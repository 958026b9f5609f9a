package action

import "errors"

var (
	// ErrUnknownAction is returned when no executor handles an action kind.
	ErrUnknownAction = errors.New("action: unknown action kind")

	// ErrDuplicateKind is returned when two executors claim the same kind.
	ErrDuplicateKind = errors.New("action: kind registered twice")

	// ErrIncomplete is returned when a dispatcher lacks an executor for a
	// kind it is required to handle.
	ErrIncomplete = errors.New("action: dispatcher incomplete")
)
