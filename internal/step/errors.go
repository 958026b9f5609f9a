package step

import "errors"

// Domain errors for the step package.
//
//	if errors.Is(err, step.ErrStepNotFound) {
//	    // handle not found case
//	}
var (
	// ErrStepNotFound is returned when a step ID does not exist.
	ErrStepNotFound = errors.New("step: not found")

	// ErrStepExists is returned when adding a step whose ID is already present.
	ErrStepExists = errors.New("step: already exists")

	// ErrInvalidStep is returned when step validation fails.
	ErrInvalidStep = errors.New("step: invalid")

	// ErrUnknownActionKind is returned for an action kind outside the known set.
	ErrUnknownActionKind = errors.New("step: unknown action kind")

	// ErrMissingLocator is returned when an element-targeting step has no
	// locator for its selected strategy.
	ErrMissingLocator = errors.New("step: missing locator")
)
