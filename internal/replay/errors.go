package replay

import "errors"

// Domain errors for the replay package.
var (
	// ErrRunNotFound is returned when a run ID does not exist.
	ErrRunNotFound = errors.New("run: not found")

	// ErrRunInProgress is returned when a website already has an active run.
	ErrRunInProgress = errors.New("run: already in progress for website")

	// ErrRunFinished is returned when transitioning a run that has ended.
	ErrRunFinished = errors.New("run: already finished")

	// ErrNoSteps is returned when a website has no steps to replay.
	ErrNoSteps = errors.New("run: website has no steps")

	// ErrInvalidRequest is returned for a malformed run request.
	ErrInvalidRequest = errors.New("run: invalid request")
)
