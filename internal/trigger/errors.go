package trigger

import "errors"

var (
	// ErrAlreadyStarted is returned by Start on a running listener.
	ErrAlreadyStarted = errors.New("trigger: listener already started")

	// ErrInvalidTopic is returned for a message outside the run command topics.
	ErrInvalidTopic = errors.New("trigger: not a run command topic")
)
