package browser

import "errors"

// Domain-specific errors for browser operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrLaunchFailed is returned when Chrome cannot be started or reached.
	ErrLaunchFailed = errors.New("browser: launch failed")

	// ErrClosed is returned when opening a tab on a closed browser.
	ErrClosed = errors.New("browser: closed")
)
