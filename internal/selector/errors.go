package selector

import "errors"

var (
	// ErrNoMatch is returned when a CSS selector matches no element.
	ErrNoMatch = errors.New("selector: no element matches")

	// ErrInvalidCSS is returned when a CSS selector cannot be parsed.
	ErrInvalidCSS = errors.New("selector: invalid css selector")
)
