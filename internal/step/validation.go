package step

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	MaxRetryCount        = 100
	maxWebsiteIDLength   = 200
	maxWaitSeconds       = 3600
	maxTimeoutSeconds    = 3600
	maxValueLength       = 10000
	maxScreenshotNameLen = 200
)

// Pre-computed validation sets for O(1) lookups.
var (
	validActionKinds map[ActionKind]struct{}
	validLocators    map[LocatorStrategy]struct{}
)

func init() {
	validActionKinds = make(map[ActionKind]struct{}, len(AllActionKinds()))
	for _, k := range AllActionKinds() {
		validActionKinds[k] = struct{}{}
	}
	validLocators = make(map[LocatorStrategy]struct{}, len(AllLocatorStrategies()))
	for _, l := range AllLocatorStrategies() {
		validLocators[l] = struct{}{}
	}
}

// GenerateID creates a new unique step ID.
func GenerateID() string {
	return uuid.New().String()
}

// ParseActionKind converts a stored or user-supplied action name into an
// ActionKind, accepting the hyphenated spellings as well.
func ParseActionKind(s string) (ActionKind, error) {
	k := ActionKind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if _, ok := validActionKinds[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownActionKind, s)
	}
	return k, nil
}

// ValidateStep checks a step for the configuration errors that make it
// impossible to replay. Returns the first failure found.
func ValidateStep(s Step) error {
	if strings.TrimSpace(s.WebsiteID) == "" {
		return fmt.Errorf("%w: website_id is required", ErrInvalidStep)
	}
	if len(s.WebsiteID) > maxWebsiteIDLength {
		return fmt.Errorf("%w: website_id exceeds %d characters", ErrInvalidStep, maxWebsiteIDLength)
	}

	if _, ok := validActionKinds[s.Action]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownActionKind, s.Action)
	}
	if _, ok := validLocators[s.SelectedLocator]; !ok {
		return fmt.Errorf("%w: invalid locator strategy %q", ErrInvalidStep, s.SelectedLocator)
	}

	if len(s.Value) > maxValueLength {
		return fmt.Errorf("%w: value exceeds %d characters", ErrInvalidStep, maxValueLength)
	}
	if s.ExecutionOrder < 0 {
		return fmt.Errorf("%w: execution_order must not be negative", ErrInvalidStep)
	}

	if err := validateTiming(s); err != nil {
		return err
	}
	if err := ValidateRetry(s.Retry); err != nil {
		return err
	}

	if s.Action.TargetsElement() && s.Locator() == "" {
		return fmt.Errorf("%w: %s step needs a %s locator", ErrMissingLocator, s.Action, s.SelectedLocator)
	}

	return validateActionValue(s)
}

func validateTiming(s Step) error {
	if s.AfterWaitSeconds < 0 || s.AfterWaitSeconds > maxWaitSeconds {
		return fmt.Errorf("%w: after_wait_seconds must be 0-%d", ErrInvalidStep, maxWaitSeconds)
	}
	if s.ExecutionTimeoutSeconds < 0 || s.ExecutionTimeoutSeconds > maxTimeoutSeconds {
		return fmt.Errorf("%w: execution_timeout_seconds must be 0-%d", ErrInvalidStep, maxTimeoutSeconds)
	}
	return nil
}

// ValidateRetry checks a retry policy.
func ValidateRetry(p RetryPolicy) error {
	switch p.Mode {
	case RetryNone, "":
		if p.Count != 0 {
			return fmt.Errorf("%w: retry count requires count_bounded mode", ErrInvalidStep)
		}
	case RetryCountBounded:
		if p.Count < 1 || p.Count > MaxRetryCount {
			return fmt.Errorf("%w: retry count must be 1-%d", ErrInvalidStep, MaxRetryCount)
		}
	default:
		return fmt.Errorf("%w: invalid retry mode %q", ErrInvalidStep, p.Mode)
	}
	return nil
}

// validateActionValue enforces the fields specific action kinds rely on.
// Value may still hold placeholders here; it is checked again after
// substitution by the executors.
func validateActionValue(s Step) error {
	switch s.Action {
	case ActionChangeURL:
		if strings.TrimSpace(s.Value) == "" {
			return fmt.Errorf("%w: change_url step needs a URL value", ErrInvalidStep)
		}
	case ActionGetValue:
		if strings.TrimSpace(s.Value) == "" {
			return fmt.Errorf("%w: get_value step needs a variable name", ErrInvalidStep)
		}
	case ActionScreenshot:
		name := strings.TrimSpace(s.Value)
		if name == "" {
			return fmt.Errorf("%w: screenshot step needs a file name", ErrInvalidStep)
		}
		if len(name) > maxScreenshotNameLen {
			return fmt.Errorf("%w: screenshot name exceeds %d characters", ErrInvalidStep, maxScreenshotNameLen)
		}
	}
	return nil
}
