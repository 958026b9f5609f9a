package step

import "time"

// Step is one targeted action in a website's replay sequence.
//
// Value may contain {{name}} placeholders that are resolved against the
// run's variables before the step is dispatched.
type Step struct {
	// Identity
	ID        string `json:"id"`
	WebsiteID string `json:"website_id"`

	// Page the step was recorded on
	URL string `json:"url"`

	// What to do
	Action        ActionKind `json:"action_kind"`
	Value         string     `json:"value"`
	ActionPattern int        `json:"action_pattern"` // judge: comparison operator; select: selection pattern

	// Replay sequence within the website (ascending)
	ExecutionOrder int `json:"execution_order"`

	// Element targeting
	SelectedLocator LocatorStrategy `json:"selected_locator"`
	LocatorAbsolute string          `json:"locator_absolute,omitempty"`
	LocatorShort    string          `json:"locator_short,omitempty"`
	LocatorSmart    string          `json:"locator_smart,omitempty"`

	// Timing
	AfterWaitSeconds        float64 `json:"after_wait_seconds"`
	ExecutionTimeoutSeconds float64 `json:"execution_timeout_seconds"` // 0 = no deadline

	Retry RetryPolicy `json:"retry"`
}

// ActionKind identifies which executor handles a step.
type ActionKind string

const (
	ActionType            ActionKind = "type"
	ActionClick           ActionKind = "click"
	ActionCheck           ActionKind = "check"
	ActionJudge           ActionKind = "judge"
	ActionSelectValue     ActionKind = "select_value"
	ActionSelectIndex     ActionKind = "select_index"
	ActionSelectText      ActionKind = "select_text"
	ActionSelectTextExact ActionKind = "select_text_exact"
	ActionChangeURL       ActionKind = "change_url"
	ActionScreenshot      ActionKind = "screenshot"
	ActionGetValue        ActionKind = "get_value"
)

// AllActionKinds returns every action kind the replay engine understands.
func AllActionKinds() []ActionKind {
	return []ActionKind{
		ActionType,
		ActionClick,
		ActionCheck,
		ActionJudge,
		ActionSelectValue,
		ActionSelectIndex,
		ActionSelectText,
		ActionSelectTextExact,
		ActionChangeURL,
		ActionScreenshot,
		ActionGetValue,
	}
}

// TargetsElement reports whether the action needs a locator to resolve a
// page element. Navigation and page screenshots do not.
func (k ActionKind) TargetsElement() bool {
	switch k {
	case ActionChangeURL, ActionScreenshot:
		return false
	default:
		return true
	}
}

// IsSelect reports whether the action is one of the select variants.
func (k ActionKind) IsSelect() bool {
	switch k {
	case ActionSelectValue, ActionSelectIndex, ActionSelectText, ActionSelectTextExact:
		return true
	default:
		return false
	}
}

// LocatorStrategy names which of the three generated locators a step
// replays with.
type LocatorStrategy string

const (
	LocatorAbsolute LocatorStrategy = "absolute"
	LocatorShort    LocatorStrategy = "short" // id-anchored when possible, positional otherwise
	LocatorSmart    LocatorStrategy = "smart"
	LocatorNone     LocatorStrategy = "none"
)

// AllLocatorStrategies returns the valid locator strategies.
func AllLocatorStrategies() []LocatorStrategy {
	return []LocatorStrategy{LocatorAbsolute, LocatorShort, LocatorSmart, LocatorNone}
}

// RetryMode selects how a failed step is re-attempted.
type RetryMode string

const (
	RetryNone         RetryMode = "none"
	RetryCountBounded RetryMode = "count_bounded"
)

// RetryPolicy bounds the extra attempts the engine makes for a failing step.
// Count is the number of attempts after the first one.
type RetryPolicy struct {
	Mode  RetryMode `json:"mode"`
	Count int       `json:"count,omitempty"`
}

// Attempts returns the total number of executor invocations the policy allows.
func (p RetryPolicy) Attempts() int {
	if p.Mode == RetryCountBounded && p.Count > 0 {
		return p.Count + 1
	}
	return 1
}

// Defaults used when authoring a new step.
const (
	BaseExecutionOrder    = 100
	ExecutionOrderStep    = 100
	DefaultTimeoutSeconds = 30
	copySuffix            = "_copy"
)

// NewStep returns a step for websiteID carrying the authoring defaults:
// type action, smart locator, no wait, no retry, 30 second deadline.
func NewStep(websiteID string) Step {
	return Step{
		WebsiteID:               websiteID,
		Action:                  ActionType,
		SelectedLocator:         LocatorSmart,
		ExecutionOrder:          BaseExecutionOrder,
		ExecutionTimeoutSeconds: DefaultTimeoutSeconds,
		Retry:                   RetryPolicy{Mode: RetryNone},
	}
}

// Locator returns the locator string for the step's selected strategy.
// It is empty for LocatorNone or when the chosen strategy produced nothing.
func (s Step) Locator() string {
	switch s.SelectedLocator {
	case LocatorAbsolute:
		return s.LocatorAbsolute
	case LocatorShort:
		return s.LocatorShort
	case LocatorSmart:
		return s.LocatorSmart
	default:
		return ""
	}
}

// AfterWait returns the post-step pause as a duration.
func (s Step) AfterWait() time.Duration {
	return secondsToDuration(s.AfterWaitSeconds)
}

// Timeout returns the per-step deadline; zero means none.
func (s Step) Timeout() time.Duration {
	return secondsToDuration(s.ExecutionTimeoutSeconds)
}

func secondsToDuration(sec float64) time.Duration {
	if sec <= 0 {
		return 0
	}
	return time.Duration(sec * float64(time.Second))
}

// Patch carries a partial update. Nil fields are left unchanged.
type Patch struct {
	WebsiteID               *string          `json:"website_id,omitempty"`
	URL                     *string          `json:"url,omitempty"`
	Action                  *ActionKind      `json:"action_kind,omitempty"`
	Value                   *string          `json:"value,omitempty"`
	ActionPattern           *int             `json:"action_pattern,omitempty"`
	ExecutionOrder          *int             `json:"execution_order,omitempty"`
	SelectedLocator         *LocatorStrategy `json:"selected_locator,omitempty"`
	LocatorAbsolute         *string          `json:"locator_absolute,omitempty"`
	LocatorShort            *string          `json:"locator_short,omitempty"`
	LocatorSmart            *string          `json:"locator_smart,omitempty"`
	AfterWaitSeconds        *float64         `json:"after_wait_seconds,omitempty"`
	ExecutionTimeoutSeconds *float64         `json:"execution_timeout_seconds,omitempty"`
	Retry                   *RetryPolicy     `json:"retry,omitempty"`
}

// Apply returns s with every non-nil patch field merged over it.
func (p Patch) Apply(s Step) Step {
	if p.WebsiteID != nil {
		s.WebsiteID = *p.WebsiteID
	}
	if p.URL != nil {
		s.URL = *p.URL
	}
	if p.Action != nil {
		s.Action = *p.Action
	}
	if p.Value != nil {
		s.Value = *p.Value
	}
	if p.ActionPattern != nil {
		s.ActionPattern = *p.ActionPattern
	}
	if p.ExecutionOrder != nil {
		s.ExecutionOrder = *p.ExecutionOrder
	}
	if p.SelectedLocator != nil {
		s.SelectedLocator = *p.SelectedLocator
	}
	if p.LocatorAbsolute != nil {
		s.LocatorAbsolute = *p.LocatorAbsolute
	}
	if p.LocatorShort != nil {
		s.LocatorShort = *p.LocatorShort
	}
	if p.LocatorSmart != nil {
		s.LocatorSmart = *p.LocatorSmart
	}
	if p.AfterWaitSeconds != nil {
		s.AfterWaitSeconds = *p.AfterWaitSeconds
	}
	if p.ExecutionTimeoutSeconds != nil {
		s.ExecutionTimeoutSeconds = *p.ExecutionTimeoutSeconds
	}
	if p.Retry != nil {
		s.Retry = *p.Retry
	}
	return s
}
