package action

import "context"

// Page is the host capability executors drive. Locators are XPath
// expressions; an implementation resolves them against the live page.
type Page interface {
	// Navigate loads url in the current tab and waits for it to be ready.
	Navigate(ctx context.Context, url string) error

	// Click clicks the element.
	Click(ctx context.Context, locator string, mode InputMode) error

	// Type replaces the element's value with text.
	Type(ctx context.Context, locator, text string, mode InputMode) error

	// SetChecked sets a checkbox or radio button state.
	SetChecked(ctx context.Context, locator string, checked bool, mode InputMode) error

	// Select picks an option of a select element.
	Select(ctx context.Context, locator string, opt SelectOption) error

	// Value reads the element's comparable value: "1"/"0" for checkboxes
	// and radios, the value of form controls, trimmed text otherwise.
	Value(ctx context.Context, locator string) (string, error)

	// Screenshot captures the visible viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
}

// InputMode selects how input events are produced for type, click and
// check steps. It is the step's action pattern.
type InputMode int

const (
	// InputDefault dispatches the full event sequence a framework-bound
	// field expects (focus, input, change, blur).
	InputDefault InputMode = 0

	// InputBasic sets the value or state directly without extra events.
	InputBasic InputMode = 10

	// InputFrameworkAgnostic is the explicit form of InputDefault.
	InputFrameworkAgnostic InputMode = 20
)

// Basic reports whether the mode skips synthetic events.
func (m InputMode) Basic() bool {
	return m == InputBasic
}

// SelectBy selects which option property a select step matches.
type SelectBy string

const (
	SelectByValue     SelectBy = "value"      // option value equals
	SelectByIndex     SelectBy = "index"      // zero-based option position
	SelectByText      SelectBy = "text"       // option text contains
	SelectByTextExact SelectBy = "text_exact" // option text equals
)

// SelectWidget names the kind of control being driven.
type SelectWidget int

const (
	WidgetNative SelectWidget = 1
	WidgetCustom SelectWidget = 2
	WidgetJQuery SelectWidget = 3
)

// SelectOption describes one select interaction.
type SelectOption struct {
	By       SelectBy
	Value    string
	Index    int
	Multiple bool
	Widget   SelectWidget
}

// decodeSelectPattern splits a select step's action pattern: the hundreds
// digit marks a multiple select, the tens digit the widget kind.
func decodeSelectPattern(pattern int) (multiple bool, widget SelectWidget) {
	multiple = (pattern/100)%10 == 1
	switch (pattern / 10) % 10 {
	case 2:
		widget = WidgetCustom
	case 3:
		widget = WidgetJQuery
	default:
		widget = WidgetNative
	}
	return multiple, widget
}
