package action

import (
	"context"
	"strings"

	"github.com/nerrad567/autofill-core/internal/step"
)

// SelectExecutor handles the four select variants.
type SelectExecutor struct {
	page Page
}

func (e *SelectExecutor) Kinds() []step.ActionKind {
	return []step.ActionKind{
		step.ActionSelectValue,
		step.ActionSelectIndex,
		step.ActionSelectText,
		step.ActionSelectTextExact,
	}
}

func (e *SelectExecutor) Execute(ctx context.Context, req Request) Result {
	if res, ok := requireLocator(req); !ok {
		return res
	}

	multiple, widget := decodeSelectPattern(req.Step.ActionPattern)
	opt := SelectOption{
		Value:    req.Value,
		Multiple: multiple,
		Widget:   widget,
	}

	switch req.Step.Action {
	case step.ActionSelectValue:
		opt.By = SelectByValue
	case step.ActionSelectIndex:
		idx, ok := parseIntPrefix(req.Value)
		if !ok || idx < 0 {
			return rejected("invalid option index %q", req.Value)
		}
		opt.By = SelectByIndex
		opt.Index = idx
	case step.ActionSelectText:
		opt.By = SelectByText
	case step.ActionSelectTextExact:
		opt.By = SelectByTextExact
	default:
		return rejected("select executor cannot handle %q", req.Step.Action)
	}

	if err := e.page.Select(ctx, req.Locator, opt); err != nil {
		return failed("select %s %q on %s: %v", opt.By, req.Value, req.Locator, err)
	}
	return succeeded("selected by %s: %s", opt.By, req.Value)
}

// parseIntPrefix parses the leading decimal integer of s after optional
// whitespace and sign; trailing text is ignored.
func parseIntPrefix(s string) (int, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n, digits := 0, 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
		digits++
		if digits > 9 {
			return 0, false
		}
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}
