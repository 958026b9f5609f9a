package action

import (
	"context"
	"strings"

	"github.com/nerrad567/autofill-core/internal/step"
)

// TypeExecutor replaces an input's value with the step value.
type TypeExecutor struct {
	page Page
}

func (e *TypeExecutor) Kinds() []step.ActionKind {
	return []step.ActionKind{step.ActionType}
}

func (e *TypeExecutor) Execute(ctx context.Context, req Request) Result {
	if res, ok := requireLocator(req); !ok {
		return res
	}
	if err := e.page.Type(ctx, req.Locator, req.Value, InputMode(req.Step.ActionPattern)); err != nil {
		return failed("type into %s: %v", req.Locator, err)
	}
	return succeeded("typed %d characters", len([]rune(req.Value)))
}

// ClickExecutor clicks an element.
type ClickExecutor struct {
	page Page
}

func (e *ClickExecutor) Kinds() []step.ActionKind {
	return []step.ActionKind{step.ActionClick}
}

func (e *ClickExecutor) Execute(ctx context.Context, req Request) Result {
	if res, ok := requireLocator(req); !ok {
		return res
	}
	if err := e.page.Click(ctx, req.Locator, InputMode(req.Step.ActionPattern)); err != nil {
		return failed("click %s: %v", req.Locator, err)
	}
	return succeeded("clicked")
}

// CheckExecutor sets a checkbox or radio state. "1" and "true" check it,
// anything else clears it.
type CheckExecutor struct {
	page Page
}

func (e *CheckExecutor) Kinds() []step.ActionKind {
	return []step.ActionKind{step.ActionCheck}
}

func (e *CheckExecutor) Execute(ctx context.Context, req Request) Result {
	if res, ok := requireLocator(req); !ok {
		return res
	}
	checked := IsChecked(req.Value)
	if err := e.page.SetChecked(ctx, req.Locator, checked, InputMode(req.Step.ActionPattern)); err != nil {
		return failed("set checked on %s: %v", req.Locator, err)
	}
	if checked {
		return succeeded("checked")
	}
	return succeeded("unchecked")
}

// IsChecked reports whether a check step value means "checked".
func IsChecked(value string) bool {
	return value == "1" || strings.ToLower(value) == "true"
}
