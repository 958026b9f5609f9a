package action

import (
	"context"
	"strings"

	"github.com/nerrad567/autofill-core/internal/compare"
	"github.com/nerrad567/autofill-core/internal/step"
)

// JudgeExecutor compares an element's value with the step value using
// the operator encoded in the action pattern. A failed comparison is a
// failed step.
type JudgeExecutor struct {
	page Page
}

func (e *JudgeExecutor) Kinds() []step.ActionKind {
	return []step.ActionKind{step.ActionJudge}
}

func (e *JudgeExecutor) Execute(ctx context.Context, req Request) Result {
	if res, ok := requireLocator(req); !ok {
		return res
	}
	actual, err := e.page.Value(ctx, req.Locator)
	if err != nil {
		return failed("read %s: %v", req.Locator, err)
	}

	op := compare.Operator(req.Step.ActionPattern)
	if compare.Compare(actual, req.Value, op) {
		return succeeded("judge passed: %s matches expected value", actual)
	}
	return failed("judge failed: %s does not match expected value %s (%s)", actual, req.Value, op)
}

// GetValueExecutor reads an element's value into a run variable named by
// the step value.
type GetValueExecutor struct {
	page Page
}

func (e *GetValueExecutor) Kinds() []step.ActionKind {
	return []step.ActionKind{step.ActionGetValue}
}

func (e *GetValueExecutor) Execute(ctx context.Context, req Request) Result {
	if res, ok := requireLocator(req); !ok {
		return res
	}
	name := strings.TrimSpace(req.Value)
	if name == "" {
		return rejected("get_value step needs a variable name")
	}

	v, err := e.page.Value(ctx, req.Locator)
	if err != nil {
		return failed("read %s: %v", req.Locator, err)
	}

	res := succeeded("captured %s", name)
	res.Capture = &Capture{Name: name, Value: v}
	return res
}
