package action

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nerrad567/autofill-core/internal/step"
)

// Request is one step ready to execute. Value, Locator and the step's URL
// have already had their placeholders substituted.
type Request struct {
	Step    step.Step
	Value   string
	Locator string
}

// Capture is a named value read from the page by a get_value step.
type Capture struct {
	Name  string
	Value string
}

// Result is the outcome of one executor invocation.
type Result struct {
	Success bool
	Message string

	// Permanent marks a failure that another attempt cannot fix, such as
	// an unparsable URL. The engine does not retry it.
	Permanent bool

	// Capture is set by get_value steps.
	Capture *Capture

	// Artifact is the path of a file the step produced.
	Artifact string
}

// Executor performs the page interaction for one or more action kinds.
type Executor interface {
	Kinds() []step.ActionKind
	Execute(ctx context.Context, req Request) Result
}

// Dispatcher routes an action kind to its executor.
type Dispatcher struct {
	table map[step.ActionKind]Executor
	page  Page // nil unless built by NewDefaultDispatcher
}

// NewDispatcher builds a dispatch table from executors. A kind claimed
// by two executors is an error.
func NewDispatcher(executors ...Executor) (*Dispatcher, error) {
	d := &Dispatcher{table: make(map[step.ActionKind]Executor)}
	for _, e := range executors {
		for _, k := range e.Kinds() {
			if _, exists := d.table[k]; exists {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateKind, k)
			}
			d.table[k] = e
		}
	}
	return d, nil
}

// CanHandle reports whether an executor is registered for kind.
func (d *Dispatcher) CanHandle(kind step.ActionKind) bool {
	_, ok := d.table[kind]
	return ok
}

// Lookup returns the executor for kind.
func (d *Dispatcher) Lookup(kind step.ActionKind) (Executor, error) {
	e, ok := d.table[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, kind)
	}
	return e, nil
}

// Navigate opens url in the page the executors act on. A dispatcher
// built without a page has nothing to open and returns nil.
func (d *Dispatcher) Navigate(ctx context.Context, url string) error {
	if d.page == nil {
		return nil
	}
	return d.page.Navigate(ctx, url)
}

// Kinds returns the registered kinds, sorted.
func (d *Dispatcher) Kinds() []step.ActionKind {
	kinds := make([]step.ActionKind, 0, len(d.table))
	for k := range d.table {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Require returns ErrIncomplete naming every kind without an executor.
func (d *Dispatcher) Require(kinds []step.ActionKind) error {
	var missing []step.ActionKind
	for _, k := range kinds {
		if !d.CanHandle(k) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: no executor for %v", ErrIncomplete, missing)
	}
	return nil
}

// Options configures the default executors.
type Options struct {
	// ScreenshotDir receives screenshot files. Created on demand.
	ScreenshotDir string

	// Now names screenshot files; defaults to time.Now.
	Now func() time.Time
}

// NewDefaultDispatcher registers an executor for every action kind and
// verifies none is missing.
func NewDefaultDispatcher(page Page, opts Options) (*Dispatcher, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	d, err := NewDispatcher(
		&TypeExecutor{page: page},
		&ClickExecutor{page: page},
		&CheckExecutor{page: page},
		&JudgeExecutor{page: page},
		&SelectExecutor{page: page},
		&ChangeURLExecutor{page: page},
		&ScreenshotExecutor{page: page, dir: opts.ScreenshotDir, now: opts.Now},
		&GetValueExecutor{page: page},
	)
	if err != nil {
		return nil, err
	}
	if err := d.Require(step.AllActionKinds()); err != nil {
		return nil, err
	}
	d.page = page
	return d, nil
}

// ─── Result Helpers ─────────────────────────────────────────────────────────

func succeeded(format string, args ...any) Result {
	return Result{Success: true, Message: fmt.Sprintf(format, args...)}
}

func failed(format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...)}
}

func rejected(format string, args ...any) Result {
	return Result{Permanent: true, Message: fmt.Sprintf(format, args...)}
}

// requireLocator fails permanently when an element step has no locator.
func requireLocator(req Request) (Result, bool) {
	if req.Locator == "" {
		return rejected("%s step has no %s locator", req.Step.Action, req.Step.SelectedLocator), false
	}
	return Result{}, true
}
