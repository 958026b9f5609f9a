package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/autofill-core/internal/action"
	"github.com/nerrad567/autofill-core/internal/step"
	"github.com/nerrad567/autofill-core/internal/variables"
)

// Logger defines the logging interface used by the Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// StepSource provides a website's steps in replay order.
type StepSource interface {
	ReplaySteps(ctx context.Context, websiteID string) ([]step.Step, error)
}

// Dispatcher resolves the executor for an action kind.
type Dispatcher interface {
	Lookup(kind step.ActionKind) (action.Executor, error)
}

// Navigator is implemented by dispatchers bound to a page. The engine
// uses it to open the first step's URL, since a session starts on a
// blank page.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// SessionProvider opens an isolated Dispatcher for one run, typically
// backed by its own browser tab. release is called once the run ends.
type SessionProvider interface {
	Open(ctx context.Context, websiteID string) (d Dispatcher, release func(), err error)
}

// MQTTClient is the interface for publishing run events.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	Broadcast(channel string, payload any)
}

// MetricsRecorder receives per-step and per-run measurements.
type MetricsRecorder interface {
	RecordStep(websiteID string, kind step.ActionKind, success bool, attempts int, duration time.Duration)
	RecordRun(run *RunResult)
}

// Event types published while a run progresses.
const (
	EventRunStarted    = "started"
	EventStepCompleted = "step_completed"
	EventStepFailed    = "step_failed"
	EventRunFinished   = "finished"
)

// TopicPrefix is the MQTT topic root for run events:
// {prefix}/{website_id}/{event}.
const TopicPrefix = "autofill/run"

// Default retry wait bounds between attempts of a failing step.
const (
	DefaultRetryWaitMin = 1 * time.Second
	DefaultRetryWaitMax = 3 * time.Second
)

// Deps holds the Engine's collaborators. Steps and Results are required,
// as is one of Dispatcher or Sessions; the rest may be nil. Sessions
// takes precedence when both are set.
type Deps struct {
	Steps      StepSource
	Dispatcher Dispatcher
	Sessions   SessionProvider
	Results    ResultRepository
	MQTT       MQTTClient
	Hub        WSHub
	Metrics    MetricsRecorder
	Clock      Clock
	Logger     Logger

	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// Engine replays steps and maintains their RunResult.
//
// Thread Safety: Run and Start are safe for concurrent use. A website
// has at most one run in progress.
type Engine struct {
	steps      StepSource
	dispatcher Dispatcher
	sessions   SessionProvider
	results    ResultRepository
	mqtt       MQTTClient
	hub        WSHub
	metrics    MetricsRecorder
	clock      Clock
	logger     Logger

	retryWaitMin time.Duration
	retryWaitMax time.Duration

	activeMu sync.Mutex
	active   map[string]string // website ID -> run ID
	wg       sync.WaitGroup
}

// NewEngine creates a replay engine.
func NewEngine(deps Deps) *Engine {
	e := &Engine{
		steps:        deps.Steps,
		dispatcher:   deps.Dispatcher,
		sessions:     deps.Sessions,
		results:      deps.Results,
		mqtt:         deps.MQTT,
		hub:          deps.Hub,
		metrics:      deps.Metrics,
		clock:        deps.Clock,
		logger:       deps.Logger,
		retryWaitMin: deps.RetryWaitMin,
		retryWaitMax: deps.RetryWaitMax,
		active:       make(map[string]string),
	}
	if e.clock == nil {
		e.clock = SystemClock{}
	}
	if e.logger == nil {
		e.logger = noopLogger{}
	}
	if e.retryWaitMin <= 0 && e.retryWaitMax <= 0 {
		e.retryWaitMin, e.retryWaitMax = DefaultRetryWaitMin, DefaultRetryWaitMax
	}
	if e.retryWaitMax < e.retryWaitMin {
		e.retryWaitMax = e.retryWaitMin
	}
	return e
}

// RunRequest describes one replay.
type RunRequest struct {
	WebsiteID string
	OwnerID   string

	// Variables fill {{name}} placeholders. The engine never modifies it.
	Variables variables.Map

	// StartIndex skips the first StartIndex steps in replay order, which
	// resumes a run that stopped at that CurrentStepIndex.
	StartIndex int
}

// run is the private state of one replay.
type run struct {
	result     *RunResult
	steps      []step.Step
	vars       variables.Map
	captures   variables.Map
	start      int
	dispatcher Dispatcher
	release    func()
}

// Run replays the website's steps and returns the terminal RunResult.
//
// A step failure is not an error: it is reported through the result's
// failed status and message. Run returns an error only when the run
// could not start: ErrInvalidRequest, ErrRunInProgress, ErrNoSteps, or
// a step loading failure.
func (e *Engine) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	r, err := e.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	e.wg.Add(1)
	defer e.wg.Done()
	return e.execute(ctx, r), nil
}

// Start begins a replay in the background and returns the in-progress
// RunResult. ctx must outlive the run; cancelling it fails the run.
func (e *Engine) Start(ctx context.Context, req RunRequest) (*RunResult, error) {
	r, err := e.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	snapshot := r.result.Clone()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.execute(ctx, r)
	}()
	return snapshot, nil
}

// Wait blocks until every run started by the engine has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// ActiveRun returns the ID of the website's in-progress run, if any.
func (e *Engine) ActiveRun(websiteID string) (string, bool) {
	e.activeMu.Lock()
	defer e.activeMu.Unlock()
	id, ok := e.active[websiteID]
	return id, ok
}

// ActiveCount returns the number of websites with a run in progress.
func (e *Engine) ActiveCount() int {
	e.activeMu.Lock()
	defer e.activeMu.Unlock()
	return len(e.active)
}

// prepare validates the request, claims the website and creates the run.
func (e *Engine) prepare(ctx context.Context, req RunRequest) (*run, error) {
	if req.WebsiteID == "" {
		return nil, fmt.Errorf("%w: website_id is required", ErrInvalidRequest)
	}
	if req.StartIndex < 0 {
		return nil, fmt.Errorf("%w: start index must not be negative", ErrInvalidRequest)
	}

	if !e.claim(req.WebsiteID) {
		return nil, ErrRunInProgress
	}

	steps, err := e.steps.ReplaySteps(ctx, req.WebsiteID)
	if err != nil {
		e.releaseWebsite(req.WebsiteID)
		return nil, fmt.Errorf("loading steps: %w", err)
	}
	if len(steps) == 0 {
		e.releaseWebsite(req.WebsiteID)
		return nil, ErrNoSteps
	}
	if req.StartIndex > len(steps) {
		e.releaseWebsite(req.WebsiteID)
		return nil, fmt.Errorf("%w: start index %d beyond %d steps", ErrInvalidRequest, req.StartIndex, len(steps))
	}

	dispatcher, release := e.dispatcher, func() {}
	if e.sessions != nil {
		dispatcher, release, err = e.sessions.Open(ctx, req.WebsiteID)
		if err != nil {
			e.releaseWebsite(req.WebsiteID)
			return nil, fmt.Errorf("opening session: %w", err)
		}
		if release == nil {
			release = func() {}
		}
	}

	result := NewRunResult(req.WebsiteID, req.OwnerID, len(steps), e.clock.Now())
	result.CurrentStepIndex = req.StartIndex

	e.activeMu.Lock()
	e.active[req.WebsiteID] = result.ID
	e.activeMu.Unlock()

	if missing := unresolved(steps[req.StartIndex:], req.Variables); len(missing) > 0 {
		e.logger.Warn("run references undefined variables",
			"run_id", result.ID,
			"website_id", req.WebsiteID,
			"variables", missing,
		)
	}

	e.saveResult(ctx, result)
	e.logger.Info("run started",
		"run_id", result.ID,
		"website_id", req.WebsiteID,
		"owner_id", req.OwnerID,
		"steps", len(steps),
		"start_index", req.StartIndex,
	)
	e.publish(result, EventRunStarted, nil)

	return &run{
		result:     result,
		steps:      steps,
		vars:       req.Variables,
		captures:   make(variables.Map),
		start:      req.StartIndex,
		dispatcher: dispatcher,
		release:    release,
	}, nil
}

// execute runs the steps from r.start and finishes the result.
func (e *Engine) execute(ctx context.Context, r *run) *RunResult { //nolint:gocognit // sequential step pipeline
	defer e.releaseWebsite(r.result.WebsiteID)
	defer r.release()
	res := r.result

	for i := r.start; i < len(r.steps); i++ {
		if ctx.Err() != nil {
			e.finish(ctx, res, "run cancelled", "")
			return res.Clone()
		}

		s := r.steps[i]
		outcome, resolved := e.executeStep(ctx, r, s, i == r.start)
		if !outcome.Success {
			e.publish(res, EventStepFailed, map[string]any{
				"step_id":    s.ID,
				"step_index": i,
				"message":    outcome.Message,
			})
			e.finish(ctx, res, outcome.Message, s.ID)
			return res.Clone()
		}

		if outcome.Capture != nil {
			r.captures[outcome.Capture.Name] = outcome.Capture.Value
		}
		if err := res.Advance(resolved.URL); err != nil {
			e.logger.Error("advancing run", "run_id", res.ID, "error", err)
		}
		e.saveResult(ctx, res)
		e.publish(res, EventStepCompleted, map[string]any{
			"step_id":    s.ID,
			"step_index": i,
			"message":    outcome.Message,
		})

		if wait := s.AfterWait(); wait > 0 {
			select {
			case <-e.clock.After(wait):
			case <-ctx.Done():
			}
		}
	}

	if err := res.Succeed(e.clock.Now()); err != nil {
		e.logger.Error("completing run", "run_id", res.ID, "error", err)
	}
	e.complete(ctx, res)
	return res.Clone()
}

// executeStep validates, substitutes and dispatches one step with its
// retry policy. It returns the final attempt's result and the step as
// it was executed. The first step of a run opens its page first.
func (e *Engine) executeStep(ctx context.Context, r *run, s step.Step, first bool) (action.Result, step.Step) {
	if err := step.ValidateStep(s); err != nil {
		return action.Result{Message: err.Error(), Permanent: true}, s
	}
	if r.dispatcher == nil {
		return action.Result{Message: "no action dispatcher configured", Permanent: true}, s
	}
	exec, err := r.dispatcher.Lookup(s.Action)
	if err != nil {
		return action.Result{Message: err.Error(), Permanent: true}, s
	}

	resolved := resolve(s, variables.Overlay(r.vars, r.captures))
	req := action.Request{Step: resolved, Value: resolved.Value, Locator: resolved.Locator()}

	if first {
		if err := e.openStartPage(ctx, r, resolved); err != nil {
			e.logger.Warn("opening start page failed", "step_id", s.ID, "url", resolved.URL, "error", err)
			return action.Result{Message: err.Error()}, resolved
		}
	}

	started := e.clock.Now()
	attempts := s.Retry.Attempts()
	var outcome action.Result
	made := 0
	for made < attempts {
		made++
		outcome = e.attempt(ctx, exec, req, s.Timeout())
		if outcome.Success || outcome.Permanent || ctx.Err() != nil {
			break
		}
		if made < attempts {
			wait := e.retryWait()
			e.logger.Warn("step failed, retrying",
				"step_id", s.ID,
				"attempt", made,
				"max_attempts", attempts,
				"wait", wait,
				"message", outcome.Message,
			)
			select {
			case <-e.clock.After(wait):
			case <-ctx.Done():
			}
		}
	}
	if !outcome.Success && ctx.Err() != nil {
		outcome = action.Result{Message: "run cancelled"}
	}

	if e.metrics != nil {
		e.metrics.RecordStep(r.result.WebsiteID, s.Action, outcome.Success, made, e.clock.Now().Sub(started))
	}

	if outcome.Success {
		e.logger.Debug("step completed",
			"step_id", s.ID,
			"action", s.Action,
			"attempts", made,
			"message", outcome.Message,
		)
	} else {
		e.logger.Warn("step failed",
			"step_id", s.ID,
			"action", s.Action,
			"attempts", made,
			"message", outcome.Message,
		)
	}
	return outcome, resolved
}

// openStartPage navigates to the step's recorded URL. change_url steps
// navigate themselves and are skipped.
func (e *Engine) openStartPage(ctx context.Context, r *run, s step.Step) error {
	if s.Action == step.ActionChangeURL || s.URL == "" {
		return nil
	}
	nav, ok := r.dispatcher.(Navigator)
	if !ok {
		return nil
	}
	if err := nav.Navigate(ctx, s.URL); err != nil {
		return fmt.Errorf("opening start page %s: %w", s.URL, err)
	}
	e.logger.Debug("opened start page", "run_id", r.result.ID, "url", s.URL)
	return nil
}

// attempt runs the executor once, racing it against the step deadline.
// A timeout is an ordinary, retryable failure.
func (e *Engine) attempt(ctx context.Context, exec action.Executor, req action.Request, timeout time.Duration) action.Result {
	if timeout <= 0 {
		return exec.Execute(ctx, req)
	}

	stepCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan action.Result, 1)
	go func() {
		done <- exec.Execute(stepCtx, req)
	}()

	select {
	case res := <-done:
		return res
	case <-e.clock.After(timeout):
		return action.Result{Message: fmt.Sprintf("step timed out after %s", timeout)}
	case <-ctx.Done():
		return action.Result{Message: "run cancelled"}
	}
}

// retryWait picks a random wait in [retryWaitMin, retryWaitMax].
func (e *Engine) retryWait() time.Duration {
	span := e.retryWaitMax - e.retryWaitMin
	if span <= 0 {
		return e.retryWaitMin
	}
	return e.retryWaitMin + rand.N(span+1) //nolint:gosec // jitter, not security
}

// unresolved returns the variable names the steps reference that neither
// vars nor an earlier get_value step provides, in order of first use.
// Those placeholders are replayed verbatim.
func unresolved(steps []step.Step, vars variables.Map) []string {
	known := variables.Overlay(vars, nil)
	seen := make(map[string]struct{})
	var missing []string
	for _, s := range steps {
		for _, text := range []string{s.Value, s.URL, s.Locator()} {
			for _, name := range variables.Missing(text, known) {
				if _, dup := seen[name]; dup {
					continue
				}
				seen[name] = struct{}{}
				missing = append(missing, name)
			}
		}
		if s.Action == step.ActionGetValue {
			known[strings.TrimSpace(s.Value)] = ""
		}
	}
	return missing
}

// resolve substitutes variables into every templated field of s.
func resolve(s step.Step, vars variables.Map) step.Step {
	s.Value = variables.Substitute(s.Value, vars)
	s.URL = variables.Substitute(s.URL, vars)
	s.LocatorAbsolute = variables.Substitute(s.LocatorAbsolute, vars)
	s.LocatorShort = variables.Substitute(s.LocatorShort, vars)
	s.LocatorSmart = variables.Substitute(s.LocatorSmart, vars)
	return s
}

// finish fails the run and records it.
func (e *Engine) finish(ctx context.Context, res *RunResult, message, stepID string) {
	if err := res.Fail(e.clock.Now(), message, stepID); err != nil {
		e.logger.Error("failing run", "run_id", res.ID, "error", err)
	}
	e.complete(ctx, res)
}

// complete persists and announces a terminal result. Persisting ignores
// cancellation so an abandoned run still records where it stopped.
func (e *Engine) complete(ctx context.Context, res *RunResult) {
	e.saveResult(context.WithoutCancel(ctx), res)
	if e.metrics != nil {
		e.metrics.RecordRun(res.Clone())
	}

	e.logger.Info("run finished",
		"run_id", res.ID,
		"website_id", res.WebsiteID,
		"status", res.Status,
		"completed", res.CurrentStepIndex,
		"total", res.TotalSteps,
		"duration_ms", res.Duration().Milliseconds(),
		"message", res.Message,
	)
	e.publish(res, EventRunFinished, nil)
}

// saveResult persists a snapshot of the run. Failures are logged; the
// run itself continues.
func (e *Engine) saveResult(ctx context.Context, res *RunResult) {
	if err := e.results.Save(ctx, res.Clone()); err != nil {
		e.logger.Error("failed to save run result", "run_id", res.ID, "error", err)
	}
}

// publish sends a run event over MQTT and WebSocket when configured.
func (e *Engine) publish(res *RunResult, event string, extra map[string]any) {
	if e.mqtt == nil && e.hub == nil {
		return
	}

	payload := map[string]any{
		"event":              event,
		"run_id":             res.ID,
		"website_id":         res.WebsiteID,
		"owner_id":           res.OwnerID,
		"status":             string(res.Status),
		"current_step_index": res.CurrentStepIndex,
		"total_steps":        res.TotalSteps,
		"progress":           res.ProgressPercentage(),
	}
	if res.Message != "" {
		payload["message"] = res.Message
	}
	for k, v := range extra {
		payload[k] = v
	}

	if e.hub != nil {
		e.hub.Broadcast("run."+event, payload)
	}

	if e.mqtt != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			e.logger.Error("marshalling run event", "error", err)
			return
		}
		topic := RunEventTopic(res.WebsiteID, event)
		// Only the terminal event is retained so late subscribers see the outcome.
		if err := e.mqtt.Publish(topic, data, 1, event == EventRunFinished); err != nil {
			e.logger.Warn("publishing run event", "topic", topic, "error", err)
		}
	}
}

// RunEventTopic returns the MQTT topic for a website's run event.
func RunEventTopic(websiteID, event string) string {
	return TopicPrefix + "/" + websiteID + "/" + event
}

func (e *Engine) claim(websiteID string) bool {
	e.activeMu.Lock()
	defer e.activeMu.Unlock()
	if _, busy := e.active[websiteID]; busy {
		return false
	}
	e.active[websiteID] = ""
	return true
}

func (e *Engine) releaseWebsite(websiteID string) {
	e.activeMu.Lock()
	delete(e.active, websiteID)
	e.activeMu.Unlock()
}
