package replay

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the state of a run.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// RunResult records one replay of a website's steps.
type RunResult struct {
	ID        string `json:"id"`
	WebsiteID string `json:"website_id"`
	OwnerID   string `json:"owner_id,omitempty"` // variable set the run belongs to

	Status Status `json:"status"`

	TotalSteps       int    `json:"total_steps"`
	CurrentStepIndex int    `json:"current_step_index"` // steps completed so far
	LastExecutedURL  string `json:"last_executed_url,omitempty"`

	StartFrom time.Time  `json:"start_from"`
	EndTo     *time.Time `json:"end_to,omitempty"`

	Message      string `json:"message,omitempty"`
	FailedStepID string `json:"failed_step_id,omitempty"`
}

// NewRunResult creates an in-progress run.
func NewRunResult(websiteID, ownerID string, totalSteps int, now time.Time) *RunResult {
	return &RunResult{
		ID:         uuid.New().String(),
		WebsiteID:  websiteID,
		OwnerID:    ownerID,
		Status:     StatusInProgress,
		TotalSteps: totalSteps,
		StartFrom:  now.UTC(),
	}
}

// Advance records a completed step executed on url.
func (r *RunResult) Advance(url string) error {
	if r.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrRunFinished, r.Status)
	}
	if r.CurrentStepIndex < r.TotalSteps {
		r.CurrentStepIndex++
	}
	r.LastExecutedURL = url
	return nil
}

// Succeed marks the run successful with every step completed.
func (r *RunResult) Succeed(now time.Time) error {
	if r.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrRunFinished, r.Status)
	}
	r.Status = StatusSuccess
	r.CurrentStepIndex = r.TotalSteps
	r.Message = fmt.Sprintf("Successfully processed %d steps", r.TotalSteps)
	r.end(now)
	return nil
}

// Fail marks the run failed. stepID may be empty when the failure is not
// tied to a step.
func (r *RunResult) Fail(now time.Time, message, stepID string) error {
	if r.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrRunFinished, r.Status)
	}
	r.Status = StatusFailed
	r.Message = message
	r.FailedStepID = stepID
	r.end(now)
	return nil
}

func (r *RunResult) end(now time.Time) {
	t := now.UTC()
	r.EndTo = &t
}

// ProgressPercentage returns completed steps as a whole percentage.
func (r *RunResult) ProgressPercentage() int {
	if r.TotalSteps == 0 {
		return 0
	}
	return r.CurrentStepIndex * 100 / r.TotalSteps
}

// Duration returns how long the run took, or zero while in progress.
func (r *RunResult) Duration() time.Duration {
	if r.EndTo == nil {
		return 0
	}
	return r.EndTo.Sub(r.StartFrom)
}

// Clone returns an independent copy.
func (r *RunResult) Clone() *RunResult {
	if r == nil {
		return nil
	}
	cpy := *r
	if r.EndTo != nil {
		t := *r.EndTo
		cpy.EndTo = &t
	}
	return &cpy
}
