package replay

import (
	"errors"
	"testing"
	"time"
)

func TestRunResult_Transitions(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	r := NewRunResult("site-a", "vars-1", 2, now)

	if r.Status != StatusInProgress || r.ID == "" {
		t.Fatalf("new run = %+v", r)
	}
	if err := r.Advance("https://a/1"); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if r.ProgressPercentage() != 50 {
		t.Errorf("ProgressPercentage = %d, want 50", r.ProgressPercentage())
	}

	if err := r.Fail(now.Add(time.Second), "boom", "s2"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if r.Duration() != time.Second {
		t.Errorf("Duration = %v", r.Duration())
	}

	// Terminal states are final.
	if err := r.Advance("x"); !errors.Is(err, ErrRunFinished) {
		t.Errorf("Advance after fail = %v", err)
	}
	if err := r.Succeed(now); !errors.Is(err, ErrRunFinished) {
		t.Errorf("Succeed after fail = %v", err)
	}
	if err := r.Fail(now, "again", ""); !errors.Is(err, ErrRunFinished) {
		t.Errorf("Fail after fail = %v", err)
	}
	if r.Message != "boom" || r.CurrentStepIndex != 1 {
		t.Errorf("terminal run mutated: %+v", r)
	}
}

func TestRunResult_Succeed(t *testing.T) {
	r := NewRunResult("site-a", "", 4, time.Now())
	if err := r.Succeed(time.Now()); err != nil {
		t.Fatalf("Succeed: %v", err)
	}
	if r.CurrentStepIndex != 4 || r.ProgressPercentage() != 100 {
		t.Errorf("progress = %d (%d%%)", r.CurrentStepIndex, r.ProgressPercentage())
	}
	if r.Message != "Successfully processed 4 steps" {
		t.Errorf("Message = %q", r.Message)
	}
}

func TestRunResult_CloneIndependent(t *testing.T) {
	r := NewRunResult("site-a", "", 1, time.Now())
	_ = r.Succeed(time.Now())

	cpy := r.Clone()
	*cpy.EndTo = cpy.EndTo.Add(time.Hour)
	if r.EndTo.Equal(*cpy.EndTo) {
		t.Error("Clone shares EndTo")
	}
}
