package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/autofill-core/internal/replay"
	"github.com/nerrad567/autofill-core/internal/step"
)

// Measurement names.
const (
	MeasurementStep = "replay_step"
	MeasurementRun  = "replay_run"
)

// RecordStep writes one point per executed step.
//
// Tags: website_id, action, success. Fields: attempts, duration_ms.
func (c *Client) RecordStep(websiteID string, kind step.ActionKind, success bool, attempts int, duration time.Duration) {
	c.writePoint(MeasurementStep,
		map[string]string{
			"website_id": websiteID,
			"action":     string(kind),
			"success":    boolTag(success),
		},
		map[string]any{
			"attempts":    int64(attempts),
			"duration_ms": durationMillis(duration),
		},
		time.Now(),
	)
}

// RecordRun writes one point per finished run, stamped with its end time.
// Runs still in progress are ignored.
func (c *Client) RecordRun(run *replay.RunResult) {
	if run == nil || !run.Status.IsTerminal() {
		return
	}

	ts := time.Now()
	if run.EndTo != nil {
		ts = *run.EndTo
	}

	c.writePoint(MeasurementRun,
		map[string]string{
			"website_id": run.WebsiteID,
			"status":     string(run.Status),
		},
		map[string]any{
			"total_steps":        int64(run.TotalSteps),
			"current_step_index": int64(run.CurrentStepIndex),
			"progress_pct":       int64(run.ProgressPercentage()),
			"duration_ms":        durationMillis(run.Duration()),
		},
		ts,
	)
}

func (c *Client) writePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}

func boolTag(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
