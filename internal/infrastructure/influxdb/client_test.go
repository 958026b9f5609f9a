package influxdb

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/autofill-core/internal/infrastructure/config"
	"github.com/nerrad567/autofill-core/internal/replay"
	"github.com/nerrad567/autofill-core/internal/step"
)

// fakeWriteAPI records points. Methods not overridden panic through the
// nil embedded interface, which keeps the fake honest about what is used.
type fakeWriteAPI struct {
	api.WriteAPI

	mu      sync.Mutex
	points  []*write.Point
	flushes int
	errs    chan error
}

func (f *fakeWriteAPI) WritePoint(p *write.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, p)
}

func (f *fakeWriteAPI) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
}

func (f *fakeWriteAPI) Errors() <-chan error {
	return f.errs
}

func (f *fakeWriteAPI) recorded() []*write.Point {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*write.Point(nil), f.points...)
}

func newTestClient(t *testing.T) (*Client, *fakeWriteAPI) {
	t.Helper()
	fake := &fakeWriteAPI{}
	return newClient(nil, fake), fake
}

func tagsOf(p *write.Point) map[string]string {
	tags := make(map[string]string)
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	return tags
}

func fieldsOf(p *write.Point) map[string]any {
	fields := make(map[string]any)
	for _, field := range p.FieldList() {
		fields[field.Key] = field.Value
	}
	return fields
}

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION") != "" {
		t.Skip("integration environment may have a live server")
	}
	_, err := Connect(config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:1",
		Org:     "o",
		Bucket:  "b",
	})
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestRecordStep(t *testing.T) {
	c, fake := newTestClient(t)

	c.RecordStep("shop", step.ActionClick, true, 2, 1500*time.Millisecond)

	points := fake.recorded()
	if len(points) != 1 {
		t.Fatalf("wrote %d points, want 1", len(points))
	}
	p := points[0]
	if p.Name() != MeasurementStep {
		t.Errorf("measurement = %q, want %q", p.Name(), MeasurementStep)
	}
	tags := tagsOf(p)
	if tags["website_id"] != "shop" || tags["action"] != "click" || tags["success"] != "true" {
		t.Errorf("tags = %v", tags)
	}
	fields := fieldsOf(p)
	if fields["attempts"] != int64(2) {
		t.Errorf("attempts = %v (%T), want 2", fields["attempts"], fields["attempts"])
	}
	if fields["duration_ms"] != float64(1500) {
		t.Errorf("duration_ms = %v, want 1500", fields["duration_ms"])
	}
}

func TestRecordRun(t *testing.T) {
	c, fake := newTestClient(t)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Second)
	run := &replay.RunResult{
		ID:               "r1",
		WebsiteID:        "shop",
		Status:           replay.StatusFailed,
		TotalSteps:       4,
		CurrentStepIndex: 1,
		StartFrom:        start,
		EndTo:            &end,
	}

	c.RecordRun(run)

	points := fake.recorded()
	if len(points) != 1 {
		t.Fatalf("wrote %d points, want 1", len(points))
	}
	p := points[0]
	if p.Name() != MeasurementRun {
		t.Errorf("measurement = %q", p.Name())
	}
	if !p.Time().Equal(end) {
		t.Errorf("time = %v, want run end %v", p.Time(), end)
	}
	if tags := tagsOf(p); tags["status"] != "failed" || tags["website_id"] != "shop" {
		t.Errorf("tags = %v", tags)
	}
	fields := fieldsOf(p)
	if fields["progress_pct"] != int64(25) {
		t.Errorf("progress_pct = %v, want 25", fields["progress_pct"])
	}
	if fields["duration_ms"] != float64(4000) {
		t.Errorf("duration_ms = %v, want 4000", fields["duration_ms"])
	}
}

func TestRecordRun_IgnoresInProgressAndNil(t *testing.T) {
	c, fake := newTestClient(t)

	c.RecordRun(nil)
	c.RecordRun(&replay.RunResult{WebsiteID: "shop", Status: replay.StatusInProgress})

	if n := len(fake.recorded()); n != 0 {
		t.Errorf("wrote %d points, want 0", n)
	}
}

func TestWritesDroppedAfterClose(t *testing.T) {
	c, fake := newTestClient(t)

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if fake.flushes != 1 {
		t.Errorf("flushes = %d, want 1 on close", fake.flushes)
	}

	c.RecordStep("shop", step.ActionType, false, 1, time.Second)
	c.Flush()

	if n := len(fake.recorded()); n != 0 {
		t.Errorf("wrote %d points after close, want 0", n)
	}
	if fake.flushes != 1 {
		t.Errorf("Flush() after Close flushed again")
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() after close = %v, want ErrNotConnected", err)
	}
}

func TestClose_Nil(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Errorf("nil Close() = %v", err)
	}
}

func TestWriteErrorsReachCallback(t *testing.T) {
	fake := &fakeWriteAPI{errs: make(chan error, 1)}
	c := newClient(nil, fake)

	got := make(chan error, 1)
	c.SetOnError(func(err error) { got <- err })

	fake.errs <- errors.New("bucket not found")

	select {
	case err := <-got:
		if err.Error() != "bucket not found" {
			t.Errorf("callback got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("write error not delivered to callback")
	}
	close(fake.errs)
}

func TestClientSatisfiesMetricsRecorder(t *testing.T) {
	var _ replay.MetricsRecorder = (*Client)(nil)
}
