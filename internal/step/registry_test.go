package step

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// mockRepository is an in-memory Repository that counts saves.
type mockRepository struct {
	mu      sync.Mutex
	stored  *Collection
	saves   int
	loadErr error
	saveErr error
}

func newMockRepository(steps ...Step) *mockRepository {
	c, _ := NewCollection(steps...) //nolint:errcheck // fixtures use unique IDs
	return &mockRepository{stored: c}
}

func (m *mockRepository) Load(context.Context) (*Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.stored.Clone(), nil
}

func (m *mockRepository) LoadByWebsiteID(_ context.Context, websiteID string) (*Collection, error) {
	return m.LoadBatch(context.Background(), []string{websiteID})
}

func (m *mockRepository) LoadBatch(_ context.Context, websiteIDs []string) (*Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	want := make(map[string]bool, len(websiteIDs))
	for _, w := range websiteIDs {
		want[w] = true
	}
	c, _ := NewCollection() //nolint:errcheck // empty
	for _, s := range m.stored.All() {
		if want[s.WebsiteID] {
			c.Add(s) //nolint:errcheck // IDs already unique
		}
	}
	return c, nil
}

func (m *mockRepository) Save(_ context.Context, c *Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.stored = c.Clone()
	return nil
}

func TestRegistry_AppendStep_AssignsOrder(t *testing.T) {
	repo := newMockRepository(testStep("s1", "site-a", 400))
	reg := NewRegistry(repo)
	ctx := context.Background()

	s := NewStep("site-a")
	s.ExecutionOrder = 0
	s.LocatorSmart = `//input[@name="q"]`

	created, err := reg.AppendStep(ctx, s)
	if err != nil {
		t.Fatalf("AppendStep: %v", err)
	}
	if created.ID == "" {
		t.Error("AppendStep should assign an ID")
	}
	if created.ExecutionOrder != 500 {
		t.Errorf("ExecutionOrder = %d, want 500", created.ExecutionOrder)
	}
	if repo.saves != 1 {
		t.Errorf("saves = %d, want 1", repo.saves)
	}
}

func TestRegistry_CreateStep_KeepsExplicitOrder(t *testing.T) {
	repo := newMockRepository(testStep("s1", "site-a", 400))
	reg := NewRegistry(repo)

	s := NewStep("site-a")
	s.ExecutionOrder = 0
	s.LocatorSmart = `//input[@name="q"]`

	created, err := reg.CreateStep(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateStep: %v", err)
	}
	if created.ExecutionOrder != 0 {
		t.Errorf("ExecutionOrder = %d, want the explicit 0", created.ExecutionOrder)
	}
}

func TestRegistry_CreateStep_InvalidNotSaved(t *testing.T) {
	repo := newMockRepository()
	reg := NewRegistry(repo)

	s := NewStep("site-a") // smart locator selected but empty
	_, err := reg.CreateStep(context.Background(), s)
	if !errors.Is(err, ErrMissingLocator) {
		t.Fatalf("CreateStep = %v, want ErrMissingLocator", err)
	}
	if repo.saves != 0 {
		t.Errorf("invalid step was saved (%d saves)", repo.saves)
	}
}

func TestRegistry_UpdateStep(t *testing.T) {
	repo := newMockRepository(testStep("s1", "site-a", 100))
	reg := NewRegistry(repo)
	ctx := context.Background()

	wait := 1.5
	updated, err := reg.UpdateStep(ctx, "s1", Patch{AfterWaitSeconds: &wait})
	if err != nil {
		t.Fatalf("UpdateStep: %v", err)
	}
	if updated.AfterWaitSeconds != 1.5 {
		t.Errorf("AfterWaitSeconds = %v, want 1.5", updated.AfterWaitSeconds)
	}

	got, err := reg.GetStep(ctx, "s1")
	if err != nil {
		t.Fatalf("GetStep: %v", err)
	}
	if got.AfterWaitSeconds != 1.5 {
		t.Error("update was not persisted")
	}

	if _, err := reg.UpdateStep(ctx, "missing", Patch{AfterWaitSeconds: &wait}); !errors.Is(err, ErrStepNotFound) {
		t.Errorf("UpdateStep(missing) = %v, want ErrStepNotFound", err)
	}

	bad := ActionKind("hover")
	if _, err := reg.UpdateStep(ctx, "s1", Patch{Action: &bad}); !errors.Is(err, ErrUnknownActionKind) {
		t.Errorf("UpdateStep(bad kind) = %v, want ErrUnknownActionKind", err)
	}
}

func TestRegistry_DeleteStep(t *testing.T) {
	repo := newMockRepository(testStep("s1", "site-a", 100))
	reg := NewRegistry(repo)
	ctx := context.Background()

	if err := reg.DeleteStep(ctx, "s1"); err != nil {
		t.Fatalf("DeleteStep: %v", err)
	}
	if _, err := reg.GetStep(ctx, "s1"); !errors.Is(err, ErrStepNotFound) {
		t.Errorf("GetStep after delete = %v, want ErrStepNotFound", err)
	}
	if err := reg.DeleteStep(ctx, "s1"); !errors.Is(err, ErrStepNotFound) {
		t.Errorf("second DeleteStep = %v, want ErrStepNotFound", err)
	}
}

func TestRegistry_DuplicateStep(t *testing.T) {
	repo := newMockRepository(
		testStep("s1", "site-a", 100),
		testStep("s2", "site-a", 200),
		testStep("b1", "site-b", 1000),
	)
	reg := NewRegistry(repo)
	ctx := context.Background()

	dup, err := reg.DuplicateStep(ctx, "s1")
	if err != nil {
		t.Fatalf("DuplicateStep: %v", err)
	}
	if dup.ExecutionOrder != 300 {
		t.Errorf("ExecutionOrder = %d, want 300", dup.ExecutionOrder)
	}

	ordered, err := reg.ReplaySteps(ctx, "site-a")
	if err != nil {
		t.Fatalf("ReplaySteps: %v", err)
	}
	if len(ordered) != 3 || ordered[2].ID != dup.ID {
		t.Errorf("ReplaySteps = %v, duplicate should be last", ids(ordered))
	}
}

func TestRegistry_NextExecutionOrder(t *testing.T) {
	reg := NewRegistry(newMockRepository(testStep("s1", "site-a", 250)))
	ctx := context.Background()

	got, err := reg.NextExecutionOrder(ctx, "site-a")
	if err != nil {
		t.Fatalf("NextExecutionOrder: %v", err)
	}
	if got != 350 {
		t.Errorf("NextExecutionOrder = %d, want 350", got)
	}
}

func TestRegistry_SaveError(t *testing.T) {
	repo := newMockRepository(testStep("s1", "site-a", 100))
	repo.saveErr = errors.New("disk full")
	reg := NewRegistry(repo)

	if err := reg.DeleteStep(context.Background(), "s1"); err == nil {
		t.Fatal("DeleteStep should surface save errors")
	}
	if _, err := reg.GetStep(context.Background(), "s1"); err != nil {
		t.Errorf("step should still exist after failed save: %v", err)
	}
}

func TestRegistry_ConcurrentCreates(t *testing.T) {
	repo := newMockRepository()
	reg := NewRegistry(repo)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := NewStep("site-a")
			s.ExecutionOrder = 0
			s.LocatorSmart = "//input"
			if _, err := reg.AppendStep(ctx, s); err != nil {
				t.Errorf("AppendStep: %v", err)
			}
		}()
	}
	wg.Wait()

	steps, err := reg.ListByWebsite(ctx, "site-a")
	if err != nil {
		t.Fatalf("ListByWebsite: %v", err)
	}
	if len(steps) != n {
		t.Fatalf("got %d steps, want %d", len(steps), n)
	}
	seen := make(map[int]bool)
	for _, s := range steps {
		if seen[s.ExecutionOrder] {
			t.Errorf("execution order %d assigned twice", s.ExecutionOrder)
		}
		seen[s.ExecutionOrder] = true
	}
}

func TestRegistry_ListAll(t *testing.T) {
	repo := newMockRepository(
		testStep("s1", "site-a", 200),
		testStep("s2", "site-b", 100),
		testStep("s3", "site-a", 100),
	)
	reg := NewRegistry(repo)

	all, err := reg.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 3 || all[0].ID != "s1" || all[1].ID != "s2" || all[2].ID != "s3" {
		t.Errorf("ListAll = %v, want insertion order s1 s2 s3", ids(all))
	}

	repo.loadErr = errors.New("disk gone")
	if _, err := reg.ListAll(context.Background()); !errors.Is(err, repo.loadErr) {
		t.Errorf("ListAll error = %v, want wrapped load error", err)
	}
}
