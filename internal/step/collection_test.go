package step

import (
	"errors"
	"testing"
)

func testStep(id, websiteID string, order int) Step {
	s := NewStep(websiteID)
	s.ID = id
	s.ExecutionOrder = order
	s.LocatorSmart = `//input[@id="email"]`
	s.Value = "value-" + id
	return s
}

func mustCollection(t *testing.T, steps ...Step) *Collection {
	t.Helper()
	c, err := NewCollection(steps...)
	if err != nil {
		t.Fatalf("NewCollection: %v", err)
	}
	return c
}

func TestCollection_Add_GeneratesID(t *testing.T) {
	c := mustCollection(t)

	s, err := c.Add(NewStep("site-a"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if s.ID == "" {
		t.Fatal("Add should assign an ID")
	}
	if _, ok := c.Get(s.ID); !ok {
		t.Error("added step not retrievable")
	}
}

func TestCollection_Add_DuplicateID(t *testing.T) {
	c := mustCollection(t, testStep("s1", "site-a", 100))

	_, err := c.Add(testStep("s1", "site-a", 200))
	if !errors.Is(err, ErrStepExists) {
		t.Errorf("Add duplicate: got %v, want ErrStepExists", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestCollection_ByWebsiteID_InsertionOrder(t *testing.T) {
	c := mustCollection(t,
		testStep("a3", "site-a", 300),
		testStep("b1", "site-b", 100),
		testStep("a1", "site-a", 100),
		testStep("a2", "site-a", 200),
	)

	got := c.ByWebsiteID("site-a")
	want := []string{"a3", "a1", "a2"}
	if len(got) != len(want) {
		t.Fatalf("ByWebsiteID returned %d steps, want %d", len(got), len(want))
	}
	for i, s := range got {
		if s.ID != want[i] {
			t.Errorf("ByWebsiteID[%d] = %q, want %q", i, s.ID, want[i])
		}
		if s.WebsiteID != "site-a" {
			t.Errorf("ByWebsiteID returned step of website %q", s.WebsiteID)
		}
	}

	if got := c.ByWebsiteID("missing"); len(got) != 0 {
		t.Errorf("ByWebsiteID(missing) = %d steps, want 0", len(got))
	}
}

func TestCollection_ReplayOrder_StableTies(t *testing.T) {
	c := mustCollection(t,
		testStep("late", "site-a", 300),
		testStep("tie-first", "site-a", 100),
		testStep("other", "site-b", 50),
		testStep("tie-second", "site-a", 100),
		testStep("mid", "site-a", 200),
	)

	got := c.ReplayOrder("site-a")
	want := []string{"tie-first", "tie-second", "mid", "late"}
	for i, s := range got {
		if s.ID != want[i] {
			t.Errorf("ReplayOrder[%d] = %q, want %q", i, s.ID, want[i])
		}
	}
}

func TestCollection_NextExecutionOrder(t *testing.T) {
	c := mustCollection(t)

	if got := c.NextExecutionOrder("site-a"); got != BaseExecutionOrder {
		t.Errorf("empty collection: got %d, want %d", got, BaseExecutionOrder)
	}

	if _, err := c.Add(testStep("s1", "site-a", 100)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := c.NextExecutionOrder("site-a"); got != 200 {
		t.Errorf("after order 100: got %d, want 200", got)
	}

	// Other websites are unaffected.
	if got := c.NextExecutionOrder("site-b"); got != BaseExecutionOrder {
		t.Errorf("other website: got %d, want %d", got, BaseExecutionOrder)
	}
}

func TestCollection_Duplicate(t *testing.T) {
	c := mustCollection(t,
		testStep("s1", "site-a", 100),
		testStep("s2", "site-a", 200),
		testStep("x1", "site-b", 900),
	)

	dup, err := c.Duplicate("s1")
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	if dup.ID == "s1" || dup.ID == "" {
		t.Errorf("duplicate ID = %q, want a new ID", dup.ID)
	}
	if dup.ExecutionOrder != 300 {
		t.Errorf("ExecutionOrder = %d, want 300", dup.ExecutionOrder)
	}
	if dup.WebsiteID != "site-a" {
		t.Errorf("WebsiteID = %q, want site-a", dup.WebsiteID)
	}
	if dup.Value != "value-s1_copy" {
		t.Errorf("Value = %q, want value-s1_copy", dup.Value)
	}
	if c.Len() != 4 {
		t.Errorf("Len = %d, want 4", c.Len())
	}

	all := c.All()
	if all[len(all)-1].ID != dup.ID {
		t.Error("duplicate should be appended at the end")
	}
}

func TestCollection_Duplicate_NotFound(t *testing.T) {
	c := mustCollection(t)
	if _, err := c.Duplicate("nope"); !errors.Is(err, ErrStepNotFound) {
		t.Errorf("got %v, want ErrStepNotFound", err)
	}
}

func TestCollection_Update(t *testing.T) {
	c := mustCollection(t, testStep("s1", "site-a", 100))

	value := "new"
	order := 500
	if !c.Update("s1", Patch{Value: &value, ExecutionOrder: &order}) {
		t.Fatal("Update returned false for existing step")
	}

	got, _ := c.Get("s1")
	if got.Value != "new" || got.ExecutionOrder != 500 {
		t.Errorf("Update not applied: %+v", got)
	}
	if got.WebsiteID != "site-a" {
		t.Errorf("unpatched field changed: WebsiteID = %q", got.WebsiteID)
	}

	if c.Update("missing", Patch{Value: &value}) {
		t.Error("Update should return false for missing step")
	}
}

func TestCollection_Delete(t *testing.T) {
	c := mustCollection(t,
		testStep("s1", "site-a", 100),
		testStep("s2", "site-a", 200),
		testStep("s3", "site-a", 300),
	)

	if !c.Delete("s2") {
		t.Fatal("Delete returned false for existing step")
	}
	if c.Delete("s2") {
		t.Error("second Delete should return false")
	}

	all := c.All()
	if len(all) != 2 || all[0].ID != "s1" || all[1].ID != "s3" {
		t.Errorf("All after delete = %v", ids(all))
	}
}

func TestCollection_Clone_Independent(t *testing.T) {
	c := mustCollection(t, testStep("s1", "site-a", 100))
	cpy := c.Clone()

	value := "changed"
	cpy.Update("s1", Patch{Value: &value})
	if _, err := cpy.Add(testStep("s2", "site-a", 200)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	orig, _ := c.Get("s1")
	if orig.Value == "changed" {
		t.Error("clone mutation leaked into original")
	}
	if c.Len() != 1 {
		t.Errorf("original Len = %d, want 1", c.Len())
	}
}

func ids(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.ID
	}
	return out
}
