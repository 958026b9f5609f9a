package step

import (
	"fmt"
	"sort"
)

// Collection is an ordered set of steps.
//
// Steps are stored in an arena keyed by ID; order records insertion order.
// Website-scoped views are recomputed on every read so add, update and
// delete never have secondary indices to keep in step.
//
// A Collection is owned by one load → mutate → save cycle at a time and
// is not safe for concurrent mutation.
type Collection struct {
	steps map[string]Step
	order []string
}

// NewCollection creates a collection holding steps in the given order.
// Steps without an ID are assigned one; a repeated ID is an error.
func NewCollection(steps ...Step) (*Collection, error) {
	c := &Collection{steps: make(map[string]Step, len(steps))}
	for _, s := range steps {
		if _, err := c.Add(s); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Len returns the number of steps in the collection.
func (c *Collection) Len() int {
	return len(c.order)
}

// Add appends a step, generating an ID when it has none.
// Returns the stored step.
func (c *Collection) Add(s Step) (Step, error) {
	if c.steps == nil {
		c.steps = make(map[string]Step)
	}
	if s.ID == "" {
		s.ID = GenerateID()
	}
	if _, exists := c.steps[s.ID]; exists {
		return Step{}, fmt.Errorf("%w: %s", ErrStepExists, s.ID)
	}
	c.steps[s.ID] = s
	c.order = append(c.order, s.ID)
	return s, nil
}

// Update merges patch over the step with the given ID. It reports false
// when no such step exists; callers must check.
func (c *Collection) Update(id string, patch Patch) bool {
	s, ok := c.steps[id]
	if !ok {
		return false
	}
	updated := patch.Apply(s)
	updated.ID = id
	c.steps[id] = updated
	return true
}

// Replace swaps the stored step with s, keeping its position.
func (c *Collection) Replace(s Step) bool {
	if _, ok := c.steps[s.ID]; !ok {
		return false
	}
	c.steps[s.ID] = s
	return true
}

// Delete removes the step with the given ID, reporting whether it existed.
func (c *Collection) Delete(id string) bool {
	if _, ok := c.steps[id]; !ok {
		return false
	}
	delete(c.steps, id)
	for i, sid := range c.order {
		if sid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the step with the given ID.
func (c *Collection) Get(id string) (Step, bool) {
	s, ok := c.steps[id]
	return s, ok
}

// All returns every step in insertion order.
func (c *Collection) All() []Step {
	out := make([]Step, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.steps[id])
	}
	return out
}

// ByWebsiteID returns the steps of one website in insertion order.
func (c *Collection) ByWebsiteID(websiteID string) []Step {
	var out []Step
	for _, id := range c.order {
		if s := c.steps[id]; s.WebsiteID == websiteID {
			out = append(out, s)
		}
	}
	return out
}

// ReplayOrder returns the website's steps sorted by ascending execution
// order. Equal orders keep insertion order.
func (c *Collection) ReplayOrder(websiteID string) []Step {
	steps := c.ByWebsiteID(websiteID)
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].ExecutionOrder < steps[j].ExecutionOrder
	})
	return steps
}

// NextExecutionOrder returns the order a newly authored step for the
// website should get: the current maximum plus ExecutionOrderStep, or
// BaseExecutionOrder when the website has no steps.
func (c *Collection) NextExecutionOrder(websiteID string) int {
	maxOrder, ok := c.maxOrder(websiteID)
	if !ok {
		return BaseExecutionOrder
	}
	return maxOrder + ExecutionOrderStep
}

// Duplicate copies a step under a new ID and appends it. The copy is
// placed after every existing step of its website and its value is
// marked with a "_copy" suffix.
func (c *Collection) Duplicate(id string) (Step, error) {
	src, ok := c.steps[id]
	if !ok {
		return Step{}, fmt.Errorf("%w: %s", ErrStepNotFound, id)
	}
	dup := src
	dup.ID = GenerateID()
	dup.Value = src.Value + copySuffix
	dup.ExecutionOrder = c.NextExecutionOrder(src.WebsiteID)
	return c.Add(dup)
}

// Clone returns an independent copy of the collection.
func (c *Collection) Clone() *Collection {
	cpy := &Collection{
		steps: make(map[string]Step, len(c.steps)),
		order: make([]string, len(c.order)),
	}
	copy(cpy.order, c.order)
	for id, s := range c.steps {
		cpy.steps[id] = s
	}
	return cpy
}

func (c *Collection) maxOrder(websiteID string) (int, bool) {
	found := false
	maxOrder := 0
	for _, id := range c.order {
		s := c.steps[id]
		if s.WebsiteID != websiteID {
			continue
		}
		if !found || s.ExecutionOrder > maxOrder {
			maxOrder = s.ExecutionOrder
			found = true
		}
	}
	return maxOrder, found
}
