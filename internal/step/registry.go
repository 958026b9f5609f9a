package step

import (
	"context"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Registry.
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

// Registry runs the step use cases over a Repository.
//
// Every mutating use case is a single load → mutate → save cycle on a
// freshly loaded Collection. The mutex serialises those cycles so two
// writers never interleave; reads only take the read lock.
//
// All public methods are thread-safe.
type Registry struct {
	repo   Repository
	mu     sync.RWMutex
	logger Logger
}

// NewRegistry creates a new step registry.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// GetStep retrieves a step by ID.
func (r *Registry) GetStep(ctx context.Context, id string) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, err := r.repo.Load(ctx)
	if err != nil {
		return Step{}, fmt.Errorf("loading steps: %w", err)
	}
	s, ok := c.Get(id)
	if !ok {
		return Step{}, ErrStepNotFound
	}
	return s, nil
}

// ListAll returns every step in insertion order.
func (r *Registry) ListAll(ctx context.Context) ([]Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, err := r.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading steps: %w", err)
	}
	return c.All(), nil
}

// ListByWebsite returns a website's steps in insertion order.
func (r *Registry) ListByWebsite(ctx context.Context, websiteID string) ([]Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, err := r.repo.LoadByWebsiteID(ctx, websiteID)
	if err != nil {
		return nil, fmt.Errorf("loading steps: %w", err)
	}
	return c.ByWebsiteID(websiteID), nil
}

// ReplaySteps returns a website's steps in replay order.
func (r *Registry) ReplaySteps(ctx context.Context, websiteID string) ([]Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, err := r.repo.LoadByWebsiteID(ctx, websiteID)
	if err != nil {
		return nil, fmt.Errorf("loading steps: %w", err)
	}
	return c.ReplayOrder(websiteID), nil
}

// NextExecutionOrder returns the order a new step for the website should get.
func (r *Registry) NextExecutionOrder(ctx context.Context, websiteID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, err := r.repo.LoadByWebsiteID(ctx, websiteID)
	if err != nil {
		return 0, fmt.Errorf("loading steps: %w", err)
	}
	return c.NextExecutionOrder(websiteID), nil
}

// CreateStep validates and stores a new step with its execution order
// as given, zero included.
func (r *Registry) CreateStep(ctx context.Context, s Step) (Step, error) {
	return r.create(ctx, s, false)
}

// AppendStep stores a new step after the website's existing steps. The
// order is assigned under the registry lock, so concurrent appends never
// share one.
func (r *Registry) AppendStep(ctx context.Context, s Step) (Step, error) {
	return r.create(ctx, s, true)
}

func (r *Registry) create(ctx context.Context, s Step, appendOrder bool) (Step, error) {
	var created Step
	err := r.mutate(ctx, func(c *Collection) error {
		if appendOrder {
			s.ExecutionOrder = c.NextExecutionOrder(s.WebsiteID)
		}
		if err := ValidateStep(s); err != nil {
			return err
		}
		var err error
		created, err = c.Add(s)
		return err
	})
	if err != nil {
		return Step{}, err
	}

	r.logger.Info("step created",
		"step_id", created.ID,
		"website_id", created.WebsiteID,
		"action", created.Action,
		"execution_order", created.ExecutionOrder,
	)
	return created, nil
}

// UpdateStep merges patch over an existing step and validates the result.
func (r *Registry) UpdateStep(ctx context.Context, id string, patch Patch) (Step, error) {
	var updated Step
	err := r.mutate(ctx, func(c *Collection) error {
		current, ok := c.Get(id)
		if !ok {
			return ErrStepNotFound
		}
		candidate := patch.Apply(current)
		candidate.ID = id
		if err := ValidateStep(candidate); err != nil {
			return err
		}
		c.Replace(candidate)
		updated = candidate
		return nil
	})
	if err != nil {
		return Step{}, err
	}

	r.logger.Info("step updated", "step_id", id, "website_id", updated.WebsiteID)
	return updated, nil
}

// DeleteStep removes a step.
func (r *Registry) DeleteStep(ctx context.Context, id string) error {
	err := r.mutate(ctx, func(c *Collection) error {
		if !c.Delete(id) {
			return ErrStepNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Info("step deleted", "step_id", id)
	return nil
}

// DuplicateStep copies a step to the end of its website's sequence.
func (r *Registry) DuplicateStep(ctx context.Context, id string) (Step, error) {
	var dup Step
	err := r.mutate(ctx, func(c *Collection) error {
		var err error
		dup, err = c.Duplicate(id)
		return err
	})
	if err != nil {
		return Step{}, err
	}

	r.logger.Info("step duplicated",
		"source_id", id,
		"step_id", dup.ID,
		"execution_order", dup.ExecutionOrder,
	)
	return dup, nil
}

// mutate runs fn over a freshly loaded collection and saves it when fn
// succeeds. Nothing is written when fn fails.
func (r *Registry) mutate(ctx context.Context, fn func(c *Collection) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading steps: %w", err)
	}
	if err := fn(c); err != nil {
		return err
	}
	if err := r.repo.Save(ctx, c); err != nil {
		return fmt.Errorf("saving steps: %w", err)
	}
	return nil
}
