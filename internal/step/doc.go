// Package step holds the replay steps of Autofill Core and the ordered
// collection they live in.
//
// A step is one targeted action against a page element: type into a field,
// click, tick a checkbox, pick a select option, compare a value, capture a
// value or a screenshot, or move to another URL. Steps belong to a website
// and are replayed in ascending execution order.
//
// Architecture:
//
//	┌────────────────────────────────────────────────────────┐
//	│                Registry (registry.go)                   │
//	│  One load → mutate → save cycle per use case            │
//	│  ┌──────────────┐        ┌──────────────────────────┐   │
//	│  │  Collection  │◀──────▶│ Repository (SQLite)      │   │
//	│  │(collection.go)│       │ (repository.go)          │   │
//	│  └──────────────┘        └──────────────────────────┘   │
//	└────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Step: a single replay action with its three candidate locators
//   - Collection: arena of steps keyed by id with insertion order kept
//   - Patch: partial update merged over an existing step
//   - Registry: serialised use cases over a Repository
//
// # Ordering
//
// Execution order is the only sequencing field. Duplicates are tolerated;
// ties are broken by insertion order. New steps and duplicates are placed
// at max+100 for their website so there is room to reorder by hand.
//
// # Usage
//
//	repo := step.NewSQLiteRepository(db)
//	registry := step.NewRegistry(repo)
//
//	s, err := registry.AppendStep(ctx, step.NewStep("shop.example"))
//	ordered, err := registry.ReplaySteps(ctx, "shop.example")
package step
