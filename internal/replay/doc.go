// Package replay runs a website's steps against a page and records the
// outcome as a RunResult.
//
// Architecture:
//
//	┌───────────────────────────────────────────────────────────┐
//	│                    Engine (engine.go)                      │
//	│  ┌──────────────┐  ┌──────────────┐  ┌─────────────────┐  │
//	│  │  StepSource  │  │  Dispatcher  │  │ResultRepository │  │
//	│  │(step.Registry)│ │  (action)    │  │ (repository.go) │  │
//	│  └──────────────┘  └──────────────┘  └─────────────────┘  │
//	│                                                            │
//	│  Per step:                                                 │
//	│  1. Validate (configuration errors end the run)            │
//	│  2. Substitute {{variables}} in value, url, locators       │
//	│  3. Dispatch, racing the executor against the step timeout │
//	│  4. Retry transient failures up to the step's bound        │
//	│  5. Advance progress, save, publish, after-wait            │
//	└───────────────────────────────────────────────────────────┘
//
// # Run lifecycle
//
//	in_progress ──▶ success
//	     │
//	     └───────▶ failed
//
// Terminal states are final. Every run creates a new RunResult, and
// CurrentStepIndex always counts the steps that completed, so a caller
// can resume a failed run with RunRequest.StartIndex.
//
// # Time
//
// All waits and timeouts go through the Clock interface so tests can
// drive the engine without sleeping.
//
// # Thread Safety
//
// Engine is safe for concurrent use. Only one run per website may be in
// progress at a time; steps of a run are strictly sequential.
package replay
