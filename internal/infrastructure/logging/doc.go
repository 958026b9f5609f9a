// Package logging provides structured logging for Autofill Core.
//
// It wraps log/slog so every component logs the same way:
//
//   - JSON output by default, text for local development
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// Configuration comes from the logging section of the config file:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Never log variable values supplied to a run; they routinely hold
// credentials. Log variable names instead.
package logging
