// Package services defines shared utilities consumed by the pipeline stages
// and the command line.
//
// Key responsibilities:
//   - Context helpers that stamp task IDs, stage names, and run identifiers
//     for logging.
//   - Structured error markers plus the Wrap helper so callers can tell a
//     skippable malformed record from a fatal duplicate or misconfiguration.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
