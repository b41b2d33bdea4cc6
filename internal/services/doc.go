// Package services defines shared utilities consumed by the render stages and
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp episode IDs, shot IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can separate
//     fatal failures (validation, job submission, assembly) from the ones the
//     pipeline absorbs as warnings (speech synthesis, duration correction).
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
