// Package services defines shared utilities consumed by the session engine,
// the daemon, and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, task names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper, and StatusFor which
//     translates frame failures into the status reported on the wire.
//
// Hard failures (malformed input, oversize frames, out-of-catalog steps) are
// tagged with these markers so every layer classifies them the same way.
package services
