// Package services defines shared utilities consumed by the vault engine and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp record IDs, components, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that let the engine tell a
//     stale handle apart from a transport failure without string matching.
//
// Use these helpers when wiring new capabilities so operational behaviour
// (error classification, observability) stays uniform across the engine.
package services
