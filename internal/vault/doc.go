// Package vault keeps catalog handles usable by mirroring every resource into
// a durable archive channel and repairing stale handles from that archive.
//
// Four pieces cooperate around an injected Catalog:
//   - MirrorWriter duplicates newly cataloged resources into the vault on a
//     worker pool and records the resulting archive location.
//   - Detector guards every handle use; a provider rejection flags the record
//     so the stale handle is never served again.
//   - Reconciler consumes archive-channel notifications and writes the fresh
//     handle back, resolving by archive location first and content key second.
//   - Engine is the facade the daemon and CLI call.
//
// Handle state only moves fresh -> pending refresh -> fresh. Every store
// mutation is idempotent, so duplicated or reordered notifications are safe.
package vault
