// Package daemon coordinates the long-running reelvault process.
//
// It wires configuration, the catalog store, the vault engine, and the
// optional vault feed into a single lifecycle with flock-based locking to
// prevent multiple instances. The daemon serves a chi-routed HTTP API for
// submitting resources, serving usable handles, retrying mirrors, and
// accepting vault notifications, plus a Prometheus /metrics endpoint.
//
// Keep orchestration here: mirroring, stale detection, and reconciliation live
// in internal/vault while the daemon focuses on startup, shutdown, and
// transport.
package daemon
