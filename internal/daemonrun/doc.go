// Package daemonrun assembles the daemon process: logger, catalog, Bot API
// client, vault engine, and feed. Both the reelvaultd binary and
// `reelvault daemon run` call Run.
package daemonrun
