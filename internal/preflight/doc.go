// Package preflight provides readiness checks for the filesystem paths,
// the catalog database and the Telegram Bot API that reelvault depends on.
//
// The daemon runs RunAll once at startup and logs every failed check; the
// CLI "reelvault preflight" command renders the same results as a table.
// Checks that need Telegram are skipped when no bot token is configured.
package preflight
