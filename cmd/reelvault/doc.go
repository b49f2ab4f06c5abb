// Command reelvault is the operator CLI. Catalog inspection and edits open the
// store directly; submission, handle lookups, mirroring, and status go through
// the daemon HTTP API.
package main
