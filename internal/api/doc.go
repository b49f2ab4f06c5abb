// Package api defines the wire-format types shared by the daemon HTTP API and
// its clients, plus converters from catalog and vault models.
//
// # Key Types
//
// Resource: transport representation of a catalog record including its handle
// state and vault location.
//
// DaemonStatus: running state, catalog counts, and feed position.
//
// SubmitRequest/SubmitResponse, HandleResponse, MirrorResponse,
// NotificationRequest/NotificationResponse: request and response bodies for
// the resource and notification endpoints.
//
// # Client
//
// Client talks to a running daemon over HTTP with an optional bearer token.
// Non-2xx responses decode into *Error so callers can branch on Status.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Archive locations render as "chat:message" strings alongside their parts.
package api
