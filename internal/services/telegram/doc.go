// Package telegram is a minimal Telegram Bot API client covering the calls the
// vault needs: duplicating messages into the vault channel, resolving file
// handles, and long polling channel posts.
//
// Failures reported by the Bot API surface as *APIError so callers can apply
// their own classification (IsHandleInvalid for stale file identifiers).
package telegram
