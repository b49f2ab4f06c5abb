// Package config loads, normalizes, and validates reelvault configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// REELVAULT_BOT_TOKEN and STORAGE_CHAT_ID. The Config type centralizes every
// knob the daemon and CLI need so the catalog backend, Telegram credentials and
// vault channel are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
