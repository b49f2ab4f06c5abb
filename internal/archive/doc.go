// Package archive binds the vault engine to Telegram.
//
// Telegram implements vault.Archiver and vault.Fetcher over the Bot API
// client, and Feed long polls the vault channel, turning its video posts into
// vault.Notification values for the reconciler.
package archive
