package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"reelvault/internal/catalog"
	"reelvault/internal/services/telegram"
)

const telegramCheckTimeout = 10 * time.Second

// BotAPI is the slice of the Telegram client the checks call.
type BotAPI interface {
	GetMe(ctx context.Context) (*telegram.User, error)
	GetChat(ctx context.Context, chatID int64) (*telegram.Chat, error)
}

// CheckTelegram verifies that the Bot API is reachable and the token is valid.
// A single attempt is made.
func CheckTelegram(ctx context.Context, bot BotAPI) Result {
	const name = "Telegram Bot API"

	checkCtx, cancel := context.WithTimeout(ctx, telegramCheckTimeout)
	defer cancel()

	me, err := bot.GetMe(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeTelegramError(err)}
	}
	if me.Username == "" {
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("Reachable (@%s)", me.Username)}
}

// CheckVaultChat verifies that the bot can see the vault channel.
func CheckVaultChat(ctx context.Context, bot BotAPI, chatID int64) Result {
	const name = "Vault chat"

	if chatID == 0 {
		return Result{Name: name, Detail: "not configured (mirroring disabled)"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, telegramCheckTimeout)
	defer cancel()

	chat, err := bot.GetChat(checkCtx, chatID)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%d (%s)", chatID, summarizeTelegramError(err))}
	}
	label := strings.TrimSpace(chat.Title)
	if label == "" {
		label = chat.Type
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d (%s)", chatID, label)}
}

// CheckCatalog verifies the catalog database is readable and its schema is intact.
func CheckCatalog(ctx context.Context, store *catalog.Store) Result {
	const name = "Catalog"

	health, err := store.CheckHealth(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", health.Location, err)}
	}
	if !health.DatabaseExists {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: database missing)", health.Location)}
	}
	if len(health.MissingColumns) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: missing columns %s)", health.Location, strings.Join(health.MissingColumns, ", "))}
	}
	if !health.IntegrityCheck {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: integrity check failed)", health.Location)}
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%s %s (schema v%d, %d records)", health.Backend, health.Location, health.SchemaVersion, health.TotalRecords),
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeTelegramError produces a human-readable summary for Bot API check failures.
func summarizeTelegramError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (Bot API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (Bot API unreachable)"
	}
	var apiErr *telegram.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusNotFound:
			return "auth failed (invalid bot token)"
		case http.StatusForbidden:
			return "forbidden (bot is not a member)"
		case http.StatusBadRequest:
			return apiErr.Description
		}
	}
	return err.Error()
}
