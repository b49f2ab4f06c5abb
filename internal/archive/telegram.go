package archive

import (
	"context"
	"log/slog"
	"time"

	"reelvault/internal/catalog"
	"reelvault/internal/logging"
	"reelvault/internal/services"
	"reelvault/internal/services/telegram"
	"reelvault/internal/vault"
)

// BotAPI is the subset of the Telegram client the archive adapters call.
type BotAPI interface {
	CopyMessage(ctx context.Context, toChatID, fromChatID, msgID int64, caption string) (int64, error)
	SendVideo(ctx context.Context, chatID int64, fileID, caption string) (*telegram.Message, error)
	GetFile(ctx context.Context, fileID string) (*telegram.File, error)
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration, allowed []string) ([]telegram.Update, error)
}

var _ BotAPI = (*telegram.Client)(nil)

// Telegram duplicates resources into the vault channel and resolves handles.
type Telegram struct {
	client      BotAPI
	vaultChatID int64
	logger      *slog.Logger
}

var (
	_ vault.Archiver = (*Telegram)(nil)
	_ vault.Fetcher  = (*Telegram)(nil)
)

// NewTelegram builds the adapter for the given vault chat.
func NewTelegram(client BotAPI, vaultChatID int64, logger *slog.Logger) *Telegram {
	return &Telegram{
		client:      client,
		vaultChatID: vaultChatID,
		logger:      logging.NewComponentLogger(logger, "archive"),
	}
}

// DuplicateToArchive copies the origin message into the vault when one is
// known and falls back to re-sending the video by handle.
func (t *Telegram) DuplicateToArchive(ctx context.Context, src vault.Source) (catalog.ArchiveLocation, error) {
	if t.vaultChatID == 0 {
		return catalog.ArchiveLocation{}, services.Wrap(services.ErrArchiveUnavailable, "archive", "duplicate", "vault chat is not configured", nil)
	}

	if src.Origin != nil && src.Origin.Valid() {
		msgID, err := t.client.CopyMessage(ctx, t.vaultChatID, src.Origin.ChatID, src.Origin.MessageID, src.Caption)
		if err == nil {
			return catalog.ArchiveLocation{ChatID: t.vaultChatID, MessageID: msgID}, nil
		}
		if ctx.Err() != nil {
			return catalog.ArchiveLocation{}, services.Wrap(services.ErrArchiveUnavailable, "archive", "copyMessage", "", err)
		}
		t.logger.Debug("copy from origin failed; sending by handle",
			logging.Int64(logging.FieldRecordID, int64(src.RecordID)),
			logging.String("origin", src.Origin.String()),
			logging.Error(err),
		)
	}

	msg, err := t.client.SendVideo(ctx, t.vaultChatID, src.Handle, src.Caption)
	if err != nil {
		return catalog.ArchiveLocation{}, services.Wrap(services.ErrArchiveUnavailable, "archive", "sendVideo", "", err)
	}
	chatID := msg.Chat.ID
	if chatID == 0 {
		chatID = t.vaultChatID
	}
	return catalog.ArchiveLocation{ChatID: chatID, MessageID: msg.MessageID}, nil
}

// FetchByHandle resolves the handle through getFile.
func (t *Telegram) FetchByHandle(ctx context.Context, handle string) (*vault.Content, error) {
	file, err := t.client.GetFile(ctx, handle)
	if err != nil {
		if telegram.IsHandleInvalid(err) {
			return nil, services.Wrap(services.ErrHandleInvalid, "archive", "getFile", "", err)
		}
		return nil, services.Wrap(services.ErrTransport, "archive", "getFile", "", err)
	}
	return &vault.Content{
		Handle:     handle,
		ContentKey: file.FileUniqueID,
		FilePath:   file.FilePath,
		Size:       file.FileSize,
	}, nil
}
