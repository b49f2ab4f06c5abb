package archive

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"reelvault/internal/catalog"
	"reelvault/internal/logging"
	"reelvault/internal/services"
	"reelvault/internal/services/telegram"
	"reelvault/internal/vault"
)

var feedUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "reelvault_feed_updates_total",
	Help: "Vault channel updates received, by handling result.",
}, []string{"result"})

const (
	defaultPollTimeout = 30 * time.Second
	defaultDedupSize   = 4096
	defaultDedupWindow = 10 * time.Minute
	minPollBackoff     = time.Second
	maxPollBackoff     = 30 * time.Second
)

var allowedUpdates = []string{"channel_post"}

// Applier consumes vault notifications. *vault.Engine satisfies it.
type Applier interface {
	OnArchiveNotification(ctx context.Context, n vault.Notification) (vault.Outcome, error)
}

// Feed long polls the vault channel and forwards video posts to an Applier.
type Feed struct {
	client      BotAPI
	vaultChatID int64
	applier     Applier
	logger      *slog.Logger
	pollTimeout time.Duration
	seen        *expirable.LRU[int64, struct{}]
	offset      atomic.Int64
}

// FeedOption configures a Feed.
type FeedOption func(*feedSettings)

type feedSettings struct {
	pollTimeout time.Duration
	dedupSize   int
	dedupWindow time.Duration
}

// WithPollTimeout sets the getUpdates long-poll timeout.
func WithPollTimeout(d time.Duration) FeedOption {
	return func(s *feedSettings) {
		if d > 0 {
			s.pollTimeout = d
		}
	}
}

// WithDedup sizes the window of update ids remembered to drop redeliveries.
func WithDedup(size int, window time.Duration) FeedOption {
	return func(s *feedSettings) {
		if size > 0 {
			s.dedupSize = size
		}
		if window > 0 {
			s.dedupWindow = window
		}
	}
}

// NewFeed builds a feed for the given vault chat.
func NewFeed(client BotAPI, vaultChatID int64, applier Applier, logger *slog.Logger, opts ...FeedOption) *Feed {
	settings := feedSettings{
		pollTimeout: defaultPollTimeout,
		dedupSize:   defaultDedupSize,
		dedupWindow: defaultDedupWindow,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}
	return &Feed{
		client:      client,
		vaultChatID: vaultChatID,
		applier:     applier,
		logger:      logging.NewComponentLogger(logger, "feed"),
		pollTimeout: settings.pollTimeout,
		seen:        expirable.NewLRU[int64, struct{}](settings.dedupSize, nil, settings.dedupWindow),
	}
}

// NotificationFromUpdate extracts a notification from a channel post carrying
// a video in the vault chat. Anything else reports false.
func NotificationFromUpdate(u telegram.Update, vaultChatID int64) (vault.Notification, bool) {
	msg := u.ChannelPost
	if msg == nil || msg.Chat.ID != vaultChatID || msg.Video == nil {
		return vault.Notification{}, false
	}
	return vault.Notification{
		Location:    catalog.ArchiveLocation{ChatID: msg.Chat.ID, MessageID: msg.MessageID},
		ContentKey:  msg.Video.FileUniqueID,
		FreshHandle: msg.Video.FileID,
	}, true
}

// Run polls until ctx is cancelled. Poll and apply failures back off and retry.
func (f *Feed) Run(ctx context.Context) error {
	f.logger.Info("vault feed started",
		logging.Int64("vault_chat_id", f.vaultChatID),
		logging.Duration("poll_timeout", f.pollTimeout),
		logging.String(logging.FieldEventType, "feed_started"),
	)
	backoff := minPollBackoff
	for {
		if ctx.Err() != nil {
			return nil
		}
		updates, err := f.client.GetUpdates(ctx, f.offset.Load(), f.pollTimeout, allowedUpdates)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			wait := backoff
			if retryAfter, limited := telegram.IsRateLimited(err); limited && retryAfter > 0 {
				wait = time.Duration(retryAfter) * time.Second
			} else {
				backoff = min(backoff*2, maxPollBackoff)
			}
			logging.WarnWithContext(f.logger, "vault feed poll failed; retrying", "feed_poll_failed",
				logging.Error(err),
				logging.Duration("retry_in", wait),
				logging.String(logging.FieldErrorHint, "check bot token and network access to the Bot API"),
				logging.String(logging.FieldImpact, "stale handles are not refreshed until polling recovers"),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			continue
		}
		if err := f.Process(ctx, updates); err != nil {
			wait := backoff
			backoff = min(backoff*2, maxPollBackoff)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			continue
		}
		backoff = minPollBackoff
	}
}

// Process handles a batch of updates in order, advancing the poll offset past
// each one it settles. When a notification cannot be applied, processing stops
// and the offset stays on that update so the next poll delivers it again.
func (f *Feed) Process(ctx context.Context, updates []telegram.Update) error {
	for _, u := range updates {
		if f.seen.Contains(u.UpdateID) {
			feedUpdatesTotal.WithLabelValues("duplicate").Inc()
			f.advance(u.UpdateID)
			continue
		}

		n, ok := NotificationFromUpdate(u, f.vaultChatID)
		if !ok {
			feedUpdatesTotal.WithLabelValues("ignored").Inc()
			f.settle(u.UpdateID)
			continue
		}
		reqCtx := services.WithRequestID(ctx, uuid.NewString())
		outcome, err := f.applier.OnArchiveNotification(reqCtx, n)
		if err != nil {
			feedUpdatesTotal.WithLabelValues("failed").Inc()
			logging.ErrorWithContext(logging.WithContext(reqCtx, f.logger), "vault notification failed; will retry", "feed_apply_failed",
				logging.Int64("update_id", u.UpdateID),
				logging.String(logging.FieldArchiveLocation, n.Location.String()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check catalog database health"),
			)
			return fmt.Errorf("apply update %d: %w", u.UpdateID, err)
		}
		feedUpdatesTotal.WithLabelValues(string(outcome.Kind)).Inc()
		f.settle(u.UpdateID)
	}
	return nil
}

func (f *Feed) settle(updateID int64) {
	f.seen.Add(updateID, struct{}{})
	f.advance(updateID)
}

func (f *Feed) advance(updateID int64) {
	if next := updateID + 1; next > f.offset.Load() {
		f.offset.Store(next)
	}
}

// Offset is the next update id the feed will request.
func (f *Feed) Offset() int64 {
	return f.offset.Load()
}
