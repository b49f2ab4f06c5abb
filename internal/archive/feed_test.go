package archive_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"reelvault/internal/archive"
	"reelvault/internal/catalog"
	"reelvault/internal/logging"
	"reelvault/internal/services/telegram"
	"reelvault/internal/vault"
)

type recordingApplier struct {
	mu            sync.Mutex
	notifications []vault.Notification
}

func (a *recordingApplier) OnArchiveNotification(_ context.Context, n vault.Notification) (vault.Outcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notifications = append(a.notifications, n)
	return vault.Outcome{Kind: vault.OutcomeRefreshed}, nil
}

func (a *recordingApplier) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.notifications)
}

// flakyApplier fails the first failures calls, then records like recordingApplier.
type flakyApplier struct {
	recordingApplier
	failures int
}

func (a *flakyApplier) OnArchiveNotification(ctx context.Context, n vault.Notification) (vault.Outcome, error) {
	a.mu.Lock()
	if a.failures > 0 {
		a.failures--
		a.mu.Unlock()
		return vault.Outcome{}, errors.New("catalog unavailable")
	}
	a.mu.Unlock()
	return a.recordingApplier.OnArchiveNotification(ctx, n)
}

type scriptedBot struct {
	archive.BotAPI
	mu      sync.Mutex
	batches [][]telegram.Update
	offsets []int64
}

func (b *scriptedBot) GetUpdates(ctx context.Context, offset int64, _ time.Duration, _ []string) ([]telegram.Update, error) {
	b.mu.Lock()
	b.offsets = append(b.offsets, offset)
	if len(b.batches) > 0 {
		batch := b.batches[0]
		b.batches = b.batches[1:]
		b.mu.Unlock()
		return batch, nil
	}
	b.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func videoPost(updateID, chatID, messageID int64, uniqueID, fileID string) telegram.Update {
	return telegram.Update{
		UpdateID: updateID,
		ChannelPost: &telegram.Message{
			MessageID: messageID,
			Chat:      telegram.Chat{ID: chatID, Type: "channel"},
			Video:     &telegram.Video{FileID: fileID, FileUniqueID: uniqueID},
		},
	}
}

func TestNotificationFromUpdate(t *testing.T) {
	n, ok := archive.NotificationFromUpdate(videoPost(1, -100, 42, "abc123", "H2"), -100)
	if !ok {
		t.Fatal("expected notification")
	}
	want := vault.Notification{Location: catalog.ArchiveLocation{ChatID: -100, MessageID: 42}, ContentKey: "abc123", FreshHandle: "H2"}
	if n != want {
		t.Fatalf("notification = %#v, want %#v", n, want)
	}

	if _, ok := archive.NotificationFromUpdate(videoPost(2, -200, 42, "abc123", "H2"), -100); ok {
		t.Fatal("posts outside the vault chat must be ignored")
	}
	textOnly := telegram.Update{UpdateID: 3, ChannelPost: &telegram.Message{MessageID: 1, Chat: telegram.Chat{ID: -100}}}
	if _, ok := archive.NotificationFromUpdate(textOnly, -100); ok {
		t.Fatal("posts without video must be ignored")
	}
	if _, ok := archive.NotificationFromUpdate(telegram.Update{UpdateID: 4}, -100); ok {
		t.Fatal("updates without channel post must be ignored")
	}
}

func TestFeedProcessDropsDuplicatesAndAdvancesOffset(t *testing.T) {
	applier := &recordingApplier{}
	feed := archive.NewFeed(&scriptedBot{}, -100, applier, logging.NewNop())

	post := videoPost(10, -100, 42, "abc123", "H2")
	feed.Process(context.Background(), []telegram.Update{post, post, videoPost(11, -200, 1, "x", "y")})
	feed.Process(context.Background(), []telegram.Update{post})

	if applier.count() != 1 {
		t.Fatalf("expected one applied notification, got %d", applier.count())
	}
	if feed.Offset() != 12 {
		t.Fatalf("expected offset 12, got %d", feed.Offset())
	}
}

func TestFeedProcessKeepsFailedUpdateForRetry(t *testing.T) {
	applier := &flakyApplier{}
	feed := archive.NewFeed(&scriptedBot{}, -100, applier, logging.NewNop())

	batch := []telegram.Update{
		videoPost(20, -100, 41, "aaa", "H1"),
		videoPost(21, -100, 42, "abc123", "H2"),
		videoPost(22, -100, 43, "def456", "H3"),
	}
	if err := feed.Process(context.Background(), batch[:1]); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	applier.mu.Lock()
	applier.failures = 1
	applier.mu.Unlock()
	if err := feed.Process(context.Background(), batch[1:]); err == nil {
		t.Fatal("expected apply failure to be reported")
	}
	if feed.Offset() != 21 {
		t.Fatalf("expected offset to stay on failed update 21, got %d", feed.Offset())
	}
	if applier.count() != 1 {
		t.Fatalf("expected only the first update applied, got %d", applier.count())
	}

	// The next poll redelivers everything from the failed update on.
	if err := feed.Process(context.Background(), batch); err != nil {
		t.Fatalf("retry Process returned error: %v", err)
	}
	if applier.count() != 3 {
		t.Fatalf("expected the failed update and its successor applied on retry, got %d", applier.count())
	}
	applier.mu.Lock()
	got := applier.notifications[1].FreshHandle
	applier.mu.Unlock()
	if got != "H2" {
		t.Fatalf("expected retried notification H2, got %s", got)
	}
	if feed.Offset() != 23 {
		t.Fatalf("expected offset 23 after retry, got %d", feed.Offset())
	}
}

func TestFeedRunPollsUntilCancelled(t *testing.T) {
	bot := &scriptedBot{batches: [][]telegram.Update{
		{videoPost(5, -100, 42, "abc123", "H2")},
		{videoPost(6, -100, 43, "def456", "H3")},
	}}
	applier := &recordingApplier{}
	feed := archive.NewFeed(bot, -100, applier, logging.NewNop(), archive.WithPollTimeout(time.Second), archive.WithDedup(16, time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for applier.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop after cancel")
	}
	if applier.count() != 2 {
		t.Fatalf("expected 2 notifications, got %d", applier.count())
	}
	bot.mu.Lock()
	defer bot.mu.Unlock()
	if len(bot.offsets) < 3 || bot.offsets[0] != 0 || bot.offsets[1] != 6 || bot.offsets[2] != 7 {
		t.Fatalf("unexpected offsets %v", bot.offsets)
	}
}
