package daemonrun_test

import (
	"context"
	"testing"

	"reelvault/internal/config"
	"reelvault/internal/daemonrun"
	"reelvault/internal/logging"
	"reelvault/internal/services/telegram"
	"reelvault/internal/testsupport"
)

func newClient(t *testing.T) *telegram.Client {
	t.Helper()
	client, err := telegram.New("123:abc", "http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("telegram.New: %v", err)
	}
	return client
}

func TestBuildSkipsFeedWithoutVaultChat(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTelegram("http://127.0.0.1:1", "123:abc", 0))
	cfg.Telegram.PollEnabled = true
	store := testsupport.MustOpenStore(t, cfg)

	engine, feed := daemonrun.Build(cfg, store, newClient(t), logging.NewNop())
	if engine == nil {
		t.Fatal("expected engine")
	}
	if feed != nil {
		t.Fatal("expected no feed without a vault chat")
	}
}

func TestBuildEnablesFeedWhenPolling(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTelegram("http://127.0.0.1:1", "123:abc", -100))
	cfg.Telegram.PollEnabled = true
	store := testsupport.MustOpenStore(t, cfg)

	_, feed := daemonrun.Build(cfg, store, newClient(t), logging.NewNop())
	if feed == nil {
		t.Fatal("expected feed when polling a configured vault chat")
	}
	if feed.Offset() != 0 {
		t.Fatalf("expected zero offset, got %d", feed.Offset())
	}
}

func TestRunRequiresBotToken(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := daemonrun.Run(context.Background(), cfg); err == nil {
		t.Fatal("expected missing bot token to fail")
	}
}

func TestRunRejectsNilConfig(t *testing.T) {
	var cfg *config.Config
	if err := daemonrun.Run(context.Background(), cfg); err == nil {
		t.Fatal("expected nil config to fail")
	}
}
