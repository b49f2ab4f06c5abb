package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelvault/internal/catalog"
	"reelvault/internal/config"
	"reelvault/internal/daemon"
	"reelvault/internal/logging"
	"reelvault/internal/testsupport"
	"reelvault/internal/vault"
)

const testAPIToken = "cli-secret"

type cliTestEnv struct {
	cfg        *config.Config
	store      *catalog.Store
	archiver   *testsupport.FakeArchiver
	fetcher    *testsupport.FakeFetcher
	daemon     *daemon.Daemon
	apiAddress string
	configPath string
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"REELVAULT_BOT_TOKEN", "BOT_TOKEN", "STORAGE_CHAT_ID", "REELVAULT_CATALOG_DSN", "REELVAULT_API_TOKEN"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// setupCLITestEnv starts a daemon backed by fake vault adapters and writes a
// matching config file.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	clearEnv(t)

	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken(testAPIToken))
	t.Setenv("HOME", filepath.Join(testsupport.BaseDir(cfg), "home"))

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	archiver := testsupport.NewFakeArchiver(-100, 42)
	fetcher := testsupport.NewFakeFetcher()
	engine := vault.NewEngine(store, archiver, fetcher, logging.NewNop())
	d, err := daemon.New(cfg, store, engine, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		_ = d.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		archiver:   archiver,
		fetcher:    fetcher,
		daemon:     d,
		apiAddress: d.APIAddress(),
		configPath: configPath,
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, args, e.apiAddress, e.configPath)
}

func runCLI(t *testing.T, args []string, apiAddress, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if apiAddress != "" {
		flags = append(flags, "--api", apiAddress)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\napi_bind = %q\napi_token = %q\n\n[telegram]\npoll_enabled = false\n\n[mirror]\nbackfill_on_start = false\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
		cfg.Paths.APIToken,
	)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
