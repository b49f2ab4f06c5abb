package main

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"reelvault/internal/api"
	"reelvault/internal/catalog"
	"reelvault/internal/config"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

// JSONMode reports whether --json was passed.
func (c *commandContext) JSONMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withStore opens the catalog for the duration of fn.
func (c *commandContext) withStore(fn func(*catalog.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func (c *commandContext) apiAddress() (string, error) {
	if c.apiFlag != nil {
		if value := strings.TrimSpace(*c.apiFlag); value != "" {
			return value, nil
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(cfg.Paths.APIBind) == "" {
		return "", errors.New("daemon API is disabled: paths.api_bind is empty")
	}
	return cfg.Paths.APIBind, nil
}

func (c *commandContext) apiClient() (*api.Client, error) {
	address, err := c.apiAddress()
	if err != nil {
		return nil, err
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return api.NewClient(api.BaseURLFromBind(address), cfg.Paths.APIToken), nil
}

func wrapDaemonError(err error, address string) error {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Errorf("connect to daemon at %s: no daemon is listening; start it with `reelvault daemon run`", address)
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
