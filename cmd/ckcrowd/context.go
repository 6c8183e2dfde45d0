package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"ckcrowd/internal/campaign"
	"ckcrowd/internal/config"
	"ckcrowd/internal/logging"
	"ckcrowd/internal/stage"
	"ckcrowd/internal/workflow"
)

type commandContext struct {
	configFlag *string
	levelFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, levelFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		levelFlag:  levelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.levelFlag != nil && strings.TrimSpace(*c.levelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.levelFlag))
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// withStore opens the campaign for writing and releases the lock afterwards.
func (c *commandContext) withStore(fn func(*config.Config, *campaign.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := campaign.Open(cfg.Paths.CampaignDir)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store)
}

// withRunner wires a workflow runner over a locked campaign.
func (c *commandContext) withRunner(fn func(*workflow.Runner) error) error {
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	return c.withStore(func(cfg *config.Config, store *campaign.Store) error {
		return fn(workflow.NewRunner(cfg, store, logger))
	})
}

// readStore opens the campaign for inspection without the run lock.
func (c *commandContext) readStore() (*campaign.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return campaign.OpenReadOnly(cfg.Paths.CampaignDir), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func parseStageArg(args []string) (stage.Kind, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("stage is required (one of %s)", strings.Join(stage.Names(), ", "))
	}
	return stage.Parse(args[0])
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
