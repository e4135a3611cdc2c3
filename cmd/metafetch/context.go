package main

import (
	"context"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adeilh/metafetch/internal/app"
	"github.com/adeilh/metafetch/internal/config"
	"github.com/adeilh/metafetch/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *zap.Logger
	loggerErr  error

	appOnce sync.Once
	app     *app.App
	appErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, logLevelFlag: logLevelFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*zap.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	})
	return c.logger, c.loggerErr
}

// ensureApp builds the shared pipeline once per process and preloads the
// configured Kitsu mapping.
func (c *commandContext) ensureApp(ctx context.Context) (*app.App, error) {
	c.appOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.appErr = err
			return
		}
		logger, err := c.ensureLogger()
		if err != nil {
			c.appErr = err
			return
		}
		a, err := app.New(ctx, cfg, logger)
		if err != nil {
			c.appErr = err
			return
		}
		if _, err := a.Preload(ctx); err != nil {
			_ = a.Close()
			c.appErr = err
			return
		}
		c.app = a
	})
	return c.app, c.appErr
}

func (c *commandContext) close() error {
	var err error
	if c.app != nil {
		err = c.app.Close()
		c.app = nil
	}
	if c.logger != nil {
		_ = c.logger.Sync()
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
