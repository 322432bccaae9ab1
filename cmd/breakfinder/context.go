package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/BreakFinder/internal/config"
	"github.com/himanishpuri/BreakFinder/pkg/breakfinder"
	"github.com/himanishpuri/BreakFinder/pkg/logger"
)

type globalFlags struct {
	config   string
	db       string
	logLevel string
}

type commandContext struct {
	flags      *globalFlags
	newService serviceFactory

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(flags *globalFlags, newService serviceFactory) *commandContext {
	return &commandContext{
		flags:      flags,
		newService: newService,
	}
}

// ensureConfig loads the configuration once and applies the global flag overrides.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}

		if db := strings.TrimSpace(c.flags.db); db != "" {
			expanded, err := config.ExpandPath(db)
			if err != nil {
				c.configErr = fmt.Errorf("resolve --db: %w", err)
				return
			}
			cfg.Storage.DBPath = expanded
			cfg.Storage.Disabled = false
		}
		if lvl := strings.TrimSpace(c.flags.logLevel); lvl != "" {
			cfg.Logging.Level = lvl
		}

		level, ok := logger.ParseLevel(cfg.Logging.Level)
		if !ok {
			c.configErr = fmt.Errorf("unknown log level %q", cfg.Logging.Level)
			return
		}
		logger.SetLevel(level)

		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

// withService builds a service from the loaded configuration, runs fn and closes it.
func (c *commandContext) withService(cmd *cobra.Command, extra []breakfinder.Option, fn func(breakfinder.Service) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	opts, err := cfg.ServiceOptions()
	if err != nil {
		return err
	}
	opts = append(opts,
		breakfinder.WithLogger(logger.GetLogger()),
		breakfinder.WithProgress(cmd.ErrOrStderr()),
	)
	opts = append(opts, extra...)

	svc, err := c.newService(opts...)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warnf("Failed to close service: %v", err)
		}
	}()

	return fn(svc)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
