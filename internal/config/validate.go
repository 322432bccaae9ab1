package config

import (
	"errors"
	"fmt"

	"github.com/himanishpuri/BreakFinder/pkg/logger"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if _, ok := logger.ParseLevel(c.Logging.Level); !ok {
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	if c.Cache.TTLHours < 0 {
		return errors.New("cache.ttl_hours must be non-negative")
	}
	if !c.Storage.Disabled && c.Storage.DBPath == "" {
		return errors.New("storage.db_path must be set unless storage is disabled")
	}
	return nil
}

func (c *Config) validateMedia() error {
	if c.Media.EpisodePath == "" {
		return errors.New("media.episode_path must be set")
	}
	if c.Media.StartJingle == "" || c.Media.EndJingle == "" {
		return errors.New("media.start_jingle and media.end_jingle must be set")
	}
	return nil
}

func (c *Config) validateDetection() error {
	if c.Detection.Threshold < 0 {
		return errors.New("detection.threshold must be non-negative")
	}
	if c.Detection.Precision < 0 {
		return errors.New("detection.precision must be non-negative")
	}
	if c.Detection.SampleRate < 0 {
		return errors.New("detection.sample_rate must be non-negative")
	}
	if c.Detection.BlockSize < 0 {
		return errors.New("detection.block_size must be non-negative")
	}
	if _, err := c.PeakRemovalMode(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxUploadMiB <= 0 {
		return errors.New("server.max_upload_mib must be positive")
	}
	return nil
}
