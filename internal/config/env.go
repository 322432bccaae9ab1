package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	EnvFeedURL     = "PODCAST_RSS_URL"
	EnvDBPath      = "BREAKFINDER_DB_PATH"
	EnvEpisodePath = "BREAKFINDER_EPISODE_PATH"
	EnvStartJingle = "BREAKFINDER_START_JINGLE"
	EnvEndJingle   = "BREAKFINDER_END_JINGLE"
	EnvThreshold   = "BREAKFINDER_THRESHOLD"
	EnvCacheDir    = "BREAKFINDER_CACHE_DIR"
	EnvServerPort  = "BREAKFINDER_SERVER_PORT"
	EnvLogLevel    = "LOG_LEVEL"
)

// loadDotEnv reads .env files from the config directory and the working directory.
// Variables already set in the environment win.
func loadDotEnv(configDir string) error {
	var files []string
	seen := map[string]bool{}
	for _, dir := range []string{configDir, "."} {
		path, err := filepath.Abs(filepath.Join(dir, ".env"))
		if err != nil || seen[path] {
			continue
		}
		seen[path] = true
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			files = append(files, path)
		}
	}
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	for key, dst := range map[string]*string{
		EnvFeedURL:     &c.Feed.URL,
		EnvDBPath:      &c.Storage.DBPath,
		EnvEpisodePath: &c.Media.EpisodePath,
		EnvStartJingle: &c.Media.StartJingle,
		EnvEndJingle:   &c.Media.EndJingle,
		EnvCacheDir:    &c.Cache.Dir,
		EnvLogLevel:    &c.Logging.Level,
	} {
		if value, ok := os.LookupEnv(key); ok && value != "" {
			*dst = value
		}
	}

	if value, ok := os.LookupEnv(EnvThreshold); ok && value != "" {
		threshold, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvThreshold, err)
		}
		c.Detection.Threshold = threshold
	}
	if value, ok := os.LookupEnv(EnvServerPort); ok && value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvServerPort, err)
		}
		c.Server.Port = port
	}
	return nil
}
