// Package config loads BreakFinder settings from a TOML file, a .env file and the
// environment, in that order of increasing precedence. Command-line flags are applied by
// the callers on top of the returned Config.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/himanishpuri/BreakFinder/pkg/breakfinder"
	"github.com/himanishpuri/BreakFinder/pkg/breakfinder/locator"
)

//go:embed sample_config.toml
var sampleConfig string

const projectConfigFile = "breakfinder.toml"

// Media holds the episode and jingle locations.
type Media struct {
	EpisodePath string `toml:"episode_path"`
	StartJingle string `toml:"start_jingle"`
	EndJingle   string `toml:"end_jingle"`
	TempDir     string `toml:"temp_dir"`
}

type Feed struct {
	URL          string `toml:"url"`
	InstallYTDLP bool   `toml:"install_ytdlp"`
}

type Storage struct {
	DBPath   string `toml:"db_path"`
	Disabled bool   `toml:"disabled"`
}

// Cache configures the on-disk result cache. An empty Dir disables it.
type Cache struct {
	Dir      string `toml:"dir"`
	TTLHours int    `toml:"ttl_hours"`
}

// Detection holds the correlation settings passed to the locator.
type Detection struct {
	Threshold   float64 `toml:"threshold"`
	Precision   int     `toml:"precision"`
	SampleRate  int     `toml:"sample_rate"`
	Normalize   bool    `toml:"normalize"`
	PeakRemoval string  `toml:"peak_removal"`
	BlockSize   int     `toml:"block_size"`
}

type Server struct {
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
	MaxUploadMiB   int      `toml:"max_upload_mib"`
}

type Logging struct {
	Level string `toml:"level"`
}

// Config encapsulates all configuration values for BreakFinder.
type Config struct {
	Media     Media     `toml:"media"`
	Feed      Feed      `toml:"feed"`
	Storage   Storage   `toml:"storage"`
	Cache     Cache     `toml:"cache"`
	Detection Detection `toml:"detection"`
	Server    Server    `toml:"server"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/breakfinder/config.toml")
}

// Load locates, parses, and validates a configuration file. It returns the config, the
// resolved file path and whether that file existed. A missing file is not an error.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadDotEnv(filepath.Dir(resolvedPath)); err != nil {
		return nil, "", false, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// resolveConfigPath prefers an explicit path, then ./breakfinder.toml, then the per-user file.
func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	projectPath, err := filepath.Abs(projectConfigFile)
	if err != nil {
		return "", false, err
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	for name, p := range map[string]*string{
		"media.episode_path": &c.Media.EpisodePath,
		"media.start_jingle": &c.Media.StartJingle,
		"media.end_jingle":   &c.Media.EndJingle,
		"media.temp_dir":     &c.Media.TempDir,
		"storage.db_path":    &c.Storage.DBPath,
		"cache.dir":          &c.Cache.Dir,
	} {
		if *p, err = expandPath(strings.TrimSpace(*p)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	c.Feed.URL = strings.TrimSpace(c.Feed.URL)
	c.Detection.PeakRemoval = strings.ToLower(strings.TrimSpace(c.Detection.PeakRemoval))
	if c.Detection.PeakRemoval == "" {
		c.Detection.PeakRemoval = defaultPeakRemoval
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	for i := range c.Server.AllowedOrigins {
		c.Server.AllowedOrigins[i] = strings.TrimSpace(c.Server.AllowedOrigins[i])
	}
	return nil
}

// PeakRemovalMode maps the configured name onto the locator's removal mode.
func (c *Config) PeakRemovalMode() (locator.PeakRemoval, error) {
	removal, ok := locator.ParsePeakRemoval(c.Detection.PeakRemoval)
	if !ok {
		return 0, fmt.Errorf("detection.peak_removal must be \"mask\" or \"compact\", got %q", c.Detection.PeakRemoval)
	}
	return removal, nil
}

// CacheTTL returns the cache entry lifetime. Zero means entries never expire.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// ServiceOptions translates the config into breakfinder service options.
func (c *Config) ServiceOptions() ([]breakfinder.Option, error) {
	removal, err := c.PeakRemovalMode()
	if err != nil {
		return nil, err
	}

	opts := []breakfinder.Option{
		breakfinder.WithEpisodePath(c.Media.EpisodePath),
		breakfinder.WithJingles(c.Media.StartJingle, c.Media.EndJingle),
		breakfinder.WithThreshold(c.Detection.Threshold),
		breakfinder.WithPrecision(c.Detection.Precision),
		breakfinder.WithSampleRate(c.Detection.SampleRate),
		breakfinder.WithNormalization(c.Detection.Normalize),
		breakfinder.WithPeakRemoval(removal),
	}
	if c.Detection.BlockSize > 0 {
		opts = append(opts, breakfinder.WithBlockSize(c.Detection.BlockSize))
	}
	if c.Media.TempDir != "" {
		opts = append(opts, breakfinder.WithTempDir(c.Media.TempDir))
	}
	if c.Feed.URL != "" {
		opts = append(opts, breakfinder.WithFeedURL(c.Feed.URL))
	}
	if c.Feed.InstallYTDLP {
		opts = append(opts, breakfinder.WithYTDLPInstall(true))
	}
	if c.Storage.Disabled {
		opts = append(opts, breakfinder.WithoutStorage())
	} else {
		opts = append(opts, breakfinder.WithDBPath(c.Storage.DBPath))
	}
	if c.Cache.Dir != "" {
		opts = append(opts, breakfinder.WithCacheDir(c.Cache.Dir, c.CacheTTL()))
	} else {
		opts = append(opts, breakfinder.WithoutCache())
	}
	return opts, nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
