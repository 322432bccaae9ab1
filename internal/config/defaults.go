package config

import (
	"github.com/himanishpuri/BreakFinder/pkg/breakfinder"
	"github.com/himanishpuri/BreakFinder/pkg/breakfinder/locator"
)

const (
	defaultCacheDir     = "~/.cache/breakfinder"
	defaultCacheTTLHour = 30 * 24
	defaultPeakRemoval  = "mask"
	defaultLogLevel     = "info"
	defaultServerPort   = 8080
	defaultMaxUploadMiB = 512
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Media: Media{
			EpisodePath: breakfinder.DefaultEpisodePath,
			StartJingle: breakfinder.DefaultStartJinglePath,
			EndJingle:   breakfinder.DefaultEndJinglePath,
		},
		Storage: Storage{
			DBPath: breakfinder.DefaultDBPath,
		},
		Cache: Cache{
			Dir:      defaultCacheDir,
			TTLHours: defaultCacheTTLHour,
		},
		Detection: Detection{
			Threshold:   breakfinder.DefaultThreshold,
			Precision:   locator.DefaultPrecision,
			PeakRemoval: defaultPeakRemoval,
		},
		Server: Server{
			Port:           defaultServerPort,
			AllowedOrigins: []string{"*"},
			MaxUploadMiB:   defaultMaxUploadMiB,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
	}
}
