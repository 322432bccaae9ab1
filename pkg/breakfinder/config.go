package breakfinder

import (
	"io"
	"time"

	"github.com/himanishpuri/BreakFinder/pkg/breakfinder/locator"
	"github.com/himanishpuri/BreakFinder/pkg/breakfinder/storage"
)

const (
	DefaultEpisodePath     = "./media/episode.mp3"
	DefaultStartJinglePath = "./media/start_jingle.mp3"
	DefaultEndJinglePath   = "./media/end_jingle.mp3"
	DefaultDBPath          = storage.DefaultDBFile
	DefaultThreshold       = 10.0
)

type Config struct {
	EpisodePath     string
	StartJinglePath string
	EndJinglePath   string
	FeedURL         string
	// InstallYTDLP lets the downloader fetch yt-dlp when an episode only links to YouTube.
	InstallYTDLP bool

	DBPath   string
	TempDir  string
	CacheDir string
	CacheTTL time.Duration
	// NoStorage skips persisting analyses.
	NoStorage bool
	// NoCache disables the result cache entirely.
	NoCache bool

	Threshold   float64
	Precision   int
	SampleRate  int // 0 analyzes at the episode's native rate
	Normalize   bool
	PeakRemoval locator.PeakRemoval
	BlockSize   int

	Progress   io.Writer
	Logger     Logger
	Storage    Storage
	Decoder    AudioDecoder
	Feed       FeedSource
	Downloader Downloader
}

type Option func(*Config)

func WithEpisodePath(path string) Option {
	return func(c *Config) {
		c.EpisodePath = path
	}
}

func WithJingles(start, end string) Option {
	return func(c *Config) {
		c.StartJinglePath = start
		c.EndJinglePath = end
	}
}

func WithFeedURL(url string) Option {
	return func(c *Config) {
		c.FeedURL = url
	}
}

func WithYTDLPInstall(enabled bool) Option {
	return func(c *Config) {
		c.InstallYTDLP = enabled
	}
}

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

// WithCacheDir enables the on-disk result cache.
func WithCacheDir(dir string, ttl time.Duration) Option {
	return func(c *Config) {
		c.CacheDir = dir
		c.CacheTTL = ttl
	}
}

func WithoutStorage() Option {
	return func(c *Config) {
		c.NoStorage = true
	}
}

func WithoutCache() Option {
	return func(c *Config) {
		c.NoCache = true
	}
}

func WithThreshold(threshold float64) Option {
	return func(c *Config) {
		c.Threshold = threshold
	}
}

func WithPrecision(decimals int) Option {
	return func(c *Config) {
		c.Precision = decimals
	}
}

func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithNormalization(enabled bool) Option {
	return func(c *Config) {
		c.Normalize = enabled
	}
}

func WithPeakRemoval(removal locator.PeakRemoval) Option {
	return func(c *Config) {
		c.PeakRemoval = removal
	}
}

func WithBlockSize(size int) Option {
	return func(c *Config) {
		c.BlockSize = size
	}
}

// WithProgress sets where download progress bars are drawn.
func WithProgress(w io.Writer) Option {
	return func(c *Config) {
		c.Progress = w
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(st Storage) Option {
	return func(c *Config) {
		c.Storage = st
	}
}

func WithDecoder(decoder AudioDecoder) Option {
	return func(c *Config) {
		c.Decoder = decoder
	}
}

func WithFeedSource(source FeedSource) Option {
	return func(c *Config) {
		c.Feed = source
	}
}

func WithDownloader(d Downloader) Option {
	return func(c *Config) {
		c.Downloader = d
	}
}

func defaultConfig() *Config {
	return &Config{
		EpisodePath:     DefaultEpisodePath,
		StartJinglePath: DefaultStartJinglePath,
		EndJinglePath:   DefaultEndJinglePath,
		DBPath:          DefaultDBPath,
		Threshold:       DefaultThreshold,
		Precision:       locator.DefaultPrecision,
		PeakRemoval:     locator.MaskPeaks,
		BlockSize:       locator.DefaultBlockSize,
	}
}
