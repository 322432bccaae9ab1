// Package breakfinder finds commercial breaks in podcast episodes by locating the start and
// end jingles that frame them.
package breakfinder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/BreakFinder/pkg/breakfinder/audio"
	"github.com/himanishpuri/BreakFinder/pkg/breakfinder/cache"
	"github.com/himanishpuri/BreakFinder/pkg/breakfinder/feed"
	"github.com/himanishpuri/BreakFinder/pkg/breakfinder/locator"
	"github.com/himanishpuri/BreakFinder/pkg/logger"
	"github.com/himanishpuri/BreakFinder/pkg/models"
	"github.com/himanishpuri/BreakFinder/pkg/utils"
)

var (
	ErrNoFeed          = errors.New("no podcast feed configured")
	ErrStorageDisabled = errors.New("episode storage is disabled")
)

const lockFileName = ".breakfinder.lock"

// breakService is the default implementation of the Service interface.
type breakService struct {
	storage    Storage
	cache      *cache.Cache
	decoder    AudioDecoder
	feed       FeedSource
	downloader Downloader
	locator    *locator.Locator
	log        Logger
	config     *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Threshold < 0 {
		return nil, fmt.Errorf("%w: got %g", locator.ErrInvalidThreshold, cfg.Threshold)
	}
	if cfg.Precision < 0 {
		return nil, fmt.Errorf("precision must be non-negative, got %d", cfg.Precision)
	}

	// Set default logger if none provided
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	s := &breakService{
		decoder:    cfg.Decoder,
		feed:       cfg.Feed,
		downloader: cfg.Downloader,
		log:        cfg.Logger,
		config:     cfg,
		locator: locator.New(
			locator.WithPrecision(cfg.Precision),
			locator.WithPeakRemoval(cfg.PeakRemoval),
			locator.WithNormalization(cfg.Normalize),
			locator.WithBlockSize(cfg.BlockSize),
		),
	}

	if s.decoder == nil {
		s.decoder = audio.NewDecoder(cfg.TempDir)
	}
	if s.feed == nil && cfg.FeedURL != "" {
		s.feed = feed.NewSource(cfg.FeedURL, nil)
	}
	if s.downloader == nil {
		d := feed.NewDownloader(cfg.Progress, cfg.Logger)
		d.InstallYTDLP = cfg.InstallYTDLP
		s.downloader = d
	}

	// Create or use provided storage
	switch {
	case cfg.Storage != nil:
		s.storage = cfg.Storage
	case !cfg.NoStorage:
		stor, err := NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
		s.storage = stor
	}

	if !cfg.NoCache && cfg.CacheDir != "" {
		c, err := cache.Open(cfg.CacheDir, cfg.CacheTTL)
		if err != nil {
			s.log.Warnf("Result cache disabled: %v", err)
		} else {
			s.cache = c
		}
	}

	return s, nil
}

// Run downloads the newest episode and analyzes it while holding the media lock.
func (s *breakService) Run(ctx context.Context) (*models.Analysis, error) {
	unlock, err := s.lockMedia(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	meta, path, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return s.Analyze(ctx, path, meta)
}

// FetchLatest downloads the newest feed episode to the configured episode path.
func (s *breakService) FetchLatest(ctx context.Context) (*models.EpisodeMeta, string, error) {
	unlock, err := s.lockMedia(ctx)
	if err != nil {
		return nil, "", err
	}
	defer unlock()

	return s.fetch(ctx)
}

func (s *breakService) fetch(ctx context.Context) (*models.EpisodeMeta, string, error) {
	if s.feed == nil {
		return nil, "", ErrNoFeed
	}

	meta, err := s.feed.Latest(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("reading feed: %w", err)
	}

	s.log.Infof("Downloading %s", meta.Title)
	if _, err := s.downloader.Download(ctx, meta.URL, s.config.EpisodePath); err != nil {
		return nil, "", fmt.Errorf("downloading episode: %w", err)
	}
	return meta, s.config.EpisodePath, nil
}

// lockMedia takes an exclusive lock on the episode's directory so concurrent runs do not
// overwrite the episode another run is reading.
func (s *breakService) lockMedia(ctx context.Context) (func(), error) {
	dir := filepath.Dir(s.config.EpisodePath)
	if err := utils.MakeDir(dir); err != nil {
		return nil, fmt.Errorf("creating media directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking media directory: %w", err)
	}
	if !locked {
		s.log.Infof("Waiting for another run to release %s", lock.Path())
		if _, err := lock.TryLockContext(ctx, 250*time.Millisecond); err != nil {
			return nil, fmt.Errorf("locking media directory: %w", err)
		}
	}

	return func() {
		if err := lock.Unlock(); err != nil {
			s.log.Warnf("Failed to release %s: %v", lock.Path(), err)
		}
	}, nil
}

// Analyze locates both jingles in the episode, pairs them into commercial breaks and stores
// the result. A nil meta is derived from the file's tags.
func (s *breakService) Analyze(ctx context.Context, episodePath string, meta *models.EpisodeMeta) (*models.Analysis, error) {
	if meta == nil {
		meta = describeFile(episodePath)
	}
	s.log.Infof("Analyzing %s", episodePath)

	result, err := s.locateJingles(ctx, episodePath)
	if err != nil {
		return nil, err
	}
	s.log.Infof("Start jingles: %v", result.starts)
	s.log.Infof("End jingles: %v", result.ends)

	if len(result.starts) != len(result.ends) {
		s.log.Warnf("Found %d start and %d end jingles, pairing the first %d",
			len(result.starts), len(result.ends), min(len(result.starts), len(result.ends)))
	}

	analysis := &models.Analysis{
		Episode:       *meta,
		Starts:        result.starts,
		Ends:          result.ends,
		Intervals:     PairIntervals(result.starts, result.ends),
		LengthSeconds: result.lengthSeconds,
		SampleRate:    result.sampleRate,
		Cached:        result.cached,
	}
	analysis.CommercialSeconds = TotalSeconds(analysis.Intervals)
	for _, iv := range analysis.Intervals {
		if iv.Length() < 0 {
			s.log.Warnf("Commercial ending at %.2fs precedes its start at %.2fs", iv.End, iv.Start)
		}
	}
	s.log.Infof("%.2f seconds of commercials in %d breaks", analysis.CommercialSeconds, len(analysis.Intervals))

	if s.storage != nil {
		id, err := s.storage.SaveAnalysis(episodeRecord(analysis), commercialRecords(analysis.Intervals))
		if err != nil {
			return nil, fmt.Errorf("failed to store analysis: %w", err)
		}
		analysis.EpisodeID = id
		s.log.Debugf("Stored analysis as episode %s", id)
	}

	return analysis, nil
}

type jingleResult struct {
	starts        []float64
	ends          []float64
	lengthSeconds float64
	sampleRate    int
	cached        bool
}

func (s *breakService) locateJingles(ctx context.Context, episodePath string) (*jingleResult, error) {
	startKey, endKey := s.cacheKeys(episodePath)
	if res, ok := s.cachedResult(startKey, endKey); ok {
		s.log.Infof("Using cached jingle positions")
		return res, nil
	}

	episode, err := s.decoder.Decode(ctx, episodePath, s.config.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("decoding episode: %w", err)
	}
	s.log.Infof("Decoded episode: %.1fs at %d Hz", episode.Duration(), episode.SampleRate)

	res := &jingleResult{lengthSeconds: episode.Duration(), sampleRate: episode.SampleRate}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ts, err := s.locateJingle(gctx, episode, s.config.StartJinglePath)
		if err != nil {
			return fmt.Errorf("start jingle: %w", err)
		}
		res.starts = ts
		return nil
	})
	g.Go(func() error {
		ts, err := s.locateJingle(gctx, episode, s.config.EndJinglePath)
		if err != nil {
			return fmt.Errorf("end jingle: %w", err)
		}
		res.ends = ts
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.storeCached(startKey, res.starts, res)
	s.storeCached(endKey, res.ends, res)
	return res, nil
}

func (s *breakService) locateJingle(ctx context.Context, episode locator.Signal, jinglePath string) ([]float64, error) {
	jingle, err := s.decoder.Decode(ctx, jinglePath, episode.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", jinglePath, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timestamps, err := s.locator.Locate(episode, jingle, s.config.Threshold)
	if err != nil {
		return nil, fmt.Errorf("locating %s: %w", jinglePath, err)
	}
	return timestamps, nil
}

// cacheKeys returns nil keys when caching is off or a file cannot be hashed.
func (s *breakService) cacheKeys(episodePath string) (startKey, endKey []byte) {
	if s.cache == nil {
		return nil, nil
	}

	hashes := make([]uint64, 3)
	for i, path := range []string{episodePath, s.config.StartJinglePath, s.config.EndJinglePath} {
		h, err := cache.HashFile(path)
		if err != nil {
			s.log.Debugf("Skipping result cache: %v", err)
			return nil, nil
		}
		hashes[i] = h
	}

	options := fmt.Sprintf("%s threshold=%g rate=%d", s.locator, s.config.Threshold, s.config.SampleRate)
	return cache.Key(hashes[0], hashes[1], options), cache.Key(hashes[0], hashes[2], options)
}

func (s *breakService) cachedResult(startKey, endKey []byte) (*jingleResult, bool) {
	if startKey == nil || endKey == nil {
		return nil, false
	}

	start, ok, err := s.cache.Get(startKey)
	if err != nil {
		s.log.Warnf("Result cache read failed: %v", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	end, ok, err := s.cache.Get(endKey)
	if err != nil {
		s.log.Warnf("Result cache read failed: %v", err)
		return nil, false
	}
	if !ok || start.SampleRate != end.SampleRate {
		return nil, false
	}

	return &jingleResult{
		starts:        start.Timestamps,
		ends:          end.Timestamps,
		lengthSeconds: start.EpisodeSeconds,
		sampleRate:    start.SampleRate,
		cached:        true,
	}, true
}

func (s *breakService) storeCached(key []byte, timestamps []float64, res *jingleResult) {
	if key == nil {
		return
	}
	err := s.cache.Put(key, &cache.Entry{
		Timestamps:     timestamps,
		EpisodeSeconds: res.lengthSeconds,
		SampleRate:     res.sampleRate,
	})
	if err != nil {
		s.log.Warnf("Result cache write failed: %v", err)
	}
}

// describeFile names a local episode from its embedded tags, falling back to the file name.
func describeFile(path string) *models.EpisodeMeta {
	meta := &models.EpisodeMeta{
		Title: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		URL:   path,
	}
	if abs, err := filepath.Abs(path); err == nil {
		meta.URL = "file://" + abs
	}
	if tags, err := audio.ReadTags(path); err == nil {
		if tags.Title != "" {
			meta.Title = tags.Title
		}
		meta.Number = tags.Track
	}
	return meta
}

func episodeRecord(a *models.Analysis) models.Episode {
	return models.Episode{
		Title:             a.Episode.Title,
		GUID:              a.Episode.GUID,
		URL:               a.Episode.URL,
		Number:            a.Episode.Number,
		LengthSeconds:     a.LengthSeconds,
		CommercialSeconds: a.CommercialSeconds,
		SampleRate:        a.SampleRate,
	}
}

func commercialRecords(intervals []models.Interval) []models.Commercial {
	out := make([]models.Commercial, len(intervals))
	for i, iv := range intervals {
		out[i] = models.Commercial{
			Start:  iv.Start,
			End:    iv.End,
			Length: locator.Round(iv.Length(), 2),
		}
	}
	return out
}

// GetEpisode returns a stored episode with its commercials.
func (s *breakService) GetEpisode(id string) (*models.Episode, []models.Commercial, error) {
	if s.storage == nil {
		return nil, nil, ErrStorageDisabled
	}
	ep, err := s.storage.GetEpisode(id)
	if err != nil {
		return nil, nil, err
	}
	commercials, err := s.storage.GetCommercials(id)
	if err != nil {
		return nil, nil, err
	}
	return ep, commercials, nil
}

// ListEpisodes returns all stored episodes, newest first.
func (s *breakService) ListEpisodes() ([]models.Episode, error) {
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}
	return s.storage.ListEpisodes()
}

// DeleteEpisode removes an episode and its commercials.
func (s *breakService) DeleteEpisode(id string) error {
	if s.storage == nil {
		return ErrStorageDisabled
	}
	return s.storage.DeleteEpisode(id)
}

// CountCommercials returns the number of stored commercials across all episodes.
func (s *breakService) CountCommercials() (int64, error) {
	if s.storage == nil {
		return 0, ErrStorageDisabled
	}
	return s.storage.CountCommercials()
}

// Close releases the store and the result cache.
func (s *breakService) Close() error {
	var result *multierror.Error
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("closing storage: %w", err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("closing cache: %w", err))
		}
	}
	return result.ErrorOrNil()
}
