package breakfinder

import (
	"context"

	"github.com/himanishpuri/BreakFinder/pkg/breakfinder/locator"
	"github.com/himanishpuri/BreakFinder/pkg/models"
)

type Service interface {
	Run(ctx context.Context) (*models.Analysis, error)
	FetchLatest(ctx context.Context) (*models.EpisodeMeta, string, error)
	Analyze(ctx context.Context, episodePath string, meta *models.EpisodeMeta) (*models.Analysis, error)
	GetEpisode(id string) (*models.Episode, []models.Commercial, error)
	ListEpisodes() ([]models.Episode, error)
	DeleteEpisode(id string) error
	CountCommercials() (int64, error)
	Close() error
}

type Storage interface {
	SaveAnalysis(episode models.Episode, commercials []models.Commercial) (string, error)
	GetEpisode(id string) (*models.Episode, error)
	ListEpisodes() ([]models.Episode, error)
	GetCommercials(episodeID string) ([]models.Commercial, error)
	DeleteEpisode(id string) error
	CountCommercials() (int64, error)
	Close() error
}

// AudioDecoder returns a file as a mono signal at sampleRate, or its native rate for 0.
type AudioDecoder interface {
	Decode(ctx context.Context, path string, sampleRate int) (locator.Signal, error)
}

type FeedSource interface {
	Latest(ctx context.Context) (*models.EpisodeMeta, error)
}

type Downloader interface {
	Download(ctx context.Context, url, dst string) (int64, error)
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
