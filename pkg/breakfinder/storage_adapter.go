package breakfinder

import (
	"github.com/himanishpuri/BreakFinder/pkg/breakfinder/storage"
	"github.com/himanishpuri/BreakFinder/pkg/models"
)

// ErrEpisodeNotFound is returned for unknown episode IDs.
var ErrEpisodeNotFound = storage.ErrNotFound

// storageAdapter adapts the storage.DBClient to implement the Storage interface.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage creates a new SQLite storage backend.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func (s *storageAdapter) SaveAnalysis(ep models.Episode, commercials []models.Commercial) (string, error) {
	rows := make([]storage.Commercial, len(commercials))
	for i, c := range commercials {
		rows[i] = storage.Commercial{Start: c.Start, End: c.End, Length: c.Length}
	}
	return s.db.SaveAnalysis(storage.Episode{
		Title:             ep.Title,
		GUID:              ep.GUID,
		URL:               ep.URL,
		Number:            ep.Number,
		LengthSeconds:     ep.LengthSeconds,
		CommercialSeconds: ep.CommercialSeconds,
		SampleRate:        ep.SampleRate,
	}, rows)
}

func (s *storageAdapter) GetEpisode(id string) (*models.Episode, error) {
	ep, err := s.db.GetEpisode(id)
	if err != nil {
		return nil, err
	}
	out := toEpisode(*ep)
	return &out, nil
}

func (s *storageAdapter) ListEpisodes() ([]models.Episode, error) {
	rows, err := s.db.ListEpisodes()
	if err != nil {
		return nil, err
	}
	episodes := make([]models.Episode, len(rows))
	for i, ep := range rows {
		episodes[i] = toEpisode(ep)
	}
	return episodes, nil
}

func (s *storageAdapter) GetCommercials(episodeID string) ([]models.Commercial, error) {
	rows, err := s.db.GetCommercials(episodeID)
	if err != nil {
		return nil, err
	}
	commercials := make([]models.Commercial, len(rows))
	for i, c := range rows {
		commercials[i] = models.Commercial{
			ID:        c.ID,
			EpisodeID: c.EpisodeID,
			Start:     c.Start,
			End:       c.End,
			Length:    c.Length,
		}
	}
	return commercials, nil
}

func (s *storageAdapter) DeleteEpisode(id string) error {
	return s.db.DeleteEpisode(id)
}

func (s *storageAdapter) CountCommercials() (int64, error) {
	return s.db.CountCommercials()
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}

func toEpisode(ep storage.Episode) models.Episode {
	return models.Episode{
		ID:                ep.ID,
		Title:             ep.Title,
		GUID:              ep.GUID,
		URL:               ep.URL,
		Number:            ep.Number,
		LengthSeconds:     ep.LengthSeconds,
		CommercialSeconds: ep.CommercialSeconds,
		SampleRate:        ep.SampleRate,
		CreatedAt:         ep.CreatedAt,
	}
}
