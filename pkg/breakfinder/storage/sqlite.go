package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	customlogger "github.com/himanishpuri/BreakFinder/pkg/logger"
)

const DefaultDBFile = "breakfinder.sqlite3"
const errDBClientNil = "db client is nil"

// ErrNotFound is returned when an episode ID is unknown.
var ErrNotFound = errors.New("episode not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type Episode struct {
	ID                string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title             string  `json:"title"`
	GUID              string  `gorm:"column:guid;index:idx_episode_guid" json:"guid"`
	URL               string  `gorm:"column:url;index:idx_episode_url" json:"url"`
	Number            int     `json:"number"`
	LengthSeconds     float64 `json:"length_seconds"`
	CommercialSeconds float64 `json:"commercial_seconds"`
	SampleRate        int     `json:"sample_rate"`
	CreatedAt         time.Time
}

type Commercial struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"`
	EpisodeID string  `gorm:"type:varchar(36);index:idx_commercial_episode" json:"episode_id"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Length    float64 `json:"length"`
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.New(customlogger.GetLogger(), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Episode{}, &Commercial{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// findByKey looks an episode up by feed GUID, or by URL for GUID-less items.
func findByKey(tx *gorm.DB, guid, url string) (*Episode, error) {
	var ep Episode
	q := tx.Where("guid = ?", guid)
	if guid == "" {
		q = tx.Where("guid = ? AND url = ?", "", url)
	}
	if err := q.First(&ep).Error; err != nil {
		return nil, err
	}
	return &ep, nil
}

// SaveAnalysis stores an episode and its commercials in one transaction and returns the
// episode ID. An episode already stored under the same GUID (or URL) keeps its ID and
// creation time; its commercials are replaced.
func (c *DBClient) SaveAnalysis(ep Episode, commercials []Commercial) (string, error) {
	if c == nil || c.DB == nil {
		return "", errors.New(errDBClientNil)
	}
	if ep.GUID == "" && ep.URL == "" {
		return "", errors.New("episode needs a guid or url")
	}

	err := c.DB.Transaction(func(tx *gorm.DB) error {
		existing, err := findByKey(tx, ep.GUID, ep.URL)
		switch {
		case err == nil:
			ep.ID = existing.ID
			ep.CreatedAt = existing.CreatedAt
			if err := tx.Save(&ep).Error; err != nil {
				return fmt.Errorf("updating episode: %w", err)
			}
			if err := tx.Where("episode_id = ?", ep.ID).Delete(&Commercial{}).Error; err != nil {
				return fmt.Errorf("clearing commercials: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			ep.ID = uuid.NewString()
			if err := tx.Create(&ep).Error; err != nil {
				return fmt.Errorf("creating episode: %w", err)
			}
		default:
			return fmt.Errorf("querying existing episode: %w", err)
		}

		if len(commercials) == 0 {
			return nil
		}
		rows := make([]Commercial, len(commercials))
		for i, cm := range commercials {
			rows[i] = Commercial{EpisodeID: ep.ID, Start: cm.Start, End: cm.End, Length: cm.Length}
		}
		if err := tx.CreateInBatches(rows, 500).Error; err != nil {
			return fmt.Errorf("batch insert commercials: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return ep.ID, nil
}

func (c *DBClient) GetEpisode(id string) (*Episode, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var ep Episode
	if err := c.DB.Where("id = ?", id).First(&ep).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("querying episode: %w", err)
	}
	return &ep, nil
}

// ListEpisodes returns all episodes, newest first.
func (c *DBClient) ListEpisodes() ([]Episode, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var eps []Episode
	if err := c.DB.Order("created_at DESC").Order("id").Find(&eps).Error; err != nil {
		return nil, fmt.Errorf("listing episodes: %w", err)
	}
	return eps, nil
}

// GetCommercials returns an episode's commercials ordered by start time.
func (c *DBClient) GetCommercials(episodeID string) ([]Commercial, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rows []Commercial
	if err := c.DB.Where("episode_id = ?", episodeID).Order("start").Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying commercials: %w", err)
	}
	return rows, nil
}

// DeleteEpisode removes an episode and its commercials.
func (c *DBClient) DeleteEpisode(id string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("episode_id = ?", id).Delete(&Commercial{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&Episode{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// CountCommercials returns the number of stored commercials across all episodes.
func (c *DBClient) CountCommercials() (int64, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	var count int64
	if err := c.DB.Model(&Commercial{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting commercials: %w", err)
	}
	return count, nil
}
