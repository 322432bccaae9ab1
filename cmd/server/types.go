package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/himanishpuri/BreakFinder/pkg/models"
)

// EpisodeDTO represents a stored episode in API responses
type EpisodeDTO struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	GUID              string    `json:"guid,omitempty"`
	URL               string    `json:"url"`
	Number            int       `json:"number,omitempty"`
	LengthSeconds     float64   `json:"length_seconds"`
	CommercialSeconds float64   `json:"commercial_seconds"`
	SampleRate        int       `json:"sample_rate"`
	CreatedAt         time.Time `json:"created_at"`
}

// CommercialDTO represents one commercial break in API responses
type CommercialDTO struct {
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Length float64 `json:"length"`
}

// ListEpisodesResponse is the response for GET /api/episodes
type ListEpisodesResponse struct {
	Episodes []EpisodeDTO `json:"episodes"`
	Count    int          `json:"count"`
}

// EpisodeDetailResponse is the response for GET /api/episodes/{id}
type EpisodeDetailResponse struct {
	Episode     EpisodeDTO      `json:"episode"`
	Commercials []CommercialDTO `json:"commercials"`
}

// DeleteEpisodeResponse is the response for DELETE /api/episodes/{id}
type DeleteEpisodeResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// AnalyzeResponse is the response for POST /api/analyze
type AnalyzeResponse struct {
	Message  string           `json:"message"`
	Analysis *models.Analysis `json:"analysis"`
}

// MetricsResponse provides server health and database metrics
type MetricsResponse struct {
	Status          string  `json:"status"`
	DatabasePath    string  `json:"database_path"`
	EpisodeCount    int     `json:"episode_count"`
	CommercialCount int64   `json:"commercial_count"`
	Threshold       float64 `json:"threshold"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// AnalyzeRequest holds the optional form fields sent with an upload
type AnalyzeRequest struct {
	Title  string
	GUID   string
	Number int
}

func parseAnalyzeRequest(title, guid, number string) (AnalyzeRequest, error) {
	req := AnalyzeRequest{Title: title, GUID: guid}
	if number != "" {
		n, err := strconv.Atoi(number)
		if err != nil || n < 0 {
			return req, fmt.Errorf("number must be a non-negative integer")
		}
		req.Number = n
	}
	return req, nil
}

// Meta names the upload after its original file name unless a title was sent. Uploads
// without a GUID are keyed by the xxhash64 of their content, so different files sharing a
// name are stored apart and re-uploading the same audio updates one record.
func (r AnalyzeRequest) Meta(source string, contentHash uint64) *models.EpisodeMeta {
	title := r.Title
	if title == "" {
		title = source
	}
	guid := r.GUID
	if guid == "" {
		guid = fmt.Sprintf("upload-%016x", contentHash)
	}
	return &models.EpisodeMeta{Title: title, GUID: guid, URL: "upload://" + source, Number: r.Number}
}

func toEpisodeDTO(ep models.Episode) EpisodeDTO {
	return EpisodeDTO{
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
