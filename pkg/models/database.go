package models

import "time"

// Episode is a stored, analyzed episode.
type Episode struct {
	ID                string // UUID
	Title             string
	GUID              string
	URL               string
	Number            int
	LengthSeconds     float64
	CommercialSeconds float64
	SampleRate        int
	CreatedAt         time.Time
}

// Commercial is a stored commercial break belonging to an episode.
type Commercial struct {
	ID        uint
	EpisodeID string
	Start     float64
	End       float64
	Length    float64
}
