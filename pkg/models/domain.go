package models

// EpisodeMeta describes an episode as published in a podcast feed.
type EpisodeMeta struct {
	Title  string `json:"title"`            // Item title
	GUID   string `json:"guid,omitempty"`   // Feed item GUID (may be empty)
	URL    string `json:"url"`              // Audio enclosure URL or video link
	Number int    `json:"number,omitempty"` // iTunes episode number, 0 when unknown
}

// Key identifies an episode across runs: the GUID when present, else the URL.
func (m EpisodeMeta) Key() string {
	if m.GUID != "" {
		return m.GUID
	}
	return m.URL
}

// Interval is one commercial break, in seconds from the start of the episode.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Length returns End - Start; it is negative when the jingles were paired out of order.
func (i Interval) Length() float64 {
	return i.End - i.Start
}

// Analysis is the result of scanning one episode for commercial breaks.
type Analysis struct {
	Episode           EpisodeMeta `json:"episode"`
	EpisodeID         string      `json:"episode_id,omitempty"` // Store ID, empty when not persisted
	Starts            []float64   `json:"starts"`               // Start jingle timestamps, ascending
	Ends              []float64   `json:"ends"`                 // End jingle timestamps, ascending
	Intervals         []Interval  `json:"intervals"`            // Starts and ends zipped positionally
	CommercialSeconds float64     `json:"commercial_seconds"`   // Sum of interval lengths, 2 decimals
	LengthSeconds     float64     `json:"length_seconds"`       // Episode duration
	SampleRate        int         `json:"sample_rate"`          // Rate the episode was analyzed at
	Cached            bool        `json:"cached"`               // Timestamps came from the result cache
}
