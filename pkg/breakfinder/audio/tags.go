package audio

import (
	"fmt"
	"os"
	"strings"

	"github.com/dhowden/tag"
)

// Tags is the embedded metadata of an audio file.
type Tags struct {
	Title  string
	Artist string
	Album  string
	Track  int
	Year   int
	Format string
}

// ReadTags reads ID3, MP4, FLAC or Ogg metadata. Files without tags return an error
// wrapping tag.ErrNoTagsFound.
func ReadTags(path string) (*Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audio: %w", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("reading tags from %s: %w", path, err)
	}

	track, _ := m.Track()
	return &Tags{
		Title:  strings.TrimSpace(m.Title()),
		Artist: strings.TrimSpace(m.Artist()),
		Album:  strings.TrimSpace(m.Album()),
		Track:  track,
		Year:   m.Year(),
		Format: string(m.Format()),
	}, nil
}
