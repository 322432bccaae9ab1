// Package feed finds the newest episode of a podcast feed and downloads its audio.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/himanishpuri/BreakFinder/pkg/models"
	"github.com/himanishpuri/BreakFinder/pkg/utils"
)

var (
	ErrNoEpisodes = errors.New("feed has no episodes")
	ErrNoAudio    = errors.New("episode has no audio enclosure")
)

const defaultFeedTimeout = 30 * time.Second

// Source reads an RSS or Atom podcast feed.
type Source struct {
	url    string
	parser *gofeed.Parser
}

// NewSource returns a Source for feedURL. A nil client uses a client with a 30s timeout.
func NewSource(feedURL string, client *http.Client) *Source {
	if client == nil {
		client = &http.Client{Timeout: defaultFeedTimeout}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	return &Source{url: feedURL, parser: parser}
}

// Latest returns the first item of the feed, which podcast feeds list newest first.
func (s *Source) Latest(ctx context.Context) (*models.EpisodeMeta, error) {
	if strings.TrimSpace(s.url) == "" {
		return nil, errors.New("feed URL is not configured")
	}

	feed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", s.url, err)
	}
	return LatestEpisode(feed)
}

// LatestEpisode extracts the first item's metadata and audio URL.
func LatestEpisode(feed *gofeed.Feed) (*models.EpisodeMeta, error) {
	if feed == nil || len(feed.Items) == 0 {
		return nil, ErrNoEpisodes
	}
	item := feed.Items[0]

	audioURL := pickAudioURL(item)
	if audioURL == "" {
		return nil, fmt.Errorf("%q: %w", item.Title, ErrNoAudio)
	}

	meta := &models.EpisodeMeta{
		Title: strings.TrimSpace(item.Title),
		GUID:  strings.TrimSpace(item.GUID),
		URL:   audioURL,
	}
	if item.ITunesExt != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(item.ITunesExt.Episode)); err == nil {
			meta.Number = n
		}
	}
	return meta, nil
}

// pickAudioURL prefers an audio/mpeg enclosure, then any audio enclosure, then a
// YouTube link.
func pickAudioURL(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc != nil && strings.EqualFold(enc.Type, "audio/mpeg") && enc.URL != "" {
			return enc.URL
		}
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(strings.ToLower(enc.Type), "audio/") && enc.URL != "" {
			return enc.URL
		}
	}
	for _, link := range append([]string{item.Link}, item.Links...) {
		if link != "" && utils.IsYouTubeURL(link) {
			return link
		}
	}
	return ""
}
