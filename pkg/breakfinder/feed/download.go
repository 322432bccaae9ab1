package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lrstanley/go-ytdlp"
	"github.com/schollz/progressbar/v3"

	"github.com/himanishpuri/BreakFinder/pkg/utils"
)

// Logger is the subset of the project logger the downloader writes to.
type Logger interface {
	Infof(format string, args ...any)
	Debugf(format string, args ...any)
}

// Downloader fetches episode audio to a local path.
type Downloader struct {
	Client    *http.Client
	UserAgent string
	// Progress receives a progress bar; nil disables it.
	Progress io.Writer
	// InstallYTDLP downloads a yt-dlp binary when none is on PATH.
	InstallYTDLP bool
	Log          Logger
}

func NewDownloader(progress io.Writer, log Logger) *Downloader {
	return &Downloader{
		Client:    &http.Client{Timeout: 30 * time.Minute},
		UserAgent: "BreakFinder/1.0",
		Progress:  progress,
		Log:       log,
	}
}

// Download stores the audio behind url at dst and returns its size in bytes. The file is
// written next to dst and renamed into place, so dst is never left half-written.
func (d *Downloader) Download(ctx context.Context, url, dst string) (int64, error) {
	if err := utils.MakeDir(filepath.Dir(dst)); err != nil {
		return 0, fmt.Errorf("creating download directory: %w", err)
	}

	var (
		n   int64
		err error
	)
	if utils.IsYouTubeURL(url) {
		n, err = d.downloadYouTube(ctx, url, dst)
	} else {
		n, err = d.downloadHTTP(ctx, url, dst)
	}
	if err != nil {
		return 0, err
	}

	if d.Log != nil {
		d.Log.Infof("Downloaded %s to %s", humanize.Bytes(uint64(n)), dst)
	}
	return n, nil
}

func (d *Downloader) downloadHTTP(ctx context.Context, url, dst string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("downloading %s: unexpected status %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	var w io.Writer = tmp
	var bar *progressbar.ProgressBar
	if d.Progress != nil {
		bar = newProgressBar(d.Progress, resp.ContentLength, filepath.Base(dst))
		w = io.MultiWriter(tmp, bar)
	}

	n, err := io.Copy(w, resp.Body)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("writing %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		return 0, fmt.Errorf("downloading %s: got %d of %d bytes", url, n, resp.ContentLength)
	}

	if err := utils.MoveFile(tmpPath, dst); err != nil {
		return 0, err
	}
	return n, nil
}

func newProgressBar(w io.Writer, size int64, name string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(name),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}

func (d *Downloader) downloadYouTube(ctx context.Context, url, dst string) (int64, error) {
	videoID, err := utils.ExtractYouTubeID(url)
	if err != nil {
		return 0, fmt.Errorf("invalid YouTube URL: %w", err)
	}

	if d.InstallYTDLP {
		if _, err := ytdlp.Install(ctx, nil); err != nil {
			return 0, fmt.Errorf("installing yt-dlp: %w", err)
		}
	}

	workDir, err := os.MkdirTemp(filepath.Dir(dst), ".ytdlp-*")
	if err != nil {
		return 0, fmt.Errorf("creating yt-dlp work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	format := filepath.Ext(dst)
	if len(format) > 1 {
		format = format[1:]
	} else {
		format = "mp3"
	}

	if d.Log != nil {
		d.Log.Debugf("yt-dlp extracting %s audio from video %s", format, videoID)
	}
	dl := ytdlp.New().
		NoPlaylist().
		ExtractAudio().
		AudioFormat(format).
		Output(filepath.Join(workDir, videoID+".%(ext)s"))
	if _, err := dl.Run(ctx, url); err != nil {
		return 0, fmt.Errorf("yt-dlp download failed: %w", err)
	}

	out := filepath.Join(workDir, videoID+"."+format)
	info, err := os.Stat(out)
	if err != nil {
		return 0, fmt.Errorf("yt-dlp output not found: %w", err)
	}
	if err := utils.MoveFile(out, dst); err != nil {
		return 0, err
	}
	return info.Size(), nil
}
