// Package audio turns audio files into mono sample buffers.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/himanishpuri/BreakFinder/pkg/breakfinder/locator"
)

// Decoder decodes any ffmpeg-readable file. WAV files already at the requested rate are read
// directly.
type Decoder struct {
	TempDir    string
	FFmpegPath string
	Timeout    time.Duration
}

func NewDecoder(tempDir string) *Decoder {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Decoder{TempDir: tempDir, FFmpegPath: "ffmpeg", Timeout: DefaultConvertTimeout}
}

// Decode returns the file as a mono signal at sampleRate, or at its native rate when
// sampleRate is 0.
func (d *Decoder) Decode(ctx context.Context, path string, sampleRate int) (locator.Signal, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		info, err := ProbeWAV(path)
		switch {
		case err == nil && (sampleRate == 0 || info.SampleRate == sampleRate):
			return ReadWAV(path)
		case err != nil && !errors.Is(err, ErrNotWAV):
			return locator.Signal{}, err
		}
	}

	wavPath, err := ConvertToMonoWAV(ctx, path, d.TempDir, ConvertWAVConfig{
		SampleRate: sampleRate,
		FFmpegPath: d.FFmpegPath,
		Timeout:    d.Timeout,
	})
	if err != nil {
		return locator.Signal{}, fmt.Errorf("audio conversion failed: %w", err)
	}
	defer os.Remove(wavPath)

	signal, err := ReadWAV(wavPath)
	if err != nil {
		return locator.Signal{}, fmt.Errorf("failed to read converted WAV: %w", err)
	}
	return signal, nil
}
