package audio

import (
	"errors"
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/himanishpuri/BreakFinder/pkg/breakfinder/locator"
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3

	readChunkFrames = 1 << 14
)

// ErrNotWAV is returned when a file is not a readable RIFF/WAVE file.
var ErrNotWAV = errors.New("not a WAV/RIFF file")

// WAVInfo holds the format information of a WAV file.
type WAVInfo struct {
	SampleRate  int
	NumChannels int
	BitDepth    int
	Format      int
}

// ProbeWAV reads only the header of a WAV file.
func ProbeWAV(path string) (*WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening wav: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotWAV)
	}
	return &WAVInfo{
		SampleRate:  int(d.SampleRate),
		NumChannels: int(d.NumChans),
		BitDepth:    int(d.BitDepth),
		Format:      int(d.WavAudioFormat),
	}, nil
}

// ReadWAV decodes a PCM or IEEE-float WAV file into a mono signal with samples in
// [-1, 1]. Multichannel frames are averaged.
func ReadWAV(path string) (locator.Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return locator.Signal{}, fmt.Errorf("opening wav: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return locator.Signal{}, fmt.Errorf("%s: %w", path, ErrNotWAV)
	}

	channels := int(d.NumChans)
	bitDepth := int(d.BitDepth)
	toFloat, err := sampleConverter(int(d.WavAudioFormat), bitDepth)
	if err != nil {
		return locator.Signal{}, fmt.Errorf("%s: %w", path, err)
	}

	buf := &goaudio.IntBuffer{
		Format:         d.Format(),
		Data:           make([]int, readChunkFrames*channels),
		SourceBitDepth: bitDepth,
	}

	var (
		samples []float64
		sum     float64
		ch      int
	)
	for {
		n, err := d.PCMBuffer(buf)
		if err != nil {
			return locator.Signal{}, fmt.Errorf("reading pcm data: %w", err)
		}
		if n == 0 {
			break
		}
		for _, v := range buf.Data[:n] {
			sum += toFloat(v)
			ch++
			if ch == channels {
				samples = append(samples, sum/float64(channels))
				sum, ch = 0, 0
			}
		}
	}

	if len(samples) == 0 {
		return locator.Signal{}, fmt.Errorf("%s: no PCM samples", path)
	}

	return locator.Signal{Samples: samples, SampleRate: int(d.SampleRate)}, nil
}

func sampleConverter(format, bitDepth int) (func(int) float64, error) {
	switch {
	case format == wavFormatFloat && bitDepth == 32:
		return func(v int) float64 {
			return float64(math.Float32frombits(uint32(v)))
		}, nil
	case format == wavFormatPCM && bitDepth == 8:
		// 8-bit PCM is unsigned.
		return func(v int) float64 {
			return float64(v-128) / 128
		}, nil
	case format == wavFormatPCM && (bitDepth == 16 || bitDepth == 24 || bitDepth == 32):
		scale := float64(int64(1) << (bitDepth - 1))
		return func(v int) float64 {
			return float64(v) / scale
		}, nil
	default:
		return nil, fmt.Errorf("unsupported WAV encoding: format %d, %d bits", format, bitDepth)
	}
}
