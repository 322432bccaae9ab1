// Package locator finds every offset at which a short query signal recurs
// inside a long reference signal, using FFT cross-correlation and relative
// peak picking. It is a pure library: no logging, no configuration files and
// no shared state between calls.
package locator

import (
	"fmt"
	"sort"
)

// DefaultPrecision is the number of decimals kept in returned timestamps.
const DefaultPrecision = 2

// Locator holds detection options. The zero value is not usable; use New.
type Locator struct {
	precision int
	removal   PeakRemoval
	normalize bool
	blockSize int
}

type Option func(*Locator)

// WithPrecision sets the number of decimals of returned timestamps.
func WithPrecision(decimals int) Option {
	return func(l *Locator) {
		l.precision = decimals
	}
}

// WithPeakRemoval selects masking (default) or index-compacting removal.
func WithPeakRemoval(removal PeakRemoval) Option {
	return func(l *Locator) {
		l.removal = removal
	}
}

// WithNormalization scales the trace to [-1, 1] by signal energy, which puts
// the threshold in normalized units instead of raw dot-product units.
func WithNormalization(enabled bool) Option {
	return func(l *Locator) {
		l.normalize = enabled
	}
}

// WithBlockSize sets the minimum overlap-save FFT size.
func WithBlockSize(size int) Option {
	return func(l *Locator) {
		l.blockSize = size
	}
}

func New(opts ...Option) *Locator {
	l := &Locator{
		precision: DefaultPrecision,
		removal:   MaskPeaks,
		blockSize: DefaultBlockSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.precision < 0 {
		l.precision = 0
	}
	return l
}

// String describes the options that influence results.
func (l *Locator) String() string {
	return fmt.Sprintf("precision=%d removal=%s normalize=%t", l.precision, l.removal, l.normalize)
}

// Occurrences returns every accepted occurrence in pick order, the global
// maximum first. The query is resampled to the reference rate when they differ.
func (l *Locator) Occurrences(reference, query Signal, threshold float64) ([]Occurrence, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidThreshold, threshold)
	}
	if err := validate("reference", reference); err != nil {
		return nil, err
	}
	if err := validate("query", query); err != nil {
		return nil, err
	}

	querySamples := query.Samples
	if query.SampleRate != reference.SampleRate {
		resampled, err := Resample(query.Samples, query.SampleRate, reference.SampleRate)
		if err != nil {
			return nil, invalid("query", "cannot match reference rate: %v", err)
		}
		querySamples = resampled
	}
	if len(querySamples) > len(reference.Samples) {
		return nil, invalid("query", "%d samples is longer than the %d-sample reference",
			len(querySamples), len(reference.Samples))
	}

	trace := Correlate(reference.Samples, querySamples, l.blockSize)
	if l.normalize {
		normalizeTrace(trace, reference.Samples, querySamples)
	}
	return PickPeaks(trace, threshold, l.removal), nil
}

// Locate returns the distinct timestamps, in seconds and ascending order, at
// which query recurs in reference with a correlation within threshold of the
// best match. The result always holds at least the best match.
func (l *Locator) Locate(reference, query Signal, threshold float64) ([]float64, error) {
	occurrences, err := l.Occurrences(reference, query, threshold)
	if err != nil {
		return nil, err
	}

	seen := make(map[float64]struct{}, len(occurrences))
	timestamps := make([]float64, 0, len(occurrences))
	for _, o := range occurrences {
		ts := Timestamp(o.Index, reference.SampleRate, l.precision)
		if _, ok := seen[ts]; ok {
			continue
		}
		seen[ts] = struct{}{}
		timestamps = append(timestamps, ts)
	}
	sort.Float64s(timestamps)
	return timestamps, nil
}

// Locate runs a default Locator.
func Locate(reference, query Signal, threshold float64) ([]float64, error) {
	return New().Locate(reference, query, threshold)
}
