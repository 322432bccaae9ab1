package locator

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidSignal is matched by every InvalidSignalError via errors.Is.
var ErrInvalidSignal = errors.New("invalid signal")

// ErrInvalidThreshold is returned for a negative threshold.
var ErrInvalidThreshold = errors.New("threshold must be non-negative")

// Signal is a mono sample buffer at a fixed sample rate.
type Signal struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the signal length in seconds.
func (s Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Occurrence marks a recurrence of the query at a sample index of the reference.
type Occurrence struct {
	Index int
	Value float64
}

// InvalidSignalError reports an input the locator cannot correlate.
type InvalidSignalError struct {
	Signal string // "reference" or "query"
	Reason string
}

func (e *InvalidSignalError) Error() string {
	if e.Signal == "" {
		return fmt.Sprintf("invalid signal: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s signal: %s", e.Signal, e.Reason)
}

func (e *InvalidSignalError) Is(target error) bool {
	return target == ErrInvalidSignal
}

func invalid(signal, format string, args ...any) error {
	return &InvalidSignalError{Signal: signal, Reason: fmt.Sprintf(format, args...)}
}

func validate(name string, s Signal) error {
	if len(s.Samples) == 0 {
		return invalid(name, "no samples")
	}
	if s.SampleRate <= 0 {
		return invalid(name, "sample rate must be positive, got %d", s.SampleRate)
	}
	for i, v := range s.Samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalid(name, "non-finite sample at index %d", i)
		}
	}
	return nil
}
