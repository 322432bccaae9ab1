package locator

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 8000

func noise(n int, seed int64) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = r.Float64()*2 - 1
	}
	return out
}

func tone(n, sampleRate int, freq, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

// episodeWithMarkers builds a 10 s quiet tone with the marker pasted at each
// offset (seconds).
func episodeWithMarkers(marker []float64, at ...float64) Signal {
	samples := tone(10*testRate, testRate, 440, 0.1)
	for _, sec := range at {
		copy(samples[int(sec*testRate):], marker)
	}
	return Signal{Samples: samples, SampleRate: testRate}
}

func TestLocateTwoMarkers(t *testing.T) {
	marker := noise(testRate/2, 1)
	reference := episodeWithMarkers(marker, 3.0, 7.0)
	query := Signal{Samples: marker, SampleRate: testRate}

	got, err := Locate(reference, query, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDeltaSlice(t, []float64{3.0, 7.0}, got, 0.01)
}

func TestLocateSingleMarker(t *testing.T) {
	marker := noise(testRate/2, 2)
	reference := episodeWithMarkers(marker, 3.0)
	query := Signal{Samples: marker, SampleRate: testRate}

	got, err := Locate(reference, query, 10)
	require.NoError(t, err)
	assert.Equal(t, []float64{3.0}, got)
}

func TestLocateFindsInsertedSegment(t *testing.T) {
	samples := noise(2*testRate, 3)
	reference := Signal{Samples: samples, SampleRate: testRate}
	l := New(WithPrecision(6))

	for _, k := range []int{0, 1234, 7001, len(samples) - 2000} {
		query := Signal{Samples: samples[k : k+2000], SampleRate: testRate}

		occurrences, err := l.Occurrences(reference, query, 10)
		require.NoError(t, err)
		assert.Equal(t, k, occurrences[0].Index, "offset %d", k)

		timestamps, err := l.Locate(reference, query, 10)
		require.NoError(t, err)
		found := false
		for _, ts := range timestamps {
			if math.Abs(ts-float64(k)/testRate) <= 1.0/testRate {
				found = true
			}
		}
		assert.True(t, found, "offset %d not in %v", k, timestamps)
	}
}

func TestLocateIdempotent(t *testing.T) {
	marker := noise(testRate/2, 4)
	reference := episodeWithMarkers(marker, 1.5, 6.25)
	query := Signal{Samples: marker, SampleRate: testRate}

	first, err := Locate(reference, query, 10)
	require.NoError(t, err)
	second, err := Locate(reference, query, 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLocateThresholdMonotonic(t *testing.T) {
	samples := noise(testRate, 5)
	reference := Signal{Samples: samples, SampleRate: testRate}
	query := Signal{Samples: samples[2000:2800], SampleRate: testRate}

	previous := 0
	for _, threshold := range []float64{0, 1, 10, 50, 100, 200, 400, 1000} {
		got, err := Locate(reference, query, threshold)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(got), previous, "threshold %g", threshold)
		previous = len(got)
	}
}

func TestLocateEqualLength(t *testing.T) {
	samples := noise(1000, 6)
	signal := Signal{Samples: samples, SampleRate: testRate}

	occurrences, err := New().Occurrences(signal, signal, 1e9)
	require.NoError(t, err)
	require.Len(t, occurrences, 1)
	assert.Equal(t, 0, occurrences[0].Index)

	got, err := Locate(signal, signal, 10)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, got)
}

func TestLocateResamplesQuery(t *testing.T) {
	marker := noise(testRate/2, 7)
	reference := episodeWithMarkers(marker, 3.0, 7.0)

	upsampled, err := Resample(marker, testRate, 2*testRate)
	require.NoError(t, err)
	query := Signal{Samples: upsampled, SampleRate: 2 * testRate}

	got, err := Locate(reference, query, 10)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{3.0, 7.0}, got, 0.01)
}

func TestLocateNormalized(t *testing.T) {
	marker := noise(testRate/2, 8)
	reference := episodeWithMarkers(marker, 2.0, 8.0)
	query := Signal{Samples: marker, SampleRate: testRate}
	l := New(WithNormalization(true))

	occurrences, err := l.Occurrences(reference, query, 0.05)
	require.NoError(t, err)
	require.Len(t, occurrences, 2)
	for _, o := range occurrences {
		assert.InDelta(t, 1.0, o.Value, 1e-6)
	}

	got, err := l.Locate(reference, query, 0.05)
	require.NoError(t, err)
	assert.Equal(t, []float64{2.0, 8.0}, got)
}

func TestLocateCompactPeaksShiftsLaterIndices(t *testing.T) {
	marker := noise(testRate/2, 9)
	reference := episodeWithMarkers(marker, 3.0, 7.0)
	query := Signal{Samples: marker, SampleRate: testRate}

	masked, err := New(WithPeakRemoval(MaskPeaks)).Occurrences(reference, query, 10)
	require.NoError(t, err)
	compacted, err := New(WithPeakRemoval(CompactPeaks)).Occurrences(reference, query, 10)
	require.NoError(t, err)
	require.Len(t, compacted, len(masked))

	for i := range masked {
		shift := 0
		for _, earlier := range masked[:i] {
			if earlier.Index < masked[i].Index {
				shift++
			}
		}
		assert.Equal(t, masked[i].Index-shift, compacted[i].Index)
	}
}

func TestLocateErrors(t *testing.T) {
	good := Signal{Samples: noise(100, 10), SampleRate: testRate}

	tests := []struct {
		name      string
		reference Signal
		query     Signal
	}{
		{"empty reference", Signal{SampleRate: testRate}, good},
		{"empty query", good, Signal{SampleRate: testRate}},
		{"zero reference rate", Signal{Samples: good.Samples}, good},
		{"negative query rate", good, Signal{Samples: good.Samples[:10], SampleRate: -1}},
		{"query longer", good, Signal{Samples: noise(101, 11), SampleRate: testRate}},
		{"longer after resampling", good, Signal{Samples: noise(60, 12), SampleRate: testRate / 2}},
		{"nan sample", good, Signal{Samples: []float64{0, math.NaN()}, SampleRate: testRate}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Locate(tt.reference, tt.query, 10)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidSignal)

			var sigErr *InvalidSignalError
			assert.True(t, errors.As(err, &sigErr))
		})
	}

	_, err := Locate(good, good, -1)
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestPickPeaksTieBreak(t *testing.T) {
	trace := []float64{1, 5, 3, 5, 2}

	got := PickPeaks(trace, 0.5, MaskPeaks)
	assert.Equal(t, []Occurrence{{Index: 1, Value: 5}, {Index: 3, Value: 5}}, got)

	got = PickPeaks(trace, 0, MaskPeaks)
	assert.Equal(t, []Occurrence{{Index: 1, Value: 5}}, got)
}

func TestPickPeaksSinglePeakBoundary(t *testing.T) {
	got := PickPeaks([]float64{0, 0, 100, 0, 0}, 10, MaskPeaks)
	assert.Equal(t, []Occurrence{{Index: 2, Value: 100}}, got)

	assert.Nil(t, PickPeaks(nil, 10, MaskPeaks))
}

func TestPickPeaksCompaction(t *testing.T) {
	trace := []float64{5, 1, 9, 2, 8}

	masked := PickPeaks(trace, 10, MaskPeaks)
	compacted := PickPeaks(trace, 10, CompactPeaks)

	indices := func(occ []Occurrence) []int {
		out := make([]int, len(occ))
		for i, o := range occ {
			out[i] = o.Index
		}
		return out
	}
	assert.Equal(t, []int{2, 4, 0, 3, 1}, indices(masked))
	assert.Equal(t, []int{2, 3, 0, 1, 0}, indices(compacted))

	got := PickPeaks([]float64{0, 9, 8, 7, 0}, 5, CompactPeaks)
	assert.Equal(t, []int{1, 1, 1}, indices(got))
}

func TestTimestamp(t *testing.T) {
	tests := []struct {
		index, rate, precision int
		want                   float64
	}{
		{24000, 8000, 2, 3.0},
		{56000, 8000, 2, 7.0},
		{12345, 8000, 2, 1.54},
		{1000, 8000, 2, 0.12},
		{3*44100 + 22050, 44100, 1, 3.5},
		{0, 8000, 2, 0},
		// index/rate lands next to a decimal tie; the stored double decides
		{1400, 8000, 2, 0.17},
		{3080, 8000, 2, 0.39},
		{4760, 8000, 2, 0.59},
		{1, 8, 2, 0.12},
		{3, 8, 2, 0.38},
	}

	for _, tt := range tests {
		got := Timestamp(tt.index, tt.rate, tt.precision)
		if got != tt.want {
			t.Errorf("Timestamp(%d, %d, %d) = %v, expected %v", tt.index, tt.rate, tt.precision, got, tt.want)
		}
	}
}

func TestCorrelateMatchesDirect(t *testing.T) {
	reference := noise(1000, 13)
	query := noise(37, 14)

	got := Correlate(reference, query, 64)
	require.Len(t, got, len(reference)-len(query)+1)

	for i := range got {
		want := 0.0
		for j, q := range query {
			want += reference[i+j] * q
		}
		assert.InDelta(t, want, got[i], 1e-9, "lag %d", i)
	}

	assert.Nil(t, Correlate(query, reference, 0))
	assert.Nil(t, Correlate(reference, nil, 0))
}

func TestNormalizeTraceBounds(t *testing.T) {
	reference := append(noise(500, 15), make([]float64, 200)...)
	query := noise(50, 16)

	trace := Correlate(reference, query, 0)
	normalizeTrace(trace, reference, query)
	for i, v := range trace {
		assert.LessOrEqual(t, math.Abs(v), 1.0, "lag %d", i)
	}
	assert.Equal(t, 0.0, trace[len(trace)-1])
}

func TestResample(t *testing.T) {
	up, err := Resample([]float64{0, 1, 2, 3}, 4, 8)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 3}, up, 1e-12)

	down, err := Resample([]float64{0, 1, 2, 3, 4, 5, 6, 7}, 8, 4)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 2, 4, 6}, down, 1e-12)

	same, err := Resample([]float64{1, 2}, 8000, 8000)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, same)

	_, err = Resample([]float64{1}, 0, 8000)
	assert.ErrorIs(t, err, ErrInvalidSignal)
}
