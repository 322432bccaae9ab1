package locator

import (
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// PeakRemoval selects how an accepted peak leaves the candidate pool.
type PeakRemoval int

const (
	// MaskPeaks marks removed lags as -Inf; reported indices are the true lags.
	MaskPeaks PeakRemoval = iota
	// CompactPeaks deletes removed lags from the pool, so every later index is
	// reported shifted left by the number of earlier removals below it.
	CompactPeaks
)

func (r PeakRemoval) String() string {
	switch r {
	case MaskPeaks:
		return "mask"
	case CompactPeaks:
		return "compact"
	default:
		return "unknown"
	}
}

// ParsePeakRemoval maps "mask" or "compact" to a PeakRemoval.
func ParsePeakRemoval(s string) (PeakRemoval, bool) {
	switch s {
	case "", "mask":
		return MaskPeaks, true
	case "compact":
		return CompactPeaks, true
	default:
		return MaskPeaks, false
	}
}

// PickPeaks peels maxima off the trace. The global maximum is always the first
// occurrence; further maxima are accepted while value > max - threshold and
// the first failing candidate ends the search. Among equal values the lowest
// index is taken first.
//
// Repeatedly taking the maximum and stopping at the first value at or below
// the cutoff visits exactly the lags above the cutoff in descending order, so
// they are selected in one pass and ordered instead of rescanning the trace.
func PickPeaks(trace []float64, threshold float64, removal PeakRemoval) []Occurrence {
	if len(trace) == 0 {
		return nil
	}

	peak := floats.MaxIdx(trace)
	maxValue := trace[peak]
	cutoff := maxValue - threshold

	picks := []int{peak}
	for i, v := range trace {
		if i != peak && v > cutoff {
			picks = append(picks, i)
		}
	}
	rest := picks[1:]
	sort.Slice(rest, func(a, b int) bool {
		va, vb := trace[rest[a]], trace[rest[b]]
		if va != vb {
			return va > vb
		}
		return rest[a] < rest[b]
	})

	occurrences := make([]Occurrence, len(picks))
	for i, idx := range picks {
		occurrences[i] = Occurrence{Index: idx, Value: trace[idx]}
	}
	if removal == CompactPeaks {
		compactShift(occurrences)
	}
	return occurrences
}

// compactShift rewrites indices the way an index-compacting pool reports
// them: each pick loses one position per earlier pick at a lower index.
func compactShift(occurrences []Occurrence) {
	sorted := make([]int, len(occurrences))
	for i, o := range occurrences {
		sorted[i] = o.Index
	}
	sort.Ints(sorted)

	tree := make([]int, len(sorted)+1)
	for i := range occurrences {
		idx := occurrences[i].Index
		rank := sort.SearchInts(sorted, idx) + 1

		shift := 0
		for j := rank - 1; j > 0; j -= j & -j {
			shift += tree[j]
		}
		for j := rank; j < len(tree); j += j & -j {
			tree[j]++
		}
		occurrences[i].Index = idx - shift
	}
}

// Timestamp converts a sample index to seconds rounded to precision decimals.
func Timestamp(index, sampleRate, precision int) float64 {
	return Round(float64(index)/float64(sampleRate), precision)
}

// Round rounds v to precision decimals. The exact binary value of v is rounded,
// half to even, so 0.175 (stored just below) becomes 0.17.
func Round(v float64, precision int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', max(precision, 0), 64), 64)
	if err != nil {
		return v
	}
	return r
}
