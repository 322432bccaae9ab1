package breakfinder

import (
	"slices"

	"github.com/himanishpuri/BreakFinder/pkg/breakfinder/locator"
	"github.com/himanishpuri/BreakFinder/pkg/models"
)

// PairIntervals sorts both timestamp sets and zips them positionally. Entries beyond the
// shorter set are dropped.
func PairIntervals(starts, ends []float64) []models.Interval {
	s := slices.Clone(starts)
	e := slices.Clone(ends)
	slices.Sort(s)
	slices.Sort(e)

	n := min(len(s), len(e))
	intervals := make([]models.Interval, n)
	for i := range n {
		intervals[i] = models.Interval{Start: s[i], End: e[i]}
	}
	return intervals
}

// TotalSeconds sums interval lengths, rounded to 2 decimals like Timestamp.
func TotalSeconds(intervals []models.Interval) float64 {
	total := 0.0
	for _, iv := range intervals {
		total += iv.Length()
	}
	return locator.Round(total, 2)
}
