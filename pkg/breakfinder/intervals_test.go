package breakfinder

import (
	"testing"

	"github.com/himanishpuri/BreakFinder/pkg/models"
)

func TestPairIntervals(t *testing.T) {
	tests := []struct {
		name   string
		starts []float64
		ends   []float64
		want   []models.Interval
	}{
		{
			name:   "matched and sorted",
			starts: []float64{12.5, 300},
			ends:   []float64{60, 390.25},
			want:   []models.Interval{{Start: 12.5, End: 60}, {Start: 300, End: 390.25}},
		},
		{
			name:   "unsorted input",
			starts: []float64{300, 12.5},
			ends:   []float64{390.25, 60},
			want:   []models.Interval{{Start: 12.5, End: 60}, {Start: 300, End: 390.25}},
		},
		{
			name:   "extra start dropped",
			starts: []float64{10, 100, 200},
			ends:   []float64{40, 130},
			want:   []models.Interval{{Start: 10, End: 40}, {Start: 100, End: 130}},
		},
		{
			name:   "no ends",
			starts: []float64{10},
			ends:   nil,
			want:   []models.Interval{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PairIntervals(tt.starts, tt.ends)
			if len(got) != len(tt.want) {
				t.Fatalf("PairIntervals() returned %d intervals, expected %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Interval %d = %v, expected %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPairIntervalsDoesNotMutateInput(t *testing.T) {
	starts := []float64{5, 1}
	PairIntervals(starts, []float64{6, 2})
	if starts[0] != 5 || starts[1] != 1 {
		t.Errorf("Expected input to be left unsorted, got %v", starts)
	}
}

func TestTotalSeconds(t *testing.T) {
	tests := []struct {
		intervals []models.Interval
		want      float64
	}{
		{nil, 0},
		{[]models.Interval{{Start: 1, End: 3}, {Start: 6, End: 8}}, 4},
		{[]models.Interval{{Start: 0.1, End: 0.2}, {Start: 0.2, End: 0.3}}, 0.2},
		{[]models.Interval{{Start: 10, End: 40.333}}, 30.33},
		{[]models.Interval{{Start: 50, End: 40}}, -10},
		{[]models.Interval{{Start: 0, End: 0.175}}, 0.17},
	}

	for _, tt := range tests {
		if got := TotalSeconds(tt.intervals); got != tt.want {
			t.Errorf("TotalSeconds(%v) = %v, expected %v", tt.intervals, got, tt.want)
		}
	}
}
