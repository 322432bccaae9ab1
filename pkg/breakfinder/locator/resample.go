package locator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// Resample converts samples from one rate to another with piecewise-linear
// interpolation. The output holds round(len*to/from) samples, at least one.
func Resample(samples []float64, from, to int) ([]float64, error) {
	if from <= 0 || to <= 0 {
		return nil, invalid("", "cannot resample from %d Hz to %d Hz", from, to)
	}
	if len(samples) == 0 {
		return nil, invalid("", "no samples to resample")
	}

	if from == to {
		return append([]float64(nil), samples...), nil
	}

	n := len(samples)
	outLen := int(math.Round(float64(n) * float64(to) / float64(from)))
	if outLen < 1 {
		outLen = 1
	}
	out := make([]float64, outLen)

	if n == 1 {
		for i := range out {
			out[i] = samples[0]
		}
		return out, nil
	}

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, samples); err != nil {
		return nil, fmt.Errorf("fitting interpolant: %w", err)
	}

	ratio := float64(from) / float64(to)
	last := float64(n - 1)
	for k := range out {
		x := float64(k) * ratio
		if x > last {
			x = last
		}
		out[k] = pl.Predict(x)
	}
	return out, nil
}
