package locator

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// DefaultBlockSize is the minimum FFT size used for overlap-save correlation.
const DefaultBlockSize = 1 << 16

// Correlate computes the valid-mode cross-correlation of query against
// reference: trace[i] = sum_j reference[i+j] * query[j] for
// i in [0, len(reference)-len(query)].
//
// The reference is processed in overlap-save blocks of a fixed power-of-two
// FFT size (at least blockSize and twice the query length), so memory stays
// bounded for hour-long references. A nil trace is returned when the query is
// empty or longer than the reference.
func Correlate(reference, query []float64, blockSize int) []float64 {
	n, m := len(reference), len(query)
	if m == 0 || n < m {
		return nil
	}
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	size := nextPowerOf2(max(blockSize, 2*m))
	// Circular outputs 0..size-m never wrap, so each block yields that many lags.
	step := size - m + 1
	outLen := n - m + 1

	padded := make([]float64, size)
	copy(padded, query)
	querySpec := fft.FFTReal(padded)
	for i := range querySpec {
		querySpec[i] = cmplx.Conj(querySpec[i])
	}

	trace := make([]float64, outLen)
	block := make([]float64, size)
	product := make([]complex128, size)
	for start := 0; start < outLen; start += step {
		clear(block)
		copy(block, reference[start:min(start+size, n)])

		spec := fft.FFTReal(block)
		for i := range spec {
			product[i] = spec[i] * querySpec[i]
		}
		circular := fft.IFFT(product)

		count := min(step, outLen-start)
		for k := 0; k < count; k++ {
			trace[start+k] = real(circular[k])
		}
	}
	return trace
}

// silenceFloor is the window-to-query energy ratio below which a reference
// window counts as silent. It also absorbs drift of the running energy sum.
const silenceFloor = 1e-9

// normalizeTrace divides every lag by ||query|| * ||reference window|| so the
// trace lies in [-1, 1]. Silent windows score 0.
func normalizeTrace(trace, reference, query []float64) {
	m := len(query)
	queryNorm := floats.Norm(query, 2)
	if queryNorm == 0 {
		clear(trace)
		return
	}
	floor := silenceFloor * queryNorm * queryNorm

	energy := 0.0
	for _, v := range reference[:m] {
		energy += v * v
	}
	for i := range trace {
		if i > 0 {
			out, in := reference[i-1], reference[i+m-1]
			energy += in*in - out*out
		}
		if energy <= floor {
			trace[i] = 0
			continue
		}
		trace[i] = math.Max(-1, math.Min(1, trace[i]/(queryNorm*math.Sqrt(energy))))
	}
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
