package server

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"gptscope/params"
)

// Payload shaping: every float is rounded to a fixed number of decimals
// before serialization. This roughly halves payload size without visibly
// changing the HUD rendering.

var roundScale = math.Pow(10, params.FloatDecimals)

func roundTo(v float64) float64 {
	return math.Round(v*roundScale) / roundScale
}

func roundSlice(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = roundTo(v)
	}
	return out
}

// matrixWindow extracts rows [r0,r1) x cols [c0,c1) of m as rounded rows.
func matrixWindow(m *mat.Dense, r0, r1, c0, c1 int) [][]float64 {
	out := make([][]float64, r1-r0)
	for i := r0; i < r1; i++ {
		row := make([]float64, c1-c0)
		for j := c0; j < c1; j++ {
			row[j-c0] = roundTo(m.At(i, j))
		}
		out[i-r0] = row
	}
	return out
}

// colWindow extracts columns [t0,t1) of a (d x T) matrix as position-major
// rounded rows, one row per position.
func colWindow(m *mat.Dense, t0, t1 int) [][]float64 {
	d, _ := m.Dims()
	out := make([][]float64, t1-t0)
	for t := t0; t < t1; t++ {
		row := make([]float64, d)
		for i := 0; i < d; i++ {
			row[i] = roundTo(m.At(i, t))
		}
		out[t-t0] = row
	}
	return out
}
