package transformer

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// LayerNorm normalizes each position (column) to zero mean / unit variance,
// then applies the learned-shape affine gamma/beta. Inference only: gamma is
// ones and beta zeros from init and never updated.
type LayerNorm struct {
	D     int
	Eps   float64
	Gamma *mat.Dense // (d x 1)
	Beta  *mat.Dense // (d x 1)
}

func NewLayerNorm(d int, eps float64) *LayerNorm {
	g := mat.NewDense(d, 1, nil)
	for i := 0; i < d; i++ {
		g.Set(i, 0, 1)
	}
	return &LayerNorm{
		D:     d,
		Eps:   eps,
		Gamma: g,
		Beta:  mat.NewDense(d, 1, nil),
	}
}

func (ln *LayerNorm) Forward(X *mat.Dense) *mat.Dense {
	d, T := X.Dims()
	if d != ln.D {
		panic("LayerNorm.Forward: input width mismatch")
	}
	out := mat.NewDense(d, T, nil)
	for t := 0; t < T; t++ {
		mu := 0.0
		for i := 0; i < d; i++ {
			mu += X.At(i, t)
		}
		mu /= float64(d)
		var v float64
		for i := 0; i < d; i++ {
			diff := X.At(i, t) - mu
			v += diff * diff
		}
		v /= float64(d)
		istd := 1.0 / math.Sqrt(v+ln.Eps)
		for i := 0; i < d; i++ {
			n := (X.At(i, t) - mu) * istd
			out.Set(i, t, ln.Gamma.At(i, 0)*n+ln.Beta.At(i, 0))
		}
	}
	return out
}
