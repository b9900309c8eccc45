package transformer

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"gptscope/params"
	"gptscope/utils"
)

// Attention is multi-head causal self-attention with a single combined
// query/key/value projection. Implemented head by head so the post-softmax
// weight matrices can be handed to the visualization layer.
type Attention struct {
	H      int
	DModel int
	DHead  int
	Wqkv   *mat.Dense // (3*dModel x dModel): rows [0,d) query, [d,2d) key, [2d,3d) value
	Wproj  *mat.Dense // (dModel x dModel)

	// Full-context causal mask built once at init; forwards slice read-only
	// views so concurrent sessions never touch shared mutable state.
	mask *mat.Dense // (seqLen x seqLen)
}

func NewAttention(cfg params.ModelConfig) *Attention {
	d := cfg.DModel
	return &Attention{
		H:      cfg.NHeads,
		DModel: d,
		DHead:  cfg.HeadDim(),
		Wqkv:   mat.NewDense(3*d, d, utils.RandomArray(3*d*d, float64(d))),
		Wproj:  mat.NewDense(d, d, utils.RandomArray(d*d, float64(d))),
		mask:   utils.CausalMask(cfg.SeqLen),
	}
}

// Forward consumes X (dModel x T) and returns the attended output
// (dModel x T) plus one (T x T) post-softmax weight matrix per head.
// Weight row i sums to 1 and is exactly zero for every column j > i.
func (a *Attention) Forward(X *mat.Dense) (*mat.Dense, []*mat.Dense) {
	_, T := X.Dims()

	var qkv mat.Dense
	qkv.Mul(a.Wqkv, X) // (3*dModel x T)

	mask := a.mask.Slice(0, T, 0, T)
	rescale := 1.0 / math.Sqrt(float64(a.DHead))

	headsCat := mat.NewDense(a.DModel, T, nil)
	weights := make([]*mat.Dense, a.H)
	for h := 0; h < a.H; h++ {
		base := h * a.DHead
		q := qkv.Slice(base, base+a.DHead, 0, T).(*mat.Dense)
		k := qkv.Slice(a.DModel+base, a.DModel+base+a.DHead, 0, T).(*mat.Dense)
		v := qkv.Slice(2*a.DModel+base, 2*a.DModel+base+a.DHead, 0, T).(*mat.Dense)

		// S = (Q^T K)/sqrt(dHead), rows are query positions.
		scores := mat.NewDense(T, T, nil)
		scores.Mul(q.T(), k)
		scores.Scale(rescale, scores)

		A := mat.NewDense(T, T, nil)
		utils.RowSoftmaxMaskedInPlace(A, scores, mask)

		// O = V * A^T, then concat into the full-width output.
		o := mat.NewDense(a.DHead, T, nil)
		o.Mul(v, A.T())
		dst := headsCat.Slice(base, base+a.DHead, 0, T).(*mat.Dense)
		dst.Copy(o)

		weights[h] = A
	}

	var Y mat.Dense
	Y.Mul(a.Wproj, headsCat)
	return utils.ToDense(&Y), weights
}
