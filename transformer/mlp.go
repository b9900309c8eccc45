package transformer

import (
	"gonum.org/v1/gonum/mat"

	"gptscope/params"
	"gptscope/utils"
)

// MLP is the GPT-style feed-forward block:
// Linear(dModel -> dFF) -> GELU -> Linear(dFF -> dModel).
type MLP struct {
	DModel  int
	Hidden  int
	FC1     *mat.Dense // (dFF x dModel)
	FC1Bias *mat.Dense // (dFF x 1)
	FC2     *mat.Dense // (dModel x dFF)
	FC2Bias *mat.Dense // (dModel x 1)
}

func NewMLP(cfg params.ModelConfig) *MLP {
	return &MLP{
		DModel:  cfg.DModel,
		Hidden:  cfg.DFF,
		FC1:     mat.NewDense(cfg.DFF, cfg.DModel, utils.RandomArray(cfg.DFF*cfg.DModel, float64(cfg.DModel))),
		FC1Bias: mat.NewDense(cfg.DFF, 1, nil),
		FC2:     mat.NewDense(cfg.DModel, cfg.DFF, utils.RandomArray(cfg.DModel*cfg.DFF, float64(cfg.DFF))),
		FC2Bias: mat.NewDense(cfg.DModel, 1, nil),
	}
}

// Forward returns the block output (dModel x T) and the post-GELU hidden
// activations (dFF x T) for visualization.
func (m *MLP) Forward(X *mat.Dense) (*mat.Dense, *mat.Dense) {
	var pre mat.Dense
	pre.Mul(m.FC1, X) // (dFF x T)
	act := utils.ToDense(utils.AddBias(&pre, m.FC1Bias))
	act.Apply(utils.GeluApply, act)

	var out mat.Dense
	out.Mul(m.FC2, act) // (dModel x T)
	return utils.AddBias(&out, m.FC2Bias), act
}
