// Package transformer implements a small decoder-only Transformer forward
// pass on gonum dense matrices.
//
// The model is deliberately untrained: parameters are drawn once at startup
// and never updated, so the generated text is nonsense while the internal
// signals (attention patterns, MLP activations, residual energy) are real.
// Every forward call also fills a Cache with those signals so the serving
// layer can stream them to the HUD.
package transformer

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"gptscope/params"
	"gptscope/utils"
)

const lnEps = 1e-5

// Block is a pre-LN Transformer block:
//
//	x = x + Attn(LN1(x))
//	x = x + MLP(LN2(x))
type Block struct {
	Ln1  *LayerNorm
	Attn *Attention
	Ln2  *LayerNorm
	Mlp  *MLP
}

// Forward advances the residual stream one block and reports the block's
// visualization artifacts: per-head attention weights, post-GELU hidden
// activations, and the per-position L2 norm of the updated stream.
func (b *Block) Forward(x *mat.Dense) (*mat.Dense, []*mat.Dense, *mat.Dense, []float64) {
	attnOut, attnW := b.Attn.Forward(b.Ln1.Forward(x))
	xRes := mat.DenseCopyOf(x)
	xRes.Add(xRes, attnOut)

	mlpOut, mlpAct := b.Mlp.Forward(b.Ln2.Forward(xRes))
	xRes.Add(xRes, mlpOut)

	return xRes, attnW, mlpAct, utils.ColNorms(xRes)
}

// Cache holds one forward call's internal activations, one entry per layer.
// It is owned by the caller and discarded once the response is built.
type Cache struct {
	Attn  [][]*mat.Dense // [layer][head] (T x T) post-softmax weights
	Mlp   []*mat.Dense   // [layer] (dFF x T) post-GELU activations
	Resid [][]float64    // [layer][T] residual-stream L2 norms
}

// Model is the full randomly-initialized GPT-style stack. Parameters are
// immutable after New, so any number of sessions may call Forward
// concurrently without locking.
type Model struct {
	Cfg    params.ModelConfig
	TokEmb *mat.Dense // (dModel x vocab); also the tied unembedding
	PosEmb *mat.Dense // (dModel x seqLen)
	Blocks []*Block
	LnF    *LayerNorm
}

func New(cfg params.ModelConfig) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := cfg.DModel
	m := &Model{
		Cfg:    cfg,
		TokEmb: mat.NewDense(d, cfg.VocabSize, utils.RandomArray(d*cfg.VocabSize, float64(d))),
		PosEmb: mat.NewDense(d, cfg.SeqLen, utils.RandomArray(d*cfg.SeqLen, float64(d))),
		Blocks: make([]*Block, cfg.NLayers),
		LnF:    NewLayerNorm(d, lnEps),
	}
	for i := range m.Blocks {
		m.Blocks[i] = &Block{
			Ln1:  NewLayerNorm(d, lnEps),
			Attn: NewAttention(cfg),
			Ln2:  NewLayerNorm(d, lnEps),
			Mlp:  NewMLP(cfg),
		}
	}
	return m, nil
}

// Forward runs the stack over one token sequence and returns logits
// (vocab x T) plus the activation cache. Sequences longer than the context
// window are silently truncated to their trailing SeqLen tokens.
//
// The unembedding reuses TokEmb transposed, so embedding and output
// projection share one parameter table (weight tying).
func (m *Model) Forward(ids []int) (*mat.Dense, *Cache, error) {
	if len(ids) == 0 {
		return nil, nil, fmt.Errorf("transformer: input sequence is empty")
	}
	if len(ids) > m.Cfg.SeqLen {
		ids = ids[len(ids)-m.Cfg.SeqLen:]
	}
	T := len(ids)

	x := mat.NewDense(m.Cfg.DModel, T, nil)
	for t, id := range ids {
		if id < 0 || id >= m.Cfg.VocabSize {
			return nil, nil, fmt.Errorf("transformer: token id %d out of range [0,%d)", id, m.Cfg.VocabSize)
		}
		for i := 0; i < m.Cfg.DModel; i++ {
			x.Set(i, t, m.TokEmb.At(i, id)+m.PosEmb.At(i, t))
		}
	}

	cache := &Cache{
		Attn:  make([][]*mat.Dense, 0, m.Cfg.NLayers),
		Mlp:   make([]*mat.Dense, 0, m.Cfg.NLayers),
		Resid: make([][]float64, 0, m.Cfg.NLayers),
	}
	for _, b := range m.Blocks {
		var attnW []*mat.Dense
		var mlpAct *mat.Dense
		var norms []float64
		x, attnW, mlpAct, norms = b.Forward(x)
		cache.Attn = append(cache.Attn, attnW)
		cache.Mlp = append(cache.Mlp, mlpAct)
		cache.Resid = append(cache.Resid, norms)
	}

	x = m.LnF.Forward(x)
	var logits mat.Dense
	logits.Mul(m.TokEmb.T(), x) // (vocab x T)
	return utils.ToDense(&logits), cache, nil
}
