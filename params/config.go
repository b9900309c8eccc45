package params

import "fmt"

// ModelConfig fixes the transformer geometry. Created once at startup and
// never mutated; every session reads the same instance.
type ModelConfig struct {
	VocabSize int
	DModel    int
	NLayers   int
	NHeads    int
	DFF       int
	SeqLen    int // max context length
}

// Default returns the demo geometry: small enough that a full forward pass
// stays interactive on a laptop CPU.
func Default() ModelConfig {
	return ModelConfig{
		VocabSize: 259, // 256 bytes + BOS/EOS/PAD
		DModel:    128,
		NLayers:   4,
		NHeads:    4,
		DFF:       256,
		SeqLen:    128,
	}
}

func (c ModelConfig) Validate() error {
	if c.VocabSize <= 0 || c.DModel <= 0 || c.NLayers <= 0 || c.NHeads <= 0 || c.DFF <= 0 || c.SeqLen <= 0 {
		return fmt.Errorf("params: all dimensions must be positive, got %+v", c)
	}
	if c.DModel%c.NHeads != 0 {
		return fmt.Errorf("params: d_model (%d) must be divisible by n_heads (%d)", c.DModel, c.NHeads)
	}
	return nil
}

// HeadDim is the per-head subspace width.
func (c ModelConfig) HeadDim() int { return c.DModel / c.NHeads }

// Serving defaults and payload-shaping constants.
const (
	Host = "localhost"
	Port = 8765

	VizWindow     = 32      // trailing positions sent per response
	TopKToSend    = 12      // alternatives reported alongside the sampled token
	FloatDecimals = 4       // rounding applied to every float payload
	MaxMessage    = 2 << 20 // websocket read limit, bytes
)
