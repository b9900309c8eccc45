package server

// Wire types for the one-request/one-token protocol. Requests are decoded
// generically (see handleMessage) so malformed fields can fall back to
// defaults instead of failing the whole request; responses are typed.

// SampledToken reports one token ID with its display piece and probability.
type SampledToken struct {
	ID    int     `json:"id"`
	Token string  `json:"token"`
	Prob  float64 `json:"prob"`
}

// AttentionView is the windowed post-softmax weight matrix for the selected
// layer and head. Matrix is (w x w) with w = min(VizWindow, T).
type AttentionView struct {
	Layer  int         `json:"layer"`
	Head   int         `json:"head"`
	Matrix [][]float64 `json:"matrix"`
}

// MLPView is the windowed post-GELU activations, one row per position.
type MLPView struct {
	Layer       int         `json:"layer"`
	Activations [][]float64 `json:"activations"`
	WindowStart int         `json:"window_start"`
}

// ResidualView is the windowed residual-stream L2 norms for one layer.
type ResidualView struct {
	Layer       int       `json:"layer"`
	Norms       []float64 `json:"norms"`
	WindowStart int       `json:"window_start"`
}

type Meta struct {
	Device        string `json:"device"`
	T             int    `json:"t"`
	MaxSeqLen     int    `json:"max_seq_len"`
	VizWindow     int    `json:"viz_window"`
	Done          bool   `json:"done"`
	BlasAvailable bool   `json:"blas_available"`
	BlasBackend   string `json:"blas_backend"`
}

// StepResponse is the full visualization snapshot for one generated token.
type StepResponse struct {
	TokenIDs           []int          `json:"token_ids"`
	Tokens             []string       `json:"tokens"`
	Generated          string         `json:"generated"`
	Sampled            SampledToken   `json:"sampled"`
	TopK               []SampledToken `json:"topk"`
	Attention          AttentionView  `json:"attention"`
	MLP                MLPView        `json:"mlp"`
	Residual           ResidualView   `json:"residual"`
	ResidualLayersLast []float64      `json:"residual_layers_last"`
	Meta               Meta           `json:"meta"`
}

// ErrorResponse is sent in place of a StepResponse; the connection stays
// open and the session is untouched.
type ErrorResponse struct {
	Error string `json:"error"`
}
