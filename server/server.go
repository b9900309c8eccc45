// Package server is the websocket session/protocol layer.
//
// One request yields exactly one generated token: the handler validates and
// clamps the controls, resets the session when a new prompt arrives, runs
// the model over the active context window, samples the next token, and
// ships back a bounded visualization snapshot. Failures of any kind are
// answered with an {"error": ...} payload on the same connection, which
// stays open with its session state untouched.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"gptscope/device"
	"gptscope/params"
	"gptscope/sampling"
	"gptscope/tokenizer"
	"gptscope/transformer"
)

type Server struct {
	cfg   params.ModelConfig
	model *transformer.Model
	dev   device.Device
	up    websocket.Upgrader
}

func New(cfg params.ModelConfig, model *transformer.Model, dev device.Device) *Server {
	return &Server{
		cfg:   cfg,
		model: model,
		dev:   dev,
		up: websocket.Upgrader{
			// Local HUD client; the demo performs no origin auth.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler upgrades incoming connections and serves each on its own
// goroutine (net/http already runs one per connection).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.up.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade failed: %v", err)
			return
		}
		s.serveConn(conn)
	})
	return mux
}

func (s *Server) serveConn(conn *websocket.Conn) {
	defer conn.Close()
	conn.SetReadLimit(params.MaxMessage)

	log.Printf("client connected")
	defer log.Printf("client disconnected")

	sess := &Session{}
	src := rand.NewSource(uint64(time.Now().UnixNano()))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		payload := s.handleMessage(sess, raw, src)
		data, err := json.Marshal(payload)
		if err != nil {
			data, _ = json.Marshal(ErrorResponse{Error: fmt.Sprintf("Server error: %v", err)})
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// controls are the transient per-request sampling/visualization knobs.
type controls struct {
	temperature float64
	topK        int
	topP        float64
	vizLayer    int
	vizHead     int
}

// handleMessage processes one raw request and returns either *StepResponse
// or ErrorResponse. Pure with respect to the transport, which keeps the
// whole protocol testable without a websocket.
func (s *Server) handleMessage(sess *Session, raw []byte, src rand.Source) any {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return ErrorResponse{Error: fmt.Sprintf("Invalid JSON: %v", err)}
	}
	req, ok := decoded.(map[string]any)
	if !ok {
		return ErrorResponse{Error: "Request must be a JSON object."}
	}

	step, ok := req["step"].(bool)
	if !ok || !step {
		return ErrorResponse{Error: "Only step=true is supported."}
	}

	ctl := controls{
		temperature: clampFloat(req["temperature"], 0.05, 5.0, 1.0),
		topK:        clampInt(req["top_k"], 0, 200, 0),
		topP:        clampFloat(req["top_p"], 0.0, 1.0, 1.0),
		vizLayer:    clampInt(req["viz_layer"], 0, s.cfg.NLayers-1, 0),
		vizHead:     clampInt(req["viz_head"], 0, s.cfg.NHeads-1, 0),
	}

	// A non-empty prompt resets the session; an empty one never does.
	if prompt, _ := req["prompt"].(string); prompt != "" {
		ids, err := tokenizer.Encode(prompt)
		if err != nil {
			return ErrorResponse{Error: fmt.Sprintf("Server error: %v", err)}
		}
		sess.Reset(ids)
	}
	if !sess.Active() {
		return ErrorResponse{Error: "Empty session. Send a non-empty prompt first."}
	}

	resp, err := s.stepSession(sess, ctl, src)
	if err != nil {
		return ErrorResponse{Error: fmt.Sprintf("Server error: %v", err)}
	}
	return resp
}

// stepSession runs forward -> sample -> shape, committing the sampled token
// only after the response is fully built. A panic anywhere in the compute
// path is converted to an error so the connection survives.
func (s *Server) stepSession(sess *Session, ctl controls, src rand.Source) (resp *StepResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, fmt.Errorf("%v", r)
		}
	}()

	// Feeding only the trailing context window keeps generation responsive
	// even when the transcript outgrows SeqLen.
	active := sess.TokenIDs
	if len(active) > s.cfg.SeqLen {
		active = active[len(active)-s.cfg.SeqLen:]
	}

	logits, cache, err := s.model.Forward(active)
	if err != nil {
		return nil, err
	}
	_, T := logits.Dims()
	lastLogits := mat.Col(nil, T-1, logits)

	id, prob, probs, err := sampling.Next(lastLogits, ctl.temperature, ctl.topK, ctl.topP, src)
	if err != nil {
		return nil, err
	}

	history := make([]int, 0, len(sess.TokenIDs)+1)
	history = append(history, sess.TokenIDs...)
	history = append(history, id)

	resp = s.buildResponse(history, sess.Step+1, T, cache, ctl, id, prob, probs)
	sess.commit(id)
	return resp, nil
}

func (s *Server) buildResponse(history []int, step, T int, cache *transformer.Cache, ctl controls, id int, prob float64, probs []float64) *StepResponse {
	w := params.VizWindow
	if T < w {
		w = T
	}
	windowStart := len(history) - w
	if windowStart < 0 {
		windowStart = 0
	}

	attn := cache.Attn[ctl.vizLayer][ctl.vizHead] // (T x T)
	mlpAct := cache.Mlp[ctl.vizLayer]             // (dFF x T)
	resid := cache.Resid[ctl.vizLayer]

	residLast := make([]float64, s.cfg.NLayers)
	for l := 0; l < s.cfg.NLayers; l++ {
		residLast[l] = roundTo(cache.Resid[l][T-1])
	}

	topk := sampling.TopKProbs(probs, params.TopKToSend)
	topkOut := make([]SampledToken, len(topk))
	for i, tp := range topk {
		topkOut[i] = SampledToken{ID: tp.ID, Token: tokenizer.IDToPiece(tp.ID), Prob: roundTo(tp.Prob)}
	}

	pieces := make([]string, len(history))
	for i, tid := range history {
		pieces[i] = tokenizer.IDToPiece(tid)
	}

	return &StepResponse{
		TokenIDs:  history,
		Tokens:    pieces,
		Generated: tokenizer.Decode(history),
		Sampled:   SampledToken{ID: id, Token: tokenizer.IDToPiece(id), Prob: roundTo(prob)},
		TopK:      topkOut,
		Attention: AttentionView{
			Layer:  ctl.vizLayer,
			Head:   ctl.vizHead,
			Matrix: matrixWindow(attn, T-w, T, T-w, T),
		},
		MLP: MLPView{
			Layer:       ctl.vizLayer,
			Activations: colWindow(mlpAct, T-w, T),
			WindowStart: windowStart,
		},
		Residual: ResidualView{
			Layer:       ctl.vizLayer,
			Norms:       roundSlice(resid[T-w:]),
			WindowStart: windowStart,
		},
		ResidualLayersLast: residLast,
		Meta: Meta{
			Device:        s.dev.Name,
			T:             step,
			MaxSeqLen:     s.cfg.SeqLen,
			VizWindow:     params.VizWindow,
			Done:          id == tokenizer.EOS,
			BlasAvailable: device.Available(),
			BlasBackend:   s.dev.Backend,
		},
	}
}

// ---- validated-parse-with-default clamps ----
//
// Invalid or out-of-range control values fall back to a safe default
// instead of failing the request. JSON numbers arrive as float64; anything
// else (missing, string, null, NaN) is the default.

func clampFloat(v any, lo, hi, def float64) float64 {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) {
		return def
	}
	return math.Max(lo, math.Min(hi, f))
}

func clampInt(v any, lo, hi, def int) int {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) {
		return def
	}
	n := int(f)
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
