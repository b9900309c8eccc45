// gptscope serves a randomly initialized, untrained GPT-style model over a
// websocket and streams its internal signals (attention maps, MLP
// activations, residual-stream norms) to a HUD client, one generated token
// per request.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	"gptscope/device"
	"gptscope/params"
	"gptscope/server"
	"gptscope/transformer"
)

var (
	hostFlag = flag.String("host", params.Host, "Listen host")
	portFlag = flag.Int("port", params.Port, "Listen port")
)

func main() {
	flag.Parse()
	log.SetPrefix("[backend] ")
	log.SetFlags(0)

	dev, err := device.Resolve()
	if err != nil {
		log.Fatal(err)
	}

	cfg := params.Default()
	model, err := transformer.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("device=%s backend=%s blas_available=%v", dev.Name, dev.Backend, device.Available())
	log.Printf("model: d_model=%d layers=%d heads=%d d_ff=%d max_seq_len=%d",
		cfg.DModel, cfg.NLayers, cfg.NHeads, cfg.DFF, cfg.SeqLen)

	addr := fmt.Sprintf("%s:%d", *hostFlag, *portFlag)
	log.Printf("serving ws://%s", addr)

	srv := server.New(cfg, model, dev)
	log.Fatal(http.ListenAndServe(addr, srv.Handler()))
}
