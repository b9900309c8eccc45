// Package device resolves which compute backend the model math runs on.
//
// gonum executes on its pure Go BLAS by default. Building with -tags netlib
// compiles in an accelerated native BLAS backend; SLM_DEVICE then picks
// between the two at startup:
//
//	SLM_DEVICE=auto  (default) accelerated backend if compiled in, else pure Go
//	SLM_DEVICE=cpu   pure Go, even when an accelerated backend is available
//	SLM_DEVICE=blas  accelerated backend; fatal if not compiled in (alias: gpu)
package device

import (
	"fmt"
	"os"
	"strings"
)

// Set by the build-tagged backend file. A nil useAccel means only the pure
// Go implementation was compiled in.
var (
	useAccel    func()
	backendName = "gonum"
)

// Device describes the resolved backend, surfaced in response metadata.
type Device struct {
	Name        string // "cpu" or "blas"
	Backend     string // BLAS implementation identifier
	Accelerated bool
}

// Available reports whether an accelerated BLAS backend was compiled in.
func Available() bool { return useAccel != nil }

// Resolve reads SLM_DEVICE and activates the chosen backend. Requesting the
// accelerated backend when it is not compiled in is a startup error: the
// process must not begin serving on a silently different device.
func Resolve() (Device, error) {
	forced := strings.ToLower(strings.TrimSpace(os.Getenv("SLM_DEVICE")))
	switch forced {
	case "", "auto":
		if useAccel != nil {
			useAccel()
			return Device{Name: "blas", Backend: backendName, Accelerated: true}, nil
		}
		return Device{Name: "cpu", Backend: backendName, Accelerated: false}, nil
	case "cpu":
		return Device{Name: "cpu", Backend: "gonum", Accelerated: false}, nil
	case "blas", "gpu":
		if useAccel == nil {
			return Device{}, fmt.Errorf(
				"SLM_DEVICE=%s requested but no accelerated BLAS backend is compiled in; rebuild with -tags netlib", forced)
		}
		useAccel()
		return Device{Name: "blas", Backend: backendName, Accelerated: true}, nil
	default:
		return Device{}, fmt.Errorf("unknown SLM_DEVICE=%q, use auto|cpu|blas", forced)
	}
}
