//go:build netlib

package device

import (
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/netlib/blas/netlib"
)

// Building with -tags netlib links the system BLAS (OpenBLAS, MKL,
// Accelerate, ...) through cgo. Registration is deferred to Resolve so
// SLM_DEVICE=cpu can still opt out.
func init() {
	backendName = "netlib"
	useAccel = func() {
		blas64.Use(netlib.Implementation{})
	}
}
