// Package sampling turns next-token logits into a drawn token.
//
// The pipeline is strictly ordered: temperature scaling, top-k filter,
// nucleus (top-p) filter, softmax, weighted draw.
package sampling

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"gptscope/utils"
)

// tempFloor guards the temperature division; values below it behave as
// near-greedy decoding rather than blowing up the logits.
const tempFloor = 1e-5

// TokenProb pairs a token ID with its post-filter probability.
type TokenProb struct {
	ID   int
	Prob float64
}

// Next draws one token from logits. src may be nil for the global source.
// Returns the chosen ID, its probability, and the full post-filter
// distribution for downstream top-k reporting.
func Next(logits []float64, temperature float64, topK int, topP float64, src rand.Source) (int, float64, []float64, error) {
	if len(logits) == 0 {
		return 0, 0, nil, fmt.Errorf("sampling: logits must be a non-empty vector over the vocabulary")
	}

	filtered := make([]float64, len(logits))
	copy(filtered, logits)

	applyTemperature(filtered, temperature)
	topKFilter(filtered, topK)
	topPFilter(filtered, topP)

	probs := utils.SoftmaxSlice(filtered)
	cat := distuv.NewCategorical(probs, src)
	id := int(cat.Rand())
	return id, probs[id], probs, nil
}

func applyTemperature(logits []float64, temperature float64) {
	t := temperature
	if math.IsNaN(t) {
		t = 1.0
	}
	if t < tempFloor {
		t = tempFloor
	}
	inv := 1.0 / t
	for i := range logits {
		logits[i] *= inv
	}
}

// topKFilter keeps every entry whose logit is >= the k-th largest value.
// Ties at the threshold can admit more than k survivors. k <= 0 or
// k >= len disables the filter.
func topKFilter(logits []float64, k int) {
	if k <= 0 || k >= len(logits) {
		return
	}
	sorted := make([]float64, len(logits))
	copy(sorted, logits)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	threshold := sorted[k-1]
	negInf := math.Inf(-1)
	for i, v := range logits {
		if v < threshold {
			logits[i] = negInf
		}
	}
}

// topPFilter drops an entry once the entries ranked before it already cover
// probability mass > p. The highest-probability entry always survives.
// p >= 1 disables the filter; negative p behaves as p = 0.
func topPFilter(logits []float64, p float64) {
	if p >= 1.0 {
		return
	}
	if p < 0 {
		p = 0
	}

	order := make([]int, len(logits))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return logits[order[a]] > logits[order[b]] })

	sortedLogits := make([]float64, len(order))
	for rank, i := range order {
		sortedLogits[rank] = logits[i]
	}
	probs := utils.SoftmaxSlice(sortedLogits)

	negInf := math.Inf(-1)
	cum := 0.0
	for rank, i := range order {
		if rank > 0 && cum > p {
			logits[i] = negInf
		}
		cum += probs[rank]
	}
}

// TopKProbs returns the k highest-probability (id, prob) pairs, descending.
// k is clamped to [1, len(probs)]. Read-only helper.
func TopKProbs(probs []float64, k int) []TokenProb {
	if k < 1 {
		k = 1
	}
	if k > len(probs) {
		k = len(probs)
	}
	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return probs[order[a]] > probs[order[b]] })

	out := make([]TokenProb, k)
	for rank := 0; rank < k; rank++ {
		id := order[rank]
		out[rank] = TokenProb{ID: id, Prob: probs[id]}
	}
	return out
}
