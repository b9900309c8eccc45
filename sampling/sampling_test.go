package sampling

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
)

func TestNextRejectsEmptyLogits(t *testing.T) {
	if _, _, _, err := Next(nil, 1.0, 0, 1.0, rand.NewSource(1)); err == nil {
		t.Fatal("Next accepted empty logits")
	}
}

func TestTopK1AlwaysArgmax(t *testing.T) {
	logits := []float64{0.1, 2.5, -1.0, 2.0, 0.0}
	src := rand.NewSource(7)
	for i := 0; i < 50; i++ {
		id, prob, probs, err := Next(logits, 1.0, 1, 1.0, src)
		if err != nil {
			t.Fatal(err)
		}
		if id != 1 {
			t.Fatalf("draw %d: got id %d, want argmax 1", i, id)
		}
		if prob != 1.0 {
			t.Fatalf("draw %d: got prob %v, want 1.0", i, prob)
		}
		for j, p := range probs {
			if j != 1 && p != 0 {
				t.Fatalf("filtered token %d kept probability %v", j, p)
			}
		}
	}
}

func TestTopPZeroKeepsTopToken(t *testing.T) {
	logits := []float64{1.0, 3.0, 2.0}
	src := rand.NewSource(3)
	for i := 0; i < 20; i++ {
		id, prob, _, err := Next(logits, 1.0, 0, 0.0, src)
		if err != nil {
			t.Fatal(err)
		}
		if id != 1 || prob != 1.0 {
			t.Fatalf("p=0 draw: got (id=%d prob=%v), want (1, 1.0)", id, prob)
		}
	}
}

func TestLowTemperatureConvergesToArgmax(t *testing.T) {
	logits := []float64{-2.0, 4.0, 3.0, 0.5}
	src := rand.NewSource(11)
	for i := 0; i < 20; i++ {
		id, prob, _, err := Next(logits, 1e-9, 0, 1.0, src)
		if err != nil {
			t.Fatal(err)
		}
		if id != 1 {
			t.Fatalf("near-zero temperature drew %d, want argmax 1", id)
		}
		if prob < 1.0-1e-12 {
			t.Fatalf("near-zero temperature prob = %v, want ~1", prob)
		}
	}
}

func TestTopKTiesAdmitMoreThanK(t *testing.T) {
	logits := []float64{5.0, 5.0, 1.0, 0.0}
	_, _, probs, err := Next(logits, 1.0, 1, 1.0, rand.NewSource(5))
	if err != nil {
		t.Fatal(err)
	}
	// Both entries at the threshold value survive the k=1 filter.
	if math.Abs(probs[0]-0.5) > 1e-12 || math.Abs(probs[1]-0.5) > 1e-12 {
		t.Fatalf("tied survivors got probs %v and %v, want 0.5 each", probs[0], probs[1])
	}
	if probs[2] != 0 || probs[3] != 0 {
		t.Fatalf("sub-threshold tokens kept mass: %v", probs[2:])
	}
}

func TestTopPDropsAfterPrefixExceedsP(t *testing.T) {
	// Softmax of these logits is exactly (0.5, 0.3, 0.2).
	logits := []float64{math.Log(0.5), math.Log(0.3), math.Log(0.2)}
	_, _, probs, err := Next(logits, 1.0, 0, 0.6, rand.NewSource(9))
	if err != nil {
		t.Fatal(err)
	}
	// Entry 1 survives (prefix mass 0.5 <= 0.6); entry 2 is dropped
	// (prefix mass 0.8 > 0.6). Survivors renormalize to 0.625/0.375.
	if math.Abs(probs[0]-0.625) > 1e-9 || math.Abs(probs[1]-0.375) > 1e-9 {
		t.Fatalf("nucleus survivors got %v, want [0.625 0.375 0]", probs)
	}
	if probs[2] != 0 {
		t.Fatalf("entry past the nucleus kept mass %v", probs[2])
	}
}

func TestDisabledFiltersKeepFullDistribution(t *testing.T) {
	logits := []float64{1.0, 2.0, 3.0}
	_, _, probs, err := Next(logits, 1.0, 0, 1.0, rand.NewSource(2))
	if err != nil {
		t.Fatal(err)
	}
	sum := 0.0
	for _, p := range probs {
		if p <= 0 {
			t.Fatalf("disabled filters still zeroed a token: %v", probs)
		}
		sum += p
	}
	if math.Abs(sum-1.0) > 1e-12 {
		t.Fatalf("distribution sums to %v, want 1", sum)
	}
}

func TestTopKProbs(t *testing.T) {
	probs := []float64{0.1, 0.4, 0.2, 0.3}

	top := TopKProbs(probs, 2)
	if len(top) != 2 || top[0].ID != 1 || top[1].ID != 3 {
		t.Fatalf("TopKProbs(2) = %+v, want ids [1 3]", top)
	}
	for i := 1; i < len(top); i++ {
		if top[i].Prob > top[i-1].Prob {
			t.Fatalf("TopKProbs not descending: %+v", top)
		}
	}

	// k is clamped to [1, len].
	if got := TopKProbs(probs, 0); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("TopKProbs(0) = %+v, want single argmax entry", got)
	}
	if got := TopKProbs(probs, 99); len(got) != len(probs) {
		t.Fatalf("TopKProbs(99) returned %d entries, want %d", len(got), len(probs))
	}
}
