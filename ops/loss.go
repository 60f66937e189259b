package ops

import (
	"fmt"
	"math"
)

// Sigmoid computes 1/(1+exp(-z)) without overflowing for large |z|.
func Sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// BinaryCrossEntropy computes the mean binary cross-entropy between
// sigmoid(logits) and 0/1 targets, plus its gradient w.r.t. the logits.
//
// Per example, with p = sigmoid(z):
//
//	loss = -(y*log(p) + (1-y)*log(1-p)) = max(z,0) - z*y + log(1+exp(-|z|))
//	grad = (p - y) / N
//
// The logit form stays finite for any finite z; a non-finite logit gives a
// non-finite loss, which callers treat as fatal.
func BinaryCrossEntropy(logits, targets []float64) (float64, []float64, error) {
	if len(logits) != len(targets) {
		return 0, nil, fmt.Errorf("bce: %d logits vs %d targets", len(logits), len(targets))
	}
	n := len(logits)
	if n == 0 {
		return 0, nil, fmt.Errorf("bce: empty batch")
	}

	grad := make([]float64, n)
	total := 0.0
	for i, z := range logits {
		y := targets[i]
		total += math.Max(z, 0) - z*y + math.Log1p(math.Exp(-math.Abs(z)))
		grad[i] = (Sigmoid(z) - y) / float64(n)
	}
	return total / float64(n), grad, nil
}

// BinaryCorrect counts predictions on the right side of threshold.
// A probability counts as positive when it is strictly greater than threshold.
func BinaryCorrect(probs, targets []float64, threshold float64) int {
	correct := 0
	for i, p := range probs {
		pred := 0.0
		if p > threshold {
			pred = 1
		}
		if pred == targets[i] {
			correct++
		}
	}
	return correct
}

// IsFinite reports whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
