package ops

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigmoid(t *testing.T) {
	assert.InDelta(t, 0.5, Sigmoid(0), 1e-12)
	assert.InDelta(t, 0.7310585786, Sigmoid(1), 1e-9)
	assert.InDelta(t, 1-Sigmoid(3), Sigmoid(-3), 1e-12)
	assert.Equal(t, 1.0, Sigmoid(1000))
	assert.Equal(t, 0.0, Sigmoid(-1000))
	assert.True(t, math.IsNaN(Sigmoid(math.NaN())))
}

func TestBinaryCrossEntropyMatchesProbabilityForm(t *testing.T) {
	logits := []float64{-2, -0.5, 0, 0.5, 3}
	targets := []float64{0, 1, 1, 0, 1}

	loss, grad, err := BinaryCrossEntropy(logits, targets)
	require.NoError(t, err)

	want := 0.0
	for i, z := range logits {
		p := Sigmoid(z)
		want -= targets[i]*math.Log(p) + (1-targets[i])*math.Log(1-p)
	}
	want /= float64(len(logits))
	assert.InDelta(t, want, loss, 1e-12)

	for i, z := range logits {
		assert.InDelta(t, (Sigmoid(z)-targets[i])/5, grad[i], 1e-12)
	}
}

func TestBinaryCrossEntropyGradientNumerically(t *testing.T) {
	logits := []float64{0.3, -1.2, 2.1}
	targets := []float64{1, 0, 0}
	_, grad, err := BinaryCrossEntropy(logits, targets)
	require.NoError(t, err)

	const h = 1e-6
	for i := range logits {
		plus := append([]float64(nil), logits...)
		minus := append([]float64(nil), logits...)
		plus[i] += h
		minus[i] -= h
		lp, _, _ := BinaryCrossEntropy(plus, targets)
		lm, _, _ := BinaryCrossEntropy(minus, targets)
		assert.InDelta(t, (lp-lm)/(2*h), grad[i], 1e-6)
	}
}

func TestBinaryCrossEntropyExtremes(t *testing.T) {
	loss, _, err := BinaryCrossEntropy([]float64{500, -500}, []float64{1, 0})
	require.NoError(t, err)
	assert.True(t, IsFinite(loss))
	assert.InDelta(t, 0, loss, 1e-12)

	loss, _, err = BinaryCrossEntropy([]float64{math.NaN()}, []float64{1})
	require.NoError(t, err)
	assert.False(t, IsFinite(loss))

	loss, _, err = BinaryCrossEntropy([]float64{math.Inf(1)}, []float64{0})
	require.NoError(t, err)
	assert.False(t, IsFinite(loss))
}

func TestBinaryCrossEntropyErrors(t *testing.T) {
	_, _, err := BinaryCrossEntropy([]float64{1}, []float64{1, 0})
	assert.Error(t, err)
	_, _, err = BinaryCrossEntropy(nil, nil)
	assert.Error(t, err)
}

func TestBinaryCorrect(t *testing.T) {
	probs := []float64{0.9, 0.5, 0.1, 0.51}
	targets := []float64{1, 1, 0, 0}
	assert.Equal(t, 2, BinaryCorrect(probs, targets, 0.5))
}
