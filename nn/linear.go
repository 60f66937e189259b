package nn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Linear implements y = x @ W^T + bias
type Linear struct {
	Weight *Param // [outFeatures, inFeatures]
	Bias   *Param // [1, outFeatures] or nil
	InF    int
	OutF   int
}

// NewLinear creates a linear layer with Glorot uniform initialization.
func NewLinear(inFeatures, outFeatures int, bias bool, rng *rand.Rand) (*Linear, error) {
	if inFeatures <= 0 || outFeatures <= 0 {
		return nil, fmt.Errorf("linear: invalid size %dx%d", inFeatures, outFeatures)
	}
	// Glorot: limit = sqrt(6 / (fan_in + fan_out))
	limit := math.Sqrt(6.0 / float64(inFeatures+outFeatures))

	wData := make([]float64, outFeatures*inFeatures)
	for i := range wData {
		wData[i] = (rng.Float64()*2 - 1) * limit
	}

	l := &Linear{
		Weight: newParam("linear.weight", outFeatures, inFeatures, wData),
		InF:    inFeatures,
		OutF:   outFeatures,
	}
	if bias {
		l.Bias = newParam("linear.bias", 1, outFeatures, nil)
	}
	return l, nil
}

// Forward computes y = x @ W^T + bias.
// x shape: [n, inFeatures] → output: [n, outFeatures]
func (l *Linear) Forward(x *mat.Dense) (*mat.Dense, error) {
	n, in := x.Dims()
	if in != l.InF {
		return nil, fmt.Errorf("linear: input has %d features, want %d", in, l.InF)
	}

	out := mat.NewDense(n, l.OutF, nil)
	out.Mul(x, l.Weight.Value.T())

	if l.Bias != nil {
		b := l.Bias.Value.RawRowView(0)
		for i := range n {
			floats.Add(out.RawRowView(i), b)
		}
	}
	return out, nil
}

// Backward accumulates dW = dY^T @ x and db = Σ dY, and returns dX = dY @ W.
func (l *Linear) Backward(x, dY *mat.Dense) *mat.Dense {
	var dW mat.Dense
	dW.Mul(dY.T(), x)
	l.Weight.Grad.Add(l.Weight.Grad, &dW)

	if l.Bias != nil {
		db := l.Bias.Grad.RawRowView(0)
		n, _ := dY.Dims()
		for i := range n {
			floats.Add(db, dY.RawRowView(i))
		}
	}

	n, _ := dY.Dims()
	dX := mat.NewDense(n, l.InF, nil)
	dX.Mul(dY, l.Weight.Value)
	return dX
}

// Parameters returns all trainable parameters.
func (l *Linear) Parameters() []*Param {
	if l.Bias != nil {
		return []*Param{l.Weight, l.Bias}
	}
	return []*Param{l.Weight}
}
