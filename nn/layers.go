package nn

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Dropout zeroes activations with probability Rate during training and
// scales survivors by 1/(1-Rate). It is the identity at inference.
type Dropout struct {
	Rate float64
}

// Forward returns the output and the mask to pass to Backward (nil when
// inactive).
func (d Dropout) Forward(x *mat.Dense, training bool, rng *rand.Rand) (*mat.Dense, *mat.Dense) {
	if !training || d.Rate == 0 {
		return x, nil
	}
	r, c := x.Dims()
	keep := 1 / (1 - d.Rate)
	mask := mat.NewDense(r, c, nil)
	m := mask.RawMatrix().Data
	for i := range m {
		if rng.Float64() >= d.Rate {
			m[i] = keep
		}
	}
	out := mat.NewDense(r, c, nil)
	out.MulElem(x, mask)
	return out, mask
}

// Backward applies the forward mask to the upstream gradient.
func (d Dropout) Backward(dY, mask *mat.Dense) *mat.Dense {
	if mask == nil {
		return dY
	}
	r, c := dY.Dims()
	dX := mat.NewDense(r, c, nil)
	dX.MulElem(dY, mask)
	return dX
}

// GlobalAveragePooling1D averages each sequence over its time steps.
// Padding positions are included in the mean.
type GlobalAveragePooling1D struct{}

// Forward: x [rows*seqLen, dim] → [rows, dim]
func (GlobalAveragePooling1D) Forward(x *mat.Dense, rows, seqLen int) (*mat.Dense, error) {
	n, dim := x.Dims()
	if n != rows*seqLen {
		return nil, fmt.Errorf("pooling: %d rows, want %d*%d", n, rows, seqLen)
	}
	out := mat.NewDense(rows, dim, nil)
	inv := 1 / float64(seqLen)
	for r := range rows {
		dst := out.RawRowView(r)
		for t := range seqLen {
			floats.Add(dst, x.RawRowView(r*seqLen+t))
		}
		floats.Scale(inv, dst)
	}
	return out, nil
}

// Backward spreads dY evenly over the time steps: [rows, dim] → [rows*seqLen, dim]
func (GlobalAveragePooling1D) Backward(dY *mat.Dense, seqLen int) *mat.Dense {
	rows, dim := dY.Dims()
	dX := mat.NewDense(rows*seqLen, dim, nil)
	inv := 1 / float64(seqLen)
	for r := range rows {
		src := dY.RawRowView(r)
		for t := range seqLen {
			floats.AddScaled(dX.RawRowView(r*seqLen+t), inv, src)
		}
	}
	return dX
}
