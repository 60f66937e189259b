package nn

import (
	"gonum.org/v1/gonum/mat"
)

// Param is a trainable matrix and its accumulated gradient.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

func newParam(name string, rows, cols int, data []float64) *Param {
	return &Param{
		Name:  name,
		Value: mat.NewDense(rows, cols, data),
		Grad:  mat.NewDense(rows, cols, nil),
	}
}

// Data exposes the row-major backing slice of the value.
func (p *Param) Data() []float64 { return p.Value.RawMatrix().Data }

// GradData exposes the row-major backing slice of the gradient.
func (p *Param) GradData() []float64 { return p.Grad.RawMatrix().Data }

func (p *Param) NumElements() int {
	r, c := p.Value.Dims()
	return r * c
}

func (p *Param) ZeroGrad() { p.Grad.Zero() }
