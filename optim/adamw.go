package optim

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/djeday123/goml-sentiment/nn"
)

// Adam implements Adam with optional decoupled weight decay (AdamW) and
// global-norm gradient clipping. Defaults follow the common Keras setup.
type Adam struct {
	Params      []*nn.Param
	LR          float64 // learning rate
	Beta1       float64 // first moment decay (default 0.9)
	Beta2       float64 // second moment decay (default 0.999)
	Eps         float64 // numerical stability (default 1e-7)
	WeightDecay float64 // decoupled decay, 0 = plain Adam
	MaxGradNorm float64 // gradient clipping (0 = disabled)

	// State
	m    [][]float64 // first moment (mean of gradients)
	v    [][]float64 // second moment (mean of squared gradients)
	step int
}

// Option tweaks an optimizer after defaults are applied.
type Option func(*Adam)

// WithWeightDecay enables AdamW-style decoupled weight decay.
func WithWeightDecay(wd float64) Option {
	return func(a *Adam) { a.WeightDecay = wd }
}

// WithMaxGradNorm clips gradients to the given global L2 norm.
func WithMaxGradNorm(n float64) Option {
	return func(a *Adam) { a.MaxGradNorm = n }
}

// NewAdam creates an optimizer over params.
func NewAdam(params []*nn.Param, lr float64, opts ...Option) *Adam {
	m := make([][]float64, len(params))
	v := make([][]float64, len(params))
	for i, p := range params {
		n := p.NumElements()
		m[i] = make([]float64, n)
		v[i] = make([]float64, n)
	}

	a := &Adam{
		Params: params,
		LR:     lr,
		Beta1:  0.9,
		Beta2:  0.999,
		Eps:    1e-7,
		m:      m,
		v:      v,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Step performs one optimization step using the gradients accumulated on
// each parameter.
func (opt *Adam) Step() {
	opt.step++

	if opt.MaxGradNorm > 0 {
		opt.clipGradNorm()
	}

	// Bias correction factors
	bc1 := 1.0 - math.Pow(opt.Beta1, float64(opt.step))
	bc2 := 1.0 - math.Pow(opt.Beta2, float64(opt.step))

	lr := opt.LR

	for i, param := range opt.Params {
		pData := param.Data()
		gData := param.GradData()
		m := opt.m[i]
		v := opt.v[i]

		for j, g := range gData {
			m[j] = opt.Beta1*m[j] + (1-opt.Beta1)*g
			v[j] = opt.Beta2*v[j] + (1-opt.Beta2)*g*g

			mHat := m[j] / bc1
			vHat := v[j] / bc2

			update := mHat / (math.Sqrt(vHat) + opt.Eps)
			pData[j] -= lr * (update + opt.WeightDecay*pData[j])
		}
	}
}

// ZeroGrad clears all gradients.
func (opt *Adam) ZeroGrad() {
	for _, p := range opt.Params {
		p.ZeroGrad()
	}
}

// Steps returns how many updates have been applied.
func (opt *Adam) Steps() int { return opt.step }

// clipGradNorm clips gradients by global L2 norm.
func (opt *Adam) clipGradNorm() {
	total := 0.0
	for _, p := range opt.Params {
		n := floats.Norm(p.GradData(), 2)
		total += n * n
	}
	total = math.Sqrt(total)

	if total <= opt.MaxGradNorm {
		return
	}

	scale := opt.MaxGradNorm / total
	for _, p := range opt.Params {
		floats.Scale(scale, p.GradData())
	}
}

// GetLR returns current learning rate.
func (opt *Adam) GetLR() float64 {
	return opt.LR
}

// SetLR updates the learning rate (for scheduling).
func (opt *Adam) SetLR(lr float64) {
	opt.LR = lr
}

// CosineSchedule computes learning rate with warmup + cosine decay.
// step is 1-based; totalSteps <= warmupSteps holds maxLR after warmup.
func CosineSchedule(step, warmupSteps, totalSteps int, maxLR, minLR float64) float64 {
	if step < warmupSteps {
		// Linear warmup
		return maxLR * float64(step) / float64(warmupSteps)
	}
	if totalSteps <= warmupSteps {
		return maxLR
	}

	// Cosine decay
	progress := float64(step-warmupSteps) / float64(totalSteps-warmupSteps)
	progress = min(progress, 1.0)
	return minLR + 0.5*(maxLR-minLR)*(1.0+math.Cos(math.Pi*progress))
}
