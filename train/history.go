package train

import (
	"time"

	"github.com/samber/lo"
)

// Metrics are sample-weighted means over one pass.
type Metrics struct {
	Loss     float64 `json:"loss"`
	Accuracy float64 `json:"accuracy"`
	Examples int     `json:"examples"`
}

// EpochMetrics records one epoch of Fit.
type EpochMetrics struct {
	Epoch        int           `json:"epoch"` // 1-based
	Train        Metrics       `json:"train"`
	Validation   *Metrics      `json:"validation,omitempty"`
	LearningRate float64       `json:"learning_rate"`
	Duration     time.Duration `json:"duration"`
}

// History is the per-epoch record of a run.
type History struct {
	Epochs []EpochMetrics `json:"epochs"`
}

func (h *History) Len() int { return len(h.Epochs) }

// Last returns the final epoch, or false for an empty history.
func (h *History) Last() (EpochMetrics, bool) {
	if len(h.Epochs) == 0 {
		return EpochMetrics{}, false
	}
	return h.Epochs[len(h.Epochs)-1], true
}

func (h *History) Loss() []float64 {
	return h.collect(func(e EpochMetrics) (float64, bool) { return e.Train.Loss, true })
}

func (h *History) Accuracy() []float64 {
	return h.collect(func(e EpochMetrics) (float64, bool) { return e.Train.Accuracy, true })
}

// ValLoss skips epochs without validation.
func (h *History) ValLoss() []float64 {
	return h.collect(func(e EpochMetrics) (float64, bool) {
		if e.Validation == nil {
			return 0, false
		}
		return e.Validation.Loss, true
	})
}

func (h *History) ValAccuracy() []float64 {
	return h.collect(func(e EpochMetrics) (float64, bool) {
		if e.Validation == nil {
			return 0, false
		}
		return e.Validation.Accuracy, true
	})
}

func (h *History) collect(get func(EpochMetrics) (float64, bool)) []float64 {
	return lo.FilterMap(h.Epochs, func(e EpochMetrics, _ int) (float64, bool) {
		return get(e)
	})
}
