package dataset

import (
	"iter"

	"github.com/djeday123/goml-sentiment/core"
)

// Label is the binary class of a review.
type Label int32

const (
	Negative Label = 0
	Positive Label = 1
)

func (l Label) Valid() bool { return l == Negative || l == Positive }

// Example is one labeled review.
type Example struct {
	Text  string
	Label Label
}

// Corpus is what a loader hands to the pipeline: examples plus the class
// names that define the label mapping (ClassNames[label]).
type Corpus struct {
	Examples   []Example
	ClassNames []string
}

// Texts is a restartable view over the example texts. Ranging over it twice
// yields the same sequence, so it can feed both adaptation and training.
func Texts(examples []Example) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, ex := range examples {
			if !yield(ex.Text) {
				return
			}
		}
	}
}

// ValidateExamples rejects empty sets and out-of-range labels.
func ValidateExamples(examples []Example) error {
	if len(examples) == 0 {
		return core.NewDataError("no examples")
	}
	for i, ex := range examples {
		if !ex.Label.Valid() {
			return core.NewDataError("example %d has label %d, want 0 or 1", i, ex.Label)
		}
	}
	return nil
}

// LabelCounts returns how many examples carry each label.
func LabelCounts(examples []Example) map[Label]int {
	counts := make(map[Label]int, 2)
	for _, ex := range examples {
		counts[ex.Label]++
	}
	return counts
}
