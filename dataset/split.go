package dataset

import (
	"math/rand"

	"github.com/RoaringBitmap/roaring"

	"github.com/djeday123/goml-sentiment/core"
)

// Partition is a train/validation split of one pool of examples. The bitmaps
// hold the indices of the source pool that went to each side.
type Partition struct {
	Train      []Example
	Validation []Example

	TrainIndex      *roaring.Bitmap
	ValidationIndex *roaring.Bitmap
}

// SplitValidation shuffles the pool with seed and carves off the last
// floor(fraction*n) examples as validation. The same seed always produces the
// same partition.
func SplitValidation(pool []Example, fraction float64, seed int64) (*Partition, error) {
	if !(fraction > 0 && fraction < 1) {
		return nil, core.NewConfigError("validation_fraction", "must be in (0, 1), got %v", fraction)
	}
	if err := ValidateExamples(pool); err != nil {
		return nil, err
	}

	order := Permutation(len(pool), seed)
	numVal := int(fraction * float64(len(pool)))
	numTrain := len(pool) - numVal
	if numVal == 0 || numTrain == 0 {
		return nil, core.NewDataError("validation fraction %v of %d examples leaves an empty split", fraction, len(pool))
	}

	p := &Partition{
		Train:           make([]Example, 0, numTrain),
		Validation:      make([]Example, 0, numVal),
		TrainIndex:      roaring.New(),
		ValidationIndex: roaring.New(),
	}
	for i, src := range order {
		if i < numTrain {
			p.Train = append(p.Train, pool[src])
			p.TrainIndex.Add(uint32(src))
		} else {
			p.Validation = append(p.Validation, pool[src])
			p.ValidationIndex.Add(uint32(src))
		}
	}
	return p, nil
}

// Disjoint reports whether no source example landed in both splits.
func (p *Partition) Disjoint() bool {
	return !p.TrainIndex.Intersects(p.ValidationIndex)
}

// Permutation returns a seeded permutation of [0, n).
func Permutation(n int, seed int64) []int {
	return rand.New(rand.NewSource(seed)).Perm(n)
}
