package nn

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Embedding is a lookup table for token embeddings.
type Embedding struct {
	Weight    *Param // [vocabSize, embedDim]
	VocabSize int
	EmbedDim  int
}

// NewEmbedding creates an embedding layer with uniform(-0.05, 0.05) init.
func NewEmbedding(vocabSize, embedDim int, rng *rand.Rand) (*Embedding, error) {
	if vocabSize <= 0 || embedDim <= 0 {
		return nil, fmt.Errorf("embedding: invalid size %dx%d", vocabSize, embedDim)
	}
	data := make([]float64, vocabSize*embedDim)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * 0.05
	}
	return &Embedding{
		Weight:    newParam("embedding", vocabSize, embedDim, data),
		VocabSize: vocabSize,
		EmbedDim:  embedDim,
	}, nil
}

// Forward looks up embeddings for given token indices.
// ids: [n] → output: [n, embedDim]
func (e *Embedding) Forward(ids []int64) (*mat.Dense, error) {
	out := mat.NewDense(len(ids), e.EmbedDim, nil)
	for i, id := range ids {
		if id < 0 || id >= int64(e.VocabSize) {
			return nil, fmt.Errorf("embedding: id %d out of range [0, %d)", id, e.VocabSize)
		}
		copy(out.RawRowView(i), e.Weight.Value.RawRowView(int(id)))
	}
	return out, nil
}

// Backward scatters dOut rows into the gradient rows of their ids.
// dOut: [n, embedDim]
func (e *Embedding) Backward(ids []int64, dOut *mat.Dense) {
	for i, id := range ids {
		floats.Add(e.Weight.Grad.RawRowView(int(id)), dOut.RawRowView(i))
	}
}

// Parameters returns trainable parameters.
func (e *Embedding) Parameters() []*Param {
	return []*Param{e.Weight}
}
