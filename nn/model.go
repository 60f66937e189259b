package nn

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/djeday123/goml-sentiment/core"
	"github.com/djeday123/goml-sentiment/ops"
)

// ClassifierConfig defines the architecture hyperparameters.
type ClassifierConfig struct {
	VocabSize    int     `json:"vocab_size"`    // embedding rows
	EmbeddingDim int     `json:"embedding_dim"` // embedding width
	Dropout      float64 `json:"dropout"`       // rate for both dropout layers
	Seed         int64   `json:"seed"`          // init and dropout RNG
}

// DefaultClassifierConfig matches the reference setup for a 10k vocabulary.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		VocabSize:    10000,
		EmbeddingDim: 16,
		Dropout:      0.2,
		Seed:         42,
	}
}

func (c ClassifierConfig) validate() error {
	switch {
	case c.VocabSize <= 0:
		return core.NewConfigError("vocab_size", "must be > 0, got %d", c.VocabSize)
	case c.EmbeddingDim <= 0:
		return core.NewConfigError("embedding_dim", "must be > 0, got %d", c.EmbeddingDim)
	case c.Dropout < 0 || c.Dropout >= 1:
		return core.NewConfigError("dropout", "must be in [0, 1), got %v", c.Dropout)
	}
	return nil
}

// Classifier is the binary sentiment model:
//
//	Embedding → Dropout → GlobalAveragePooling1D → Dropout → Linear(1)
//
// The head emits one logit per sequence; Predict squashes it with a sigmoid.
type Classifier struct {
	Config ClassifierConfig
	Embed  *Embedding
	Drop1  Dropout
	Pool   GlobalAveragePooling1D
	Drop2  Dropout
	Head   *Linear

	rng *rand.Rand
}

// NewClassifier creates a model with seeded initialization.
func NewClassifier(cfg ClassifierConfig) (*Classifier, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	emb, err := NewEmbedding(cfg.VocabSize, cfg.EmbeddingDim, rng)
	if err != nil {
		return nil, err
	}
	head, err := NewLinear(cfg.EmbeddingDim, 1, true, rng)
	if err != nil {
		return nil, err
	}

	return &Classifier{
		Config: cfg,
		Embed:  emb,
		Drop1:  Dropout{Rate: cfg.Dropout},
		Drop2:  Dropout{Rate: cfg.Dropout},
		Head:   head,
		rng:    rng,
	}, nil
}

// ForwardCache keeps the activations Backward needs.
type ForwardCache struct {
	ids    []int64
	rows   int
	seqLen int
	mask1  *mat.Dense
	mask2  *mat.Dense
	hidden *mat.Dense // head input
}

// Forward runs the model on a row-major id batch of the given
// [rows, seqLen] shape and returns one logit per row. Dropout is active only
// when training is true.
func (m *Classifier) Forward(ids []int64, shape core.Shape, training bool) ([]float64, *ForwardCache, error) {
	if err := shape.Check(2, len(ids)); err != nil {
		return nil, nil, &core.DataError{Reason: "classifier input", Err: err}
	}
	rows, seqLen := shape[0], shape[1]

	// 1. Embedding: [rows*seqLen] → [rows*seqLen, dim]
	emb, err := m.Embed.Forward(ids)
	if err != nil {
		return nil, nil, &core.DataError{Reason: "classifier input", Err: err}
	}

	// 2. Dropout on every embedded position
	emb, mask1 := m.Drop1.Forward(emb, training, m.rng)

	// 3. Mean over time: [rows, dim]
	pooled, err := m.Pool.Forward(emb, rows, seqLen)
	if err != nil {
		return nil, nil, err
	}

	// 4. Dropout on the pooled features
	hidden, mask2 := m.Drop2.Forward(pooled, training, m.rng)

	// 5. Head: [rows, dim] → [rows, 1]
	out, err := m.Head.Forward(hidden)
	if err != nil {
		return nil, nil, err
	}

	logits := make([]float64, rows)
	copy(logits, out.RawMatrix().Data)

	cache := &ForwardCache{
		ids:    ids,
		rows:   rows,
		seqLen: seqLen,
		mask1:  mask1,
		mask2:  mask2,
		hidden: hidden,
	}
	return logits, cache, nil
}

// Backward accumulates parameter gradients given dLoss/dLogit per row.
func (m *Classifier) Backward(cache *ForwardCache, dLogits []float64) error {
	if len(dLogits) != cache.rows {
		return fmt.Errorf("classifier backward: %d gradients for %d rows", len(dLogits), cache.rows)
	}
	dOut := mat.NewDense(cache.rows, 1, append([]float64(nil), dLogits...))

	dHidden := m.Head.Backward(cache.hidden, dOut)
	dPooled := m.Drop2.Backward(dHidden, cache.mask2)
	dEmb := m.Pool.Backward(dPooled, cache.seqLen)
	dEmb = m.Drop1.Backward(dEmb, cache.mask1)
	m.Embed.Backward(cache.ids, dEmb)
	return nil
}

// Logits runs inference (no dropout).
func (m *Classifier) Logits(ids []int64, shape core.Shape) ([]float64, error) {
	logits, _, err := m.Forward(ids, shape, false)
	return logits, err
}

// Predict returns sigmoid probabilities, one per row.
func (m *Classifier) Predict(ids []int64, shape core.Shape) ([]float64, error) {
	logits, err := m.Logits(ids, shape)
	if err != nil {
		return nil, err
	}
	for i, z := range logits {
		logits[i] = ops.Sigmoid(z)
	}
	return logits, nil
}

// Parameters returns all trainable parameters.
func (m *Classifier) Parameters() []*Param {
	var p []*Param
	p = append(p, m.Embed.Parameters()...)
	p = append(p, m.Head.Parameters()...)
	return p
}

// CountParameters returns the number of trainable scalars.
func (m *Classifier) CountParameters() int {
	total := 0
	for _, p := range m.Parameters() {
		total += p.NumElements()
	}
	return total
}

// ZeroGrad clears all gradients.
func (m *Classifier) ZeroGrad() {
	for _, p := range m.Parameters() {
		p.ZeroGrad()
	}
}
