package pipeline

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/djeday123/goml-sentiment/core"
	"github.com/djeday123/goml-sentiment/dataset"
	"github.com/djeday123/goml-sentiment/nn"
	"github.com/djeday123/goml-sentiment/ops"
	"github.com/djeday123/goml-sentiment/pkg/store"
	"github.com/djeday123/goml-sentiment/tokenizer"
	"github.com/djeday123/goml-sentiment/train"
)

// predictChunk bounds how many texts are encoded and scored at once.
const predictChunk = 256

// SampleReviews are scored at the end of a training run.
var SampleReviews = []string{
	"The movie was great!",
	"The movie was okay.",
	"The movie was terrible...",
}

// Pipeline is the export model: raw text in, positive-class probability out.
// It composes the frozen vectorizer with the trained classifier and applies
// the sigmoid exactly once.
type Pipeline struct {
	vec   *tokenizer.Vectorizer
	model *nn.Classifier
}

// New creates a new Pipeline instance
func New(vec *tokenizer.Vectorizer, model *nn.Classifier) (*Pipeline, error) {
	if vec == nil || model == nil {
		return nil, core.NewConfigError("pipeline", "vectorizer and classifier are required")
	}
	if vec.VocabSize() > model.Config.VocabSize {
		return nil, core.NewConfigError("vocab_size",
			"vectorizer emits ids up to %d but the classifier embeds only %d", vec.VocabSize()-1, model.Config.VocabSize)
	}
	return &Pipeline{vec: vec, model: model}, nil
}

// Restore rebuilds the export model from a stored run.
func Restore(run *store.Run) (*Pipeline, error) {
	vocab, err := tokenizer.NewVocabulary(run.Vocabulary)
	if err != nil {
		return nil, fmt.Errorf("restore vocabulary: %w", err)
	}
	vec, err := tokenizer.FromVocabulary(vocab, run.SequenceLength)
	if err != nil {
		return nil, err
	}
	model, err := nn.FromState(run.Model)
	if err != nil {
		return nil, fmt.Errorf("restore classifier: %w", err)
	}
	return New(vec, model)
}

func (p *Pipeline) Vectorizer() *tokenizer.Vectorizer { return p.vec }
func (p *Pipeline) Model() *nn.Classifier             { return p.model }

// Predict returns one probability in (0, 1) per text, in input order.
func (p *Pipeline) Predict(ctx context.Context, texts []string) ([]float64, error) {
	logits, err := p.logits(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i, z := range logits {
		logits[i] = ops.Sigmoid(z)
	}
	return logits, nil
}

// Evaluate scores labeled raw text end to end, batchSize texts at a time.
// A non-finite loss is reported as a *core.TrainingError.
func (p *Pipeline) Evaluate(ctx context.Context, examples []dataset.Example, batchSize int) (train.Metrics, error) {
	if batchSize <= 0 {
		return train.Metrics{}, core.NewConfigError("batch_size", "must be > 0, got %d", batchSize)
	}
	if err := dataset.ValidateExamples(examples); err != nil {
		return train.Metrics{}, err
	}

	var lossSum float64
	correct := 0
	for i, chunk := range lo.Chunk(examples, batchSize) {
		texts := lo.Map(chunk, func(ex dataset.Example, _ int) string { return ex.Text })
		labels := lo.Map(chunk, func(ex dataset.Example, _ int) float64 { return float64(ex.Label) })

		logits, err := p.logits(ctx, texts)
		if err != nil {
			return train.Metrics{}, err
		}
		loss, _, err := ops.BinaryCrossEntropy(logits, labels)
		if err != nil {
			return train.Metrics{}, err
		}
		if !ops.IsFinite(loss) {
			return train.Metrics{}, &core.TrainingError{Batch: i + 1, Err: fmt.Errorf("non-finite evaluation loss %v", loss)}
		}
		probs := lo.Map(logits, func(z float64, _ int) float64 { return ops.Sigmoid(z) })

		lossSum += loss * float64(len(chunk))
		correct += ops.BinaryCorrect(probs, labels, 0.5)
	}

	n := len(examples)
	return train.Metrics{
		Loss:     lossSum / float64(n),
		Accuracy: float64(correct) / float64(n),
		Examples: n,
	}, nil
}

func (p *Pipeline) logits(ctx context.Context, texts []string) ([]float64, error) {
	out := make([]float64, 0, len(texts))
	seqLen := p.vec.SequenceLength()
	for _, chunk := range lo.Chunk(texts, predictChunk) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		encoded := p.vec.EncodeBatch(chunk)
		ids := make([]int64, 0, len(chunk)*seqLen)
		for _, row := range encoded {
			ids = append(ids, row...)
		}
		logits, err := p.model.Logits(ids, core.Shape{len(chunk), seqLen})
		if err != nil {
			return nil, err
		}
		out = append(out, logits...)
	}
	return out, nil
}
