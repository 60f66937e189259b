package train

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djeday123/goml-sentiment/core"
	"github.com/djeday123/goml-sentiment/dataset"
	"github.com/djeday123/goml-sentiment/nn"
	"github.com/djeday123/goml-sentiment/optim"
	"github.com/djeday123/goml-sentiment/tokenizer"
)

func toyExamples() []dataset.Example {
	return []dataset.Example{
		{Text: "good great film", Label: dataset.Positive},
		{Text: "great acting good", Label: dataset.Positive},
		{Text: "loved it good", Label: dataset.Positive},
		{Text: "great great fun", Label: dataset.Positive},
		{Text: "bad awful film", Label: dataset.Negative},
		{Text: "awful acting bad", Label: dataset.Negative},
		{Text: "hated it bad", Label: dataset.Negative},
		{Text: "awful awful bore", Label: dataset.Negative},
	}
}

type fixture struct {
	vec   *tokenizer.Vectorizer
	train *dataset.Dataset
	model *nn.Classifier
	opt   *optim.Adam
}

func newFixture(t *testing.T, opts ...dataset.Option) fixture {
	t.Helper()
	examples := toyExamples()
	vec, err := tokenizer.Adapt(dataset.Texts(examples), tokenizer.VectorizerConfig{MaxTokens: 50, SequenceLength: 4})
	require.NoError(t, err)

	opts = append([]dataset.Option{dataset.WithBatchSize(3), dataset.WithShuffle(1)}, opts...)
	ds, err := dataset.New(examples, vec, opts...)
	require.NoError(t, err)

	model, err := nn.NewClassifier(nn.ClassifierConfig{
		VocabSize:    vec.VocabSize(),
		EmbeddingDim: 8,
		Dropout:      0,
		Seed:         3,
	})
	require.NoError(t, err)

	return fixture{vec: vec, train: ds, model: model, opt: optim.NewAdam(model.Parameters(), 1e-3)}
}

func fastConfig(epochs int) TrainConfig {
	cfg := DefaultTrainConfig()
	cfg.Epochs = epochs
	cfg.LearningRate = 0.05
	cfg.MinLR = 0
	cfg.LogEvery = 1
	return cfg
}

func TestFitLearnsSeparableToySet(t *testing.T) {
	f := newFixture(t)
	tr, err := NewTrainer(f.model, f.opt, fastConfig(40), zerolog.Nop())
	require.NoError(t, err)

	h, err := tr.Fit(context.Background(), f.train, f.train)
	require.NoError(t, err)
	require.Equal(t, 40, h.Len())

	losses := h.Loss()
	assert.Less(t, losses[len(losses)-1], losses[0])

	m, err := tr.Evaluate(context.Background(), f.train)
	require.NoError(t, err)
	assert.Equal(t, 8, m.Examples)
	assert.Equal(t, 1.0, m.Accuracy)

	last, ok := h.Last()
	require.True(t, ok)
	require.NotNil(t, last.Validation)
	assert.InDelta(t, m.Loss, last.Validation.Loss, 1e-12)
	assert.Len(t, h.ValLoss(), 40)
	assert.Len(t, h.ValAccuracy(), 40)
	assert.Equal(t, 40*f.train.NumBatches(), f.opt.Steps())
}

func TestFitWithoutValidation(t *testing.T) {
	f := newFixture(t)
	tr, err := NewTrainer(f.model, f.opt, fastConfig(2), zerolog.Nop())
	require.NoError(t, err)

	h, err := tr.Fit(context.Background(), f.train, nil)
	require.NoError(t, err)
	assert.Len(t, h.Loss(), 2)
	assert.Len(t, h.Accuracy(), 2)
	assert.Empty(t, h.ValLoss())
	assert.Equal(t, 8, h.Epochs[0].Train.Examples)
}

func TestFitAbortsOnNonFiniteLoss(t *testing.T) {
	f := newFixture(t)
	f.model.Head.Bias.Data()[0] = math.NaN()

	tr, err := NewTrainer(f.model, f.opt, fastConfig(3), zerolog.Nop())
	require.NoError(t, err)

	h, err := tr.Fit(context.Background(), f.train, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTraining)

	var te *core.TrainingError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 1, te.Epoch)
	assert.Equal(t, 1, te.Batch)
	assert.Zero(t, h.Len())
	assert.Zero(t, f.opt.Steps())
}

func TestEvaluateRejectsNonFiniteLoss(t *testing.T) {
	f := newFixture(t)
	f.model.Head.Bias.Data()[0] = math.NaN()

	tr, err := NewTrainer(f.model, f.opt, fastConfig(1), zerolog.Nop())
	require.NoError(t, err)

	_, err = tr.Evaluate(context.Background(), f.train)
	require.ErrorIs(t, err, core.ErrTraining)

	var te *core.TrainingError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 0, te.Epoch)
	assert.Equal(t, 1, te.Batch)
}

func TestFitAbortsOnNonFiniteValidationLoss(t *testing.T) {
	f := newFixture(t)
	// Validation texts are all out of vocabulary; poison only the OOV row so
	// training batches stay finite.
	dim := f.model.Embed.EmbedDim
	oov := f.model.Embed.Weight.Data()[tokenizer.OOVID*int64(dim) : (tokenizer.OOVID+1)*int64(dim)]
	for i := range oov {
		oov[i] = math.NaN()
	}
	val, err := dataset.New([]dataset.Example{
		{Text: "zzz qqq xxx", Label: dataset.Positive},
		{Text: "qqq zzz", Label: dataset.Negative},
	}, f.vec, dataset.WithBatchSize(1))
	require.NoError(t, err)

	tr, err := NewTrainer(f.model, f.opt, fastConfig(3), zerolog.Nop())
	require.NoError(t, err)

	h, err := tr.Fit(context.Background(), f.train, val)
	require.ErrorIs(t, err, core.ErrTraining)

	var te *core.TrainingError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 1, te.Epoch)
	assert.Equal(t, 1, te.Batch)
	assert.Zero(t, h.Len())
	assert.Equal(t, f.train.NumBatches(), f.opt.Steps())
}

func TestFitHonoursCancellation(t *testing.T) {
	f := newFixture(t, dataset.WithPrefetch(2))
	tr, err := NewTrainer(f.model, f.opt, fastConfig(3), zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.Fit(ctx, f.train, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCosineScheduleReachesMinimum(t *testing.T) {
	f := newFixture(t)
	cfg := fastConfig(4)
	cfg.LRSchedule = ScheduleCosine
	cfg.MinLR = 1e-3
	cfg.WarmupSteps = 2

	tr, err := NewTrainer(f.model, f.opt, cfg, zerolog.Nop())
	require.NoError(t, err)
	h, err := tr.Fit(context.Background(), f.train, nil)
	require.NoError(t, err)

	last, _ := h.Last()
	assert.InDelta(t, cfg.MinLR, last.LearningRate, 1e-12)
	assert.Greater(t, h.Epochs[0].LearningRate, last.LearningRate)
}

func TestNewTrainerValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name   string
		mutate func(*TrainConfig)
	}{
		{"zero epochs", func(c *TrainConfig) { c.Epochs = 0 }},
		{"zero lr", func(c *TrainConfig) { c.LearningRate = 0 }},
		{"unknown schedule", func(c *TrainConfig) { c.LRSchedule = "step" }},
		{"min above max", func(c *TrainConfig) { c.MinLR = 1 }},
		{"negative warmup", func(c *TrainConfig) { c.WarmupSteps = -1 }},
		{"threshold", func(c *TrainConfig) { c.Threshold = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultTrainConfig()
			tt.mutate(&cfg)
			_, err := NewTrainer(f.model, f.opt, cfg, zerolog.Nop())
			assert.ErrorIs(t, err, core.ErrConfig)
		})
	}
}

func TestNewTrainerRequiresModelAndOptimizer(t *testing.T) {
	f := newFixture(t)
	_, err := NewTrainer(nil, f.opt, DefaultTrainConfig(), zerolog.Nop())
	assert.ErrorIs(t, err, core.ErrConfig)
	_, err = NewTrainer(f.model, nil, DefaultTrainConfig(), zerolog.Nop())
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestMissingDataset(t *testing.T) {
	f := newFixture(t)
	tr, err := NewTrainer(f.model, f.opt, DefaultTrainConfig(), zerolog.Nop())
	require.NoError(t, err)

	_, err = tr.Evaluate(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrData)
	_, err = tr.Fit(context.Background(), nil, nil)
	assert.ErrorIs(t, err, core.ErrData)
}

func TestAccumulatorIsSampleWeighted(t *testing.T) {
	var a accumulator
	a.add(1.0, 3, 3)
	a.add(4.0, 0, 1)
	m := a.metrics()
	assert.InDelta(t, 7.0/4.0, m.Loss, 1e-12)
	assert.InDelta(t, 0.75, m.Accuracy, 1e-12)
	assert.Equal(t, 4, m.Examples)
}
