package pipeline

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/djeday123/goml-sentiment/core"
	"github.com/djeday123/goml-sentiment/dataset"
	"github.com/djeday123/goml-sentiment/nn"
	"github.com/djeday123/goml-sentiment/optim"
	"github.com/djeday123/goml-sentiment/pkg/config"
	"github.com/djeday123/goml-sentiment/pkg/store"
	"github.com/djeday123/goml-sentiment/tokenizer"
	"github.com/djeday123/goml-sentiment/train"
)

// Inputs are the labeled reviews a run trains and tests on.
type Inputs struct {
	TrainPool  []dataset.Example // split into train and validation
	Test       []dataset.Example
	ClassNames []string
}

// LoadInputs reads the train and test directories named in cfg.
func LoadInputs(ctx context.Context, cfg *config.Config) (Inputs, error) {
	opts := dataset.LoadOptions{ClassNames: cfg.Data.ClassNames, Workers: cfg.Data.Workers}

	trainCorpus, err := dataset.LoadDirectory(ctx, cfg.Data.TrainDir, opts)
	if err != nil {
		return Inputs{}, fmt.Errorf("load train: %w", err)
	}
	testCorpus, err := dataset.LoadDirectory(ctx, cfg.Data.TestDir, opts)
	if err != nil {
		return Inputs{}, fmt.Errorf("load test: %w", err)
	}
	if !slices.Equal(trainCorpus.ClassNames, testCorpus.ClassNames) {
		return Inputs{}, core.NewDataError("train classes %v differ from test classes %v",
			trainCorpus.ClassNames, testCorpus.ClassNames)
	}
	return Inputs{
		TrainPool:  trainCorpus.Examples,
		Test:       testCorpus.Examples,
		ClassNames: trainCorpus.ClassNames,
	}, nil
}

// Result is the outcome of a full training run.
type Result struct {
	Partition  *dataset.Partition
	Pipeline   *Pipeline
	History    *train.History
	Test       train.Metrics // classifier on the encoded test set
	ExportTest train.Metrics // export model on raw test text
	Samples    []float64     // probabilities for SampleReviews
	ClassNames []string
}

// StoreRun converts the result into a persistable run.
func (r *Result) StoreRun() *store.Run {
	test := r.Test
	return &store.Run{
		ClassNames:     r.ClassNames,
		Vocabulary:     r.Pipeline.Vectorizer().Vocabulary().Learned(),
		SequenceLength: r.Pipeline.Vectorizer().SequenceLength(),
		Model:          r.Pipeline.Model().State(),
		History:        r.History,
		Test:           &test,
	}
}

// Train runs the whole flow: split the pool, adapt the vectorizer on the
// training split only, fit with validation, evaluate on test, and assemble
// the export model. All config and data problems surface before training.
func Train(ctx context.Context, cfg *config.Config, in Inputs, log zerolog.Logger) (*Result, error) {
	log = log.With().Str("component", "pipeline").Logger()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := dataset.ValidateExamples(in.Test); err != nil {
		return nil, fmt.Errorf("test set: %w", err)
	}

	part, err := dataset.SplitValidation(in.TrainPool, cfg.Data.ValidationFraction, cfg.Data.ShuffleSeed)
	if err != nil {
		return nil, err
	}
	if !part.Disjoint() {
		return nil, core.NewDataError("train and validation splits overlap")
	}
	log.Info().
		Int("train", len(part.Train)).
		Int("validation", len(part.Validation)).
		Int("test", len(in.Test)).
		Strs("class_names", in.ClassNames).
		Msg("splits ready")

	vec, err := tokenizer.Adapt(dataset.Texts(part.Train), cfg.VectorizerConfig(), tokenizer.WithWorkers(cfg.Data.Workers))
	if err != nil {
		return nil, err
	}
	log.Info().Int("vocab_size", vec.VocabSize()).Int("sequence_length", vec.SequenceLength()).Msg("vectorizer adapted")
	if ev := log.Debug(); ev.Enabled() {
		first := part.Train[0]
		ev.Str("review", first.Text).
			Int32("label", int32(first.Label)).
			Ints64("vectorized", vec.Encode(first.Text)).
			Msg("sample review")
	}

	datasetOpts := []dataset.Option{dataset.WithBatchSize(cfg.Data.BatchSize), dataset.WithPrefetch(cfg.Data.Prefetch)}
	if cfg.Data.Cache {
		datasetOpts = append(datasetOpts, dataset.WithCache())
	}
	trainOpts := append(slices.Clone(datasetOpts), dataset.WithShuffle(cfg.Data.ShuffleSeed))
	trainDS, err := dataset.New(part.Train, vec, trainOpts...)
	if err != nil {
		return nil, err
	}
	valDS, err := dataset.New(part.Validation, vec, datasetOpts...)
	if err != nil {
		return nil, err
	}
	testDS, err := dataset.New(in.Test, vec, datasetOpts...)
	if err != nil {
		return nil, err
	}

	model, err := nn.NewClassifier(cfg.ClassifierConfig(vec.VocabSize()))
	if err != nil {
		return nil, err
	}
	trainer, err := train.NewTrainer(model, optim.NewAdam(model.Parameters(), cfg.Train.LearningRate), cfg.TrainConfig(), log)
	if err != nil {
		return nil, err
	}

	history, err := trainer.Fit(ctx, trainDS, valDS)
	if err != nil {
		return nil, err
	}

	testMetrics, err := trainer.Evaluate(ctx, testDS)
	if err != nil {
		return nil, fmt.Errorf("evaluate test: %w", err)
	}
	log.Info().Float64("loss", testMetrics.Loss).Float64("accuracy", testMetrics.Accuracy).Msg("test evaluation")

	export, err := New(vec, model)
	if err != nil {
		return nil, err
	}
	exportMetrics, err := export.Evaluate(ctx, in.Test, cfg.Data.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("evaluate export model: %w", err)
	}
	log.Info().Float64("loss", exportMetrics.Loss).Float64("accuracy", exportMetrics.Accuracy).Msg("export model evaluation")

	samples, err := export.Predict(ctx, SampleReviews)
	if err != nil {
		return nil, err
	}

	return &Result{
		Partition:  part,
		Pipeline:   export,
		History:    history,
		Test:       testMetrics,
		ExportTest: exportMetrics,
		Samples:    samples,
		ClassNames: slices.Clone(in.ClassNames),
	}, nil
}
