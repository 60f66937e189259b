package train

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/djeday123/goml-sentiment/core"
	"github.com/djeday123/goml-sentiment/dataset"
	"github.com/djeday123/goml-sentiment/nn"
	"github.com/djeday123/goml-sentiment/ops"
	"github.com/djeday123/goml-sentiment/optim"
)

// Learning rate schedules.
const (
	ScheduleConstant = "constant"
	ScheduleCosine   = "cosine"
)

// TrainConfig holds training hyperparameters.
type TrainConfig struct {
	Epochs       int
	LearningRate float64
	LRSchedule   string
	MinLR        float64
	WarmupSteps  int
	LogEvery     int     // batches between progress logs, 0 = epoch summaries only
	Threshold    float64 // probability above which a prediction is positive
}

func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Epochs:       10,
		LearningRate: 1e-3,
		LRSchedule:   ScheduleConstant,
		MinLR:        1e-4,
		WarmupSteps:  0,
		LogEvery:     100,
		Threshold:    0.5,
	}
}

func (c TrainConfig) validate() error {
	switch {
	case c.Epochs <= 0:
		return core.NewConfigError("epochs", "must be > 0, got %d", c.Epochs)
	case c.LearningRate <= 0:
		return core.NewConfigError("learning_rate", "must be > 0, got %v", c.LearningRate)
	case c.LRSchedule != ScheduleConstant && c.LRSchedule != ScheduleCosine:
		return core.NewConfigError("lr_schedule", "unknown schedule %q", c.LRSchedule)
	case c.MinLR < 0 || c.MinLR > c.LearningRate:
		return core.NewConfigError("min_learning_rate", "must be in [0, %v], got %v", c.LearningRate, c.MinLR)
	case c.WarmupSteps < 0:
		return core.NewConfigError("warmup_steps", "must be >= 0, got %d", c.WarmupSteps)
	case c.LogEvery < 0:
		return core.NewConfigError("log_every", "must be >= 0, got %d", c.LogEvery)
	case c.Threshold <= 0 || c.Threshold >= 1:
		return core.NewConfigError("threshold", "must be in (0, 1), got %v", c.Threshold)
	}
	return nil
}

// Trainer handles the training loop.
type Trainer struct {
	Model     *nn.Classifier
	Optimizer *optim.Adam
	Config    TrainConfig

	log zerolog.Logger
}

// NewTrainer wires a model and its optimizer. The optimizer's learning rate
// is reset to cfg.LearningRate.
func NewTrainer(model *nn.Classifier, optimizer *optim.Adam, cfg TrainConfig, log zerolog.Logger) (*Trainer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if model == nil || optimizer == nil {
		return nil, core.NewConfigError("trainer", "model and optimizer are required")
	}
	optimizer.SetLR(cfg.LearningRate)
	return &Trainer{
		Model:     model,
		Optimizer: optimizer,
		Config:    cfg,
		log:       log.With().Str("component", "trainer").Logger(),
	}, nil
}

// Fit runs Config.Epochs passes over train, evaluating val after each one.
// val may be nil. A non-finite training or validation loss aborts with a
// *core.TrainingError.
func (t *Trainer) Fit(ctx context.Context, train, val *dataset.Dataset) (*History, error) {
	if train == nil || train.Len() == 0 {
		return nil, core.NewDataError("training set is empty")
	}
	cfg := t.Config
	totalSteps := cfg.Epochs * train.NumBatches()

	t.log.Info().
		Int("train_examples", train.Len()).
		Int("batches_per_epoch", train.NumBatches()).
		Int("parameters", t.Model.CountParameters()).
		Int("epochs", cfg.Epochs).
		Float64("lr", cfg.LearningRate).
		Str("schedule", cfg.LRSchedule).
		Msg("training started")

	history := &History{}
	totalStart := time.Now()

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		epochStart := time.Now()
		var acc accumulator
		batchIdx := 0

		for batch, err := range train.Batches(ctx) {
			if err != nil {
				return history, err
			}
			batchIdx++

			step := t.Optimizer.Steps() + 1
			lr := t.learningRate(step, totalSteps)
			t.Optimizer.SetLR(lr)

			logits, cache, err := t.Model.Forward(batch.IDs, batch.Shape, true)
			if err != nil {
				return history, &core.TrainingError{Epoch: epoch, Batch: batchIdx, Err: err}
			}

			loss, dLogits, err := ops.BinaryCrossEntropy(logits, batch.Labels)
			if err != nil {
				return history, &core.TrainingError{Epoch: epoch, Batch: batchIdx, Err: err}
			}
			if !ops.IsFinite(loss) {
				return history, &core.TrainingError{
					Epoch: epoch,
					Batch: batchIdx,
					Err:   fmt.Errorf("non-finite loss %v", loss),
				}
			}

			t.Optimizer.ZeroGrad()
			if err := t.Model.Backward(cache, dLogits); err != nil {
				return history, &core.TrainingError{Epoch: epoch, Batch: batchIdx, Err: err}
			}
			t.Optimizer.Step()

			acc.add(loss, t.correct(logits, batch.Labels), batch.Rows())

			if cfg.LogEvery > 0 && batchIdx%cfg.LogEvery == 0 {
				t.log.Debug().
					Int("epoch", epoch).
					Int("batch", batchIdx).
					Float64("loss", loss).
					Float64("running_loss", acc.metrics().Loss).
					Float64("lr", lr).
					Msg("step")
			}
		}

		em := EpochMetrics{
			Epoch:        epoch,
			Train:        acc.metrics(),
			LearningRate: t.Optimizer.GetLR(),
		}
		if val != nil && val.Len() > 0 {
			vm, err := t.evaluate(ctx, val, epoch)
			if err != nil {
				return history, err
			}
			em.Validation = &vm
		}
		em.Duration = time.Since(epochStart)
		history.Epochs = append(history.Epochs, em)

		ev := t.log.Info().
			Int("epoch", epoch).
			Float64("loss", em.Train.Loss).
			Float64("accuracy", em.Train.Accuracy)
		if em.Validation != nil {
			ev = ev.Float64("val_loss", em.Validation.Loss).
				Float64("val_accuracy", em.Validation.Accuracy)
		}
		ev.Dur("took", em.Duration).Msg("epoch complete")
	}

	t.log.Info().Dur("took", time.Since(totalStart)).Msg("training complete")
	return history, nil
}

// Evaluate computes loss and accuracy over ds with dropout disabled.
// A non-finite batch loss is a *core.TrainingError with Epoch 0.
func (t *Trainer) Evaluate(ctx context.Context, ds *dataset.Dataset) (Metrics, error) {
	return t.evaluate(ctx, ds, 0)
}

func (t *Trainer) evaluate(ctx context.Context, ds *dataset.Dataset, epoch int) (Metrics, error) {
	if ds == nil || ds.Len() == 0 {
		return Metrics{}, core.NewDataError("evaluation set is empty")
	}
	var acc accumulator
	batchIdx := 0
	for batch, err := range ds.Batches(ctx) {
		if err != nil {
			return Metrics{}, err
		}
		batchIdx++
		logits, err := t.Model.Logits(batch.IDs, batch.Shape)
		if err != nil {
			return Metrics{}, err
		}
		loss, _, err := ops.BinaryCrossEntropy(logits, batch.Labels)
		if err != nil {
			return Metrics{}, err
		}
		if !ops.IsFinite(loss) {
			return Metrics{}, &core.TrainingError{
				Epoch: epoch,
				Batch: batchIdx,
				Err:   fmt.Errorf("non-finite evaluation loss %v", loss),
			}
		}
		acc.add(loss, t.correct(logits, batch.Labels), batch.Rows())
	}
	return acc.metrics(), nil
}

func (t *Trainer) learningRate(step, totalSteps int) float64 {
	cfg := t.Config
	if cfg.LRSchedule == ScheduleCosine {
		return optim.CosineSchedule(step, cfg.WarmupSteps, totalSteps, cfg.LearningRate, cfg.MinLR)
	}
	return cfg.LearningRate
}

func (t *Trainer) correct(logits, labels []float64) int {
	probs := make([]float64, len(logits))
	for i, z := range logits {
		probs[i] = ops.Sigmoid(z)
	}
	return ops.BinaryCorrect(probs, labels, t.Config.Threshold)
}

// accumulator keeps sample-weighted running sums.
type accumulator struct {
	lossSum float64
	correct int
	n       int
}

func (a *accumulator) add(meanLoss float64, correct, rows int) {
	a.lossSum += meanLoss * float64(rows)
	a.correct += correct
	a.n += rows
}

func (a *accumulator) metrics() Metrics {
	if a.n == 0 {
		return Metrics{}
	}
	return Metrics{
		Loss:     a.lossSum / float64(a.n),
		Accuracy: float64(a.correct) / float64(a.n),
		Examples: a.n,
	}
}
