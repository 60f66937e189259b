package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/djeday123/goml-sentiment/core"
	"github.com/djeday123/goml-sentiment/nn"
	"github.com/djeday123/goml-sentiment/tokenizer"
	"github.com/djeday123/goml-sentiment/train"
)

// EnvPrefix namespaces environment overrides, e.g. SENTIMENT_TRAIN_EPOCHS.
const EnvPrefix = "SENTIMENT"

// Config holds the configuration for a training or inference run.
// The values are read by viper from defaults, a YAML file, SENTIMENT_*
// environment variables and command-line flags, in increasing priority.
type Config struct {
	Data       DataConfig       `mapstructure:"data"`
	Vectorizer VectorizerConfig `mapstructure:"vectorizer"`
	Model      ModelConfig      `mapstructure:"model"`
	Train      TrainConfig      `mapstructure:"train"`
	Store      StoreConfig      `mapstructure:"store"`
	Log        LogConfig        `mapstructure:"log"`
}

// DataConfig locates the review directories and shapes the input pipeline.
type DataConfig struct {
	TrainDir           string   `mapstructure:"train_dir"`
	TestDir            string   `mapstructure:"test_dir"`
	ClassNames         []string `mapstructure:"class_names" validate:"len=2,dive,required"`
	BatchSize          int      `mapstructure:"batch_size" validate:"min=1"`
	ValidationFraction float64  `mapstructure:"validation_fraction" validate:"gt=0,lt=1"`
	ShuffleSeed        int64    `mapstructure:"shuffle_seed"`
	Cache              bool     `mapstructure:"cache"`
	Prefetch           int      `mapstructure:"prefetch" validate:"min=0"`
	Workers            int      `mapstructure:"workers" validate:"min=1"`
}

type VectorizerConfig struct {
	MaxTokens      int `mapstructure:"max_tokens" validate:"min=2"`
	SequenceLength int `mapstructure:"sequence_length" validate:"min=1"`
}

type ModelConfig struct {
	EmbeddingDim int     `mapstructure:"embedding_dim" validate:"min=1"`
	Dropout      float64 `mapstructure:"dropout" validate:"gte=0,lt=1"`
	Seed         int64   `mapstructure:"seed"`
}

type TrainConfig struct {
	Epochs       int     `mapstructure:"epochs" validate:"min=1"`
	LearningRate float64 `mapstructure:"learning_rate" validate:"gt=0"`
	LRSchedule   string  `mapstructure:"lr_schedule" validate:"oneof=constant cosine"`
	MinLR        float64 `mapstructure:"min_learning_rate" validate:"gte=0,ltefield=LearningRate"`
	WarmupSteps  int     `mapstructure:"warmup_steps" validate:"min=0"`
	LogEvery     int     `mapstructure:"log_every" validate:"min=0"`
}

// StoreConfig points at the badger directory holding saved runs.
type StoreConfig struct {
	Path     string `mapstructure:"path" validate:"required_if=InMemory false"`
	InMemory bool   `mapstructure:"in_memory"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error disabled"`
	Pretty bool   `mapstructure:"pretty"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			TrainDir:           "./data/aclImdb/train",
			TestDir:            "./data/aclImdb/test",
			ClassNames:         []string{"neg", "pos"},
			BatchSize:          32,
			ValidationFraction: 0.2,
			ShuffleSeed:        42,
			Cache:              true,
			Prefetch:           2,
			Workers:            8,
		},
		Vectorizer: VectorizerConfig{
			MaxTokens:      10000,
			SequenceLength: 250,
		},
		Model: ModelConfig{
			EmbeddingDim: 16,
			Dropout:      0.2,
			Seed:         42,
		},
		Train: TrainConfig{
			Epochs:       10,
			LearningRate: 1e-3,
			LRSchedule:   train.ScheduleConstant,
			MinLR:        1e-4,
			WarmupSteps:  0,
			LogEvery:     100,
		},
		Store: StoreConfig{
			Path: "./data/runs",
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"train-dir":           "data.train_dir",
	"test-dir":            "data.test_dir",
	"batch-size":          "data.batch_size",
	"validation-fraction": "data.validation_fraction",
	"seed":                "data.shuffle_seed",
	"workers":             "data.workers",
	"max-tokens":          "vectorizer.max_tokens",
	"sequence-length":     "vectorizer.sequence_length",
	"embedding-dim":       "model.embedding_dim",
	"epochs":              "train.epochs",
	"learning-rate":       "train.learning_rate",
	"lr-schedule":         "train.lr_schedule",
	"store":               "store.path",
	"log-level":           "log.level",
}

// RegisterFlags adds the overridable settings to fs. Unset flags never
// override file or environment values.
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()
	fs.String("train-dir", d.Data.TrainDir, "training reviews directory (one sub-directory per class)")
	fs.String("test-dir", d.Data.TestDir, "test reviews directory")
	fs.Int("batch-size", d.Data.BatchSize, "examples per batch")
	fs.Float64("validation-fraction", d.Data.ValidationFraction, "share of the training pool held out for validation")
	fs.Int64("seed", d.Data.ShuffleSeed, "shuffle and split seed")
	fs.Int("workers", d.Data.Workers, "parallel file readers")
	fs.Int("max-tokens", d.Vectorizer.MaxTokens, "vocabulary size including padding and OOV")
	fs.Int("sequence-length", d.Vectorizer.SequenceLength, "encoded sequence length")
	fs.Int("embedding-dim", d.Model.EmbeddingDim, "embedding width")
	fs.Int("epochs", d.Train.Epochs, "training epochs")
	fs.Float64("learning-rate", d.Train.LearningRate, "Adam learning rate")
	fs.String("lr-schedule", d.Train.LRSchedule, "constant or cosine")
	fs.String("store", d.Store.Path, "run store directory")
	fs.String("log-level", d.Log.Level, "trace, debug, info, warn, error or disabled")
}

// Load reads configuration from defaults, the YAML file at path (or
// ./sentiment.yaml when path is empty and the file exists), the environment
// and flags. The result is validated; violations are *core.ConfigError.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("sentiment")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("data.train_dir", d.Data.TrainDir)
	v.SetDefault("data.test_dir", d.Data.TestDir)
	v.SetDefault("data.class_names", d.Data.ClassNames)
	v.SetDefault("data.batch_size", d.Data.BatchSize)
	v.SetDefault("data.validation_fraction", d.Data.ValidationFraction)
	v.SetDefault("data.shuffle_seed", d.Data.ShuffleSeed)
	v.SetDefault("data.cache", d.Data.Cache)
	v.SetDefault("data.prefetch", d.Data.Prefetch)
	v.SetDefault("data.workers", d.Data.Workers)
	v.SetDefault("vectorizer.max_tokens", d.Vectorizer.MaxTokens)
	v.SetDefault("vectorizer.sequence_length", d.Vectorizer.SequenceLength)
	v.SetDefault("model.embedding_dim", d.Model.EmbeddingDim)
	v.SetDefault("model.dropout", d.Model.Dropout)
	v.SetDefault("model.seed", d.Model.Seed)
	v.SetDefault("train.epochs", d.Train.Epochs)
	v.SetDefault("train.learning_rate", d.Train.LearningRate)
	v.SetDefault("train.lr_schedule", d.Train.LRSchedule)
	v.SetDefault("train.min_learning_rate", d.Train.MinLR)
	v.SetDefault("train.warmup_steps", d.Train.WarmupSteps)
	v.SetDefault("train.log_every", d.Train.LogEvery)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.in_memory", d.Store.InMemory)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return val
}

// Validate checks every field and reports the first violation as a
// *core.ConfigError naming the dotted key.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &core.ConfigError{Field: "config", Reason: err.Error()}
	}
	fe := verrs[0]
	_, key, _ := strings.Cut(fe.Namespace(), ".")
	return &core.ConfigError{Field: key, Reason: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min", "gte":
		return fmt.Sprintf("must be >= %s, got %v", fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("must be > %s, got %v", fe.Param(), fe.Value())
	case "lt":
		return fmt.Sprintf("must be < %s, got %v", fe.Param(), fe.Value())
	case "len":
		return fmt.Sprintf("must have exactly %s entries", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	case "ltefield":
		return "must not exceed learning_rate"
	case "required", "required_if":
		return "is required"
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}

// VectorizerConfig converts to the tokenizer's settings.
func (c *Config) VectorizerConfig() tokenizer.VectorizerConfig {
	return tokenizer.VectorizerConfig{
		MaxTokens:      c.Vectorizer.MaxTokens,
		SequenceLength: c.Vectorizer.SequenceLength,
	}
}

// ClassifierConfig sizes the model for an adapted vocabulary.
func (c *Config) ClassifierConfig(vocabSize int) nn.ClassifierConfig {
	return nn.ClassifierConfig{
		VocabSize:    vocabSize,
		EmbeddingDim: c.Model.EmbeddingDim,
		Dropout:      c.Model.Dropout,
		Seed:         c.Model.Seed,
	}
}

func (c *Config) TrainConfig() train.TrainConfig {
	tc := train.DefaultTrainConfig()
	tc.Epochs = c.Train.Epochs
	tc.LearningRate = c.Train.LearningRate
	tc.LRSchedule = c.Train.LRSchedule
	tc.MinLR = c.Train.MinLR
	tc.WarmupSteps = c.Train.WarmupSteps
	tc.LogEvery = c.Train.LogEvery
	return tc
}
