// Package config loads runtime settings from a YAML file, SENTCNN_*
// environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/EricLina/sentcnn/backend/cpu"
	"github.com/EricLina/sentcnn/nn"
)

// EnvPrefix prefixes every environment override, e.g. SENTCNN_TRAIN_EPOCHS.
const EnvPrefix = "SENTCNN"

// Config stores all configuration of the application.
type Config struct {
	Model     ModelConfig `mapstructure:"model"`
	Train     TrainConfig `mapstructure:"train"`
	Data      DataConfig  `mapstructure:"data"`
	Runs      RunsConfig  `mapstructure:"runs"`
	ModelPath string      `mapstructure:"model_path"`
	Device    string      `mapstructure:"device"`
	LogLevel  string      `mapstructure:"log_level"`
}

// ModelConfig holds the architecture hyperparameters.
type ModelConfig struct {
	EmbeddingDim int  `mapstructure:"embedding_dim"`
	FilterSize   int  `mapstructure:"filter_size"`
	NumFilters   int  `mapstructure:"num_filters"`
	NumClasses   int  `mapstructure:"num_classes"`
	MaskPadding  bool `mapstructure:"mask_padding"`
}

// TrainConfig holds optimization settings.
type TrainConfig struct {
	BatchSize    int     `mapstructure:"batch_size"`
	Epochs       int     `mapstructure:"epochs"`
	LearningRate float64 `mapstructure:"learning_rate"`
	Seed         int64   `mapstructure:"seed"`
	Progress     bool    `mapstructure:"progress"`
	EvalWorkers  int     `mapstructure:"eval_workers"`
}

// DataConfig locates the polarity corpus.
type DataConfig struct {
	CorpusDir     string `mapstructure:"corpus_dir"`
	TrainPerClass int    `mapstructure:"train_per_class"`
}

// RunsConfig controls the optional run registry.
type RunsConfig struct {
	DSN     string `mapstructure:"dsn"`
	Enabled bool   `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model.embedding_dim", 128)
	v.SetDefault("model.filter_size", 3)
	v.SetDefault("model.num_filters", 100)
	v.SetDefault("model.num_classes", 2)
	v.SetDefault("model.mask_padding", true)

	v.SetDefault("train.batch_size", 32)
	v.SetDefault("train.epochs", 100)
	v.SetDefault("train.learning_rate", 0.001)
	v.SetDefault("train.seed", 42)
	v.SetDefault("train.progress", true)
	v.SetDefault("train.eval_workers", 0)

	v.SetDefault("data.corpus_dir", "./data/sentence_polarity")
	v.SetDefault("data.train_per_class", 4000)

	v.SetDefault("runs.dsn", "file:runs.db")
	v.SetDefault("runs.enabled", false)

	v.SetDefault("model_path", "model_cnn.gob")
	v.SetDefault("device", "auto")
	v.SetDefault("log_level", "info")
}

// Load reads configuration. With an empty configPath a "sentcnn.yaml" in the
// working directory is used when present; an explicit path must exist.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("sentcnn")
		v.SetConfigType("yaml")
	}
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if cfg.Train.EvalWorkers <= 0 {
		cfg.Train.EvalWorkers = cpu.DetectFeatures().Workers()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch {
	case c.Model.EmbeddingDim <= 0, c.Model.FilterSize <= 0, c.Model.NumFilters <= 0:
		return fmt.Errorf("config: model sizes must be positive: %+v", c.Model)
	case c.Model.NumClasses < 2:
		return fmt.Errorf("config: model.num_classes must be at least 2, got %d", c.Model.NumClasses)
	case c.Train.BatchSize <= 0:
		return fmt.Errorf("config: train.batch_size must be positive, got %d", c.Train.BatchSize)
	case c.Train.Epochs < 0:
		return fmt.Errorf("config: train.epochs must not be negative, got %d", c.Train.Epochs)
	case c.Train.LearningRate <= 0:
		return fmt.Errorf("config: train.learning_rate must be positive, got %g", c.Train.LearningRate)
	case c.Data.TrainPerClass < 0:
		return fmt.Errorf("config: data.train_per_class must not be negative, got %d", c.Data.TrainPerClass)
	case c.ModelPath == "":
		return errors.New("config: model_path is empty")
	}
	switch strings.ToLower(c.Device) {
	case "auto", "cpu", "cuda", "gpu":
	default:
		return fmt.Errorf("config: unknown device %q", c.Device)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	return nil
}

// NetConfig returns the network shape for a vocabulary of vocabSize tokens
// padded with padID.
func (c *Config) NetConfig(vocabSize int, padID int64) nn.Config {
	return nn.Config{
		VocabSize:    vocabSize,
		EmbeddingDim: c.Model.EmbeddingDim,
		FilterSize:   c.Model.FilterSize,
		NumFilters:   c.Model.NumFilters,
		NumClasses:   c.Model.NumClasses,
		PadID:        padID,
		MaskPadding:  c.Model.MaskPadding,
	}
}

// NewLogger returns a timestamped zerolog logger writing to w at level.
// An unknown level falls back to info.
func NewLogger(level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
