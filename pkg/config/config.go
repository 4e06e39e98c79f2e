package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// TrainConfig holds the trainer configuration
type TrainConfig struct {
	CorpusPath      string  `json:"corpus_path"`
	LogPath         string  `json:"log_path"`
	HiddenSize      int     `json:"hidden_size"`
	WindowSize      int     `json:"window_size"`
	SampleLength    int     `json:"sample_length"`
	SampleCount     int     `json:"sample_count"`
	LearningRate    float64 `json:"learning_rate"`
	MinLearningRate float64 `json:"min_learning_rate"`
	MaxLearningRate float64 `json:"max_learning_rate"`
	ClipNorm        float64 `json:"clip_norm"`
	MaxEpochs       int     `json:"max_epochs"`
	Seed            int64   `json:"seed"`
	LogLevel        string  `json:"log_level"`
}

// Validate checks if the configuration is valid
func (c *TrainConfig) Validate() error {
	if c.CorpusPath == "" {
		return fmt.Errorf("corpus_path cannot be empty")
	}
	if c.LogPath == "" {
		return fmt.Errorf("log_path cannot be empty")
	}
	if c.HiddenSize <= 0 {
		return fmt.Errorf("hidden_size must be positive, got %d", c.HiddenSize)
	}
	// The cursor moves window_size-2 symbols per step.
	if c.WindowSize < 3 {
		return fmt.Errorf("window_size must be at least 3, got %d", c.WindowSize)
	}
	if c.SampleLength < 0 {
		return fmt.Errorf("sample_length cannot be negative, got %d", c.SampleLength)
	}
	if c.SampleCount < 0 {
		return fmt.Errorf("sample_count cannot be negative, got %d", c.SampleCount)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be positive, got %g", c.LearningRate)
	}
	if c.MinLearningRate < 0 || c.MaxLearningRate < 0 {
		return fmt.Errorf("learning rate bounds cannot be negative")
	}
	if c.MinLearningRate > 0 && c.MaxLearningRate > 0 && c.MinLearningRate > c.MaxLearningRate {
		return fmt.Errorf("min_learning_rate (%g) exceeds max_learning_rate (%g)", c.MinLearningRate, c.MaxLearningRate)
	}
	if c.ClipNorm < 0 {
		return fmt.Errorf("clip_norm cannot be negative, got %g", c.ClipNorm)
	}
	if c.MaxEpochs < 0 {
		return fmt.Errorf("max_epochs cannot be negative, got %d", c.MaxEpochs)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

// ResolveSeed replaces a zero seed with a time-based one and returns it.
// Later calls return the same value.
func (c *TrainConfig) ResolveSeed() int64 {
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c.Seed
}

// Level returns the parsed log level, falling back to info
func (c *TrainConfig) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// LoadConfig loads configuration from a JSON file on top of the defaults
func LoadConfig(filename string) (*TrainConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *TrainConfig {
	return &TrainConfig{
		CorpusPath:   "aesop.txt",
		LogPath:      "log.txt",
		HiddenSize:   128,
		WindowSize:   24,
		SampleLength: 500,
		SampleCount:  3,
		LearningRate: 1e-3,
		ClipNorm:     5,
		LogLevel:     "info",
	}
}
