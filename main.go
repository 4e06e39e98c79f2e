package main

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/crislerwin/tiny-rnn/pkg/config"
	"github.com/crislerwin/tiny-rnn/pkg/journal"
	"github.com/crislerwin/tiny-rnn/pkg/model"
	"github.com/crislerwin/tiny-rnn/pkg/tokenizer"
	"github.com/crislerwin/tiny-rnn/pkg/train"
)

// loadConfig reads the config file named on the command line, or falls back
// to the defaults.
func loadConfig() (*config.TrainConfig, error) {
	if len(os.Args) > 1 {
		return config.LoadConfig(os.Args[1])
	}
	cfg := config.DefaultConfig()
	return cfg, cfg.Validate()
}

// closeJournal flushes and closes j, logging any failure
func closeJournal(j *journal.Journal, logger *logrus.Logger) {
	if err := j.Close(); err != nil {
		logger.WithError(err).Error("Failed to close journal")
	}
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := loadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load config")
	}
	logger.SetLevel(cfg.Level())

	// One seed drives both weight init and sampling so a run can be replayed
	seed := cfg.ResolveSeed()

	text, err := os.ReadFile(cfg.CorpusPath)
	if err != nil {
		logger.WithError(err).WithField("path", cfg.CorpusPath).Fatal("Failed to read corpus")
	}

	vocab, err := tokenizer.Build(string(text))
	if err != nil {
		logger.WithError(err).Fatal("Failed to build vocabulary")
	}
	logger.WithFields(logrus.Fields{
		"corpus":     cfg.CorpusPath,
		"vocab_size": vocab.VocabSize(),
		"seed":       seed,
	}).Info("Vocabulary built")

	stack, err := model.NewStack(model.StackConfig{
		InputSize:    vocab.VocabSize(),
		HiddenSize:   cfg.HiddenSize,
		OutputSize:   vocab.VocabSize(),
		WindowSize:   cfg.WindowSize,
		LearningRate: cfg.LearningRate,
		ClipNorm:     cfg.ClipNorm,
	}, rand.New(rand.NewSource(seed)))
	if err != nil {
		logger.WithError(err).Fatal("Failed to build model")
	}

	j, err := journal.Open(cfg.LogPath)
	if err != nil {
		logger.WithError(err).WithField("path", cfg.LogPath).Fatal("Failed to open journal")
	}
	defer closeJournal(j, logger)

	trainer, err := train.NewTrainer(cfg, vocab, string(text), stack, j, logger)
	if err != nil {
		closeJournal(j, logger)
		logger.WithError(err).Fatal("Failed to create trainer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := trainer.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		closeJournal(j, logger)
		logger.WithError(err).Fatal("Training failed")
	}
}
