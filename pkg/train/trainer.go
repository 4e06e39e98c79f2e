package train

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/crislerwin/tiny-rnn/pkg/config"
	"github.com/crislerwin/tiny-rnn/pkg/journal"
	tmath "github.com/crislerwin/tiny-rnn/pkg/math"
	"github.com/crislerwin/tiny-rnn/pkg/model"
	"github.com/crislerwin/tiny-rnn/pkg/tokenizer"
)

// Trainer runs the training loop: windows through the stack, loss and
// backpropagation, then samples and a learning-rate update at each epoch
// boundary.
type Trainer struct {
	cfg     *config.TrainConfig
	vocab   *tokenizer.Tokenizer
	corpus  []int
	stack   *model.Stack
	journal *journal.Journal
	sampler *Sampler
	window  *Window
	state   *State
	log     *logrus.Entry
}

// NewTrainer prepares a run over text. A nil logger falls back to logrus.New().
func NewTrainer(cfg *config.TrainConfig, vocab *tokenizer.Tokenizer, text string, stack *model.Stack, j *journal.Journal, logger *logrus.Logger) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	corpus, err := vocab.EncodeText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to encode corpus: %w", err)
	}
	// One window of input plus the symbol that follows it.
	if len(corpus) < cfg.WindowSize {
		return nil, fmt.Errorf("corpus has %d symbols, need at least %d", len(corpus), cfg.WindowSize)
	}

	window, err := NewWindow(cfg.WindowSize, vocab.VocabSize())
	if err != nil {
		return nil, err
	}

	seed := cfg.ResolveSeed()

	if logger == nil {
		logger = logrus.New()
	}

	state := NewState(vocab.VocabSize(), cfg.LearningRate)
	state.Seed = seed
	state.Schedule.MinRate = cfg.MinLearningRate
	state.Schedule.MaxRate = cfg.MaxLearningRate
	stack.SetLearningRate(state.LearningRate())

	return &Trainer{
		cfg:     cfg,
		vocab:   vocab,
		corpus:  corpus,
		stack:   stack,
		journal: j,
		sampler: NewSampler(seed),
		window:  window,
		state:   state,
		log:     logger.WithFields(logrus.Fields{"run_id": state.RunID, "seed": seed}),
	}, nil
}

// State returns the live training state
func (t *Trainer) State() *State {
	return t.state
}

// Run trains epoch after epoch until MaxEpochs is reached (0 means no
// limit) or ctx is cancelled. Both are checked between epochs only.
func (t *Trainer) Run(ctx context.Context) error {
	count := t.stack.Count()
	t.journal.Printf("Learning %s parameters...", journal.GroupThousands(count))
	if err := t.journal.Line(""); err != nil {
		return err
	}
	if err := t.journal.Flush(); err != nil {
		return err
	}

	t.log.WithFields(logrus.Fields{
		"parameters": count,
		"vocab_size": t.vocab.VocabSize(),
		"symbols":    len(t.corpus),
		"window":     t.cfg.WindowSize,
		"max_epochs": t.cfg.MaxEpochs,
	}).Info("Starting training")

	for {
		if t.cfg.MaxEpochs > 0 && t.state.Epoch >= t.cfg.MaxEpochs {
			t.log.WithField("epochs", t.state.Epoch).Info("Training complete")
			return nil
		}

		select {
		case <-ctx.Done():
			t.log.WithField("epoch", t.state.Epoch).Info("Training stopped")
			return ctx.Err()
		default:
		}

		if err := t.RunEpoch(); err != nil {
			return fmt.Errorf("epoch %d failed: %w", t.state.Epoch, err)
		}
	}
}

// RunEpoch makes one pass over the corpus, writes the epoch report and
// adjusts the learning rate.
func (t *Trainer) RunEpoch() error {
	start := time.Now()

	t.state.Cursor = 0
	windows := 0
	for t.hasWindow() {
		if err := t.Step(); err != nil {
			return fmt.Errorf("window at %d failed: %w", t.state.Cursor, err)
		}
		windows++
	}

	if err := t.report(); err != nil {
		return err
	}

	previous := t.state.LearningRate()
	rate := t.state.Schedule.Update(t.state.Metrics.Loss)
	t.stack.SetLearningRate(rate)

	t.log.WithFields(logrus.Fields{
		"epoch":         t.state.Epoch,
		"windows":       windows,
		"loss":          t.state.Metrics.Loss,
		"perplexity":    t.state.Metrics.Perplexity,
		"learning_rate": previous,
		"next_rate":     rate,
		"duration":      time.Since(start),
	}).Debug("Epoch completed")

	t.state.Epoch++
	return nil
}

// hasWindow reports whether a window and its target fit at the cursor
func (t *Trainer) hasWindow() bool {
	return t.state.Cursor+t.cfg.WindowSize-1 < len(t.corpus)
}

// Step trains on the window at the cursor and moves the cursor on
func (t *Trainer) Step() error {
	size := t.cfg.WindowSize
	cursor := t.state.Cursor

	if err := t.window.Fill(t.corpus, cursor); err != nil {
		return err
	}
	if cursor+size-1 >= len(t.corpus) {
		return fmt.Errorf("%w: no target after cursor %d", ErrWindowOverrun, cursor)
	}

	probs, err := t.stack.Forward(t.window.Slots(), cursor == 0)
	if err != nil {
		return err
	}

	// Shifting in the next symbol turns the window into the targets.
	t.window.Advance(tmath.OneHot(t.vocab.VocabSize(), t.corpus[cursor+size-1]))

	loss, perplexity, grads, err := tmath.CrossEntropy(probs, t.window.Slots())
	if err != nil {
		return err
	}

	if _, err := t.stack.Backward(grads); err != nil {
		return err
	}
	// Only windows that were trained on count towards the averages.
	t.state.Metrics.Observe(loss, perplexity)

	t.state.Cursor += size - 2
	return nil
}

// Generate samples length symbols, seeding the window with the start of
// the corpus and resetting the stack first.
func (t *Trainer) Generate(length int) (string, error) {
	size := t.cfg.WindowSize
	vocabSize := t.vocab.VocabSize()

	w, err := NewWindow(size, vocabSize)
	if err != nil {
		return "", err
	}
	if err := w.Fill(t.corpus, 0); err != nil {
		return "", err
	}

	out := make([]int, 0, length)
	for pos := 0; pos < length; pos++ {
		probs, err := t.stack.Forward(w.Slots(), pos == 0)
		if err != nil {
			return "", err
		}
		ix, err := t.sampler.Sample(probs[size-1])
		if err != nil {
			return "", err
		}
		w.Advance(tmath.OneHot(vocabSize, ix))
		out = append(out, ix)
	}

	return t.vocab.DecodeIndices(out)
}

// report writes the epoch summary and text samples, then flushes the journal
func (t *Trainer) report() error {
	j := t.journal
	j.Printf("epoch: %d  learning rate: %.4f  loss: %.3f  perplexity: %.3f",
		t.state.Epoch, t.state.LearningRate(), t.state.Metrics.Loss, t.state.Metrics.Perplexity)

	for g := 0; g < t.cfg.SampleCount; g++ {
		if err := j.Separator(); err != nil {
			return err
		}
		text, err := t.Generate(t.cfg.SampleLength)
		if err != nil {
			return fmt.Errorf("sample %d failed: %w", g+1, err)
		}
		if err := j.Line(text); err != nil {
			return err
		}
	}
	if err := j.Separator(); err != nil {
		return err
	}
	if err := j.Line(""); err != nil {
		return err
	}
	return j.Flush()
}
