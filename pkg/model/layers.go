package model

import (
	"fmt"
	"math/rand"

	tmath "github.com/crislerwin/tiny-rnn/pkg/math"
)

// Layer is one unit of the stack. Sequences are windowSize rows long and
// row 0 is a placeholder: layers skip it and emit zeros there.
type Layer interface {
	// Forward processes the sequence, clearing recurrent state first when reset is set.
	Forward(input tmath.Matrix, reset bool) (tmath.Matrix, error)
	// Backward propagates output gradients through time, updates the
	// layer parameters and returns the gradient with respect to the input.
	Backward(grads tmath.Matrix) (tmath.Matrix, error)
	// Count returns the number of trainable scalars.
	Count() int
	LearningRate() float64
	SetLearningRate(rate float64)
}

// LayerConfig holds the construction parameters shared by all layers
type LayerConfig struct {
	InputSize    int
	OutputSize   int
	WindowSize   int
	LearningRate float64
	ClipNorm     float64
}

// Validate checks if the configuration is valid
func (c LayerConfig) Validate() error {
	if c.InputSize <= 0 {
		return fmt.Errorf("input size must be positive, got %d", c.InputSize)
	}
	if c.OutputSize <= 0 {
		return fmt.Errorf("output size must be positive, got %d", c.OutputSize)
	}
	if c.WindowSize < 2 {
		return fmt.Errorf("window size must be at least 2, got %d", c.WindowSize)
	}
	if c.LearningRate < 0 {
		return fmt.Errorf("learning rate cannot be negative, got %g", c.LearningRate)
	}
	return nil
}

// checkSequence validates that rows 1..n-1 of seq have the given width
func checkSequence(seq tmath.Matrix, rows, cols int, what string) error {
	if len(seq) != rows {
		return fmt.Errorf("%s has %d steps, want %d", what, len(seq), rows)
	}
	for t := 1; t < rows; t++ {
		if len(seq[t]) != cols {
			return fmt.Errorf("%s step %d has size %d, want %d", what, t, len(seq[t]), cols)
		}
	}
	return nil
}

// StackConfig describes the three-layer network
type StackConfig struct {
	InputSize    int
	HiddenSize   int
	OutputSize   int
	WindowSize   int
	LearningRate float64
	ClipNorm     float64
}

// Stack chains three layers: two recurrent units and an output projection
type Stack struct {
	layers []Layer
}

// NewStack builds LSTM(input->hidden), LSTM(hidden->hidden), SoftMax(hidden->output)
func NewStack(cfg StackConfig, rng *rand.Rand) (*Stack, error) {
	l1, err := NewLSTM(LayerConfig{
		InputSize:    cfg.InputSize,
		OutputSize:   cfg.HiddenSize,
		WindowSize:   cfg.WindowSize,
		LearningRate: cfg.LearningRate,
		ClipNorm:     cfg.ClipNorm,
	}, rng)
	if err != nil {
		return nil, fmt.Errorf("layer 1: %w", err)
	}

	l2, err := NewLSTM(LayerConfig{
		InputSize:    cfg.HiddenSize,
		OutputSize:   cfg.HiddenSize,
		WindowSize:   cfg.WindowSize,
		LearningRate: cfg.LearningRate,
		ClipNorm:     cfg.ClipNorm,
	}, rng)
	if err != nil {
		return nil, fmt.Errorf("layer 2: %w", err)
	}

	l3, err := NewSoftMax(LayerConfig{
		InputSize:    cfg.HiddenSize,
		OutputSize:   cfg.OutputSize,
		WindowSize:   cfg.WindowSize,
		LearningRate: cfg.LearningRate,
		ClipNorm:     cfg.ClipNorm,
	}, rng)
	if err != nil {
		return nil, fmt.Errorf("layer 3: %w", err)
	}

	return NewStackFromLayers(l1, l2, l3), nil
}

// NewStackFromLayers composes three arbitrary layers in series
func NewStackFromLayers(l1, l2, l3 Layer) *Stack {
	return &Stack{layers: []Layer{l1, l2, l3}}
}

// Forward runs the sequence through every layer in order
func (s *Stack) Forward(input tmath.Matrix, reset bool) (tmath.Matrix, error) {
	x := input
	for i, l := range s.layers {
		var err error
		x, err = l.Forward(x, reset)
		if err != nil {
			return nil, fmt.Errorf("layer %d forward failed: %w", i+1, err)
		}
	}
	return x, nil
}

// Backward runs the gradients through every layer in reverse order
func (s *Stack) Backward(grads tmath.Matrix) (tmath.Matrix, error) {
	g := grads
	for i := len(s.layers) - 1; i >= 0; i-- {
		var err error
		g, err = s.layers[i].Backward(g)
		if err != nil {
			return nil, fmt.Errorf("layer %d backward failed: %w", i+1, err)
		}
	}
	return g, nil
}

// Count returns the total number of trainable scalars
func (s *Stack) Count() int {
	n := 0
	for _, l := range s.layers {
		n += l.Count()
	}
	return n
}

// LearningRate returns the rate of the first layer
func (s *Stack) LearningRate() float64 {
	return s.layers[0].LearningRate()
}

// SetLearningRate applies rate to every layer
func (s *Stack) SetLearningRate(rate float64) {
	for _, l := range s.layers {
		l.SetLearningRate(rate)
	}
}

// Layers returns the layers in forward order
func (s *Stack) Layers() []Layer {
	return s.layers
}
