package model

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	tmath "github.com/crislerwin/tiny-rnn/pkg/math"
)

// SoftMax is an affine output projection followed by softmax.
//
// Backward expects the gradient with respect to the pre-softmax logits,
// which for cross-entropy is probs - targets.
type SoftMax struct {
	inputSize  int
	outputSize int
	windowSize int
	rate       float64
	clip       float64

	w *param // O x I
	b *param // O

	steps []softmaxStep
	opt   adam
}

// NewSoftMax creates an output layer mapping InputSize to OutputSize classes
func NewSoftMax(cfg LayerConfig, rng *rand.Rand) (*SoftMax, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &SoftMax{
		inputSize:  cfg.InputSize,
		outputSize: cfg.OutputSize,
		windowSize: cfg.WindowSize,
		rate:       cfg.LearningRate,
		clip:       cfg.ClipNorm,
		w:          newParam(cfg.OutputSize, cfg.InputSize),
		b:          newParam(cfg.OutputSize, 1),
		opt:        newAdam(),
	}
	l.w.xavier(rng, cfg.InputSize, cfg.OutputSize)
	return l, nil
}

// Forward projects each step and normalizes it into a distribution.
// The layer holds no recurrent state, so reset has no effect.
func (l *SoftMax) Forward(input tmath.Matrix, reset bool) (tmath.Matrix, error) {
	if err := checkSequence(input, l.windowSize, l.inputSize, "SoftMax input"); err != nil {
		return nil, err
	}

	w := l.w.dense()
	b := l.b.vec()

	output := tmath.NewMatrix(l.windowSize, l.outputSize)
	l.steps = make([]softmaxStep, l.windowSize)

	for t := 1; t < l.windowSize; t++ {
		x := mat.NewVecDense(l.inputSize, append([]float64(nil), input[t]...))

		z := mat.NewVecDense(l.outputSize, nil)
		z.MulVec(w, x)
		z.AddVec(z, b)

		l.steps[t] = softmaxStep{Input: x}
		output[t] = tmath.Softmax(z.RawVector().Data)
	}

	return output, nil
}

// Backward accumulates the projection gradients and returns dL/dinput
func (l *SoftMax) Backward(grads tmath.Matrix) (tmath.Matrix, error) {
	if err := checkSequence(grads, l.windowSize, l.outputSize, "SoftMax gradient"); err != nil {
		return nil, err
	}
	if len(l.steps) != l.windowSize {
		return nil, fmt.Errorf("SoftMax backward called before forward")
	}

	w := l.w.dense()
	dw := l.w.gradDense()

	dx := tmath.NewMatrix(l.windowSize, l.inputSize)
	dxv := mat.NewVecDense(l.inputSize, nil)

	for t := 1; t < l.windowSize; t++ {
		g := mat.NewVecDense(l.outputSize, grads[t])

		dw.RankOne(dw, 1, g, l.steps[t].Input)
		floats.Add(l.b.grad, grads[t])

		dxv.MulVec(w.T(), g)
		copy(dx[t], dxv.RawVector().Data)
	}

	l.opt.update(l.rate, l.clip, l.w, l.b)
	return dx, nil
}

// Count returns the number of trainable scalars
func (l *SoftMax) Count() int {
	return l.w.size() + l.b.size()
}

// LearningRate returns the current learning rate
func (l *SoftMax) LearningRate() float64 {
	return l.rate
}

// SetLearningRate sets the rate used by the next Backward
func (l *SoftMax) SetLearningRate(rate float64) {
	l.rate = rate
}
