package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	tmath "github.com/crislerwin/tiny-rnn/pkg/math"
)

// LSTM is a long short-term memory layer.
//
// The four gate pre-activations are computed by a single matrix acting on
// the concatenation [x_t; h_{t-1}]; its rows are grouped as forget, input,
// candidate and output gate.
type LSTM struct {
	inputSize  int
	hiddenSize int
	windowSize int
	rate       float64
	clip       float64

	w *param // 4H x (I+H)
	b *param // 4H

	h     []float64
	c     []float64
	steps []*lstmStep
	opt   adam
}

// NewLSTM creates an LSTM layer mapping InputSize to OutputSize hidden units
func NewLSTM(cfg LayerConfig, rng *rand.Rand) (*LSTM, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	in, hid := cfg.InputSize, cfg.OutputSize
	l := &LSTM{
		inputSize:  in,
		hiddenSize: hid,
		windowSize: cfg.WindowSize,
		rate:       cfg.LearningRate,
		clip:       cfg.ClipNorm,
		w:          newParam(4*hid, in+hid),
		b:          newParam(4*hid, 1),
		h:          make([]float64, hid),
		c:          make([]float64, hid),
		opt:        newAdam(),
	}
	l.w.xavier(rng, in+hid, hid)
	// Start with the forget gate open.
	for k := 0; k < hid; k++ {
		l.b.value[k] = 1
	}
	return l, nil
}

// Forward runs the window through the cell, carrying h and c across calls
func (l *LSTM) Forward(input tmath.Matrix, reset bool) (tmath.Matrix, error) {
	if err := checkSequence(input, l.windowSize, l.inputSize, "LSTM input"); err != nil {
		return nil, err
	}

	if reset {
		clear(l.h)
		clear(l.c)
	}

	in, hid := l.inputSize, l.hiddenSize
	w := l.w.dense()
	b := l.b.vec()

	output := tmath.NewMatrix(l.windowSize, hid)
	l.steps = make([]*lstmStep, l.windowSize)

	for t := 1; t < l.windowSize; t++ {
		xh := make([]float64, in+hid)
		copy(xh, input[t])
		copy(xh[in:], l.h)

		st := newLSTMStep(hid)
		st.XH = mat.NewVecDense(in+hid, xh)
		st.CPrev = l.c

		z := mat.NewVecDense(4*hid, nil)
		z.MulVec(w, st.XH)
		z.AddVec(z, b)
		zr := z.RawVector().Data

		h := make([]float64, hid)
		for k := 0; k < hid; k++ {
			st.F[k] = tmath.Sigmoid(zr[k])
			st.I[k] = tmath.Sigmoid(zr[hid+k])
			st.G[k] = math.Tanh(zr[2*hid+k])
			st.O[k] = tmath.Sigmoid(zr[3*hid+k])

			st.C[k] = st.F[k]*st.CPrev[k] + st.I[k]*st.G[k]
			st.TanhC[k] = math.Tanh(st.C[k])
			h[k] = st.O[k] * st.TanhC[k]
		}

		l.h = h
		l.c = st.C
		l.steps[t] = st
		copy(output[t], h)
	}

	return output, nil
}

// Backward runs backpropagation through time over the last forward window
func (l *LSTM) Backward(grads tmath.Matrix) (tmath.Matrix, error) {
	if err := checkSequence(grads, l.windowSize, l.hiddenSize, "LSTM gradient"); err != nil {
		return nil, err
	}
	if len(l.steps) != l.windowSize {
		return nil, fmt.Errorf("LSTM backward called before forward")
	}

	in, hid := l.inputSize, l.hiddenSize
	w := l.w.dense()
	dw := l.w.gradDense()

	dx := tmath.NewMatrix(l.windowSize, in)
	dhNext := make([]float64, hid)
	dcNext := make([]float64, hid)
	dz := make([]float64, 4*hid)
	dzv := mat.NewVecDense(4*hid, dz)
	dxh := mat.NewVecDense(in+hid, nil)

	for t := l.windowSize - 1; t >= 1; t-- {
		st := l.steps[t]
		for k := 0; k < hid; k++ {
			dh := grads[t][k] + dhNext[k]

			do := dh * st.TanhC[k]
			dc := dh*st.O[k]*(1-st.TanhC[k]*st.TanhC[k]) + dcNext[k]
			df := dc * st.CPrev[k]
			di := dc * st.G[k]
			dg := dc * st.I[k]
			dcNext[k] = dc * st.F[k]

			dz[k] = df * st.F[k] * (1 - st.F[k])
			dz[hid+k] = di * st.I[k] * (1 - st.I[k])
			dz[2*hid+k] = dg * (1 - st.G[k]*st.G[k])
			dz[3*hid+k] = do * st.O[k] * (1 - st.O[k])
		}

		dw.RankOne(dw, 1, dzv, st.XH)
		floats.Add(l.b.grad, dz)

		dxh.MulVec(w.T(), dzv)
		raw := dxh.RawVector().Data
		copy(dx[t], raw[:in])
		copy(dhNext, raw[in:])
	}

	l.opt.update(l.rate, l.clip, l.w, l.b)
	return dx, nil
}

// Count returns the number of trainable scalars
func (l *LSTM) Count() int {
	return l.w.size() + l.b.size()
}

// LearningRate returns the current learning rate
func (l *LSTM) LearningRate() float64 {
	return l.rate
}

// SetLearningRate sets the rate used by the next Backward
func (l *LSTM) SetLearningRate(rate float64) {
	l.rate = rate
}
