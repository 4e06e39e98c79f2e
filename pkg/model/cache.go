package model

import (
	"gonum.org/v1/gonum/mat"
)

// lstmStep holds the activations of one LSTM time step for the backward pass
type lstmStep struct {
	XH    *mat.VecDense // [x_t; h_{t-1}]
	F     []float64     // forget gate
	I     []float64     // input gate
	G     []float64     // candidate
	O     []float64     // output gate
	CPrev []float64
	C     []float64
	TanhC []float64
}

func newLSTMStep(hidden int) *lstmStep {
	return &lstmStep{
		F:     make([]float64, hidden),
		I:     make([]float64, hidden),
		G:     make([]float64, hidden),
		O:     make([]float64, hidden),
		C:     make([]float64, hidden),
		TanhC: make([]float64, hidden),
	}
}

// softmaxStep holds the input of one output projection step
type softmaxStep struct {
	Input *mat.VecDense
}
