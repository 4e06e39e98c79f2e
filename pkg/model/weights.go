package model

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// param holds one trainable tensor in row-major order together with its
// accumulated gradient and Adam moments.
type param struct {
	rows, cols int
	value      []float64
	grad       []float64
	m, v       []float64
}

func newParam(rows, cols int) *param {
	n := rows * cols
	return &param{
		rows:  rows,
		cols:  cols,
		value: make([]float64, n),
		grad:  make([]float64, n),
		m:     make([]float64, n),
		v:     make([]float64, n),
	}
}

// dense returns a matrix view sharing the parameter storage
func (p *param) dense() *mat.Dense {
	return mat.NewDense(p.rows, p.cols, p.value)
}

// gradDense returns a matrix view sharing the gradient storage
func (p *param) gradDense() *mat.Dense {
	return mat.NewDense(p.rows, p.cols, p.grad)
}

// vec returns a column vector view of a bias parameter
func (p *param) vec() *mat.VecDense {
	return mat.NewVecDense(len(p.value), p.value)
}

// xavier fills the parameter with Xavier-normal values
func (p *param) xavier(rng *rand.Rand, fanIn, fanOut int) {
	scale := math.Sqrt(2.0 / float64(fanIn+fanOut))
	for i := range p.value {
		p.value[i] = rng.NormFloat64() * scale
	}
}

func (p *param) size() int {
	return len(p.value)
}

// adam applies Adam updates to a fixed set of parameters
type adam struct {
	Beta1 float64
	Beta2 float64
	Eps   float64
	step  int
}

func newAdam() adam {
	return adam{Beta1: 0.9, Beta2: 0.999, Eps: 1e-8}
}

// update clips each gradient to clip (0 = disabled), applies one Adam step
// scaled by rate and clears the gradients.
func (opt *adam) update(rate, clip float64, params ...*param) {
	opt.step++

	bc1 := 1.0 - math.Pow(opt.Beta1, float64(opt.step))
	bc2 := 1.0 - math.Pow(opt.Beta2, float64(opt.step))

	for _, p := range params {
		if clip > 0 {
			if norm := floats.Norm(p.grad, 2); norm > clip {
				floats.Scale(clip/norm, p.grad)
			}
		}

		for j, g := range p.grad {
			p.m[j] = opt.Beta1*p.m[j] + (1-opt.Beta1)*g
			p.v[j] = opt.Beta2*p.v[j] + (1-opt.Beta2)*g*g

			mHat := p.m[j] / bc1
			vHat := p.v[j] / bc2

			p.value[j] -= rate * mHat / (math.Sqrt(vHat) + opt.Eps)
			p.grad[j] = 0
		}
	}
}
