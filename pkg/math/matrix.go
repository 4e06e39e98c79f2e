package math

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Matrix is a sequence of time-step vectors, one row per position
type Matrix []Vector

// Vector represents a single time step
type Vector []float64

// NewMatrix creates a new matrix with given dimensions
func NewMatrix(rows, cols int) Matrix {
	m := make(Matrix, rows)
	for i := range m {
		m[i] = make(Vector, cols)
	}
	return m
}

// NewVector creates a new vector with given size
func NewVector(size int) Vector {
	return make(Vector, size)
}

// OneHot returns a vector of the given size with a 1 at index
func OneHot(size, index int) Vector {
	v := make(Vector, size)
	v[index] = 1
	return v
}

// Shape returns the dimensions of the matrix
func (m Matrix) Shape() (int, int) {
	if len(m) == 0 {
		return 0, 0
	}
	return len(m), len(m[0])
}

// Clone returns a deep copy of the matrix
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for i, row := range m {
		out[i] = append(Vector(nil), row...)
	}
	return out
}

// IsZero reports whether every entry of v is zero
func (v Vector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Argmax returns the index of the largest entry
func (v Vector) Argmax() int {
	return floats.MaxIdx(v)
}

// Sum returns the sum of the entries
func (v Vector) Sum() float64 {
	return floats.Sum(v)
}

// Sigmoid is the logistic function
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Softmax applies the softmax function to a vector
func Softmax(v Vector) Vector {
	if len(v) == 0 {
		return Vector{}
	}

	maxVal := floats.Max(v)

	sumExp := 0.0
	result := make(Vector, len(v))
	for i, val := range v {
		result[i] = math.Exp(val - maxVal)
		sumExp += result[i]
	}

	floats.Scale(1/sumExp, result)
	return result
}
