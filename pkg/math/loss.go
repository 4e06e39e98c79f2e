package math

import (
	"fmt"
	"math"
)

// CrossEntropy computes the window loss, perplexity and the combined
// softmax + cross-entropy gradient.
//
// probs and targets are sequences of equal shape; targets rows are one-hot.
// Row 0 is a placeholder and takes no part in the loss: its gradient row is
// all zeros. The loss is averaged over rows 1..n-1, the gradient is not.
// Perplexity is the geometric mean of the inverse probability assigned to
// each true symbol.
func CrossEntropy(probs, targets Matrix) (float64, float64, Matrix, error) {
	rows, cols := probs.Shape()
	tRows, tCols := targets.Shape()
	if rows != tRows || cols != tCols {
		return 0, 0, nil, fmt.Errorf("shape mismatch in CrossEntropy: probs (%d,%d) vs targets (%d,%d)", rows, cols, tRows, tCols)
	}
	if rows < 2 {
		return 0, 0, nil, fmt.Errorf("sequence too short for CrossEntropy: %d rows", rows)
	}

	grads := NewMatrix(rows, cols)
	loss := 0.0
	logInvProb := 0.0

	for t := 1; t < rows; t++ {
		if len(probs[t]) != cols || len(targets[t]) != cols {
			return 0, 0, nil, fmt.Errorf("ragged row %d in CrossEntropy", t)
		}
		for i := 0; i < cols; i++ {
			y := targets[t][i]
			if y != 0 {
				nll := -math.Log(probs[t][i])
				loss += nll * y
				if y == 1 {
					logInvProb += nll
				}
			}
			// Gradient of CrossEntropy + Softmax is (p - y)
			grads[t][i] = probs[t][i] - y
		}
	}

	n := float64(rows - 1)
	return loss / n, math.Exp(logInvProb / n), grads, nil
}
