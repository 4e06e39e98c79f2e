package train

import (
	"math"
)

// smoothing is the EMA weight kept from the previous value
const smoothing = 0.99

// Metrics holds exponentially smoothed loss and perplexity
type Metrics struct {
	Loss       float64
	Perplexity float64
}

// NewMetrics starts the averages at the values of a uniform model
func NewMetrics(vocabSize int) Metrics {
	return Metrics{
		Loss:       math.Log(float64(vocabSize)),
		Perplexity: float64(vocabSize),
	}
}

// Observe folds one window's loss and perplexity into the averages
func (m *Metrics) Observe(loss, perplexity float64) {
	m.Loss = m.Loss*smoothing + loss*(1-smoothing)
	m.Perplexity = m.Perplexity*smoothing + perplexity*(1-smoothing)
}
