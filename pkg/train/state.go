package train

import (
	"github.com/google/uuid"
)

// State is the mutable training state owned by a Trainer
type State struct {
	RunID    string
	Seed     int64
	Epoch    int
	Cursor   int
	Metrics  Metrics
	Schedule Schedule
}

// NewState creates the state for a fresh run over a vocabulary of vocabSize
func NewState(vocabSize int, rate float64) *State {
	m := NewMetrics(vocabSize)
	return &State{
		RunID:    uuid.New().String(),
		Metrics:  m,
		Schedule: NewSchedule(rate, m.Loss),
	}
}

// LearningRate returns the current learning rate
func (s *State) LearningRate() float64 {
	return s.Schedule.Rate
}
