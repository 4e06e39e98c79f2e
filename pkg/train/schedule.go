package train

// Schedule adapts the learning rate once per epoch from the loss trend.
//
// The rate grows 1% while the smoothed loss is below its slower trend and
// shrinks 2% otherwise. MinRate and MaxRate clamp the result when non-zero;
// with both at zero the rate is unbounded.
type Schedule struct {
	Rate    float64
	Trend   float64
	MinRate float64
	MaxRate float64
}

// NewSchedule starts the trend at the initial smoothed loss
func NewSchedule(rate, initialLoss float64) Schedule {
	return Schedule{
		Rate:  rate,
		Trend: initialLoss,
	}
}

// Update applies one epoch-boundary adjustment and returns the new rate
func (s *Schedule) Update(loss float64) float64 {
	if s.Trend-loss > 0 {
		s.Rate += s.Rate * 0.01
	} else {
		s.Rate -= s.Rate * 0.02
	}
	if s.MinRate > 0 && s.Rate < s.MinRate {
		s.Rate = s.MinRate
	}
	if s.MaxRate > 0 && s.Rate > s.MaxRate {
		s.Rate = s.MaxRate
	}

	s.Trend = s.Trend*0.8 + loss*0.2
	return s.Rate
}
