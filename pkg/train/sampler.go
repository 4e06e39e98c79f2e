package train

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	tmath "github.com/crislerwin/tiny-rnn/pkg/math"
)

// ErrMalformedDistribution is returned for distributions that are empty,
// carry no mass, or hold negative or NaN entries.
var ErrMalformedDistribution = errors.New("malformed probability distribution")

// Sampler draws symbol indices from probability distributions
type Sampler struct {
	rng *rand.Rand
}

// NewSampler creates a sampler with its own seeded source
func NewSampler(seed int64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(seed))}
}

// Sample draws one index from probs
func (s *Sampler) Sample(probs tmath.Vector) (int, error) {
	return Choose(probs, s.rng.Float64())
}

// Choose returns the first index whose cumulative mass reaches u.
//
// If rounding leaves the total mass short of u, the last index with
// non-zero mass is returned.
func Choose(probs tmath.Vector, u float64) (int, error) {
	if len(probs) == 0 {
		return 0, fmt.Errorf("%w: empty", ErrMalformedDistribution)
	}

	last := -1
	for i, p := range probs {
		if p < 0 || math.IsNaN(p) {
			return 0, fmt.Errorf("%w: entry %d is %v", ErrMalformedDistribution, i, p)
		}
		if p > 0 {
			last = i
		}
	}
	if last < 0 {
		return 0, fmt.Errorf("%w: no probability mass", ErrMalformedDistribution)
	}

	for i, p := range probs {
		if p > 0 && u <= p {
			return i, nil
		}
		u -= p
	}

	return last, nil
}
