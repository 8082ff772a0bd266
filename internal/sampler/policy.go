package sampler

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// ErrSampling reports a distribution nothing can be drawn from.
var ErrSampling = errors.New("sampling failed")

// DefaultRetries is the number of draws Categorical makes before giving up.
const DefaultRetries = 10

// Policy draws one index from a categorical distribution.
type Policy interface {
	Sample(dist []float32, rng *rand.Rand) (int, error)
}

// NewPolicy returns Thresholded when minProbability > 0, else Categorical.
func NewPolicy(minProbability float64) Policy {
	if minProbability > 0 {
		return Thresholded{Min: minProbability}
	}

	return Categorical{Retries: DefaultRetries}
}

// Categorical samples the distribution as given. When rounding leaves the
// total short of 1 and the draw lands past it, the draw is repeated.
type Categorical struct {
	Retries int
}

func (c Categorical) Sample(dist []float32, rng *rand.Rand) (int, error) {
	if err := validate(dist); err != nil {
		return 0, err
	}

	retries := c.Retries
	if retries <= 0 {
		retries = DefaultRetries
	}

	for range retries {
		d := rng.Float64()

		var sum float64

		for i, p := range dist {
			if p <= 0 {
				continue
			}

			sum += float64(p)
			if d <= sum {
				return i, nil
			}
		}
	}

	return 0, fmt.Errorf("%w: no index reached draw after %d attempts", ErrSampling, retries)
}

// Thresholded ignores every probability below Min and samples the remaining
// mass.
type Thresholded struct {
	Min float64
}

func (t Thresholded) Sample(dist []float32, rng *rand.Rand) (int, error) {
	if err := validate(dist); err != nil {
		return 0, err
	}

	var (
		total float64
		last  = -1
	)

	for i, p := range dist {
		if float64(p) >= t.Min && p > 0 {
			total += float64(p)
			last = i
		}
	}

	if last < 0 {
		return 0, fmt.Errorf("%w: no probability reaches threshold %g", ErrSampling, t.Min)
	}

	target := rng.Float64() * total

	var running float64

	for i, p := range dist {
		if float64(p) < t.Min || p <= 0 {
			continue
		}

		running += float64(p)
		if target <= running {
			return i, nil
		}
	}

	// Rounding in the second pass can leave running a hair below total.
	return last, nil
}

func validate(dist []float32) error {
	if len(dist) == 0 {
		return fmt.Errorf("%w: empty distribution", ErrSampling)
	}

	for i, p := range dist {
		if p < 0 || math.IsNaN(float64(p)) || math.IsInf(float64(p), 0) {
			return fmt.Errorf("%w: invalid probability %v at index %d", ErrSampling, p, i)
		}
	}

	return nil
}
