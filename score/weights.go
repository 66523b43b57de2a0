package score

import (
	"errors"
	"fmt"
	"math"
)

// weightSumEpsilon bounds the tolerated float drift when checking that the
// category weights sum to one.
const weightSumEpsilon = 1e-9

var (
	// ErrWeightNegative indicates a category weight below zero.
	ErrWeightNegative = errors.New("category weight cannot be negative")
	// ErrWeightSum indicates category weights that do not sum to 1.0.
	ErrWeightSum = errors.New("category weights must sum to 1.0")
)

// Weights assigns the relative importance of each sub-score category when
// deriving the composite. Weights are configuration, never hard-coded into
// the calculator, so deployments can tune the policy mix.
type Weights struct {
	InternalFortitude      float64 `json:"internalFortitude" toml:"InternalFortitude" yaml:"internalFortitude"`
	ExternalAccountability float64 `json:"externalAccountability" toml:"ExternalAccountability" yaml:"externalAccountability"`
	HighStakesIntegrity    float64 `json:"highStakesIntegrity" toml:"HighStakesIntegrity" yaml:"highStakesIntegrity"`
}

// DefaultWeights returns the documented baseline weighting.
func DefaultWeights() Weights {
	return Weights{
		InternalFortitude:      0.40,
		ExternalAccountability: 0.40,
		HighStakesIntegrity:    0.20,
	}
}

// Validate ensures the weighting is internally consistent. This is a
// configuration-time check; callers validate once at startup rather than per
// submission.
func (w Weights) Validate() error {
	for _, c := range []struct {
		name  string
		value float64
	}{
		{"internalFortitude", w.InternalFortitude},
		{"externalAccountability", w.ExternalAccountability},
		{"highStakesIntegrity", w.HighStakesIntegrity},
	} {
		if c.value < 0 {
			return fmt.Errorf("%w: %s=%v", ErrWeightNegative, c.name, c.value)
		}
	}
	sum := w.InternalFortitude + w.ExternalAccountability + w.HighStakesIntegrity
	if math.Abs(sum-1.0) > weightSumEpsilon {
		return fmt.Errorf("%w: got %v", ErrWeightSum, sum)
	}
	return nil
}
