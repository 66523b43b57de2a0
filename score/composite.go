package score

import (
	"errors"
	"fmt"
	"math"
)

// Bounds on every self-reported category value and on the derived composite.
const (
	MinSubScore = 0
	MaxSubScore = 100
)

// ErrSubScoreRange indicates a self-reported category value outside [0, 100].
var ErrSubScoreRange = errors.New("sub-score out of range")

// SubScores carries the three self-reported category values for one day.
type SubScores struct {
	InternalFortitude      int `json:"internalFortitude"`
	ExternalAccountability int `json:"externalAccountability"`
	HighStakesIntegrity    int `json:"highStakesIntegrity"`
}

// Validate reports the first category value outside the permitted range.
func (s SubScores) Validate() error {
	for _, c := range []struct {
		name  string
		value int
	}{
		{"internalFortitude", s.InternalFortitude},
		{"externalAccountability", s.ExternalAccountability},
		{"highStakesIntegrity", s.HighStakesIntegrity},
	} {
		if c.value < MinSubScore || c.value > MaxSubScore {
			return fmt.Errorf("%w: %s=%d", ErrSubScoreRange, c.name, c.value)
		}
	}
	return nil
}

// Compute derives the weighted composite score from the supplied sub-scores.
// Out-of-range inputs are rejected rather than clamped so a stored composite
// always reflects what was actually reported. The result is the weighted sum
// rounded half away from zero and lies in [0, 100] whenever inputs and
// weights are valid.
func Compute(sub SubScores, w Weights) (int, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	if err := sub.Validate(); err != nil {
		return 0, err
	}
	return weigh(sub, w), nil
}

// ComputeClamped behaves like Compute but forces each sub-score into range
// first. Callers ingesting historical data that was never validated at write
// time opt into this explicitly; the submission path always rejects.
func ComputeClamped(sub SubScores, w Weights) (int, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	sub.InternalFortitude = clampSubScore(sub.InternalFortitude)
	sub.ExternalAccountability = clampSubScore(sub.ExternalAccountability)
	sub.HighStakesIntegrity = clampSubScore(sub.HighStakesIntegrity)
	return weigh(sub, w), nil
}

func weigh(sub SubScores, w Weights) int {
	weighted := float64(sub.InternalFortitude)*w.InternalFortitude +
		float64(sub.ExternalAccountability)*w.ExternalAccountability +
		float64(sub.HighStakesIntegrity)*w.HighStakesIntegrity
	return int(math.Round(weighted))
}

func clampSubScore(value int) int {
	if value < MinSubScore {
		return MinSubScore
	}
	if value > MaxSubScore {
		return MaxSubScore
	}
	return value
}
