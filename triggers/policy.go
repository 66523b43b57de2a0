package triggers

import (
	"errors"
	"fmt"
)

// Baseline policy thresholds. Deployments tune these through configuration;
// the engine itself never assumes them.
const (
	DefaultSanctionScoreThreshold   = 75
	DefaultSanctionStreakDays       = 3
	DefaultReviewScoreThreshold     = 50
	DefaultReviewWindowDays         = 30
	DefaultReviewDayCount           = 5
	DefaultGraduationScoreThreshold = 90
	DefaultGraduationStreakDays     = 180
)

var (
	// ErrThresholdNegative indicates a score threshold below zero.
	ErrThresholdNegative = errors.New("score threshold cannot be negative")
	// ErrDayCountNotPositive indicates a streak length, window size or day
	// count that is zero or negative.
	ErrDayCountNotPositive = errors.New("day count must be positive")
)

// Policy fixes the thresholds a score history is classified against.
type Policy struct {
	// SanctionScoreThreshold is the composite below which a day counts toward
	// a sanction warning streak.
	SanctionScoreThreshold int `json:"sanctionScoreThreshold" yaml:"sanctionScoreThreshold"`
	// SanctionStreakDays is the consecutive-day run length that raises the
	// sanction warning flag.
	SanctionStreakDays int `json:"sanctionStreakDays" yaml:"sanctionStreakDays"`
	// ReviewScoreThreshold is the composite below which a day counts toward a
	// review mandate.
	ReviewScoreThreshold int `json:"reviewScoreThreshold" yaml:"reviewScoreThreshold"`
	// ReviewWindowDays is the trailing calendar window, ending at the
	// evaluation day, that review counting looks back over.
	ReviewWindowDays int `json:"reviewWindowDays" yaml:"reviewWindowDays"`
	// ReviewDayCount is the number of sub-threshold days within the window
	// that raises the review mandate flag. Days need not be consecutive.
	ReviewDayCount int `json:"reviewDayCount" yaml:"reviewDayCount"`
	// GraduationScoreThreshold is the composite at or above which a day
	// counts toward the graduation track.
	GraduationScoreThreshold int `json:"graduationScoreThreshold" yaml:"graduationScoreThreshold"`
	// GraduationStreakDays is the consecutive-day run length that raises the
	// graduation flag.
	GraduationStreakDays int `json:"graduationStreakDays" yaml:"graduationStreakDays"`
	// CountFutureDays includes records dated after the evaluation day in the
	// scans. Off by default: a future-dated record usually signals clock skew
	// upstream, not performance.
	CountFutureDays bool `json:"countFutureDays" yaml:"countFutureDays"`
}

// DefaultPolicy returns the documented baseline thresholds.
func DefaultPolicy() Policy {
	return Policy{
		SanctionScoreThreshold:   DefaultSanctionScoreThreshold,
		SanctionStreakDays:       DefaultSanctionStreakDays,
		ReviewScoreThreshold:     DefaultReviewScoreThreshold,
		ReviewWindowDays:         DefaultReviewWindowDays,
		ReviewDayCount:           DefaultReviewDayCount,
		GraduationScoreThreshold: DefaultGraduationScoreThreshold,
		GraduationStreakDays:     DefaultGraduationStreakDays,
	}
}

// Validate ensures the policy is internally consistent. Misconfiguration is
// fatal at startup, never detected per evaluation.
func (p Policy) Validate() error {
	for _, c := range []struct {
		name  string
		value int
	}{
		{"sanctionScoreThreshold", p.SanctionScoreThreshold},
		{"reviewScoreThreshold", p.ReviewScoreThreshold},
		{"graduationScoreThreshold", p.GraduationScoreThreshold},
	} {
		if c.value < 0 {
			return fmt.Errorf("%w: %s=%d", ErrThresholdNegative, c.name, c.value)
		}
	}
	for _, c := range []struct {
		name  string
		value int
	}{
		{"sanctionStreakDays", p.SanctionStreakDays},
		{"reviewWindowDays", p.ReviewWindowDays},
		{"reviewDayCount", p.ReviewDayCount},
		{"graduationStreakDays", p.GraduationStreakDays},
	} {
		if c.value <= 0 {
			return fmt.Errorf("%w: %s=%d", ErrDayCountNotPositive, c.name, c.value)
		}
	}
	return nil
}
