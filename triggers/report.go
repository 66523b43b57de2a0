package triggers

import (
	"fmt"

	"ifscore/score"
)

// WarningCode classifies a data-integrity finding surfaced during evaluation.
type WarningCode string

const (
	// WarnDuplicateDay marks a day with more than one record in the snapshot.
	WarnDuplicateDay WarningCode = "duplicate_day"
	// WarnCompositeRange marks a stored composite outside [0, 100].
	WarnCompositeRange WarningCode = "composite_range"
)

// Warning records a non-fatal data-integrity finding. The engine reports
// warnings alongside the result instead of logging them itself so that it
// stays a pure function; callers route them to observability.
type Warning struct {
	Code   WarningCode `json:"code"`
	Day    score.Day   `json:"day"`
	Detail string      `json:"detail"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s on %s: %s", w.Code, w.Day, w.Detail)
}

// Report summarises one individual's score history against a Policy as of an
// evaluation day. It is derived state, recomputed on demand and never
// persisted.
type Report struct {
	// LatestScore and LatestDay describe the most recent record considered.
	// Both are nil when the history is empty.
	LatestScore *int       `json:"latestScore,omitempty"`
	LatestDay   *score.Day `json:"latestDay,omitempty"`
	// ConsecutiveSanctionDays counts the unbroken run of most recent calendar
	// days scoring below the sanction threshold.
	ConsecutiveSanctionDays int `json:"consecutiveSanctionWarningDays"`
	// ConsecutiveGraduationDays counts the unbroken run of most recent
	// calendar days scoring at or above the graduation threshold.
	ConsecutiveGraduationDays int `json:"consecutiveGraduationDays"`
	// ReviewWindowCount totals the days within the trailing review window
	// scoring below the review threshold. Gaps do not reset it.
	ReviewWindowCount int `json:"reviewMandateDayCount"`

	SanctionTriggered   bool `json:"sanctionWarningTriggered"`
	ReviewTriggered     bool `json:"reviewMandateTriggered"`
	GraduationTriggered bool `json:"graduationTriggered"`

	// Warnings lists the data-integrity findings encountered while reading
	// the snapshot. They never block evaluation.
	Warnings []Warning `json:"warnings,omitempty"`
}
