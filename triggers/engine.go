package triggers

import (
	"fmt"
	"sort"

	"ifscore/score"
)

// Evaluate derives a Report from one individual's record history as of
// evalDay. It is a pure function of its inputs: deterministic, idempotent and
// independent of the order records arrive in. The engine never recomputes a
// composite from sub-scores and never consults the system clock.
func Evaluate(history []score.Record, evalDay score.Day, p Policy) Report {
	records, warnings := normalize(history, evalDay, p)
	report := Report{Warnings: warnings}
	if len(records) == 0 {
		return report
	}

	latestScore := records[0].Composite
	latestDay := records[0].Day
	report.LatestScore = &latestScore
	report.LatestDay = &latestDay

	report.ConsecutiveSanctionDays = streak(records, func(composite int) bool {
		return composite < p.SanctionScoreThreshold
	})
	report.ConsecutiveGraduationDays = streak(records, func(composite int) bool {
		return composite >= p.GraduationScoreThreshold
	})

	windowStart := evalDay.AddDays(-p.ReviewWindowDays)
	for _, rec := range records {
		if rec.Day.Before(windowStart) || rec.Day.After(evalDay) {
			continue
		}
		if rec.Composite < p.ReviewScoreThreshold {
			report.ReviewWindowCount++
		}
	}

	report.SanctionTriggered = report.ConsecutiveSanctionDays >= p.SanctionStreakDays
	report.ReviewTriggered = report.ReviewWindowCount >= p.ReviewDayCount
	report.GraduationTriggered = report.ConsecutiveGraduationDays >= p.GraduationStreakDays
	return report
}

// normalize collapses the snapshot to at most one record per day, most recent
// first, and collects the integrity findings encountered along the way.
// Future-dated records are dropped unless the policy counts them. Duplicate
// days resolve deterministically: the highest composite wins, then the
// highest sub-score tuple, so the outcome does not depend on input order.
func normalize(history []score.Record, evalDay score.Day, p Policy) ([]score.Record, []Warning) {
	var warnings []Warning
	byDay := make(map[string]score.Record, len(history))
	for _, rec := range history {
		if !p.CountFutureDays && rec.Day.After(evalDay) {
			continue
		}
		key := rec.Day.String()
		current, ok := byDay[key]
		if !ok {
			byDay[key] = rec
			continue
		}
		loser := current
		if supersedes(rec, current) {
			byDay[key] = rec
		} else {
			loser = rec
		}
		warnings = append(warnings, Warning{
			Code:   WarnDuplicateDay,
			Day:    rec.Day,
			Detail: fmt.Sprintf("discarded duplicate with composite %d", loser.Composite),
		})
	}

	records := make([]score.Record, 0, len(byDay))
	for _, rec := range byDay {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Day.After(records[j].Day)
	})

	for _, rec := range records {
		if rec.Composite < score.MinSubScore || rec.Composite > score.MaxSubScore {
			warnings = append(warnings, Warning{
				Code:   WarnCompositeRange,
				Day:    rec.Day,
				Detail: fmt.Sprintf("stored composite %d outside [%d, %d]", rec.Composite, score.MinSubScore, score.MaxSubScore),
			})
		}
	}

	sort.Slice(warnings, func(i, j int) bool {
		if !warnings[i].Day.Equal(warnings[j].Day) {
			return warnings[i].Day.Before(warnings[j].Day)
		}
		if warnings[i].Code != warnings[j].Code {
			return warnings[i].Code < warnings[j].Code
		}
		return warnings[i].Detail < warnings[j].Detail
	})
	return records, warnings
}

// supersedes reports whether candidate wins the duplicate-day tie-break
// against current.
func supersedes(candidate, current score.Record) bool {
	if candidate.Composite != current.Composite {
		return candidate.Composite > current.Composite
	}
	c, o := candidate.SubScores, current.SubScores
	if c.InternalFortitude != o.InternalFortitude {
		return c.InternalFortitude > o.InternalFortitude
	}
	if c.ExternalAccountability != o.ExternalAccountability {
		return c.ExternalAccountability > o.ExternalAccountability
	}
	return c.HighStakesIntegrity > o.HighStakesIntegrity
}

// streak counts calendar-consecutive records satisfying match, walking back
// from the most recent record. The run stops the moment the predicate fails
// or a calendar day is missing; records is assumed sorted by day descending
// with no duplicates.
func streak(records []score.Record, match func(composite int) bool) int {
	count := 0
	for i, rec := range records {
		if !match(rec.Composite) {
			break
		}
		if i > 0 && records[i-1].Day.Sub(rec.Day) != 1 {
			break
		}
		count++
	}
	return count
}
