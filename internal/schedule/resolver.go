package schedule

import "time"

// ComputeWindows resolves a doctor's bookable windows for one calendar date.
//
// Recurring and one-time rules whose date range covers the date contribute
// candidate windows; absence rules covering the date subtract theirs. The
// result is sorted, merged and disjoint, and empty (not an error) when
// nothing is bookable. The computation is deterministic and independent of
// the order rules were declared in.
func ComputeWindows(rules []Rule, date time.Time) []TimeWindow {
	var candidate, blocked []TimeWindow
	for _, r := range rules {
		if !r.AppliesTo(date) {
			continue
		}
		if r.Kind == KindAbsence {
			blocked = append(blocked, r.BlockedWindows()...)
			continue
		}
		candidate = append(candidate, r.Windows...)
	}
	return Subtract(candidate, blocked)
}
