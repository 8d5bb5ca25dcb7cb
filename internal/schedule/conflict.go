package schedule

import "time"

// Interval is a half-open [Start, End) timestamp range occupied by an
// existing booking. Callers filter out cancelled bookings before handing
// intervals to this package.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps is the half-open overlap test: [s1,e1) and [s2,e2) conflict iff
// s1 < e2 && e1 > s2. Back-to-back intervals (e1 == s2) do not conflict.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// HasConflict reports whether the candidate range overlaps any busy
// interval. Pure; no side effects.
func HasConflict(start, end time.Time, busy []Interval) bool {
	for _, iv := range busy {
		if Overlaps(start, end, iv.Start, iv.End) {
			return true
		}
	}
	return false
}
