package schedule

import (
	"sort"
	"time"
)

// DefaultDurations is the standard duration menu, in minutes.
var DefaultDurations = []int{30, 60, 90, 120}

// OfferableDurations returns the subset of the duration menu a patient may
// pick at the given start time, ascending. Each duration is checked
// independently: a longer duration failing says nothing about a shorter one
// because bookable windows are not necessarily contiguous.
//
// A duration survives when the booking would end by the cutoff, fit inside a
// single bookable window, and not overlap any busy interval. An empty result
// is a valid outcome meaning nothing is selectable at this start time.
func OfferableDurations(start time.Time, durations []int, cutoff TimeOfDay, windows []TimeWindow, busy []Interval) []int {
	startMin := MinuteOfDay(start)
	offerable := make([]int, 0, len(durations))
	for _, d := range durations {
		if d <= 0 {
			continue
		}
		endMin := startMin + TimeOfDay(d)
		if endMin > cutoff {
			continue
		}
		if !containedInAny(windows, startMin, endMin) {
			continue
		}
		if HasConflict(start, start.Add(time.Duration(d)*time.Minute), busy) {
			continue
		}
		offerable = append(offerable, d)
	}
	sort.Ints(offerable)
	return offerable
}

// DurationAllowed reports whether d is on the given menu.
func DurationAllowed(d int, menu []int) bool {
	for _, m := range menu {
		if m == d {
			return true
		}
	}
	return false
}

func containedInAny(windows []TimeWindow, start, end TimeOfDay) bool {
	for _, w := range windows {
		if w.Contains(start, end) {
			return true
		}
	}
	return false
}
