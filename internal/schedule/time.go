package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the exclusive upper bound for a window end.
const MinutesPerDay = 1440

// TimeOfDay is a minute offset from midnight. Valid window starts are
// 0..1439; 1440 is allowed only as an exclusive end.
type TimeOfDay int

// ParseTimeOfDay parses an "HH:MM" string. This is the boundary adapter;
// everything past the API layer works on parsed minute offsets.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: time of day %q must be HH:MM", ErrValidation, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: bad hour in %q", ErrValidation, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: bad minute in %q", ErrValidation, s)
	}
	return TimeOfDay(h*60 + m), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// At anchors the time of day onto a calendar date, in the date's location.
func (t TimeOfDay) At(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, int(t)/60, int(t)%60, 0, 0, date.Location())
}

// MinuteOfDay returns the minute offset of a timestamp within its day.
func MinuteOfDay(ts time.Time) TimeOfDay {
	return TimeOfDay(ts.Hour()*60 + ts.Minute())
}

// DateOf truncates a timestamp to its calendar date (midnight, same location).
func DateOf(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, ts.Location())
}

// TimeWindow is a half-open [Start, End) minute-of-day interval.
type TimeWindow struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// FullDay covers an entire calendar day.
var FullDay = TimeWindow{Start: 0, End: MinutesPerDay}

func (w TimeWindow) Validate() error {
	if w.Start < 0 || w.Start >= MinutesPerDay {
		return fmt.Errorf("%w: window start %d out of range", ErrValidation, w.Start)
	}
	if w.End <= w.Start || w.End > MinutesPerDay {
		return fmt.Errorf("%w: window end must be after start", ErrValidation)
	}
	return nil
}

// Contains reports whether [start, end) lies entirely inside the window.
func (w TimeWindow) Contains(start, end TimeOfDay) bool {
	return start >= w.Start && end <= w.End
}

// Normalize sorts and merges windows into a disjoint ascending list.
// Touching windows ([8:00,9:00) + [9:00,10:00)) are merged. The input is
// not modified; the result is always non-nil for non-empty input.
func Normalize(windows []TimeWindow) []TimeWindow {
	if len(windows) == 0 {
		return nil
	}
	sorted := make([]TimeWindow, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	merged := sorted[:1]
	for _, w := range sorted[1:] {
		last := &merged[len(merged)-1]
		if w.Start <= last.End {
			if w.End > last.End {
				last.End = w.End
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

// Subtract removes every interval in blocked from every interval in base.
// Both inputs may be unnormalized; the result is normalized. Subtraction
// rather than precedence ordering is what makes absence always win over
// availability, independent of rule declaration order.
func Subtract(base, blocked []TimeWindow) []TimeWindow {
	result := Normalize(base)
	for _, b := range Normalize(blocked) {
		var next []TimeWindow
		for _, w := range result {
			if b.End <= w.Start || b.Start >= w.End {
				next = append(next, w)
				continue
			}
			if b.Start > w.Start {
				next = append(next, TimeWindow{Start: w.Start, End: b.Start})
			}
			if b.End < w.End {
				next = append(next, TimeWindow{Start: b.End, End: w.End})
			}
		}
		result = next
	}
	return result
}
