package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOfferableDurationsOpenMorning(t *testing.T) {
	windows := []TimeWindow{{Start: 480, End: 720}} // 08:00-12:00
	cutoff := TimeOfDay(14 * 60)

	got := OfferableDurations(ts(9, 0), DefaultDurations, cutoff, windows, nil)
	assert.Equal(t, []int{30, 60, 90, 120}, got)
}

func TestOfferableDurationsCutoff(t *testing.T) {
	windows := []TimeWindow{{Start: 480, End: 900}} // 08:00-15:00
	cutoff := TimeOfDay(14 * 60)

	// 13:30 + 30 hits the cutoff exactly; anything longer crosses it.
	got := OfferableDurations(ts(13, 30), DefaultDurations, cutoff, windows, nil)
	assert.Equal(t, []int{30}, got)

	assert.Empty(t, OfferableDurations(ts(14, 0), DefaultDurations, cutoff, windows, nil))
}

func TestOfferableDurationsWindowContainment(t *testing.T) {
	windows := []TimeWindow{
		{Start: 480, End: 600}, // 08:00-10:00
		{Start: 630, End: 720}, // 10:30-12:00
	}
	cutoff := TimeOfDay(14 * 60)

	// 09:00 fits 30 and 60 inside the first window; 90 and 120 would need
	// to span the gap between windows, and spanning is not allowed.
	got := OfferableDurations(ts(9, 0), DefaultDurations, cutoff, windows, nil)
	assert.Equal(t, []int{30, 60}, got)
}

func TestOfferableDurationsIndependentChecks(t *testing.T) {
	// A busy interval in the middle can make a short and a long duration
	// both infeasible while nothing in between is; each duration is judged
	// on its own.
	windows := []TimeWindow{{Start: 480, End: 720}}
	cutoff := TimeOfDay(14 * 60)
	busy := []Interval{{Start: ts(9, 30), End: ts(10, 0)}}

	got := OfferableDurations(ts(9, 0), DefaultDurations, cutoff, windows, busy)
	assert.Equal(t, []int{30}, got, "only the duration ending before the busy interval survives")

	busy = []Interval{{Start: ts(10, 0), End: ts(10, 30)}}
	got = OfferableDurations(ts(9, 0), DefaultDurations, cutoff, windows, busy)
	assert.Equal(t, []int{30, 60}, got)
}

func TestOfferableDurationsBackToBack(t *testing.T) {
	windows := []TimeWindow{{Start: 480, End: 720}}
	cutoff := TimeOfDay(14 * 60)
	busy := []Interval{{Start: ts(10, 0), End: ts(11, 0)}}

	// Ending exactly when the next booking starts is allowed.
	got := OfferableDurations(ts(9, 0), []int{60}, cutoff, windows, busy)
	assert.Equal(t, []int{60}, got)
}

func TestOfferableDurationsOutsideWindows(t *testing.T) {
	windows := []TimeWindow{{Start: 480, End: 720}}
	cutoff := TimeOfDay(14 * 60)

	assert.Empty(t, OfferableDurations(ts(7, 0), DefaultDurations, cutoff, windows, nil))
	assert.Empty(t, OfferableDurations(ts(9, 0), DefaultDurations, cutoff, nil, nil))
}

func TestDurationAllowed(t *testing.T) {
	assert.True(t, DurationAllowed(60, DefaultDurations))
	assert.False(t, DurationAllowed(45, DefaultDurations))
	assert.False(t, DurationAllowed(60, nil))
}
