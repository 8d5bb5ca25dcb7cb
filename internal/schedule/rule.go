package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrValidation is the base error wrapped by every malformed-input error in
// this package, so boundaries can classify with a single errors.Is.
var ErrValidation = errors.New("invalid input")

type RuleKind string

const (
	// KindRecurring opens the rule's windows on selected weekdays within
	// the date range.
	KindRecurring RuleKind = "recurring"
	// KindOneTime opens the rule's windows on every date in the range.
	KindOneTime RuleKind = "one_time"
	// KindAbsence blocks the rule's windows; with no windows it blocks the
	// entire day(s).
	KindAbsence RuleKind = "absence"
)

// Rule is a doctor's availability declaration. Rules are immutable once
// stored; an edit is a remove followed by an add.
type Rule struct {
	ID         uuid.UUID
	DoctorID   uuid.UUID
	Kind       RuleKind
	RangeStart time.Time // inclusive calendar date, midnight UTC
	RangeEnd   time.Time // inclusive calendar date, midnight UTC
	Weekdays   []time.Weekday
	Windows    []TimeWindow
	CreatedAt  time.Time
}

func (r Rule) Validate() error {
	switch r.Kind {
	case KindRecurring, KindOneTime, KindAbsence:
	default:
		return fmt.Errorf("%w: unknown rule kind %q", ErrValidation, r.Kind)
	}
	if r.RangeEnd.Before(r.RangeStart) {
		return fmt.Errorf("%w: date range end before start", ErrValidation)
	}
	for _, wd := range r.Weekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return fmt.Errorf("%w: weekday %d out of range", ErrValidation, wd)
		}
	}
	if r.Kind == KindRecurring && len(r.Weekdays) == 0 {
		return fmt.Errorf("%w: recurring rule needs at least one weekday", ErrValidation)
	}
	if r.Kind != KindAbsence && len(r.Windows) == 0 {
		return fmt.Errorf("%w: %s rule needs at least one time window", ErrValidation, r.Kind)
	}
	for _, w := range r.Windows {
		if err := w.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// InRange reports whether the calendar date falls inside the rule's
// inclusive date range.
func (r Rule) InRange(date time.Time) bool {
	d := DateOf(date)
	return !d.Before(DateOf(r.RangeStart)) && !d.After(DateOf(r.RangeEnd))
}

// AppliesTo reports whether the rule contributes windows on the given date.
func (r Rule) AppliesTo(date time.Time) bool {
	if !r.InRange(date) {
		return false
	}
	if r.Kind != KindRecurring {
		return true
	}
	wd := date.Weekday()
	for _, d := range r.Weekdays {
		if d == wd {
			return true
		}
	}
	return false
}

// BlockedWindows returns the windows an absence rule blocks on a date it
// covers. An absence with no windows blocks the whole day.
func (r Rule) BlockedWindows() []TimeWindow {
	if len(r.Windows) == 0 {
		return []TimeWindow{FullDay}
	}
	return r.Windows
}
