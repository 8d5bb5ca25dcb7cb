package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/doctor-booking/internal/appointment"
	"github.com/medbook/doctor-booking/internal/config"
	"github.com/medbook/doctor-booking/internal/notify"
	"github.com/medbook/doctor-booking/internal/schedule"
)

// Store manages a doctor's availability rules and answers availability
// queries over snapshots of them. Adding an absence rule is the one rule
// mutation with a side effect: it cascades cancellation over every booked
// appointment the absence swallows.
type Store struct {
	repo     Repository
	ledger   *appointment.Ledger
	notifier notify.Notifier
	cfg      config.Config
	log      zerolog.Logger
}

func NewStore(repo Repository, ledger *appointment.Ledger, notifier notify.Notifier, cfg config.Config, log zerolog.Logger) *Store {
	return &Store{
		repo:     repo,
		ledger:   ledger,
		notifier: notifier,
		cfg:      cfg,
		log:      log.With().Str("component", "rule_store").Logger(),
	}
}

// AddRule validates and persists a rule. Recurring and one-time rules are
// pure storage; an absence rule additionally cancels every intersecting
// appointment and notifies the affected patients. The ids of cascaded
// cancellations are returned alongside the stored rule; when the cascade
// fails partway the rule is already stored and the ids cancelled so far are
// returned together with the error.
func (s *Store) AddRule(ctx context.Context, rule schedule.Rule) (*schedule.Rule, []uuid.UUID, error) {
	if err := rule.Validate(); err != nil {
		return nil, nil, err
	}
	rule.RangeStart = schedule.DateOf(rule.RangeStart)
	rule.RangeEnd = schedule.DateOf(rule.RangeEnd)

	stored, err := s.repo.CreateRule(ctx, rule)
	if err != nil {
		return nil, nil, fmt.Errorf("store rule: %w", err)
	}

	var cancelledIDs []uuid.UUID
	if stored.Kind == schedule.KindAbsence {
		cancelledIDs, err = s.cascadeAbsence(ctx, *stored)
		if err != nil {
			return stored, cancelledIDs, err
		}
	}

	s.log.Info().
		Str("rule_id", stored.ID.String()).
		Str("doctor_id", stored.DoctorID.String()).
		Str("kind", string(stored.Kind)).
		Int("cascade_cancelled", len(cancelledIDs)).
		Msg("rule added")

	return stored, cancelledIDs, nil
}

// cascadeAbsence walks every calendar date the absence spans, cancels the
// bookings inside its absolute time ranges and hands each cancellation to
// the notifier. Partial completion is acceptable: whatever was cancelled
// stays cancelled and is reported.
func (s *Store) cascadeAbsence(ctx context.Context, rule schedule.Rule) ([]uuid.UUID, error) {
	var ids []uuid.UUID

	for day := rule.RangeStart; !day.After(rule.RangeEnd); day = day.AddDate(0, 0, 1) {
		for _, w := range rule.BlockedWindows() {
			start := w.Start.At(day)
			end := w.End.At(day)

			cancelled, err := s.ledger.BulkCancelInRange(ctx, rule.DoctorID, start, end, appointment.ReasonDoctorAbsence)
			if err != nil {
				return ids, fmt.Errorf("cascade cancel %s [%s,%s): %w",
					day.Format("2006-01-02"), w.Start, w.End, err)
			}

			for _, a := range cancelled {
				ids = append(ids, a.ID)
				if err := s.notifier.Notify(ctx, notify.Notification{
					PatientID:     a.PatientID,
					DoctorID:      a.DoctorID,
					AppointmentID: a.ID,
					Reason:        appointment.ReasonDoctorAbsence,
				}); err != nil {
					s.log.Warn().
						Str("appointment_id", a.ID.String()).
						Err(err).
						Msg("failed to notify cascade cancellation")
				}
			}
		}
	}

	return ids, nil
}

// RemoveRule deletes a rule. Rules are immutable; an edit is remove + add.
func (s *Store) RemoveRule(ctx context.Context, doctorID, ruleID uuid.UUID) error {
	return s.repo.DeleteRule(ctx, doctorID, ruleID)
}

// ListRules returns a snapshot of the doctor's rules, oldest first.
func (s *Store) ListRules(ctx context.Context, doctorID uuid.UUID) ([]schedule.Rule, error) {
	return s.repo.ListByDoctor(ctx, doctorID)
}

// WindowsForDate resolves the doctor's bookable windows on one date.
func (s *Store) WindowsForDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]schedule.TimeWindow, error) {
	rules, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	return schedule.ComputeWindows(rules, date), nil
}

// OfferableAt answers which durations a patient may pick at the given start
// time, composing the resolver, the ledger's busy intervals and the
// configured cutoff and duration menu.
func (s *Store) OfferableAt(ctx context.Context, doctorID uuid.UUID, start time.Time) ([]int, error) {
	windows, err := s.WindowsForDate(ctx, doctorID, start)
	if err != nil {
		return nil, err
	}

	busy, err := s.ledger.BusyIntervalsOn(ctx, doctorID, start)
	if err != nil {
		return nil, fmt.Errorf("load busy intervals: %w", err)
	}

	return schedule.OfferableDurations(start, s.cfg.AllowedDurations, s.cfg.BookingCutoff, windows, busy), nil
}
