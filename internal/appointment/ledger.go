package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/doctor-booking/internal/config"
	"github.com/medbook/doctor-booking/internal/notify"
	redisclient "github.com/medbook/doctor-booking/internal/redis"
	"github.com/medbook/doctor-booking/internal/schedule"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
)

var (
	ErrTimeSlotTaken     = errors.New("time slot conflicts with an existing appointment")
	ErrCalendarBusy      = errors.New("doctor calendar is being modified, please retry")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// CreateRequest carries everything needed to book one appointment.
type CreateRequest struct {
	DoctorID     uuid.UUID
	PatientID    uuid.UUID
	Start        time.Time
	Duration     int // minutes, must be on the configured menu
	Consultation ConsultationType
	Notes        string
}

// Ledger is the authoritative record of one clinic's appointments. Every
// mutation for a given doctor runs under that doctor's lock so the
// read-check-write span around conflict detection is atomic; doctors are
// independent of each other.
type Ledger struct {
	repo     Repository
	locker   redisclient.Locker
	cfg      config.Config
	notifier notify.Notifier
	log      zerolog.Logger
}

func NewLedger(repo Repository, locker redisclient.Locker, cfg config.Config, notifier notify.Notifier, log zerolog.Logger) *Ledger {
	return &Ledger{
		repo:     repo,
		locker:   locker,
		cfg:      cfg,
		notifier: notifier,
		log:      log.With().Str("component", "ledger").Logger(),
	}
}

// Create books a pending appointment, re-validating against the current
// ledger inside the doctor's critical section. On conflict it returns
// ErrTimeSlotTaken without mutating anything.
func (l *Ledger) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	if !schedule.DurationAllowed(req.Duration, l.cfg.AllowedDurations) {
		return nil, fmt.Errorf("%w: duration %d not on the menu %v",
			schedule.ErrValidation, req.Duration, l.cfg.AllowedDurations)
	}
	if req.Start.IsZero() {
		return nil, fmt.Errorf("%w: start time is required", schedule.ErrValidation)
	}

	if _, err := l.repo.GetPatientByID(ctx, req.PatientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if _, err := l.repo.GetDoctorByID(ctx, req.DoctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	end := req.Start.Add(time.Duration(req.Duration) * time.Minute)

	var created *Appointment
	err := l.locker.WithDoctorLock(ctx, req.DoctorID, func(lockCtx context.Context) error {
		existing, err := l.repo.ListActiveInRange(lockCtx, req.DoctorID, req.Start, end)
		if err != nil {
			return fmt.Errorf("read active appointments: %w", err)
		}
		if schedule.HasConflict(req.Start, end, busyIntervals(existing)) {
			return ErrTimeSlotTaken
		}

		appt, err := l.repo.CreateAppointment(lockCtx, Appointment{
			DoctorID:        req.DoctorID,
			PatientID:       req.PatientID,
			Start:           req.Start,
			End:             end,
			DurationMinutes: req.Duration,
			Consultation:    req.Consultation,
			Notes:           req.Notes,
		})
		if err != nil {
			return fmt.Errorf("create pending appointment: %w", err)
		}
		created = appt

		l.logEvent(lockCtx, appt.ID, EventAppointmentCreated, map[string]any{
			"doctor_id":  req.DoctorID.String(),
			"patient_id": req.PatientID.String(),
			"start":      req.Start,
			"duration":   req.Duration,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrCalendarBusy
		}
		return nil, err
	}

	l.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("doctor_id", req.DoctorID.String()).
		Time("start", req.Start).
		Int("duration", req.Duration).
		Msg("appointment created")

	return created, nil
}

// Confirm moves a pending appointment to confirmed.
func (l *Ledger) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return l.transition(ctx, id, StatusPending, StatusConfirmed, EventAppointmentConfirmed)
}

// Complete moves a confirmed appointment to completed.
func (l *Ledger) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return l.transition(ctx, id, StatusConfirmed, StatusCompleted, EventAppointmentCompleted)
}

func (l *Ledger) transition(ctx context.Context, id uuid.UUID, from, to Status, event string) (*Appointment, error) {
	appt, err := l.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != from {
		return nil, ErrInvalidTransition
	}

	updated, err := l.repo.UpdateStatus(ctx, id, from, to)
	if err != nil {
		return nil, err
	}

	l.logEvent(ctx, id, event, map[string]any{})
	return updated, nil
}

// Cancel marks an appointment cancelled. Cancelling an already-cancelled
// appointment is a no-op success with no second notification; a completed
// appointment cannot be cancelled.
func (l *Ledger) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	appt, err := l.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == StatusCancelled {
		return appt, nil
	}
	if appt.Status == StatusCompleted {
		return nil, ErrInvalidTransition
	}

	updated, err := l.repo.UpdateStatus(ctx, id, appt.Status, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrStaleRead) {
			// Someone else moved the row; if they cancelled it the
			// outcome we wanted already holds.
			latest, getErr := l.repo.GetAppointmentByID(ctx, id)
			if getErr == nil && latest.Status == StatusCancelled {
				return latest, nil
			}
		}
		return nil, err
	}

	l.logEvent(ctx, id, EventAppointmentCancelled, map[string]any{"reason": reason})
	l.notifyCancellation(ctx, *updated, reason)

	return updated, nil
}

// BulkCancelInRange cancels every active appointment of the doctor that
// overlaps [start, end). Each cancel is an independent atomic write: one
// item failing (gone, or changed under us) is logged and skipped, never
// fatal to the batch. The returned slice holds what was actually cancelled;
// notification of those patients is the caller's responsibility.
func (l *Ledger) BulkCancelInRange(ctx context.Context, doctorID uuid.UUID, start, end time.Time, reason string) ([]Appointment, error) {
	var cancelled []Appointment

	err := l.locker.WithDoctorLock(ctx, doctorID, func(lockCtx context.Context) error {
		active, err := l.repo.ListActiveInRange(lockCtx, doctorID, start, end)
		if err != nil {
			return fmt.Errorf("read active appointments: %w", err)
		}

		for _, a := range active {
			updated, err := l.repo.UpdateStatus(lockCtx, a.ID, a.Status, StatusCancelled)
			if err != nil {
				l.log.Warn().
					Str("appointment_id", a.ID.String()).
					Err(err).
					Msg("skipping appointment during bulk cancel")
				continue
			}
			l.logEvent(lockCtx, a.ID, EventAppointmentCancelled, map[string]any{"reason": reason})
			cancelled = append(cancelled, *updated)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrCalendarBusy
		}
		return nil, err
	}

	l.log.Info().
		Str("doctor_id", doctorID.String()).
		Time("from", start).
		Time("to", end).
		Int("cancelled", len(cancelled)).
		Msg("bulk cancel complete")

	return cancelled, nil
}

// ExpireStalePending cancels pending appointments that were never confirmed
// within the configured TTL. Called periodically by the expiry worker.
func (l *Ledger) ExpireStalePending(ctx context.Context) error {
	deadline := time.Now().Add(-l.cfg.PendingTTL)
	stale, err := l.repo.FindStalePending(ctx, deadline)
	if err != nil {
		return fmt.Errorf("find stale pending appointments: %w", err)
	}

	for _, a := range stale {
		if _, err := l.Cancel(ctx, a.ID, ReasonBookingExpired); err != nil {
			l.log.Warn().
				Str("appointment_id", a.ID.String()).
				Err(err).
				Msg("failed to expire pending appointment")
		}
	}
	return nil
}

// Get retrieves an appointment by id.
func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return l.repo.GetAppointmentByID(ctx, id)
}

// ListByPatient retrieves a patient's appointments, newest first.
func (l *Ledger) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return l.repo.ListByPatient(ctx, patientID, limit, offset)
}

// BusyIntervalsOn returns the doctor's occupied intervals for one calendar
// day, for composition with the duration calculator.
func (l *Ledger) BusyIntervalsOn(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]schedule.Interval, error) {
	day := schedule.DateOf(date)
	active, err := l.repo.ListActiveInRange(ctx, doctorID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	return busyIntervals(active), nil
}

func (l *Ledger) notifyCancellation(ctx context.Context, appt Appointment, reason string) {
	err := l.notifier.Notify(ctx, notify.Notification{
		PatientID:     appt.PatientID,
		DoctorID:      appt.DoctorID,
		AppointmentID: appt.ID,
		Reason:        reason,
	})
	if err != nil {
		l.log.Warn().
			Str("appointment_id", appt.ID.String()).
			Err(err).
			Msg("failed to notify cancellation")
	}
}

func (l *Ledger) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		l.log.Warn().Str("event", eventType).Err(err).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := l.repo.InsertEvent(ctx, ev); err != nil {
		l.log.Warn().
			Str("event", eventType).
			Str("appointment_id", appointmentID.String()).
			Err(err).
			Msg("failed to insert event log")
	}
}

func busyIntervals(appts []Appointment) []schedule.Interval {
	if len(appts) == 0 {
		return nil
	}
	busy := make([]schedule.Interval, 0, len(appts))
	for _, a := range appts {
		if !a.Active() {
			continue
		}
		busy = append(busy, schedule.Interval{Start: a.Start, End: a.End})
	}
	return busy
}
