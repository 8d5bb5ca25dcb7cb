package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook/doctor-booking/internal/appointment"
	"github.com/medbook/doctor-booking/internal/config"
	"github.com/medbook/doctor-booking/internal/notify"
	redisclient "github.com/medbook/doctor-booking/internal/redis"
	"github.com/medbook/doctor-booking/internal/schedule"
)

type localLocker struct{}

func (localLocker) WithDoctorLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type storeFixture struct {
	store    *Store
	ledger   *appointment.Ledger
	apptRepo *appointment.MemoryRepository
	notifier *notify.Recorder
	doctor   appointment.Doctor
	patient  appointment.Patient
}

func newStoreFixture(t *testing.T) *storeFixture {
	t.Helper()

	cfg := config.Config{
		AllowedDurations: []int{30, 60, 90, 120},
		BookingCutoff:    schedule.TimeOfDay(14 * 60),
		PendingTTL:       15 * time.Minute,
	}

	apptRepo := appointment.NewMemoryRepository()
	notifier := notify.NewRecorder()
	ledger := appointment.NewLedger(apptRepo, localLocker{}, cfg, notifier, zerolog.Nop())

	doctor := appointment.Doctor{ID: uuid.New(), Name: "Dr. Okafor"}
	patient := appointment.Patient{ID: uuid.New(), Name: "Grace Hopper"}
	apptRepo.PutDoctor(doctor)
	apptRepo.PutPatient(patient)

	return &storeFixture{
		store:    NewStore(NewMemoryRepository(), ledger, notifier, cfg, zerolog.Nop()),
		ledger:   ledger,
		apptRepo: apptRepo,
		notifier: notifier,
		doctor:   doctor,
		patient:  patient,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (f *storeFixture) addWeekdayHours(t *testing.T) *schedule.Rule {
	t.Helper()
	rule, cancelled, err := f.store.AddRule(context.Background(), schedule.Rule{
		DoctorID:   f.doctor.ID,
		Kind:       schedule.KindRecurring,
		RangeStart: day(2025, time.January, 1),
		RangeEnd:   day(2025, time.December, 31),
		Weekdays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		},
		Windows: []schedule.TimeWindow{{Start: 480, End: 720}},
	})
	require.NoError(t, err)
	require.Empty(t, cancelled, "recurring rules must not cascade")
	return rule
}

func TestAddRuleRejectsInvalid(t *testing.T) {
	f := newStoreFixture(t)

	_, _, err := f.store.AddRule(context.Background(), schedule.Rule{
		DoctorID:   f.doctor.ID,
		Kind:       schedule.KindRecurring,
		RangeStart: day(2025, time.January, 1),
		RangeEnd:   day(2025, time.December, 31),
		// no weekdays
		Windows: []schedule.TimeWindow{{Start: 480, End: 720}},
	})
	assert.ErrorIs(t, err, schedule.ErrValidation)

	rules, err := f.store.ListRules(context.Background(), f.doctor.ID)
	require.NoError(t, err)
	assert.Empty(t, rules, "invalid rule must not be stored")
}

func TestWindowsForDate(t *testing.T) {
	f := newStoreFixture(t)
	f.addWeekdayHours(t)

	tuesday := day(2025, time.June, 10)
	windows, err := f.store.WindowsForDate(context.Background(), f.doctor.ID, tuesday)
	require.NoError(t, err)
	assert.Equal(t, []schedule.TimeWindow{{Start: 480, End: 720}}, windows)

	sunday := day(2025, time.June, 8)
	windows, err = f.store.WindowsForDate(context.Background(), f.doctor.ID, sunday)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestRemoveRule(t *testing.T) {
	f := newStoreFixture(t)
	rule := f.addWeekdayHours(t)

	require.NoError(t, f.store.RemoveRule(context.Background(), f.doctor.ID, rule.ID))

	windows, err := f.store.WindowsForDate(context.Background(), f.doctor.ID, day(2025, time.June, 10))
	require.NoError(t, err)
	assert.Empty(t, windows)

	err = f.store.RemoveRule(context.Background(), f.doctor.ID, rule.ID)
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestRemoveRuleWrongDoctor(t *testing.T) {
	f := newStoreFixture(t)
	rule := f.addWeekdayHours(t)

	err := f.store.RemoveRule(context.Background(), uuid.New(), rule.ID)
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestAbsenceCascadeCancelsIntersecting(t *testing.T) {
	f := newStoreFixture(t)
	f.addWeekdayHours(t)

	tuesday := day(2025, time.June, 10)
	inside, err := f.ledger.Create(context.Background(), appointment.CreateRequest{
		DoctorID:  f.doctor.ID,
		PatientID: f.patient.ID,
		Start:     tuesday.Add(9 * time.Hour), // 09:00-09:30
		Duration:  30,
	})
	require.NoError(t, err)

	outside, err := f.ledger.Create(context.Background(), appointment.CreateRequest{
		DoctorID:  f.doctor.ID,
		PatientID: f.patient.ID,
		Start:     tuesday.Add(10 * time.Hour), // 10:00-10:30, after the absence
		Duration:  30,
	})
	require.NoError(t, err)

	_, cancelledIDs, err := f.store.AddRule(context.Background(), schedule.Rule{
		DoctorID:   f.doctor.ID,
		Kind:       schedule.KindAbsence,
		RangeStart: tuesday,
		RangeEnd:   tuesday,
		Windows:    []schedule.TimeWindow{{Start: 480, End: 600}}, // 08:00-10:00
	})
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{inside.ID}, cancelledIDs)

	got, err := f.ledger.Get(context.Background(), inside.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCancelled, got.Status)

	kept, err := f.ledger.Get(context.Background(), outside.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusPending, kept.Status)

	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, f.patient.ID, sent[0].PatientID)
	assert.Equal(t, inside.ID, sent[0].AppointmentID)
	assert.Equal(t, appointment.ReasonDoctorAbsence, sent[0].Reason)
}

func TestFullDayAbsenceCascadesWholeRange(t *testing.T) {
	f := newStoreFixture(t)
	f.addWeekdayHours(t)

	monday := day(2025, time.June, 9)
	wednesday := day(2025, time.June, 11)

	var booked []uuid.UUID
	for _, d := range []time.Time{monday, monday.AddDate(0, 0, 1), wednesday} {
		appt, err := f.ledger.Create(context.Background(), appointment.CreateRequest{
			DoctorID:  f.doctor.ID,
			PatientID: f.patient.ID,
			Start:     d.Add(9 * time.Hour),
			Duration:  60,
		})
		require.NoError(t, err)
		booked = append(booked, appt.ID)
	}

	_, cancelledIDs, err := f.store.AddRule(context.Background(), schedule.Rule{
		DoctorID:   f.doctor.ID,
		Kind:       schedule.KindAbsence,
		RangeStart: monday,
		RangeEnd:   wednesday,
		// no windows: whole days blocked
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, booked, cancelledIDs)
	assert.Len(t, f.notifier.Sent(), 3)

	windows, err := f.store.WindowsForDate(context.Background(), f.doctor.ID, monday.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, windows, "absence blocks the whole day")
}

// flakyLocker succeeds for the first failAfter acquisitions, then refuses.
type flakyLocker struct {
	calls     int
	failAfter int
}

func (l *flakyLocker) WithDoctorLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	l.calls++
	if l.calls > l.failAfter {
		return redisclient.ErrLockNotAcquired
	}
	return fn(ctx)
}

func TestAbsenceCascadeReportsPartialProgress(t *testing.T) {
	cfg := config.Config{
		AllowedDurations: []int{30, 60, 90, 120},
		BookingCutoff:    schedule.TimeOfDay(14 * 60),
		PendingTTL:       15 * time.Minute,
	}
	apptRepo := appointment.NewMemoryRepository()
	notifier := notify.NewRecorder()
	// Two bookings consume two acquisitions; the cascade gets one more, so
	// its second day fails.
	locker := &flakyLocker{failAfter: 3}
	ledger := appointment.NewLedger(apptRepo, locker, cfg, notifier, zerolog.Nop())
	store := NewStore(NewMemoryRepository(), ledger, notifier, cfg, zerolog.Nop())

	doctor := appointment.Doctor{ID: uuid.New(), Name: "Dr. Nkemelu"}
	patient := appointment.Patient{ID: uuid.New(), Name: "Mae Jemison"}
	apptRepo.PutDoctor(doctor)
	apptRepo.PutPatient(patient)

	monday := day(2025, time.June, 9)
	tuesday := monday.AddDate(0, 0, 1)

	first, err := ledger.Create(context.Background(), appointment.CreateRequest{
		DoctorID:  doctor.ID,
		PatientID: patient.ID,
		Start:     monday.Add(9 * time.Hour),
		Duration:  30,
	})
	require.NoError(t, err)
	second, err := ledger.Create(context.Background(), appointment.CreateRequest{
		DoctorID:  doctor.ID,
		PatientID: patient.ID,
		Start:     tuesday.Add(9 * time.Hour),
		Duration:  30,
	})
	require.NoError(t, err)

	stored, cancelled, err := store.AddRule(context.Background(), schedule.Rule{
		DoctorID:   doctor.ID,
		Kind:       schedule.KindAbsence,
		RangeStart: monday,
		RangeEnd:   tuesday,
	})
	assert.ErrorIs(t, err, appointment.ErrCalendarBusy)

	// The rule was stored before the cascade broke, and the day that did
	// cascade is reported.
	require.NotNil(t, stored)
	assert.Equal(t, []uuid.UUID{first.ID}, cancelled)

	got, err := ledger.Get(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCancelled, got.Status)

	kept, err := ledger.Get(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusPending, kept.Status)
}

func TestOfferableAt(t *testing.T) {
	f := newStoreFixture(t)
	f.addWeekdayHours(t)

	tuesday := day(2025, time.June, 10)

	durations, err := f.store.OfferableAt(context.Background(), f.doctor.ID, tuesday.Add(9*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []int{30, 60, 90, 120}, durations)

	// An existing booking at 10:00 trims the longer options.
	_, err = f.ledger.Create(context.Background(), appointment.CreateRequest{
		DoctorID:  f.doctor.ID,
		PatientID: f.patient.ID,
		Start:     tuesday.Add(10 * time.Hour),
		Duration:  30,
	})
	require.NoError(t, err)

	durations, err = f.store.OfferableAt(context.Background(), f.doctor.ID, tuesday.Add(9*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []int{30, 60}, durations)

	// Outside any window nothing is offerable; that is not an error.
	durations, err = f.store.OfferableAt(context.Background(), f.doctor.ID, tuesday.Add(7*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, durations)
}
