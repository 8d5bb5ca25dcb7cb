package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook/doctor-booking/internal/appointment"
	"github.com/medbook/doctor-booking/internal/authz"
	"github.com/medbook/doctor-booking/internal/availability"
	"github.com/medbook/doctor-booking/internal/config"
	"github.com/medbook/doctor-booking/internal/notify"
	"github.com/medbook/doctor-booking/internal/schedule"
)

type noopLocker struct{}

func (noopLocker) WithDoctorLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type apiFixture struct {
	server  *httptest.Server
	doctor  appointment.Doctor
	patient appointment.Patient
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	cfg := config.Config{
		AllowedDurations: []int{30, 60, 90, 120},
		BookingCutoff:    schedule.TimeOfDay(14 * 60),
		PendingTTL:       15 * time.Minute,
	}

	apptRepo := appointment.NewMemoryRepository()
	notifier := notify.NewRecorder()
	ledger := appointment.NewLedger(apptRepo, noopLocker{}, cfg, notifier, zerolog.Nop())
	rules := availability.NewStore(availability.NewMemoryRepository(), ledger, notifier, cfg, zerolog.Nop())

	doctor := appointment.Doctor{ID: uuid.New(), Name: "Dr. Patel"}
	patient := appointment.Patient{ID: uuid.New(), Name: "Linus Yale"}
	apptRepo.PutDoctor(doctor)
	apptRepo.PutPatient(patient)

	router := NewRouter(RouterConfig{
		Ledger:        ledger,
		Rules:         rules,
		Notifications: notifier,
		Authorizer:    authz.AllowAll{},
		Logger:        zerolog.Nop(),
		Env:           "test",
		Version:       "test",
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &apiFixture{server: srv, doctor: doctor, patient: patient}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func (f *apiFixture) addWeekdayRule(t *testing.T) RuleResponse {
	t.Helper()
	resp, body := f.do(t, http.MethodPost, "/doctors/"+f.doctor.ID.String()+"/rules", CreateRuleRequest{
		Kind:       "recurring",
		RangeStart: "2025-01-01",
		RangeEnd:   "2025-12-31",
		Weekdays:   []int{1, 2, 3, 4, 5},
		Windows:    []TimeWindowDTO{{Start: "08:00", End: "12:00"}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var rule RuleResponse
	require.NoError(t, json.Unmarshal(body, &rule))
	return rule
}

func TestAvailabilityEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.addWeekdayRule(t)

	resp, body := f.do(t, http.MethodGet, "/doctors/"+f.doctor.ID.String()+"/availability?date=2025-06-10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got AvailabilityResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, []TimeWindowDTO{{Start: "08:00", End: "12:00"}}, got.Windows)

	resp, body = f.do(t, http.MethodGet, "/doctors/"+f.doctor.ID.String()+"/availability?date=2025-06-08", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Empty(t, got.Windows, "sunday is outside the recurring rule")
}

func TestAvailabilityBadDate(t *testing.T) {
	f := newAPIFixture(t)
	resp, _ := f.do(t, http.MethodGet, "/doctors/"+f.doctor.ID.String()+"/availability?date=June-10", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSlotsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.addWeekdayRule(t)

	start := time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC).Format(time.RFC3339)
	resp, body := f.do(t, http.MethodGet, "/doctors/"+f.doctor.ID.String()+"/slots?start="+start, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got SlotsResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, []int{30, 60, 90, 120}, got.Durations)
}

func TestBookingFlow(t *testing.T) {
	f := newAPIFixture(t)
	f.addWeekdayRule(t)

	create := CreateAppointmentRequest{
		DoctorID:         f.doctor.ID.String(),
		PatientID:        f.patient.ID.String(),
		Start:            "2025-06-10T09:00:00Z",
		DurationMinutes:  60,
		ConsultationType: "first_visit",
	}

	resp, body := f.do(t, http.MethodPost, "/appointments", create)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var appt AppointmentResponse
	require.NoError(t, json.Unmarshal(body, &appt))
	assert.Equal(t, "pending", appt.Status)

	// The same interval conflicts now.
	resp, body = f.do(t, http.MethodPost, "/appointments", create)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "time_slot_taken", errResp.Error)

	// Confirm, then cancel.
	resp, _ = f.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/confirm", appt.ID), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = f.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/cancel", appt.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &appt))
	assert.Equal(t, "cancelled", appt.Status)
}

func TestBookingValidationErrors(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
		DoctorID:        f.doctor.ID.String(),
		PatientID:       f.patient.ID.String(),
		Start:           "2025-06-10T09:00:00Z",
		DurationMinutes: 45, // off the menu
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "invalid_input", errResp.Error)

	resp, _ = f.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
		DoctorID:        "not-a-uuid",
		PatientID:       f.patient.ID.String(),
		Start:           "2025-06-10T09:00:00Z",
		DurationMinutes: 30,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
		DoctorID:        f.doctor.ID.String(),
		PatientID:       uuid.NewString(),
		Start:           "2025-06-10T09:00:00Z",
		DurationMinutes: 30,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAbsenceRuleReturnsCascade(t *testing.T) {
	f := newAPIFixture(t)
	f.addWeekdayRule(t)

	resp, body := f.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
		DoctorID:        f.doctor.ID.String(),
		PatientID:       f.patient.ID.String(),
		Start:           "2025-06-10T09:00:00Z",
		DurationMinutes: 30,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var appt AppointmentResponse
	require.NoError(t, json.Unmarshal(body, &appt))

	resp, body = f.do(t, http.MethodPost, "/doctors/"+f.doctor.ID.String()+"/rules", CreateRuleRequest{
		Kind:       "absence",
		RangeStart: "2025-06-10",
		RangeEnd:   "2025-06-10",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var rule RuleResponse
	require.NoError(t, json.Unmarshal(body, &rule))
	assert.Equal(t, []uuid.UUID{appt.ID}, rule.CancelledAppointments)

	// The patient can read the cascade notification and acknowledge it.
	resp, body = f.do(t, http.MethodGet, "/patients/"+f.patient.ID.String()+"/notifications", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var notifications []NotificationResponse
	require.NoError(t, json.Unmarshal(body, &notifications))
	require.Len(t, notifications, 1)
	assert.Equal(t, "doctor_absence", notifications[0].Reason)

	resp, _ = f.do(t, http.MethodPost, "/notifications/"+notifications[0].ID.String()+"/read", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestDeleteRule(t *testing.T) {
	f := newAPIFixture(t)
	rule := f.addWeekdayRule(t)

	resp, _ := f.do(t, http.MethodDelete, "/doctors/"+f.doctor.ID.String()+"/rules/"+rule.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = f.do(t, http.MethodDelete, "/doctors/"+f.doctor.ID.String()+"/rules/"+rule.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRuleAuthorization(t *testing.T) {
	f := newOwnerPolicyFixture(t)

	body := mustJSON(t, CreateRuleRequest{
		Kind:       "one_time",
		RangeStart: "2025-06-14",
		RangeEnd:   "2025-06-14",
		Windows:    []TimeWindowDTO{{Start: "10:00", End: "13:00"}},
	})
	url := f.server.URL + "/doctors/" + f.doctor.ID.String() + "/rules"

	// A stranger cannot manage another doctor's calendar.
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-Actor-ID", uuid.NewString())
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The doctor acting on their own calendar is allowed.
	req, err = http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-Actor-ID", f.doctor.ID.String())
	resp, err = f.server.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func newOwnerPolicyFixture(t *testing.T) *apiFixture {
	t.Helper()

	cfg := config.Config{
		AllowedDurations: []int{30, 60, 90, 120},
		BookingCutoff:    schedule.TimeOfDay(14 * 60),
	}
	apptRepo := appointment.NewMemoryRepository()
	notifier := notify.NewRecorder()
	ledger := appointment.NewLedger(apptRepo, noopLocker{}, cfg, notifier, zerolog.Nop())
	rules := availability.NewStore(availability.NewMemoryRepository(), ledger, notifier, cfg, zerolog.Nop())

	doctor := appointment.Doctor{ID: uuid.New(), Name: "Dr. Facchin"}
	patient := appointment.Patient{ID: uuid.New(), Name: "Mary Shelley"}
	apptRepo.PutDoctor(doctor)
	apptRepo.PutPatient(patient)

	router := NewRouter(RouterConfig{
		Ledger:        ledger,
		Rules:         rules,
		Notifications: notifier,
		Authorizer:    authz.OwnerPolicy{},
		Logger:        zerolog.Nop(),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &apiFixture{server: srv, doctor: doctor, patient: patient}
}

func TestBookingRequiresActor(t *testing.T) {
	f := newOwnerPolicyFixture(t)

	body := mustJSON(t, CreateAppointmentRequest{
		DoctorID:        f.doctor.ID.String(),
		PatientID:       f.patient.ID.String(),
		Start:           "2025-06-10T09:00:00Z",
		DurationMinutes: 30,
	})
	url := f.server.URL + "/appointments"

	// Anonymous booking is denied under the owner policy.
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Any identified actor may book.
	req, err = http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-Actor-ID", f.patient.ID.String())
	resp, err = f.server.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestHealthLive(t *testing.T) {
	f := newAPIFixture(t)
	resp, body := f.do(t, http.MethodGet, "/health/live", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var live LivenessResponse
	require.NoError(t, json.Unmarshal(body, &live))
	assert.Equal(t, "ok", live.Status)
}
