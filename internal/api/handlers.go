package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medbook/doctor-booking/internal/appointment"
	"github.com/medbook/doctor-booking/internal/authz"
	redisclient "github.com/medbook/doctor-booking/internal/redis"
	"github.com/medbook/doctor-booking/internal/schedule"
)

func createAppointmentHandler(ledger *appointment.Ledger, auth authz.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		start, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be RFC 3339")
			return
		}

		if err := auth.Authorize(r.Context(), GetActorID(r.Context()), doctorID, authz.ActionBookAppointment); err != nil {
			writeError(w, http.StatusForbidden, "permission_denied", err.Error())
			return
		}

		appt, err := ledger.Create(r.Context(), appointment.CreateRequest{
			DoctorID:     doctorID,
			PatientID:    patientID,
			Start:        start,
			Duration:     req.DurationMinutes,
			Consultation: appointment.ConsultationType(req.ConsultationType),
			Notes:        req.Notes,
		})
		if err != nil {
			handleLedgerError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, appointmentResponse(*appt))
	}
}

func getAppointmentHandler(ledger *appointment.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		appt, err := ledger.Get(r.Context(), id)
		if err != nil {
			handleLedgerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentResponse(*appt))
	}
}

func transitionHandler(fn func(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		appt, err := fn(r.Context(), id)
		if err != nil {
			handleLedgerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentResponse(*appt))
	}
}

func cancelAppointmentHandler(ledger *appointment.Ledger, auth authz.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		existing, err := ledger.Get(r.Context(), id)
		if err != nil {
			handleLedgerError(w, err)
			return
		}

		if err := auth.Authorize(r.Context(), GetActorID(r.Context()), existing.DoctorID, authz.ActionCancelAppointment); err != nil {
			writeError(w, http.StatusForbidden, "permission_denied", err.Error())
			return
		}

		appt, err := ledger.Cancel(r.Context(), id, appointment.ReasonPatientRequest)
		if err != nil {
			handleLedgerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentResponse(*appt))
	}
}

func listByPatientHandler(ledger *appointment.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := parseIDParam(w, r, "patientID")
		if !ok {
			return
		}

		appts, err := ledger.ListByPatient(r.Context(), patientID, queryInt(r, "limit", 20), queryInt(r, "offset", 0))
		if err != nil {
			handleLedgerError(w, err)
			return
		}

		out := make([]AppointmentResponse, 0, len(appts))
		for _, a := range appts {
			out = append(out, appointmentResponse(a))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, appointment.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrTimeSlotTaken):
		writeError(w, http.StatusConflict, "time_slot_taken", err.Error())
	case errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, appointment.ErrStaleRead):
		writeError(w, http.StatusConflict, "stale_read", "appointment changed concurrently, recompute and retry")
	case errors.Is(err, appointment.ErrCalendarBusy),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "calendar_busy", "doctor calendar is being modified, please retry shortly")
	case errors.Is(err, authz.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "permission_denied", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
