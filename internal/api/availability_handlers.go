package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/medbook/doctor-booking/internal/authz"
	"github.com/medbook/doctor-booking/internal/availability"
	"github.com/medbook/doctor-booking/internal/notify"
	"github.com/medbook/doctor-booking/internal/schedule"
)

func availabilityHandler(rules *availability.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "doctorID")
		if !ok {
			return
		}

		dateStr := r.URL.Query().Get("date")
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		windows, err := rules.WindowsForDate(r.Context(), doctorID, date)
		if err != nil {
			handleRuleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{
			Date:    dateStr,
			Windows: windowDTOs(windows),
		})
	}
}

func slotsHandler(rules *availability.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "doctorID")
		if !ok {
			return
		}

		start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be RFC 3339")
			return
		}

		durations, err := rules.OfferableAt(r.Context(), doctorID, start)
		if err != nil {
			handleRuleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, SlotsResponse{
			Start:     start.Format(time.RFC3339),
			Durations: durations,
		})
	}
}

func listRulesHandler(rules *availability.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "doctorID")
		if !ok {
			return
		}

		list, err := rules.ListRules(r.Context(), doctorID)
		if err != nil {
			handleRuleError(w, err)
			return
		}

		out := make([]RuleResponse, 0, len(list))
		for _, rule := range list {
			out = append(out, ruleResponse(rule, nil))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func createRuleHandler(rules *availability.Store, auth authz.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "doctorID")
		if !ok {
			return
		}

		var req CreateRuleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		rule, err := ruleFromRequest(doctorID, req)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_rule", err.Error())
			return
		}

		if err := auth.Authorize(r.Context(), GetActorID(r.Context()), doctorID, authz.ActionManageRules); err != nil {
			writeError(w, http.StatusForbidden, "permission_denied", err.Error())
			return
		}

		stored, cancelled, err := rules.AddRule(r.Context(), rule)
		if err != nil {
			handleRuleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, ruleResponse(*stored, cancelled))
	}
}

func deleteRuleHandler(rules *availability.Store, auth authz.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		ruleID, ok := parseIDParam(w, r, "ruleID")
		if !ok {
			return
		}

		if err := auth.Authorize(r.Context(), GetActorID(r.Context()), doctorID, authz.ActionManageRules); err != nil {
			writeError(w, http.StatusForbidden, "permission_denied", err.Error())
			return
		}

		if err := rules.RemoveRule(r.Context(), doctorID, ruleID); err != nil {
			handleRuleError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listNotificationsHandler(store NotificationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := parseIDParam(w, r, "patientID")
		if !ok {
			return
		}

		list, err := store.ListByPatient(r.Context(), patientID, queryInt(r, "limit", 50))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		out := make([]NotificationResponse, 0, len(list))
		for _, n := range list {
			out = append(out, notificationResponse(n))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func markNotificationReadHandler(store NotificationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		if err := store.MarkRead(r.Context(), id); err != nil {
			if errors.Is(err, notify.ErrNotificationNotFound) {
				writeError(w, http.StatusNotFound, "notification_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleRuleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid_rule", err.Error())
	case errors.Is(err, availability.ErrRuleNotFound):
		writeError(w, http.StatusNotFound, "rule_not_found", err.Error())
	case errors.Is(err, authz.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "permission_denied", err.Error())
	default:
		// Cascade failures bubble up from the ledger.
		handleLedgerError(w, err)
	}
}

func ruleFromRequest(doctorID uuid.UUID, req CreateRuleRequest) (schedule.Rule, error) {
	rangeStart, err := time.Parse("2006-01-02", req.RangeStart)
	if err != nil {
		return schedule.Rule{}, errors.New("range_start must be YYYY-MM-DD")
	}
	rangeEnd, err := time.Parse("2006-01-02", req.RangeEnd)
	if err != nil {
		return schedule.Rule{}, errors.New("range_end must be YYYY-MM-DD")
	}

	weekdays := make([]time.Weekday, 0, len(req.Weekdays))
	for _, d := range req.Weekdays {
		weekdays = append(weekdays, time.Weekday(d))
	}

	windows := make([]schedule.TimeWindow, 0, len(req.Windows))
	for _, w := range req.Windows {
		start, err := schedule.ParseTimeOfDay(w.Start)
		if err != nil {
			return schedule.Rule{}, err
		}
		end := schedule.TimeOfDay(schedule.MinutesPerDay)
		if w.End != "24:00" {
			end, err = schedule.ParseTimeOfDay(w.End)
			if err != nil {
				return schedule.Rule{}, err
			}
		}
		windows = append(windows, schedule.TimeWindow{Start: start, End: end})
	}

	return schedule.Rule{
		DoctorID:   doctorID,
		Kind:       schedule.RuleKind(req.Kind),
		RangeStart: rangeStart,
		RangeEnd:   rangeEnd,
		Weekdays:   weekdays,
		Windows:    windows,
	}, nil
}
