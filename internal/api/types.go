package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/medbook/doctor-booking/internal/appointment"
	"github.com/medbook/doctor-booking/internal/notify"
	"github.com/medbook/doctor-booking/internal/schedule"
)

// Dates travel as ISO-8601 "YYYY-MM-DD", times of day as "HH:MM" and
// timestamps as RFC 3339. Engine types never leak into JSON raw.

type CreateAppointmentRequest struct {
	DoctorID         string `json:"doctor_id"`
	PatientID        string `json:"patient_id"`
	Start            string `json:"start"` // RFC 3339
	DurationMinutes  int    `json:"duration_minutes"`
	ConsultationType string `json:"consultation_type,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID               uuid.UUID `json:"id"`
	DoctorID         uuid.UUID `json:"doctor_id"`
	PatientID        uuid.UUID `json:"patient_id"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	DurationMinutes  int       `json:"duration_minutes"`
	Status           string    `json:"status"`
	ConsultationType string    `json:"consultation_type,omitempty"`
}

func appointmentResponse(a appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:               a.ID,
		DoctorID:         a.DoctorID,
		PatientID:        a.PatientID,
		Start:            a.Start,
		End:              a.End,
		DurationMinutes:  a.DurationMinutes,
		Status:           string(a.Status),
		ConsultationType: string(a.Consultation),
	}
}

type TimeWindowDTO struct {
	Start string `json:"start"` // HH:MM
	End   string `json:"end"`   // HH:MM
}

func windowDTOs(windows []schedule.TimeWindow) []TimeWindowDTO {
	out := make([]TimeWindowDTO, 0, len(windows))
	for _, w := range windows {
		out = append(out, TimeWindowDTO{Start: w.Start.String(), End: w.End.String()})
	}
	return out
}

type CreateRuleRequest struct {
	Kind       string          `json:"kind"`
	RangeStart string          `json:"range_start"` // YYYY-MM-DD
	RangeEnd   string          `json:"range_end"`   // YYYY-MM-DD
	Weekdays   []int           `json:"weekdays,omitempty"`
	Windows    []TimeWindowDTO `json:"windows,omitempty"`
}

type RuleResponse struct {
	ID         uuid.UUID       `json:"id"`
	DoctorID   uuid.UUID       `json:"doctor_id"`
	Kind       string          `json:"kind"`
	RangeStart string          `json:"range_start"`
	RangeEnd   string          `json:"range_end"`
	Weekdays   []int           `json:"weekdays,omitempty"`
	Windows    []TimeWindowDTO `json:"windows,omitempty"`
	// CancelledAppointments lists the bookings a new absence swallowed.
	CancelledAppointments []uuid.UUID `json:"cancelled_appointments,omitempty"`
}

func ruleResponse(r schedule.Rule, cancelled []uuid.UUID) RuleResponse {
	weekdays := make([]int, 0, len(r.Weekdays))
	for _, d := range r.Weekdays {
		weekdays = append(weekdays, int(d))
	}
	return RuleResponse{
		ID:                    r.ID,
		DoctorID:              r.DoctorID,
		Kind:                  string(r.Kind),
		RangeStart:            r.RangeStart.Format("2006-01-02"),
		RangeEnd:              r.RangeEnd.Format("2006-01-02"),
		Weekdays:              weekdays,
		Windows:               windowDTOs(r.Windows),
		CancelledAppointments: cancelled,
	}
}

type AvailabilityResponse struct {
	Date    string          `json:"date"`
	Windows []TimeWindowDTO `json:"windows"`
}

type SlotsResponse struct {
	Start     string `json:"start"`
	Durations []int  `json:"durations"`
}

type NotificationResponse struct {
	ID            uuid.UUID `json:"id"`
	PatientID     uuid.UUID `json:"patient_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	Reason        string    `json:"reason"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"created_at"`
}

func notificationResponse(n notify.Notification) NotificationResponse {
	return NotificationResponse{
		ID:            n.ID,
		PatientID:     n.PatientID,
		DoctorID:      n.DoctorID,
		AppointmentID: n.AppointmentID,
		Reason:        n.Reason,
		Read:          n.Read,
		CreatedAt:     n.CreatedAt,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
