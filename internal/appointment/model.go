package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

type ConsultationType string

const (
	ConsultationFirstVisit   ConsultationType = "first_visit"
	ConsultationFollowUp     ConsultationType = "follow_up"
	ConsultationGeneral      ConsultationType = "consultation"
	ConsultationProcedure    ConsultationType = "procedure"
	ConsultationPrescription ConsultationType = "prescription"
)

// Cancellation reasons recorded on events and notifications.
const (
	ReasonPatientRequest = "patient_request"
	ReasonDoctorRequest  = "doctor_request"
	ReasonDoctorAbsence  = "doctor_absence"
	ReasonBookingExpired = "booking_expired"
)

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment is one booked interval on a doctor's calendar. End is always
// Start plus DurationMinutes; both are stored so range queries stay cheap.
type Appointment struct {
	ID              uuid.UUID
	DoctorID        uuid.UUID
	PatientID       uuid.UUID
	Start           time.Time
	End             time.Time
	DurationMinutes int
	Status          Status
	Consultation    ConsultationType
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Active reports whether the appointment still occupies its interval.
func (a Appointment) Active() bool {
	return a.Status != StatusCancelled
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
