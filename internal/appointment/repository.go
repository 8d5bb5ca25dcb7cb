package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrStaleRead means a conditional status write found the row in a
	// different state than the caller read it in. The caller should
	// recompute and retry or give up.
	ErrStaleRead = errors.New("appointment changed concurrently")
)

// Repository contains all DB interactions needed by the ledger.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// ListActiveInRange returns the doctor's non-cancelled appointments
	// whose [Start, End) overlaps [start, end). This is the read side of
	// every conflict check.
	ListActiveInRange(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]Appointment, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)

	CreateAppointment(ctx context.Context, appt Appointment) (*Appointment, error)

	// UpdateStatus is a conditional write: it flips the status only while
	// the row is still in `from`. A missing row yields
	// ErrAppointmentNotFound; a row that moved on yields ErrStaleRead.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// FindStalePending returns pending appointments created before the
	// deadline; the expiry worker cancels them.
	FindStalePending(ctx context.Context, createdBefore time.Time) ([]Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
