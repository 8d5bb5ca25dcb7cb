package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotificationNotFound = errors.New("notification not found")

// Notification is the event handed to the delivery layer when an
// appointment changes state on a patient's behalf. Formatting and delivery
// are someone else's problem; this package only records and hands off.
type Notification struct {
	ID            uuid.UUID
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	AppointmentID uuid.UUID
	Reason        string
	Read          bool
	CreatedAt     time.Time
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Recorder is an in-memory Notifier for tests and local runs. It remembers
// every notification in arrival order.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	r.sent = append(r.sent, n)
	return nil
}

// Sent returns a copy of everything notified so far.
func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

func (r *Recorder) ListByPatient(_ context.Context, patientID uuid.UUID, limit int) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for i := len(r.sent) - 1; i >= 0; i-- {
		if r.sent[i].PatientID != patientID {
			continue
		}
		out = append(out, r.sent[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *Recorder) MarkRead(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.sent {
		if r.sent[i].ID == id {
			r.sent[i].Read = true
			return nil
		}
	}
	return ErrNotificationNotFound
}
