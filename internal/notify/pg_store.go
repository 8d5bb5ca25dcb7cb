package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore persists notifications so patients can read them later and mark
// them as seen. It doubles as the Notifier wired into the ledger and the
// rule store.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) Notify(ctx context.Context, n Notification) error {
	id := n.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, patient_id, doctor_id, appointment_id, reason, read, created_at)
		VALUES ($1, $2, $3, $4, $5, false, COALESCE($6, now()))
	`, id, n.PatientID, n.DoctorID, n.AppointmentID, n.Reason, nullableTime(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PgStore) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, patient_id, doctor_id, appointment_id, reason, read, created_at
		FROM notifications
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.PatientID, &n.DoctorID, &n.AppointmentID, &n.Reason, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (s *PgStore) MarkRead(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET read = true WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *PgStore) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	var n Notification
	err := s.pool.QueryRow(ctx, `
		SELECT id, patient_id, doctor_id, appointment_id, reason, read, created_at
		FROM notifications
		WHERE id = $1
	`, id).Scan(&n.ID, &n.PatientID, &n.DoctorID, &n.AppointmentID, &n.Reason, &n.Read, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
