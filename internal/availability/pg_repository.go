package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/doctor-booking/internal/schedule"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) CreateRule(ctx context.Context, rule schedule.Rule) (*schedule.Rule, error) {
	id := rule.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_rules (id, doctor_id, kind, range_start, range_end, weekdays, windows, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING id, doctor_id, kind, range_start, range_end, weekdays, windows, created_at
	`, id, rule.DoctorID, rule.Kind, rule.RangeStart, rule.RangeEnd,
		encodeWeekdays(rule.Weekdays), encodeWindows(rule.Windows))

	return scanRule(row)
}

func (r *PgRepository) DeleteRule(ctx context.Context, doctorID, ruleID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_rules
		WHERE id = $1 AND doctor_id = $2
	`, ruleID, doctorID)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]schedule.Rule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, kind, range_start, range_end, weekdays, windows, created_at
		FROM availability_rules
		WHERE doctor_id = $1
		ORDER BY created_at
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []schedule.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rule)
	}
	return result, rows.Err()
}

func scanRule(row pgx.Row) (*schedule.Rule, error) {
	var (
		rule     schedule.Rule
		weekdays []int16
		windows  []int32
	)
	err := row.Scan(
		&rule.ID,
		&rule.DoctorID,
		&rule.Kind,
		&rule.RangeStart,
		&rule.RangeEnd,
		&weekdays,
		&windows,
		&rule.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}

	rule.RangeStart = schedule.DateOf(rule.RangeStart.UTC())
	rule.RangeEnd = schedule.DateOf(rule.RangeEnd.UTC())
	rule.Weekdays = decodeWeekdays(weekdays)
	rule.Windows, err = decodeWindows(windows)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// Weekdays are stored as a smallint array, windows as a flat int array of
// start/end minute pairs. Both round-trip without JSON overhead.

func encodeWeekdays(days []time.Weekday) []int16 {
	out := make([]int16, 0, len(days))
	for _, d := range days {
		out = append(out, int16(d))
	}
	return out
}

func decodeWeekdays(raw []int16) []time.Weekday {
	if len(raw) == 0 {
		return nil
	}
	out := make([]time.Weekday, 0, len(raw))
	for _, d := range raw {
		out = append(out, time.Weekday(d))
	}
	return out
}

func encodeWindows(windows []schedule.TimeWindow) []int32 {
	out := make([]int32, 0, len(windows)*2)
	for _, w := range windows {
		out = append(out, int32(w.Start), int32(w.End))
	}
	return out
}

func decodeWindows(raw []int32) ([]schedule.TimeWindow, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("corrupt windows column: odd length %d", len(raw))
	}
	out := make([]schedule.TimeWindow, 0, len(raw)/2)
	for i := 0; i < len(raw); i += 2 {
		out = append(out, schedule.TimeWindow{
			Start: schedule.TimeOfDay(raw[i]),
			End:   schedule.TimeOfDay(raw[i+1]),
		})
	}
	return out, nil
}
