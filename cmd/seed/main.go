package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/medbook/doctor-booking/internal/db"
	"github.com/medbook/doctor-booking/internal/schedule"
)

var log = zerolog.New(os.Stdout).With().Timestamp().Str("service", "seed").Logger()

func main() {
	log.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	doctorIDs, err := seedDoctors(context.Background(), pool, 100)
	if err != nil {
		log.Fatal().Err(err).Msg("seed doctors")
	}
	if err := seedPatients(context.Background(), pool, 9000); err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedWorkingHours(context.Background(), pool, doctorIDs); err != nil {
		log.Fatal().Err(err).Msg("seed working hours")
	}

	log.Info().Msg("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Info().Int("count", count).Msg("seeding doctors")

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Info().Msg("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Info().Int("done", end).Int("total", count).Msg("patients seeded")
	}

	return nil
}

// seedWorkingHours gives every doctor a recurring Mon-Fri rule for the
// next year. Roughly half get a classic morning+afternoon split, the
// rest a single continuous block.
func seedWorkingHours(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID) error {
	log.Info().Int("doctors", len(doctorIDs)).Msg("seeding working hours")

	rangeStart := schedule.DateOf(time.Now().UTC())
	rangeEnd := rangeStart.AddDate(1, 0, 0)
	weekdays := []int16{1, 2, 3, 4, 5}

	split := []int32{9 * 60, 12 * 60, 14 * 60, 18 * 60}
	block := []int32{8 * 60, 16 * 60}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, doctorID := range doctorIDs {
		windows := block
		if gofakeit.Bool() {
			windows = split
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO availability_rules (id, doctor_id, kind, range_start, range_end, weekdays, windows, created_at)
			VALUES ($1, $2, 'recurring', $3, $4, $5, $6, now())
		`, uuid.New(), doctorID, rangeStart, rangeEnd, weekdays, windows)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Info().Msg("working hours seeded")
	return nil
}
