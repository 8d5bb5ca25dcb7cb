package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/medbook/doctor-booking/internal/appointment"
	"github.com/medbook/doctor-booking/internal/config"
	"github.com/medbook/doctor-booking/internal/db"
	"github.com/medbook/doctor-booking/internal/notify"
	redisclient "github.com/medbook/doctor-booking/internal/redis"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "expiry-worker").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	log.Info().Str("env", cfg.Env).Dur("interval", cfg.WorkerInterval).Msg("starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	locker := redisclient.NewRedisDoctorLocker(rdb, cfg.LockTTL)
	ledger := appointment.NewLedger(appointment.NewPgRepository(pgPool), locker, cfg, notify.NewPgStore(pgPool), log)

	// Run once at startup so a restart does not delay expiry by a full tick.
	runOnce(rootCtx, ledger, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping expiry worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, ledger, log)
		}
	}
}

func runOnce(ctx context.Context, ledger *appointment.Ledger, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := ledger.ExpireStalePending(runCtx); err != nil {
		log.Error().Err(err).Msg("expiry run error")
		return
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("expiry run complete")
}
