package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medbook/doctor-booking/internal/appointment"
	"github.com/medbook/doctor-booking/internal/authz"
	"github.com/medbook/doctor-booking/internal/availability"
	"github.com/medbook/doctor-booking/internal/notify"
)

// NotificationStore is the read/ack side of patient notifications.
type NotificationStore interface {
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]notify.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

type RouterConfig struct {
	Ledger        *appointment.Ledger
	Rules         *availability.Store
	Notifications NotificationStore
	Authorizer    authz.Authorizer
	Logger        zerolog.Logger
	PgPool        *pgxpool.Pool
	Redis         *redis.Client
	Env           string
	Version       string
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Authorizer == nil {
		cfg.Authorizer = authz.AllowAll{}
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(ActorMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/doctors/{doctorID}", func(r chi.Router) {
		r.Get("/availability", availabilityHandler(cfg.Rules))
		r.Get("/slots", slotsHandler(cfg.Rules))
		r.Get("/rules", listRulesHandler(cfg.Rules))
		r.Post("/rules", createRuleHandler(cfg.Rules, cfg.Authorizer))
		r.Delete("/rules/{ruleID}", deleteRuleHandler(cfg.Rules, cfg.Authorizer))
	})

	r.Post("/appointments", createAppointmentHandler(cfg.Ledger, cfg.Authorizer))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Ledger))
	r.Post("/appointments/{id}/confirm", transitionHandler(cfg.Ledger.Confirm))
	r.Post("/appointments/{id}/complete", transitionHandler(cfg.Ledger.Complete))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Ledger, cfg.Authorizer))

	r.Get("/patients/{patientID}/appointments", listByPatientHandler(cfg.Ledger))
	r.Get("/patients/{patientID}/notifications", listNotificationsHandler(cfg.Notifications))
	r.Post("/notifications/{id}/read", markNotificationReadHandler(cfg.Notifications))

	return r
}
