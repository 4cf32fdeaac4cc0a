// Package app assembles the API server from a configuration and a data
// store.
package app

import (
	"context"
	"time"

	"github.com/jwalitptl/orms-api/internal/config"
	"github.com/jwalitptl/orms-api/internal/email"
	authhandler "github.com/jwalitptl/orms-api/internal/handler/auth"
	"github.com/jwalitptl/orms-api/internal/handler/health"
	"github.com/jwalitptl/orms-api/internal/handler/invoice"
	patienthandler "github.com/jwalitptl/orms-api/internal/handler/patient"
	"github.com/jwalitptl/orms-api/internal/handler/prometheus"
	referencehandler "github.com/jwalitptl/orms-api/internal/handler/reference"
	"github.com/jwalitptl/orms-api/internal/middleware"
	"github.com/jwalitptl/orms-api/internal/presenter"
	"github.com/jwalitptl/orms-api/internal/repository"
	"github.com/jwalitptl/orms-api/internal/router"
	authsvc "github.com/jwalitptl/orms-api/internal/service/auth"
	"github.com/jwalitptl/orms-api/internal/service/billing"
	"github.com/jwalitptl/orms-api/internal/service/event"
	patientsvc "github.com/jwalitptl/orms-api/internal/service/patient"
	referencesvc "github.com/jwalitptl/orms-api/internal/service/reference"
	"github.com/jwalitptl/orms-api/internal/worker"
	"github.com/jwalitptl/orms-api/pkg/auth"
	"github.com/jwalitptl/orms-api/pkg/logger"
	"github.com/jwalitptl/orms-api/pkg/metrics"
	"github.com/jwalitptl/orms-api/pkg/security"
)

const metricsNamespace = "orms"

// Options override collaborators that tests replace.
type Options struct {
	Mailer     email.Service
	Now        func() time.Time
	BcryptCost int
}

type App struct {
	Router  *router.Router
	Metrics *metrics.Metrics
	Cleanup *worker.OutboxCleanupWorker
	store   repository.Store
}

func New(cfg *config.Config, store repository.Store, log *logger.Logger, opts Options) (*App, error) {
	if err := middleware.RegisterValidators(); err != nil {
		return nil, err
	}
	if opts.Mailer == nil {
		opts.Mailer = email.NewService(email.Config{})
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	promHandler := prometheus.New(metricsNamespace)
	m := metrics.NewMetrics(metricsNamespace, promHandler.Registry())
	events := event.NewEventService()
	present := presenter.New(opts.Now)

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := authsvc.NewService(store.Users(), jwtSvc, security.NewBcryptHasher(opts.BcryptCost))

	billingService := billing.NewService(store, events, opts.Mailer, m, billing.Config{
		TaxRate:         cfg.Billing.TaxRate,
		DefaultDoctorID: cfg.Billing.DefaultDoctorID,
	}).WithClock(opts.Now)

	patientService := patientsvc.NewService(store, events, patientsvc.Config{
		TaxRate:                   cfg.Billing.TaxRate,
		ConsultationFallbackPrice: cfg.Billing.ConsultationFallbackPrice,
	}).WithClock(opts.Now)

	r := router.NewRouter(middleware.NewAuthMiddleware(authService), router.Handlers{
		Auth:      authhandler.NewHandler(authService),
		Health:    health.NewHandler(store),
		Invoice:   invoice.NewHandler(billingService, present),
		Patient:   patienthandler.NewHandler(patientService, billingService, present),
		Reference: referencehandler.NewHandler(referencesvc.NewService(store.Reference()), present),
		Metrics:   promHandler,
	}, router.Config{
		Mode:           cfg.Server.Mode,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimit:      cfg.RateLimit.Enabled,
		RateRPS:        cfg.RateLimit.RequestsPerSecond,
		RateBurst:      cfg.RateLimit.Burst,
		RateClientTTL:  cfg.RateLimit.ClientTTL,
		RequestTimeout: cfg.Server.Timeout(),
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	})
	r.Setup()

	return &App{
		Router:  r,
		Metrics: m,
		Cleanup: worker.NewOutboxCleanupWorker(store.Outbox(), cfg.Outbox.Retention, cfg.Outbox.CleanupInterval, log, m),
		store:   store,
	}, nil
}

// StartCleanup runs the outbox cleanup ticker until ctx is done. It does
// nothing when retention or interval is unset.
func (a *App) StartCleanup(ctx context.Context) {
	if a.Cleanup == nil || a.Cleanup.Disabled() {
		return
	}
	go a.Cleanup.Start(ctx)
}
