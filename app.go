package main

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/meinhoongagan/vetcare-app/config"
	"github.com/meinhoongagan/vetcare-app/cron"
	"github.com/meinhoongagan/vetcare-app/db"
	"github.com/meinhoongagan/vetcare-app/logger"
	"github.com/meinhoongagan/vetcare-app/metrics"
	"github.com/meinhoongagan/vetcare-app/redis"
	"github.com/meinhoongagan/vetcare-app/repository"
	"github.com/meinhoongagan/vetcare-app/services"
	"github.com/meinhoongagan/vetcare-app/tracer"
	"github.com/meinhoongagan/vetcare-app/utils"
)

// app holds every long-lived dependency a command needs.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	tp      *sdktrace.TracerProvider
	db      *gorm.DB
	redis   *goredis.Client
	metrics *metrics.Collector
	repos   *repository.Repositories

	auth         *services.AuthService
	clinics      *services.ClinicService
	slots        *services.SlotService
	pets         *services.PetService
	appointments *services.AppointmentService
	reviews      *services.ReviewService
	billing      *services.BillingService
	admin        *services.AdminService

	scheduler *cron.Scheduler
}

// bootstrap loads config and opens the database. Redis and the services
// are only wired when withServices is set.
func bootstrap(ctx context.Context, withServices bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, using development signing key")
	}

	conn, err := db.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, db: conn}
	if !withServices {
		return a, nil
	}

	a.tp, err = tracer.Init(tracer.Config{
		Enabled:    cfg.TracingEnabled,
		Endpoint:   cfg.TracingEndpoint,
		SampleRate: cfg.TracingSampleRate,
	})
	if err != nil {
		return nil, err
	}

	a.redis, err = redis.InitRedis(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, err
	}

	var mailer services.Mailer = utils.NopMailer{}
	if cfg.SMTPHost != "" {
		mailer = utils.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.EmailUser, cfg.EmailPass)
	} else {
		log.Warn("SMTP_HOST not set, outgoing mail is disabled")
	}
	uploader, err := utils.NewCloudinaryUploader(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryUploadPreset)
	if err != nil {
		return nil, err
	}

	a.metrics = metrics.NewCollector()
	a.repos = repository.New(conn)
	r := a.repos

	a.auth = services.NewAuthService(r.Users, r.Events, log, cfg.JWTSigningKey(), time.Duration(cfg.JWTTTLHours)*time.Hour)
	a.clinics = services.NewClinicService(r.Clinics, r.Users, uploader, log)
	a.slots = services.NewSlotService(r.Slots, r.Clinics, log)
	a.pets = services.NewPetService(r.Pets, r.Appointments)
	a.appointments = services.NewAppointmentService(r.Appointments, r.Clinics, r.Pets, mailer, a.metrics, log, services.AppointmentConfig{
		ConfirmationWindow: cfg.ConfirmationWindow(),
		DisputeWindow:      cfg.DisputeWindow(),
		ReminderLead:       cfg.ReminderLead(),
		NumberPrefix:       cfg.AppointmentNumberPrefix,
	})
	a.reviews = services.NewReviewService(r.Reviews, r.Appointments, a.metrics, log)
	a.billing = services.NewBillingService(r.Invoices, r.Appointments, r.Clinics, r.Users, mailer, a.metrics, log, services.BillingConfig{
		TaxRate:      decimal.NewFromFloat(cfg.TaxRate),
		DueIn:        cfg.InvoiceDue(),
		NumberPrefix: cfg.InvoiceNumberPrefix,
	})
	a.admin = services.NewAdminService(r.Clinics, r.Users, r.Events, r.JobRuns, log)

	a.scheduler = cron.NewScheduler(redis.NewLocker(a.redis), r.JobRuns, a.metrics, log, cfg.JobLockTTL())
	jobs := cron.DefaultJobs(
		cron.Services{Appointments: a.appointments, Billing: a.billing, Admin: a.admin},
		cron.Options{AutoCancelUnconfirmed: cfg.AutoCancelUnconfirmed, LogRetention: cfg.LogRetention()},
	)
	if err := a.scheduler.Register(jobs...); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if a.tp != nil {
		if err := a.tp.Shutdown(ctx); err != nil {
			a.log.Warn("tracer shutdown", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if err := db.Close(); err != nil {
		a.log.Warn("closing database", zap.Error(err))
	}
	_ = a.log.Sync()
}
