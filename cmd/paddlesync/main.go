package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/PaddleSync/app/controllers"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/billing"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/cache"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/config"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/database"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/env"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/mail"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/notify"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/retryqueue"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/router"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/session"
)

const shutdownTimeout = 10 * time.Second

func main() {
	env.SetupEnvFile()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Main] Invalid configuration: %v", err)
	}
	if cfg.IsDev() {
		log.SetLevel(log.LevelDebug)
	}

	app, scheduler, err := NewApplication(cfg)
	if err != nil {
		log.Fatalf("[Main] Failed to start: %v", err)
	}

	go func() {
		if err := app.Listen(cfg.ListenAddr()); err != nil {
			log.Fatalf("[Main] Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("[Main] Shutting down")
	if scheduler != nil {
		scheduler.Stop()
	}
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Errorf("[Main] Shutdown failed: %v", err)
	}
	if err := cache.Close(); err != nil {
		log.Warnf("[Main] Failed to close cache: %v", err)
	}
}

// dailyCounter is both written by the processor and read by the stats view.
type dailyCounter interface {
	billing.Counter
	controllers.DailyCounter
}

// NewApplication wires the webhook pipeline into a fiber app. The returned
// scheduler is nil when in-process sweeping is disabled.
func NewApplication(cfg *config.Config) (*fiber.App, *retryqueue.Scheduler, error) {
	var (
		repo      billing.Repository
		retries   retryqueue.Store
		counters  dailyCounter
		notifiers = notify.Fanout{notify.LogNotifier{}}
		deps      = router.Dependencies{Config: cfg}
	)

	switch cfg.Database.Driver {
	case "memory":
		log.Warn("[Main] DB_DRIVER=memory, state is lost on restart")
		repo = billing.NewMemoryRepository()
		retries = retryqueue.NewMemoryStore()
		counters = counter.NewMemoryCounter()
	case "mysql":
		db, err := database.SetupDatabase(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		repo = billing.NewRepository(db)
		retries = retryqueue.NewGormStore(db)
		notifiers = append(notifiers, notify.NewAuditNotifier(db))

		counters = counter.NewRedisCounter(cache.SetupCache(cfg.Cache))
		deps.SessionStorage = session.NewRedisStorage(cfg.Cache, session.SessionDatabase)
		deps.LimiterStorage = session.NewRedisStorage(cfg.Cache, session.LimiterDatabase)
	default:
		return nil, nil, errors.New("unsupported DB_DRIVER " + cfg.Database.Driver)
	}

	mailer := mail.NewSMTPMailer(cfg.Mail)
	if mailer.Configured() && len(cfg.Mail.AlertEmails) > 0 {
		notifiers = append(notifiers, notify.NewMailNotifier(mailer, cfg.Mail.AlertEmails))
	} else {
		log.Warn("[Main] SMTP or ALERT_EMAILS not configured, critical alerts go to the log only")
	}

	policy := retryqueue.NewPolicy(cfg.Retry.MaxRetries)
	processor := billing.NewProcessor(repo, counters, notifiers)
	queue := retryqueue.NewQueue(retries, policy, notifiers)
	sweeper := retryqueue.NewSweeper(retries, processor, policy, notifiers, cfg.Retry.ClaimTTL)
	verifier := billing.NewSignatureVerifier(cfg.Webhook.PaddleSecret).WithTolerance(cfg.Webhook.SignatureTolerance)
	service := billing.NewService(repo, map[string]billing.Verifier{billing.ProviderPaddle: verifier}, processor, queue, notifiers)

	deps.Webhooks = controllers.NewWebhookController(service)
	deps.Admin = controllers.NewAdminWebhookController(service, queue, sweeper, counters, notifiers, cfg.Retry.BatchSize)
	deps.Cron = controllers.NewCronController(sweeper, cfg.Retry.BatchSize)

	app := fiber.New(fiber.Config{AppName: "PaddleSync"})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// ROUTER
	router.InstallRouter(app, deps)

	var scheduler *retryqueue.Scheduler
	if cfg.Retry.SweepInterval > 0 {
		scheduler = retryqueue.NewScheduler(sweeper, cfg.Retry.SweepInterval, cfg.Retry.BatchSize)
		scheduler.Start()
	}

	log.Infof("[Main] Webhook pipeline ready (driver=%s, max retries=%d)", cfg.Database.Driver, policy.MaxRetries)
	return app, scheduler, nil
}
