package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/plclassificados/marketplace/app/repository"
	"github.com/plclassificados/marketplace/internal/pkg/billing"
	"github.com/plclassificados/marketplace/internal/pkg/cache"
	"github.com/plclassificados/marketplace/internal/pkg/database"
	"github.com/plclassificados/marketplace/internal/pkg/env"
	"github.com/plclassificados/marketplace/internal/pkg/jobqueue"
	"github.com/plclassificados/marketplace/internal/pkg/router"
)

func main() {
	app, shutdown := NewApplication()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
		if err := app.Listen(addr); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Errorf("http shutdown: %v", err)
	}
	shutdown()
}

// NewApplication wires every component and returns the fiber app plus a
// function that drains background work.
func NewApplication() (*fiber.App, func()) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()

	// account and plan mails go through the redis job queue
	queue := jobqueue.NewQueueWithConfig(cache.GetClient(), jobqueue.Config{
		Workers:    env.GetEnvInt("JOB_QUEUE_WORKERS", 2),
		RetryDelay: env.GetEnvDuration("JOB_QUEUE_RETRY_DELAY", time.Minute),
	})
	manager := jobqueue.NewManager(queue, env.GetEnvDuration("JOB_QUEUE_STATS_INTERVAL", 5*time.Minute))
	manager.Start()
	notifier := jobqueue.NewNotifier(queue)

	cfg := billing.ConfigFromEnv()
	if cfg.AccessToken == "" {
		log.Warn("[Billing] MP_ACCESS_TOKEN is empty, gateway calls will fail")
	}
	if cfg.WebhookSecret == "" {
		log.Warn("[Billing] MP_WEBHOOK_SECRET is empty, webhook signatures are not checked")
	}
	billingRepo := billing.NewRepository(db)
	gateway := billing.NewMercadoPagoClient(cfg)
	service := billing.NewService(billingRepo, gateway, notifier, cfg)
	reconciler := billing.NewReconciler(billingRepo, gateway, notifier, cfg)

	app := fiber.New(fiber.Config{
		AppName:   "PL Classificados API",
		BodyLimit: 1 * 1024 * 1024,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: findOpenAPIFile(),
		Path:     "v1",
	}))

	// ROUTER
	router.InstallRouter(app, router.Dependencies{
		Repos:      repository.NewRepositories(db),
		Billing:    service,
		Dispatcher: reconciler,
		Notifier:   notifier,
	})

	shutdown := func() {
		defer func() { _ = cache.Close() }()
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ProcessingTimeout+5*time.Second)
		defer cancel()
		if err := reconciler.Wait(ctx); err != nil {
			log.Warnf("[Webhook] In-flight notifications abandoned: %v", err)
		}
		manager.Stop()
	}

	return app, shutdown
}

func findOpenAPIFile() string {
	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/marketplace to project root
		"../../../", // Fallback
	}
	for _, path := range basePaths {
		file := path + "public/docs/v1/openapi.yml"
		if _, err := os.Stat(file); err == nil {
			return file
		}
	}
	panic("Could not find public/docs/v1/openapi.yml")
}
