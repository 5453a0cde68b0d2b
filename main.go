// Package main provides the entry point for the ad selection storage service
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/amirphl/Ame-no-Murakumo/app/scheduler"
	businessflow "github.com/amirphl/Ame-no-Murakumo/business_flow"
	"github.com/amirphl/Ame-no-Murakumo/config"
	"github.com/amirphl/Ame-no-Murakumo/repository"
	"github.com/amirphl/Ame-no-Murakumo/stats"
	"github.com/amirphl/Ame-no-Murakumo/storage"
	"github.com/amirphl/Ame-no-Murakumo/telemetry"
)

// Application represents the main application structure
type Application struct {
	config    *config.ProductionConfig
	db        *gorm.DB
	server    *fiber.App
	loggers   *stats.LoggerFactory
	stopFuncs []func()
}

func main() {
	log.Println("Starting ad selection storage service...")

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Admin server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeApplication wires storage, repositories, the schema-aware data
// store and the maintenance scheduler, and builds the admin HTTP surface.
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	db, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := storage.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	adSelectionRepo := repository.NewAdSelectionRepository(db)
	unifiedRepo := repository.NewUnifiedAdSelectionRepository(db)
	interactionRepo := repository.NewRegisteredAdInteractionRepository(db)
	keyRepo := repository.NewEncryptionKeyRepository(db)
	contextRepo := repository.NewEncryptionContextRepository(db)
	consentedRepo := repository.NewConsentedDebugConfigurationRepository(db)

	dataStore := businessflow.NewAdSelectionDataStore(
		adSelectionRepo,
		unifiedRepo,
		interactionRepo,
		cfg.Fledge.UseUnifiedTables,
		cfg.Fledge.AdSelectionExpirationTTL,
	)

	maintenance := scheduler.NewMaintenanceScheduler(
		dataStore,
		keyRepo,
		contextRepo,
		consentedRepo,
		cfg.Logging,
		cfg.Fledge,
	)

	var sink stats.Sink = stats.NoopSink{}
	if cfg.Metrics.Enabled {
		sink = telemetry.NewPrometheusSink()
	}

	app := &Application{
		config:  cfg,
		db:      db,
		server:  buildAdminServer(cfg),
		loggers: stats.NewLoggerFactory(stats.SystemClock{}, sink),
	}

	stopMaintenance := maintenance.Start(context.Background())
	app.stopFuncs = append(app.stopFuncs, stopMaintenance)

	return app, nil
}

// buildAdminServer exposes health and metrics only; the stores themselves are
// consumed in-process.
func buildAdminServer(cfg *config.ProductionConfig) *fiber.App {
	server := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	})

	server.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	if cfg.Metrics.Enabled {
		server.Get(cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	return server
}
