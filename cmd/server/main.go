// Package main is the entry point for the Tazkiyah compliance engine:
// Shariah screening of a security universe, purification calculation
// over portfolio holdings, and the override/audit ledger behind both.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/amanahlabs/tazkiyah/internal/config"
	"github.com/amanahlabs/tazkiyah/internal/database"
	"github.com/amanahlabs/tazkiyah/internal/events"
	"github.com/amanahlabs/tazkiyah/internal/modules/ledger"
	ledgerhandlers "github.com/amanahlabs/tazkiyah/internal/modules/ledger/handlers"
	"github.com/amanahlabs/tazkiyah/internal/modules/portfolio"
	portfoliohandlers "github.com/amanahlabs/tazkiyah/internal/modules/portfolio/handlers"
	"github.com/amanahlabs/tazkiyah/internal/modules/purification"
	purificationhandlers "github.com/amanahlabs/tazkiyah/internal/modules/purification/handlers"
	"github.com/amanahlabs/tazkiyah/internal/modules/screening"
	screeninghandlers "github.com/amanahlabs/tazkiyah/internal/modules/screening/handlers"
	"github.com/amanahlabs/tazkiyah/internal/modules/standards"
	standardshandlers "github.com/amanahlabs/tazkiyah/internal/modules/standards/handlers"
	"github.com/amanahlabs/tazkiyah/internal/modules/universe"
	universehandlers "github.com/amanahlabs/tazkiyah/internal/modules/universe/handlers"
	"github.com/amanahlabs/tazkiyah/internal/reliability"
	"github.com/amanahlabs/tazkiyah/internal/scheduler"
	"github.com/amanahlabs/tazkiyah/internal/server"
	"github.com/amanahlabs/tazkiyah/internal/work"
	"github.com/amanahlabs/tazkiyah/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	logger.SetGlobalLogger(log)
	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting tazkiyah engine")

	// Databases. The ledger runs under the maximum-safety profile: it
	// is the system of record for purification and audit.
	databases := map[string]*database.DB{}
	for _, spec := range []struct {
		name    string
		profile database.DatabaseProfile
	}{
		{"universe", database.ProfileStandard},
		{"compliance", database.ProfileStandard},
		{"ledger", database.ProfileLedger},
		{"portfolio", database.ProfileStandard},
	} {
		db, err := database.New(database.Config{
			Path:    filepath.Join(cfg.DataDir, spec.name+".db"),
			Profile: spec.profile,
			Name:    spec.name,
		})
		if err != nil {
			log.Fatal().Err(err).Str("database", spec.name).Msg("Failed to open database")
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", spec.name).Msg("Failed to migrate database")
		}
		databases[spec.name] = db
	}

	bus := events.NewBus()
	eventMgr := events.NewManager(bus, log)

	// Repositories
	securityRepo := universe.NewSecurityRepository(databases["universe"].Conn(), log)
	standardsRepo := standards.NewRepository(databases["universe"].Conn(), log)
	factsRepo := screening.NewFactsRepository(databases["compliance"].Conn(), log)
	triggerRepo := screening.NewTriggerRepository(databases["compliance"].Conn(), log)
	verdictRepo := screening.NewVerdictRepository(databases["compliance"].Conn(), log)
	resultRepo := purification.NewResultRepository(databases["ledger"].Conn(), log)
	auditRepo := ledger.NewAuditRepository(databases["ledger"].Conn(), log)
	overrideRepo := ledger.NewOverrideRepository(databases["ledger"].Conn(), log)
	portfolioRepo := portfolio.NewPortfolioRepository(databases["portfolio"].Conn(), log)
	holdingRepo := portfolio.NewHoldingRepository(databases["portfolio"].Conn(), log)

	// Services. The ledger service doubles as the audit recorder for
	// the evaluation pipeline.
	ledgerService := ledger.NewService(auditRepo, overrideRepo, resultRepo, eventMgr, log)
	standardsService := standards.NewService(standardsRepo, eventMgr, log)
	resolver := universe.NewSymbolResolver(securityRepo, log)
	screeningService := screening.NewService(factsRepo, triggerRepo, verdictRepo,
		standardsService, ledgerService, eventMgr, log)
	purificationService := purification.NewService(resultRepo, holdingRepo, portfolioRepo,
		screeningService, standardsService, ledgerService, eventMgr, log)
	portfolioService := portfolio.NewService(portfolioRepo, holdingRepo,
		purificationService, ledgerService, screeningService, log)

	if err := standardsService.EnsureSeeds(); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed screening standards")
	}

	// Background work: event listeners and scheduled jobs
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batchRunner := work.NewBatchRunner(securityRepo, screeningService, cfg.BatchWorkers, log)
	listeners := work.NewListeners(bus, standardsService, batchRunner, purificationService, log)
	listeners.Register(ctx)

	sched := scheduler.New(log)
	rescreenJob := scheduler.NewRescreenJob(standardsService, batchRunner, log)
	if err := sched.AddJob(cfg.RescreenSchedule, rescreenJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule nightly rescreen")
	}

	maintenanceJob := scheduler.NewMaintenanceJob(databases, log)
	if err := sched.AddJob("0 15 * * * *", maintenanceJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule database maintenance")
	}

	if cfg.Backup != nil && cfg.Backup.Enabled {
		s3Client, err := reliability.NewS3Client(cfg.Backup, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize backup storage")
		}
		backupService := reliability.NewBackupService(databases, s3Client, cfg.DataDir, cfg.Backup.Retain, log)
		backupJob := scheduler.NewBackupJob(backupService, log)
		if err := sched.AddJob(cfg.Backup.Schedule, backupJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule ledger backup")
		}
	}

	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Databases: databases,
		EventBus:  bus,
		Handlers: []server.RouteRegistrar{
			universehandlers.NewHandler(securityRepo, resolver, log),
			standardshandlers.NewHandler(standardsService, log),
			screeninghandlers.NewHandler(screeningService, standardsService, batchRunner, log),
			purificationhandlers.NewHandler(purificationService, log),
			ledgerhandlers.NewHandler(ledgerService, log),
			portfoliohandlers.NewHandler(portfolioService, log),
		},
	})

	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	log.Info().Msg("Engine stopped")
}
