// Package main is the entry point for the Folio portfolio ledger and
// notification engine. It wires configuration, storage, services, the
// background scheduler and the HTTP API, then runs until interrupted.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/folio/internal/clients/telegram"
	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
	"github.com/aristath/folio/internal/modules/account"
	"github.com/aristath/folio/internal/modules/currency"
	"github.com/aristath/folio/internal/modules/ledger"
	"github.com/aristath/folio/internal/modules/linking"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/aristath/folio/internal/modules/valuation"
	"github.com/aristath/folio/internal/modules/watch"
	"github.com/aristath/folio/internal/notify"
	"github.com/aristath/folio/internal/scheduler"
	"github.com/aristath/folio/internal/server"
	"github.com/aristath/folio/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Folio")

	db, err := database.New(cfg.DatabasePath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	clock := domain.SystemClock{}
	eventManager := events.NewManager(log)

	// Repositories
	accountRepo := account.NewRepository(db.Conn(), log)
	currencyRepo := currency.NewRepository(db.Conn(), log)
	portfolioRepo := portfolio.NewRepository(db.Conn(), log)
	operationRepo := ledger.NewOperationRepository(db.Conn(), log)
	watchRepo := watch.NewRepository(db.Conn(), log)
	linkRepo := linking.NewRepository(db.Conn(), log)

	// Notification transport: Telegram when a bot token is configured,
	// log-only otherwise.
	var telegramClient *telegram.Client
	var transport notify.Transport
	if cfg.TelegramBotToken != "" {
		telegramClient = telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramBotUsername, log)
		transport = notify.NewTelegramTransport(telegramClient)
		log.Info().Str("bot", cfg.TelegramBotUsername).Msg("Telegram notifications enabled")
	} else {
		transport = notify.NewLogTransport(log)
		log.Warn().Msg("No Telegram bot token, notifications will only be logged")
	}

	// Services
	ledgerService := ledger.NewService(db.Conn(), portfolioRepo, currencyRepo, operationRepo, eventManager, clock, log)
	valuator := valuation.NewService(portfolioRepo, currencyRepo, log)
	valuationCache := valuation.NewMemoryCache(cfg.ValuationCacheTTL, clock)
	detector := valuation.NewDetector(valuator, portfolioRepo, valuationCache, eventManager, log)
	linkService := linking.NewService(db.Conn(), linkRepo, accountRepo, eventManager, clock, cfg.LinkCodeTTL, log)

	// Scheduler and watches
	sched := scheduler.New(log)
	watchService := watch.NewService(watchRepo, portfolioRepo, currencyRepo, accountRepo, sched, transport, eventManager, log)

	if err := watchService.RegisterAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to register watch triggers")
	}

	sweepJob := scheduler.NewValuationSweepJob(detector, portfolioRepo, accountRepo, transport, log)
	if _, err := sched.AddJob(cfg.ValuationSweepSchedule, sweepJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule valuation sweep")
	}

	cleanupJob := scheduler.NewLinkCleanupJob(linkService, log)
	if _, err := sched.AddJob("@hourly", cleanupJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule link code cleanup")
	}

	sched.Start()

	srv := server.New(server.Config{
		Log:            log,
		Config:         cfg,
		EventManager:   eventManager,
		AccountRepo:    accountRepo,
		CurrencyRepo:   currencyRepo,
		PortfolioRepo:  portfolioRepo,
		LedgerService:  ledgerService,
		Valuator:       valuator,
		WatchService:   watchService,
		LinkService:    linkService,
		TelegramClient: telegramClient,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
