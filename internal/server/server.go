// Package server provides the HTTP server and routing for Folio.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/clients/telegram"
	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/events"
	"github.com/aristath/folio/internal/modules/account"
	"github.com/aristath/folio/internal/modules/currency"
	"github.com/aristath/folio/internal/modules/ledger"
	"github.com/aristath/folio/internal/modules/linking"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/aristath/folio/internal/modules/valuation"
	"github.com/aristath/folio/internal/modules/watch"
)

// Config holds server configuration and the wired services.
type Config struct {
	Log            zerolog.Logger
	Config         *config.Config
	EventManager   *events.Manager
	AccountRepo    *account.Repository
	CurrencyRepo   *currency.Repository
	PortfolioRepo  *portfolio.Repository
	LedgerService  *ledger.Service
	Valuator       *valuation.Service
	WatchService   *watch.Service
	LinkService    *linking.Service
	TelegramClient *telegram.Client
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	eventManager   *events.Manager
	accountRepo    *account.Repository
	currencyRepo   *currency.Repository
	portfolioRepo  *portfolio.Repository
	ledgerService  *ledger.Service
	valuator       *valuation.Service
	watchService   *watch.Service
	linkService    *linking.Service
	telegramClient *telegram.Client
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Config,
		eventManager:   cfg.EventManager,
		accountRepo:    cfg.AccountRepo,
		currencyRepo:   cfg.CurrencyRepo,
		portfolioRepo:  cfg.PortfolioRepo,
		ledgerService:  cfg.LedgerService,
		valuator:       cfg.Valuator,
		watchService:   cfg.WatchService,
		linkService:    cfg.LinkService,
		telegramClient: cfg.TelegramClient,
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Account-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Unified events stream (SSE)
		eventsStreamHandler := NewEventsStreamHandler(s.eventManager, s.log)
		r.Get("/events/stream", eventsStreamHandler.ServeHTTP)

		r.Post("/accounts", s.handleCreateAccount)

		// Telegram: inbound webhook is unauthenticated; the one-time
		// code inside the /start payload is the credential.
		r.Post("/telegram/webhook", s.handleTelegramWebhook)

		// Currencies and rates: rate push is how collaborating feeders
		// deliver quotes, so it stays outside the account scope.
		r.Route("/currencies", func(r chi.Router) {
			r.Get("/", s.handleListCurrencies)
			r.Post("/", s.handleCreateCurrency)
			r.Route("/{shortName}", func(r chi.Router) {
				r.Get("/rates", s.handleRateHistory)
				r.Post("/rates", s.handlePushRate)
			})
		})

		// Everything below acts on behalf of an account.
		r.Group(func(r chi.Router) {
			r.Use(s.requireAccount)

			r.Get("/accounts/me", s.handleGetAccount)
			r.Post("/link", s.handleRequestLink)

			r.Route("/portfolios", func(r chi.Router) {
				r.Get("/", s.handleListPortfolios)
				r.Post("/", s.handleCreatePortfolio)
				r.Route("/{portfolioID}", func(r chi.Router) {
					r.Get("/", s.handleGetPortfolio)
					r.Delete("/", s.handleDeletePortfolio)
					r.Put("/threshold", s.handleUpdateThreshold)
					r.Get("/value", s.handlePortfolioValue)
					r.Get("/holdings", s.handleListHoldings)
					r.Post("/buy", s.handleBuy)
					r.Post("/sell", s.handleSell)
					r.Get("/operations", s.handleListOperations)
					r.Get("/watches", s.handleListWatches)
					r.Post("/watches", s.handleCreateWatch)
				})
			})

			r.Delete("/watches/{watchID}", s.handleDeleteWatch)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
