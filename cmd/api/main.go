package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/joshuahuffman02/Camp-Everyday/internal/alerts"
	"github.com/joshuahuffman02/Camp-Everyday/internal/auth"
	"github.com/joshuahuffman02/Camp-Everyday/internal/config"
	"github.com/joshuahuffman02/Camp-Everyday/internal/gateway"
	"github.com/joshuahuffman02/Camp-Everyday/internal/gateway/stripeclient"
	"github.com/joshuahuffman02/Camp-Everyday/internal/handlers"
	"github.com/joshuahuffman02/Camp-Everyday/internal/jobs"
	"github.com/joshuahuffman02/Camp-Everyday/internal/ledger"
	"github.com/joshuahuffman02/Camp-Everyday/internal/payments"
	"github.com/joshuahuffman02/Camp-Everyday/internal/reconciliation"
	"github.com/joshuahuffman02/Camp-Everyday/internal/repository"
	"github.com/joshuahuffman02/Camp-Everyday/internal/router"
	"github.com/joshuahuffman02/Camp-Everyday/internal/schema"
	"github.com/joshuahuffman02/Camp-Everyday/internal/webhook"
)

func main() {
	memory := flag.Bool("memory", false, "run without Postgres: in-memory stores, inline reconciliation, fake gateway unless STRIPE_SECRET_KEY is set")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if !*memory {
		if err := cfg.RequireServerSecrets(); err != nil {
			slog.Error("Missing secrets (use -memory for local development)", "error", err)
			os.Exit(1)
		}
	} else if cfg.JWTSecret == "" {
		// Tokens from one run are useless to the next.
		cfg.JWTSecret = uuid.NewString()
		slog.Warn("JWT_SECRET not set; using an ephemeral secret")
	}
	if cfg.StripeWebhookSecret == "" {
		slog.Warn("STRIPE_WEBHOOK_SECRET not set; webhooks will be rejected")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	validator, err := schema.NewValidator()
	if err != nil {
		slog.Error("Schema validator init failed", "error", err)
		os.Exit(1)
	}

	// Gateway
	var gw gateway.Client
	if cfg.StripeSecretKey != "" {
		gw = stripeclient.New(cfg.StripeSecretKey, stripeclient.Options{Logger: logger})
	} else {
		slog.Warn("STRIPE_SECRET_KEY not set; using the in-memory fake gateway")
		gw = gateway.NewFakeClient()
	}

	var (
		entries     ledger.Store
		entryReader ledger.Reader
		windows     reconciliation.EntryReader
		payoutStore reconciliation.PayoutStore
		health      handlers.Pinger
		pool        *pgxpool.Pool
	)
	var (
		insertMu sync.Mutex
		insertFn jobs.InsertFunc
	)

	if *memory {
		mem := ledger.NewMemoryStore()
		entries, entryReader, windows = mem, mem, mem
		payoutStore = reconciliation.NewMemoryPayoutStore()
		slog.Info("Running with in-memory stores")
	} else {
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("Unable to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running or start with -memory", "error", err)
			os.Exit(1)
		}
		slog.Info("Connected to PostgreSQL database successfully!")

		migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
		if err != nil {
			slog.Error("Failed to create River migrator", "error", err)
			os.Exit(1)
		}
		if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
			slog.Error("River migrate up failed", "error", err)
			os.Exit(1)
		}
		if err := repository.Migrate(ctx, pool); err != nil {
			slog.Error("Schema migration failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Migrations applied")

		ledgerRepo := repository.NewLedgerRepo(pool)
		entries, entryReader, windows = ledgerRepo, ledgerRepo, ledgerRepo
		payoutStore = repository.NewPayoutRepo(pool)
		health = repository.NewHealthChecker(pool)
	}

	// Core services
	ledgerSvc := ledger.NewService(entries, logger)
	reconcileSvc := reconciliation.NewService(
		reconciliation.NewReconciler(gw, logger),
		payoutStore,
		ledgerSvc,
		windows,
		alerts.New(cfg.AlertWebhookURL, logger),
		cfg.Thresholds,
		logger,
	)
	paymentSvc := payments.NewService(gw, ledgerSvc, cfg.Fees, logger)
	authSvc := auth.NewService(cfg.JWTSecret, auth.Operator{Email: cfg.OperatorEmail, PasswordHash: cfg.OperatorPasswordHash}, auth.DefaultTokenTTL)

	var enqueuer webhook.Enqueuer
	if *memory {
		enqueuer = jobs.NewInlineEnqueuer(reconcileSvc, logger)
	} else {
		// insertFn is set once the River client exists (breaks init cycle).
		enqueuer = jobs.NewEnqueuer(func(ctx context.Context, args jobs.ReconcilePayoutArgs) (bool, error) {
			insertMu.Lock()
			fn := insertFn
			insertMu.Unlock()
			if fn == nil {
				return false, errors.New("river insert not wired")
			}
			return fn(ctx, args)
		}, logger)
	}

	apiRouter := router.New(router.Handlers{
		Auth: auth.NewHandler(authSvc, logger),
		Jobs: jobs.NewHandler(enqueuer, logger),
		Webhooks: &handlers.WebhookHandler{
			Verifier:  webhook.NewVerifier(cfg.StripeWebhookSecret, webhook.DefaultTolerance, nil),
			Validator: validator,
			Processor: webhook.NewProcessor(ledgerSvc, enqueuer, logger),
			Logger:    logger,
		},
		Fees:     &handlers.FeeHandler{Defaults: cfg.Fees, Validator: validator, Logger: logger},
		Payments: &handlers.PaymentHandler{Payments: paymentSvc, Validator: validator, Logger: logger},
		Reports:  &handlers.ReportHandler{Summaries: reconcileSvc, Entries: entryReader, Logger: logger},
		Health:   &handlers.HealthHandler{DB: health, Logger: logger},
		Tokens:   authSvc,
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
	}).Handler(apiRouter)

	if pool != nil {
		stopRiver, err := startRiver(ctx, pool, cfg.ReconcileWorkers, reconcileSvc, logger, func(fn jobs.InsertFunc) {
			insertMu.Lock()
			insertFn = fn
			insertMu.Unlock()
		})
		if err != nil {
			slog.Error("Failed to create River client", "error", err)
			os.Exit(1)
		}
		defer stopRiver()
	}

	serverAddr := "0.0.0.0:" + cfg.Port
	srv := &http.Server{
		Addr:              serverAddr,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP shutdown failed", "error", err)
		}
	}()

	slog.Info("Starting HTTP server", "addr", serverAddr, "memory", *memory)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("HTTP server stopped")
}
