package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/examplify/examplify-backend/internal/codegen"
	"github.com/examplify/examplify-backend/internal/config"
	"github.com/examplify/examplify-backend/internal/database"
	"github.com/examplify/examplify-backend/internal/handler"
	"github.com/examplify/examplify-backend/internal/logger"
	"github.com/examplify/examplify-backend/internal/repository"
	"github.com/examplify/examplify-backend/internal/router"
	"github.com/examplify/examplify-backend/internal/scheduler"
	"github.com/examplify/examplify-backend/internal/service"
	"github.com/examplify/examplify-backend/internal/validator"
	"github.com/examplify/examplify-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Examplify Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	poolRepo := repository.NewPoolRepository(pool)
	regRepo := repository.NewRegistrationRepository(pool)

	// ─── Initialize Scheduler ──────────────────────────────────────────
	sched := scheduler.New(examRepo, cfg, log)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(userRepo, cfg)
	poolService := service.NewPoolService(poolRepo, log)
	examService := service.NewExamService(examRepo, poolService, codegen.New(cfg.CodeLength), sched, cfg, log)
	regService := service.NewRegistrationService(regRepo, examRepo, poolRepo, poolService, rdb, log)
	resultService := service.NewResultService(regRepo, examRepo, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		Exam:    handler.NewExamHandler(examService),
		Pool:    handler.NewPoolHandler(poolService),
		Taker:   handler.NewTakerHandler(regService, examService, resultService),
		Result:  handler.NewResultHandler(resultService),
		Monitor: handler.NewMonitorHandler(rdb, examService, log, cfg.AllowedOrigins),
	}

	// ─── Reconcile Lifecycle Triggers ─────────────────────────────────
	// Apply any open/close transitions missed while down and rearm timers
	// BEFORE accepting traffic, so no exam serves from a stale status.
	if err := sched.ReconcileOnStartup(ctx); err != nil {
		log.Fatal().Err(err).Msg("Lifecycle reconciliation failed")
	}
	defer sched.Stop()

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	progressWorker := worker.NewProgressWorker(pool, rdb, log)
	go progressWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
