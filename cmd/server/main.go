package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vytor/wordflash/internal/api"
	"github.com/vytor/wordflash/internal/config"
	"github.com/vytor/wordflash/internal/db"
	"github.com/vytor/wordflash/internal/flashcard"
	"github.com/vytor/wordflash/internal/jobs"
	"github.com/vytor/wordflash/internal/logger"
	"github.com/vytor/wordflash/internal/repository/sqlite"
	"github.com/vytor/wordflash/internal/services"
	"github.com/vytor/wordflash/internal/worker"
)

const sweepInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration: %v", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration: %v", err)
		os.Exit(1)
	}

	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	log.Info("wordflash server starting")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("scheduler_mode=%s", cfg.SchedulerMode)
	log.Debug("lapse_policy=%s", cfg.LapsePolicy)
	log.Debug("new_card_limit=%d", cfg.NewCardLimit)
	log.Debug("learning_steps=%d relearning_steps=%d", cfg.LearningSteps, cfg.RelearningSteps)
	log.Debug("persist_worker_count=%d persist_queue_size=%d", cfg.PersistWorkerCount, cfg.PersistQueueSize)
	log.Debug("session_ttl_minutes=%d", cfg.SessionTTLMinutes)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	clock := flashcard.SystemClock
	studyOpts, err := services.StudyOptionsFromConfig(cfg, clock)
	if err != nil {
		log.Error("invalid study options: %v", err)
		os.Exit(1)
	}

	repo := sqlite.NewCardRepository(database.DB)
	persistPool := worker.NewPool(cfg.PersistWorkerCount, cfg.PersistQueueSize)
	queue := jobs.NewWorkerQueue(persistPool, repo)

	studyService := services.NewStudyService(repo, queue, studyOpts)
	srv := &api.Server{
		CardService:  services.NewCardService(repo, clock, cfg.NewCardLimit),
		StudyService: studyService,
		StatsService: services.NewStatsService(repo, clock),
		DB:           database,
		CORSOrigins:  cfg.CORSOrigins,
	}

	ctx, cancel := context.WithCancel(context.Background())
	persistPool.Start(ctx)
	go sweepSessions(ctx, studyService, clock)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	studyService.Close(shutdownCtx)

	// Queued card writes still run after cancel; Stop waits for them.
	cancel()
	log.Debug("stopping persist pool")
	persistPool.Stop()

	log.Info("wordflash server stopped")
}

func sweepSessions(ctx context.Context, study services.StudyService, clock flashcard.Clock) {
	log := logger.Default().WithPrefix("sweeper")
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := study.Sweep(clock.Now()); n > 0 {
				log.Info("expired %d idle study sessions", n)
			}
		}
	}
}
