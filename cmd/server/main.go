// Package main is the entry point for the demand forecasting service.
// It loads daily sales from the shop database, fetches external demand
// signals from analytics, trains per-product forecast models in both base
// and signal-augmented variants, and serves results over HTTP.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/eshopdash/forecaster/internal/config"
	"github.com/eshopdash/forecaster/internal/database"
	"github.com/eshopdash/forecaster/internal/modules/sales"
	"github.com/eshopdash/forecaster/internal/modules/signals"
	"github.com/eshopdash/forecaster/internal/modules/training"
	"github.com/eshopdash/forecaster/internal/reliability"
	"github.com/eshopdash/forecaster/internal/scheduler"
	"github.com/eshopdash/forecaster/internal/server"
	"github.com/eshopdash/forecaster/pkg/logger"
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
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting forecaster")

	// Sales database holds the imported shop orders; results database is
	// rewritten by every training run.
	salesDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "sales.db"),
		Profile: database.ProfileStandard,
		Name:    "sales",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open sales database")
	}
	defer salesDB.Close()

	resultsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "results.db"),
		Profile: database.ProfileResults,
		Name:    "results",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open results database")
	}
	defer resultsDB.Close()

	if err := sales.InitSchema(salesDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize sales schema")
	}
	if err := training.InitSchema(resultsDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize results schema")
	}

	salesRepo := sales.NewRepository(salesDB.Conn(), log)
	store := training.NewStore(resultsDB.Conn(), log)

	// The signal source is optional; without analytics credentials every run
	// trains base models only.
	var signalSrc training.SignalSource
	if cfg.AnalyticsConfigured() {
		client, err := signals.NewAnalyticsClient(context.Background(), cfg.AnalyticsPropertyID, cfg.CredentialsPath(), log)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create analytics client, training base models only")
		} else {
			signalSrc = signals.NewFetcher(client, log)
			log.Info().Str("property_id", cfg.AnalyticsPropertyID).Msg("Analytics signal source configured")
		}
	} else {
		log.Info().Msg("Analytics not configured, training base models only")
	}

	orchestrator := training.NewOrchestrator(salesRepo, signalSrc, store, cfg.LookbackDays, log)

	// Restore the last persisted run so results survive restarts
	if last, err := store.LatestRun(); err == nil {
		orchestrator.RestoreResult(last)
		log.Info().Str("run_id", last.RunID.String()).Msg("Restored previous training results")
	} else if err != training.ErrNoRuns {
		log.Warn().Err(err).Msg("Failed to restore previous training results")
	}

	sched := scheduler.New(log)
	if cfg.RetrainSchedule != "" {
		if err := sched.AddJob(cfg.RetrainSchedule, scheduler.NewRetrainJob(orchestrator, log)); err != nil {
			log.Error().Err(err).Str("schedule", cfg.RetrainSchedule).Msg("Failed to register retrain job")
		}
	}
	if cfg.Archive.Enabled {
		s3Client, err := reliability.NewS3Client(context.Background(), cfg.Archive, log)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create archive client")
		} else {
			archiveService := reliability.NewArchiveService(s3Client, cfg.DataDir, log)
			job := reliability.NewArchiveJob(archiveService, []string{resultsDB.Path()}, log)
			if err := sched.AddJob("@daily", job); err != nil {
				log.Error().Err(err).Msg("Failed to register archive job")
			}
		}
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:          log,
		Cfg:          cfg,
		SalesDB:      salesDB,
		ResultsDB:    resultsDB,
		Orchestrator: orchestrator,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

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
