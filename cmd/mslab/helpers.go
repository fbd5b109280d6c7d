package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/config"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/engine"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/screening"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/service"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/storage"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/telemetry"
)

// databasePath returns the configured database path with ~ and env vars expanded.
func databasePath() string {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		return config.DefaultDatabasePath()
	}
	return config.ExpandPath(dbPath)
}

// initStorage opens the database and brings its schema up to date.
func initStorage(ctx context.Context) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(databasePath())
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initEngine builds a screening engine from configuration. The returned
// recorder is nil when telemetry.textfile is unset.
func initEngine(store service.Storage) (*engine.ScreeningEngine, *telemetry.Recorder, error) {
	weights, err := config.LoadScoringWeights(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	scorer, err := screening.NewScorer(weights)
	if err != nil {
		return nil, nil, err
	}

	var recorder *telemetry.Recorder
	var runRecorder service.RunRecorder
	if viper.GetString("telemetry.textfile") != "" {
		recorder = telemetry.NewRecorder()
		runRecorder = recorder
	}

	cfg := engine.Config{
		Workers:      viper.GetInt("screening.workers"),
		PatientLimit: viper.GetInt("screening.patient_limit"),
	}
	return engine.NewWithConfig(store, scorer, runRecorder, cfg), recorder, nil
}
