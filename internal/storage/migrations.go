package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: patients and policies",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS patients (
					id TEXT PRIMARY KEY,
					age INTEGER NOT NULL,
					sex TEXT NOT NULL,
					visits_last_year INTEGER NOT NULL DEFAULT 0,
					symptoms TEXT NOT NULL,
					extended TEXT NOT NULL DEFAULT '{}',
					has_mri INTEGER NOT NULL DEFAULT 0,
					mri_lesions INTEGER NOT NULL DEFAULT 0,
					note_has_ms_terms INTEGER NOT NULL DEFAULT 0,
					lookalike_dx TEXT NOT NULL DEFAULT 'none',
					clinical_note TEXT NOT NULL DEFAULT '',
					true_at_risk INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS policies (
					id TEXT PRIMARY KEY,
					name TEXT UNIQUE NOT NULL,
					risk_review_threshold REAL NOT NULL,
					draft_order_threshold REAL NOT NULL,
					auto_order_threshold REAL NOT NULL,
					max_auto_actions_per_day INTEGER NOT NULL,
					is_active INTEGER NOT NULL DEFAULT 0,
					created_by TEXT NOT NULL DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add screening runs, assessments and failures",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS runs (
					id TEXT PRIMARY KEY,
					status TEXT NOT NULL,
					policy_id TEXT,
					policy_snapshot TEXT NOT NULL,
					policy_hash TEXT NOT NULL DEFAULT '',
					total_patients INTEGER NOT NULL DEFAULT 0,
					candidates_found INTEGER NOT NULL DEFAULT 0,
					flagged_count INTEGER NOT NULL DEFAULT 0,
					no_actions INTEGER NOT NULL DEFAULT 0,
					recommend_actions INTEGER NOT NULL DEFAULT 0,
					draft_actions INTEGER NOT NULL DEFAULT 0,
					auto_actions INTEGER NOT NULL DEFAULT 0,
					precision REAL,
					recall REAL,
					f1_score REAL,
					safety_flag_rate REAL,
					gate_counts TEXT NOT NULL DEFAULT '{}',
					error_message TEXT NOT NULL DEFAULT '',
					duration_ms INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL,
					started_at DATETIME,
					completed_at DATETIME
				)`,

				`CREATE TABLE IF NOT EXISTS assessments (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					run_id TEXT NOT NULL,
					patient_id TEXT NOT NULL,
					model_version TEXT NOT NULL,
					risk_score REAL NOT NULL,
					base_action TEXT NOT NULL,
					action TEXT NOT NULL,
					autonomy_level INTEGER NOT NULL,
					feature_contributions TEXT NOT NULL,
					notes_analysis TEXT NOT NULL,
					subject TEXT NOT NULL,
					flags TEXT NOT NULL,
					flag_count INTEGER NOT NULL DEFAULT 0,
					rationale TEXT NOT NULL,
					created_at DATETIME NOT NULL,
					UNIQUE(run_id, patient_id),
					FOREIGN KEY (run_id) REFERENCES runs(id)
				)`,

				`CREATE TABLE IF NOT EXISTS run_failures (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					run_id TEXT NOT NULL,
					patient_id TEXT NOT NULL,
					reason TEXT NOT NULL,
					FOREIGN KEY (run_id) REFERENCES runs(id)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add lookup indexes",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE INDEX IF NOT EXISTS idx_assessments_run ON assessments(run_id)`,
				`CREATE INDEX IF NOT EXISTS idx_assessments_action ON assessments(action)`,
				`CREATE INDEX IF NOT EXISTS idx_run_failures_run ON run_failures(run_id)`,
				`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_policies_active ON policies(is_active)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion reports the database's current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return v, nil
}
