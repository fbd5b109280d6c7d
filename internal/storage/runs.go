package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/common"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

const runColumns = `id, status, policy_snapshot, policy_hash, total_patients, candidates_found,
	flagged_count, no_actions, recommend_actions, draft_actions, auto_actions,
	precision, recall, f1_score, safety_flag_rate, gate_counts, error_message,
	duration_ms, created_at, started_at, completed_at`

// SaveRun inserts a new run record.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.RunResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	snapshot, err := json.Marshal(run.Policy)
	if err != nil {
		return fmt.Errorf("failed to encode policy snapshot: %w", err)
	}
	gates, err := json.Marshal(run.Gates)
	if err != nil {
		return fmt.Errorf("failed to encode gate counts: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`, policy_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		string(run.Status),
		string(snapshot),
		run.PolicyHash,
		run.TotalPatients,
		run.CandidatesFound,
		run.FlaggedCount,
		run.Actions.NoAction,
		run.Actions.RecommendReview,
		run.Actions.DraftOrder,
		run.Actions.AutoOrder,
		nullFloat(run.Precision),
		nullFloat(run.Recall),
		nullFloat(run.F1),
		nullFloat(run.SafetyFlagRate),
		string(gates),
		run.ErrorMessage,
		run.Duration.Milliseconds(),
		run.CreatedAt,
		nullTime(run.StartedAt),
		nullTime(run.CompletedAt),
		run.Policy.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// UpdateRun rewrites the mutable fields of a run: status, counts, metrics,
// timing and error message.
func (s *SQLiteStorage) UpdateRun(ctx context.Context, run *model.RunResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}
	return s.updateRunTx(ctx, s.db, run)
}

func (s *SQLiteStorage) updateRunTx(ctx context.Context, q queryable, run *model.RunResult) error {
	gates, err := json.Marshal(run.Gates)
	if err != nil {
		return fmt.Errorf("failed to encode gate counts: %w", err)
	}

	res, err := q.ExecContext(ctx, `
		UPDATE runs SET
			status = ?,
			total_patients = ?,
			candidates_found = ?,
			flagged_count = ?,
			no_actions = ?,
			recommend_actions = ?,
			draft_actions = ?,
			auto_actions = ?,
			precision = ?,
			recall = ?,
			f1_score = ?,
			safety_flag_rate = ?,
			gate_counts = ?,
			error_message = ?,
			duration_ms = ?,
			started_at = ?,
			completed_at = ?
		WHERE id = ?
	`,
		string(run.Status),
		run.TotalPatients,
		run.CandidatesFound,
		run.FlaggedCount,
		run.Actions.NoAction,
		run.Actions.RecommendReview,
		run.Actions.DraftOrder,
		run.Actions.AutoOrder,
		nullFloat(run.Precision),
		nullFloat(run.Recall),
		nullFloat(run.F1),
		nullFloat(run.SafetyFlagRate),
		string(gates),
		run.ErrorMessage,
		run.Duration.Milliseconds(),
		nullTime(run.StartedAt),
		nullTime(run.CompletedAt),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", run.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", run.ID, common.ErrNotFound)
	}
	return nil
}

// FinishRun stores a run's final state together with its assessments and
// item failures in one transaction.
func (s *SQLiteStorage) FinishRun(ctx context.Context, run *model.RunResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.updateRunTx(ctx, tx, run); err != nil {
			return err
		}
		if err := s.saveAssessmentsTx(ctx, tx, run.Assessments); err != nil {
			return err
		}
		for _, f := range run.Failures {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO run_failures (run_id, patient_id, reason) VALUES (?, ?, ?)
			`, run.ID, f.PatientID, f.Reason); err != nil {
				return fmt.Errorf("failed to save failure for %s: %w", f.PatientID, err)
			}
		}
		return nil
	})
}

// GetRun returns a run with its item failures. Assessments are loaded
// separately through GetAssessmentsByRun.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*model.RunResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	failures, err := s.getRunFailures(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Failures = failures
	return run, nil
}

// ListRuns returns runs newest first. A limit of zero or less returns all.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]model.RunResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.RunResult
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

func (s *SQLiteStorage) getRunFailures(ctx context.Context, runID string) ([]model.ItemFailure, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT patient_id, reason FROM run_failures WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run failures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	failures := []model.ItemFailure{}
	for rows.Next() {
		var f model.ItemFailure
		if err := rows.Scan(&f.PatientID, &f.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan run failure: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

func scanRun(row rowScanner) (*model.RunResult, error) {
	var (
		run                             model.RunResult
		status, snapshot, gates         string
		precision, recall, f1, flagRate sql.NullFloat64
		durationMS                      int64
		startedAt, completedAt          sql.NullTime
	)
	err := row.Scan(
		&run.ID,
		&status,
		&snapshot,
		&run.PolicyHash,
		&run.TotalPatients,
		&run.CandidatesFound,
		&run.FlaggedCount,
		&run.Actions.NoAction,
		&run.Actions.RecommendReview,
		&run.Actions.DraftOrder,
		&run.Actions.AutoOrder,
		&precision,
		&recall,
		&f1,
		&flagRate,
		&gates,
		&run.ErrorMessage,
		&durationMS,
		&run.CreatedAt,
		&startedAt,
		&completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Status = model.RunStatus(status)
	if err := json.Unmarshal([]byte(snapshot), &run.Policy); err != nil {
		return nil, fmt.Errorf("failed to decode policy snapshot for run %s: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(gates), &run.Gates); err != nil {
		return nil, fmt.Errorf("failed to decode gate counts for run %s: %w", run.ID, err)
	}
	run.Precision = floatPtr(precision)
	run.Recall = floatPtr(recall)
	run.F1 = floatPtr(f1)
	run.SafetyFlagRate = floatPtr(flagRate)
	run.Duration = time.Duration(durationMS) * time.Millisecond
	run.StartedAt = timePtr(startedAt)
	run.CompletedAt = timePtr(completedAt)
	return &run, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
