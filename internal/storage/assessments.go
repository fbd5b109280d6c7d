package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

// SaveAssessments inserts assessments for an existing run. Stored
// assessments are never updated; a second insert for the same run and
// patient fails.
func (s *SQLiteStorage) SaveAssessments(ctx context.Context, assessments []model.RiskAssessment) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(assessments) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.saveAssessmentsTx(ctx, tx, assessments)
	})
}

func (s *SQLiteStorage) saveAssessmentsTx(ctx context.Context, tx *sql.Tx, assessments []model.RiskAssessment) error {
	if len(assessments) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO assessments (
			run_id, patient_id, model_version, risk_score, base_action, action,
			autonomy_level, feature_contributions, notes_analysis, subject, flags,
			flag_count, rationale, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range assessments {
		a := &assessments[i]
		enc, err := encodeAssessment(a)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			a.RunID,
			a.PatientID,
			a.ModelVersion,
			a.RiskScore,
			string(a.BaseAction),
			string(a.Action),
			int(a.Autonomy),
			enc.contributions,
			enc.notes,
			enc.subject,
			enc.flags,
			len(a.Flags),
			enc.rationale,
			a.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to save assessment for %s: %w", a.PatientID, err)
		}
	}
	return nil
}

// GetAssessmentsByRun returns a run's assessments ordered by patient ID.
func (s *SQLiteStorage) GetAssessmentsByRun(ctx context.Context, runID string) ([]model.RiskAssessment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, patient_id, model_version, risk_score, base_action, action,
			autonomy_level, feature_contributions, notes_analysis, subject, flags,
			rationale, created_at
		FROM assessments
		WHERE run_id = ?
		ORDER BY patient_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assessments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	assessments := []model.RiskAssessment{}
	for rows.Next() {
		var (
			a                             model.RiskAssessment
			baseAction, action            string
			autonomy                      int
			contributions, notes, subject string
			flags, rationale              string
		)
		if err := rows.Scan(
			&a.RunID,
			&a.PatientID,
			&a.ModelVersion,
			&a.RiskScore,
			&baseAction,
			&action,
			&autonomy,
			&contributions,
			&notes,
			&subject,
			&flags,
			&rationale,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}

		a.BaseAction = model.Action(baseAction)
		a.Action = model.Action(action)
		a.Autonomy = model.AutonomyLevel(autonomy)
		decoders := []struct {
			field string
			raw   string
			into  any
		}{
			{"feature_contributions", contributions, &a.Contributions},
			{"notes_analysis", notes, &a.Notes},
			{"subject", subject, &a.Subject},
			{"flags", flags, &a.Flags},
			{"rationale", rationale, &a.Rationale},
		}
		for _, d := range decoders {
			if err := json.Unmarshal([]byte(d.raw), d.into); err != nil {
				return nil, fmt.Errorf("failed to decode %s for %s: %w", d.field, a.PatientID, err)
			}
		}
		assessments = append(assessments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assessments: %w", err)
	}
	return assessments, nil
}

type encodedAssessment struct {
	contributions string
	notes         string
	subject       string
	flags         string
	rationale     string
}

func encodeAssessment(a *model.RiskAssessment) (encodedAssessment, error) {
	var out encodedAssessment
	fields := []struct {
		name  string
		value any
		dst   *string
	}{
		{"feature_contributions", a.Contributions, &out.contributions},
		{"notes_analysis", a.Notes, &out.notes},
		{"subject", a.Subject, &out.subject},
		{"flags", nonNilFlags(a.Flags), &out.flags},
		{"rationale", a.Rationale, &out.rationale},
	}
	for _, f := range fields {
		b, err := json.Marshal(f.value)
		if err != nil {
			return out, fmt.Errorf("failed to encode %s for %s: %w", f.name, a.PatientID, err)
		}
		*f.dst = string(b)
	}
	return out, nil
}

func nonNilFlags(flags []model.SafetyFlag) []model.SafetyFlag {
	if flags == nil {
		return []model.SafetyFlag{}
	}
	return flags
}
