package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/common"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

const patientColumns = `id, age, sex, visits_last_year, symptoms, extended, has_mri, mri_lesions,
	note_has_ms_terms, lookalike_dx, clinical_note, true_at_risk`

// SavePatients inserts or replaces patient records in one transaction.
func (s *SQLiteStorage) SavePatients(ctx context.Context, patients []model.PatientRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePatients(patients); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO patients (`+patientColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				age = excluded.age,
				sex = excluded.sex,
				visits_last_year = excluded.visits_last_year,
				symptoms = excluded.symptoms,
				extended = excluded.extended,
				has_mri = excluded.has_mri,
				mri_lesions = excluded.mri_lesions,
				note_has_ms_terms = excluded.note_has_ms_terms,
				lookalike_dx = excluded.lookalike_dx,
				clinical_note = excluded.clinical_note,
				true_at_risk = excluded.true_at_risk
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i := range patients {
			p := &patients[i]
			symptoms, err := json.Marshal(p.Symptoms)
			if err != nil {
				return fmt.Errorf("failed to encode symptoms for %s: %w", p.ID, err)
			}
			extended, err := json.Marshal(p.Extended)
			if err != nil {
				return fmt.Errorf("failed to encode markers for %s: %w", p.ID, err)
			}
			lookalike := p.Lookalike
			if lookalike == "" {
				lookalike = model.LookalikeNone
			}

			if _, err := stmt.ExecContext(ctx,
				p.ID,
				p.Age,
				string(p.Sex),
				p.VisitCount,
				string(symptoms),
				string(extended),
				p.HasImaging,
				p.LesionsPresent,
				p.NoteHasMSTerms,
				string(lookalike),
				p.Note,
				p.AtRisk,
			); err != nil {
				return fmt.Errorf("failed to save patient %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

// GetPatients returns patients ordered by ID. A limit of zero or less
// returns every patient.
func (s *SQLiteStorage) GetPatients(ctx context.Context, limit int) ([]model.PatientRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + patientColumns + ` FROM patients ORDER BY id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patients []model.PatientRecord
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate patients: %w", err)
	}
	return patients, nil
}

// GetPatient returns one patient or common.ErrNotFound.
func (s *SQLiteStorage) GetPatient(ctx context.Context, id string) (*model.PatientRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = ?`, id)
	p, err := scanPatient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("patient %s: %w", id, common.ErrNotFound)
	}
	return p, err
}

// CountPatients returns the number of stored patients.
func (s *SQLiteStorage) CountPatients(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patients`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count patients: %w", err)
	}
	return n, nil
}

// GetGroundTruth returns the at-risk label for each requested patient that
// exists. An empty ids slice returns every label.
func (s *SQLiteStorage) GetGroundTruth(ctx context.Context, ids []string) (map[string]bool, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	truth := make(map[string]bool, len(ids))
	// SQLite caps bound parameters per statement; query in chunks.
	const chunk = 500
	if len(ids) == 0 {
		return truth, s.loadTruth(ctx, `SELECT id, true_at_risk FROM patients`, nil, truth)
	}
	for start := 0; start < len(ids); start += chunk {
		end := min(start+chunk, len(ids))
		part := ids[start:end]
		args := make([]any, len(part))
		for i, id := range part {
			args[i] = id
		}
		query := `SELECT id, true_at_risk FROM patients WHERE id IN (` +
			strings.TrimSuffix(strings.Repeat("?,", len(part)), ",") + `)`
		if err := s.loadTruth(ctx, query, args, truth); err != nil {
			return nil, err
		}
	}
	return truth, nil
}

func (s *SQLiteStorage) loadTruth(ctx context.Context, query string, args []any, into map[string]bool) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query ground truth: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id string
		var label bool
		if err := rows.Scan(&id, &label); err != nil {
			return fmt.Errorf("failed to scan ground truth: %w", err)
		}
		into[id] = label
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (*model.PatientRecord, error) {
	var (
		p         model.PatientRecord
		sex       string
		lookalike string
		symptoms  string
		extended  string
	)
	err := row.Scan(
		&p.ID,
		&p.Age,
		&sex,
		&p.VisitCount,
		&symptoms,
		&extended,
		&p.HasImaging,
		&p.LesionsPresent,
		&p.NoteHasMSTerms,
		&lookalike,
		&p.Note,
		&p.AtRisk,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan patient: %w", err)
	}

	p.Sex = model.Sex(sex)
	p.Lookalike = model.Lookalike(lookalike)
	if err := json.Unmarshal([]byte(symptoms), &p.Symptoms); err != nil {
		return nil, fmt.Errorf("failed to decode symptoms for %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(extended), &p.Extended); err != nil {
		return nil, fmt.Errorf("failed to decode markers for %s: %w", p.ID, err)
	}
	return &p, nil
}
