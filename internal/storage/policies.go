package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/common"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

const policyColumns = `id, name, risk_review_threshold, draft_order_threshold, auto_order_threshold,
	max_auto_actions_per_day, is_active, created_by, created_at`

// CreatePolicy validates and stores a new policy. Policies are created
// inactive unless Active is set, in which case every other policy is
// deactivated in the same transaction.
func (s *SQLiteStorage) CreatePolicy(ctx context.Context, policy *model.Policy) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePolicy(policy); err != nil {
		return err
	}
	if policy.CreatedAt.IsZero() {
		policy.CreatedAt = time.Now().UTC()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if policy.Active {
			if _, err := tx.ExecContext(ctx, `UPDATE policies SET is_active = 0 WHERE is_active = 1`); err != nil {
				return fmt.Errorf("failed to deactivate policies: %w", err)
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO policies (`+policyColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			policy.ID,
			policy.Name,
			policy.ReviewThreshold,
			policy.DraftThreshold,
			policy.AutoThreshold,
			policy.MaxAutoActionsPerDay,
			policy.Active,
			policy.CreatedBy,
			policy.CreatedAt,
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("policy %q: %w", policy.Name, common.ErrDuplicateEntry)
			}
			return fmt.Errorf("failed to create policy: %w", err)
		}
		return nil
	})
}

// GetPolicy returns a policy by ID or name.
func (s *SQLiteStorage) GetPolicy(ctx context.Context, idOrName string) (*model.Policy, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(idOrName, "idOrName"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+policyColumns+` FROM policies WHERE id = ? OR name = ? LIMIT 1
	`, idOrName, idOrName)
	p, err := scanPolicy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("policy %s: %w", idOrName, common.ErrNotFound)
	}
	return p, err
}

// ListPolicies returns every policy, newest first.
func (s *SQLiteStorage) ListPolicies(ctx context.Context) ([]model.Policy, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+policyColumns+` FROM policies ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var policies []model.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate policies: %w", err)
	}
	return policies, nil
}

// ActivatePolicy makes one policy the active one. The stored policy is
// re-validated, and the switch happens in a single transaction so at most
// one policy is ever active.
func (s *SQLiteStorage) ActivatePolicy(ctx context.Context, idOrName string) (*model.Policy, error) {
	policy, err := s.GetPolicy(ctx, idOrName)
	if err != nil {
		return nil, err
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE policies SET is_active = 0 WHERE is_active = 1`); err != nil {
			return fmt.Errorf("failed to deactivate policies: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE policies SET is_active = 1 WHERE id = ?`, policy.ID); err != nil {
			return fmt.Errorf("failed to activate policy: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	policy.Active = true
	return policy, nil
}

// GetActivePolicy returns the active policy or common.ErrNotFound.
func (s *SQLiteStorage) GetActivePolicy(ctx context.Context) (*model.Policy, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+policyColumns+` FROM policies WHERE is_active = 1 LIMIT 1`)
	p, err := scanPolicy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active policy: %w", common.ErrNotFound)
	}
	return p, err
}

func scanPolicy(row rowScanner) (*model.Policy, error) {
	var p model.Policy
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.ReviewThreshold,
		&p.DraftThreshold,
		&p.AutoThreshold,
		&p.MaxAutoActionsPerDay,
		&p.Active,
		&p.CreatedBy,
		&p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan policy: %w", err)
	}
	return &p, nil
}
