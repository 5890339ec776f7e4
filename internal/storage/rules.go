package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chaintally/chaintally/internal/common"
	"github.com/chaintally/chaintally/internal/model"
)

const ruleColumns = `
	id, COALESCE(contract_address, ''), COALESCE(method_name, ''),
	COALESCE(token_symbol, ''), COALESCE(chain, ''),
	classification, priority, is_active, created_at, updated_at`

// CreateRule creates a new classification rule.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.ClassificationRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO classification_rules (
			contract_address, method_name, token_symbol, chain,
			classification, priority, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rule.ContractAddress, rule.MethodName, rule.TokenSymbol, rule.Chain,
		string(rule.Classification), rule.Priority, rule.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rule ID: %w", err)
	}
	rule.ID = id
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = rule.CreatedAt

	return nil
}

// GetRule retrieves a rule by ID.
func (s *SQLiteStorage) GetRule(ctx context.Context, id int64) (*model.ClassificationRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM classification_rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: rule %d", common.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

// GetActiveRules retrieves all active rules ordered by descending
// priority, ties broken by creation order.
func (s *SQLiteStorage) GetActiveRules(ctx context.Context) ([]model.ClassificationRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM classification_rules
		 WHERE is_active = 1 ORDER BY priority DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get active rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.ClassificationRule
	for rows.Next() {
		rule, scanErr := scanRule(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", scanErr)
		}
		rules = append(rules, *rule)
	}

	return rules, rows.Err()
}

// UpdateRule rewrites an existing rule.
func (s *SQLiteStorage) UpdateRule(ctx context.Context, rule *model.ClassificationRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE classification_rules
		SET contract_address = ?, method_name = ?, token_symbol = ?, chain = ?,
			classification = ?, priority = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		rule.ContractAddress, rule.MethodName, rule.TokenSymbol, rule.Chain,
		string(rule.Classification), rule.Priority, rule.IsActive, rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: rule %d", common.ErrNotFound, rule.ID)
	}

	return nil
}

// DeleteRule removes a rule.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM classification_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: rule %d", common.ErrNotFound, id)
	}

	return nil
}

func scanRule(row scanner) (*model.ClassificationRule, error) {
	var rule model.ClassificationRule
	var class string

	err := row.Scan(
		&rule.ID, &rule.ContractAddress, &rule.MethodName,
		&rule.TokenSymbol, &rule.Chain,
		&class, &rule.Priority, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Classification = model.Classification(class)
	return &rule, nil
}
