package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chaintally/chaintally/internal/model"
)

// GetSettings retrieves the settings singleton.
func (s *SQLiteStorage) GetSettings(ctx context.Context) (*model.Settings, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var settings model.Settings
	var method string
	var dust sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT cost_basis_method, tax_year, dust_threshold_usd, hide_dust, hide_spam
		FROM settings WHERE id = 1`,
	).Scan(&method, &settings.TaxYear, &dust, &settings.HideDust, &settings.HideSpam)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	settings.CostBasisMethod = model.CostBasisMethod(method)
	settings.DustThresholdUsd = scanDecimal(dust)

	return &settings, nil
}

// SaveSettings rewrites the settings singleton.
func (s *SQLiteStorage) SaveSettings(ctx context.Context, settings *model.Settings) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSettings(settings); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE settings
		SET cost_basis_method = ?, tax_year = ?, dust_threshold_usd = ?,
			hide_dust = ?, hide_spam = ?
		WHERE id = 1`,
		string(settings.CostBasisMethod), settings.TaxYear,
		decimalString(settings.DustThresholdUsd),
		settings.HideDust, settings.HideSpam,
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	return nil
}
