package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chaintally/chaintally/internal/common"
	"github.com/chaintally/chaintally/internal/model"
)

// CreateTaxLot records one acquisition event.
func (s *SQLiteStorage) CreateTaxLot(ctx context.Context, lot *model.TaxLot) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTaxLot(lot); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO tax_lots (
			wallet_id, transaction_id, token, symbol,
			amount, remaining_amount, cost_basis_usd, acquired_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		lot.WalletID, nullableID(lot.TransactionID), lot.Token, lot.Symbol,
		decimalString(lot.Amount), decimalString(lot.RemainingAmount),
		decimalString(lot.CostBasisUsd), lot.AcquiredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tax lot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get tax lot ID: %w", err)
	}
	lot.ID = id

	return nil
}

// GetTaxLots retrieves all lots for a wallet's token, oldest first,
// consumed and open alike.
func (s *SQLiteStorage) GetTaxLots(ctx context.Context, walletID int64, token string) ([]model.TaxLot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, wallet_id, COALESCE(transaction_id, 0), token, COALESCE(symbol, ''),
			amount, remaining_amount, cost_basis_usd, acquired_at
		FROM tax_lots
		WHERE wallet_id = ? AND token = ?
		ORDER BY acquired_at ASC, id ASC`,
		walletID, token,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tax lots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var lots []model.TaxLot
	for rows.Next() {
		var lot model.TaxLot
		var amount, remaining, basis sql.NullString
		if scanErr := rows.Scan(
			&lot.ID, &lot.WalletID, &lot.TransactionID, &lot.Token, &lot.Symbol,
			&amount, &remaining, &basis, &lot.AcquiredAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan tax lot: %w", scanErr)
		}
		lot.Amount = scanDecimal(amount)
		lot.RemainingAmount = scanDecimal(remaining)
		lot.CostBasisUsd = scanDecimal(basis)
		lots = append(lots, lot)
	}

	return lots, rows.Err()
}

// UpdateTaxLotRemaining decrements a lot's open inventory. The lot row
// itself is a permanent audit record and is never deleted, even at zero.
func (s *SQLiteStorage) UpdateTaxLotRemaining(ctx context.Context, id int64, remaining decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if remaining.IsNegative() {
		return fmt.Errorf("%w: remaining amount cannot be negative", ErrInvalidTaxLot)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE tax_lots SET remaining_amount = ? WHERE id = ?`,
		decimalString(remaining), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update tax lot: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: tax lot %d", common.ErrNotFound, id)
	}

	return nil
}

// CreateDisposal records one realized gain/loss event.
func (s *SQLiteStorage) CreateDisposal(ctx context.Context, disposal *model.Disposal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDisposal(disposal); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO disposals (
			wallet_id, tax_lot_id, token, symbol, amount,
			proceeds_usd, cost_basis_usd, gain_loss_usd,
			is_short_term, acquired_at, disposed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		disposal.WalletID, nullableID(disposal.TaxLotID), disposal.Token, disposal.Symbol,
		decimalString(disposal.Amount),
		decimalString(disposal.ProceedsUsd), decimalString(disposal.CostBasisUsd),
		decimalString(disposal.GainLossUsd),
		disposal.IsShortTerm, nullableTime(disposal.AcquiredAt), disposal.DisposedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create disposal: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get disposal ID: %w", err)
	}
	disposal.ID = id

	return nil
}

// GetDisposals retrieves all of a wallet's disposals, oldest first.
func (s *SQLiteStorage) GetDisposals(ctx context.Context, walletID int64) ([]model.Disposal, error) {
	return s.queryDisposals(ctx,
		`SELECT `+disposalColumns+` FROM disposals WHERE wallet_id = ? ORDER BY disposed_at ASC, id ASC`,
		walletID)
}

// GetDisposalsByYear retrieves a wallet's disposals realized in the
// target calendar year.
func (s *SQLiteStorage) GetDisposalsByYear(ctx context.Context, walletID int64, year int) ([]model.Disposal, error) {
	return s.queryDisposals(ctx,
		`SELECT `+disposalColumns+` FROM disposals
		 WHERE wallet_id = ? AND disposed_at >= ? AND disposed_at < ?
		 ORDER BY disposed_at ASC, id ASC`,
		walletID,
		fmt.Sprintf("%04d-01-01 00:00:00", year),
		fmt.Sprintf("%04d-01-01 00:00:00", year+1),
	)
}

// ClearTaxData removes a wallet's lots and disposals ahead of a rebuild.
func (s *SQLiteStorage) ClearTaxData(ctx context.Context, walletID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM disposals WHERE wallet_id = ?`, walletID); err != nil {
		return fmt.Errorf("failed to clear disposals: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tax_lots WHERE wallet_id = ?`, walletID); err != nil {
		return fmt.Errorf("failed to clear tax lots: %w", err)
	}

	return tx.Commit()
}

const disposalColumns = `
	id, wallet_id, COALESCE(tax_lot_id, 0), token, COALESCE(symbol, ''), amount,
	proceeds_usd, cost_basis_usd, gain_loss_usd, is_short_term, acquired_at, disposed_at`

func (s *SQLiteStorage) queryDisposals(ctx context.Context, query string, args ...any) ([]model.Disposal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query disposals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var disposals []model.Disposal
	for rows.Next() {
		var d model.Disposal
		var amount, proceeds, basis, gainLoss sql.NullString
		var acquiredAt sql.NullTime
		if scanErr := rows.Scan(
			&d.ID, &d.WalletID, &d.TaxLotID, &d.Token, &d.Symbol, &amount,
			&proceeds, &basis, &gainLoss, &d.IsShortTerm, &acquiredAt, &d.DisposedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan disposal: %w", scanErr)
		}
		d.Amount = scanDecimal(amount)
		d.ProceedsUsd = scanDecimal(proceeds)
		d.CostBasisUsd = scanDecimal(basis)
		d.GainLossUsd = scanDecimal(gainLoss)
		if acquiredAt.Valid {
			d.AcquiredAt = acquiredAt.Time
		}
		disposals = append(disposals, d)
	}

	return disposals, rows.Err()
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
