package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chaintally/chaintally/internal/common"
	"github.com/chaintally/chaintally/internal/model"
)

// CreateWallet creates a new tracked wallet.
func (s *SQLiteStorage) CreateWallet(ctx context.Context, wallet *model.Wallet) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateWallet(wallet); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO wallets (address, chain, label) VALUES (?, ?, ?)`,
		strings.ToLower(wallet.Address), wallet.Chain, wallet.Label,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: wallet %s on %s", common.ErrDuplicateEntry, wallet.Address, wallet.Chain)
		}
		return fmt.Errorf("failed to create wallet: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get wallet ID: %w", err)
	}
	wallet.ID = id
	wallet.CreatedAt = time.Now()

	return nil
}

// GetWallet retrieves a wallet by ID.
func (s *SQLiteStorage) GetWallet(ctx context.Context, id int64) (*model.Wallet, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var wallet model.Wallet
	err := s.db.QueryRowContext(ctx,
		`SELECT id, address, chain, COALESCE(label, ''), created_at FROM wallets WHERE id = ?`, id,
	).Scan(&wallet.ID, &wallet.Address, &wallet.Chain, &wallet.Label, &wallet.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: wallet %d", common.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return &wallet, nil
}

// GetWalletByAddress retrieves a wallet by its address and chain.
func (s *SQLiteStorage) GetWalletByAddress(ctx context.Context, address, chain string) (*model.Wallet, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(address, "address"); err != nil {
		return nil, err
	}

	var wallet model.Wallet
	err := s.db.QueryRowContext(ctx,
		`SELECT id, address, chain, COALESCE(label, ''), created_at
		 FROM wallets WHERE address = ? AND chain = ?`,
		strings.ToLower(address), chain,
	).Scan(&wallet.ID, &wallet.Address, &wallet.Chain, &wallet.Label, &wallet.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: wallet %s on %s", common.ErrNotFound, address, chain)
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return &wallet, nil
}

// ListWallets retrieves all tracked wallets.
func (s *SQLiteStorage) ListWallets(ctx context.Context) ([]model.Wallet, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, address, chain, COALESCE(label, ''), created_at FROM wallets ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var wallets []model.Wallet
	for rows.Next() {
		var wallet model.Wallet
		if err := rows.Scan(&wallet.ID, &wallet.Address, &wallet.Chain, &wallet.Label, &wallet.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, wallet)
	}

	return wallets, rows.Err()
}

// DeleteWallet removes a wallet; its transactions, lots and disposals
// cascade with it.
func (s *SQLiteStorage) DeleteWallet(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM wallets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete wallet: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: wallet %d", common.ErrNotFound, id)
	}

	return nil
}

// isUniqueViolation reports whether the error is a SQLite unique
// constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
