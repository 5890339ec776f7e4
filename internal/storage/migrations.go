package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: wallets, transactions, classification rules",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS wallets (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					address TEXT NOT NULL,
					chain TEXT NOT NULL,
					label TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(address, chain)
				)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					wallet_id INTEGER NOT NULL,
					hash TEXT NOT NULL,
					chain TEXT NOT NULL,
					timestamp DATETIME NOT NULL,
					block_number INTEGER DEFAULT 0,
					inbound_token TEXT,
					inbound_symbol TEXT,
					inbound_amount TEXT,
					outbound_token TEXT,
					outbound_symbol TEXT,
					outbound_amount TEXT,
					classification TEXT NOT NULL DEFAULT 'unknown',
					confidence REAL DEFAULT 0,
					source TEXT NOT NULL DEFAULT 'heuristic',
					needs_review INTEGER DEFAULT 0,
					user_classified INTEGER DEFAULT 0,
					contract_address TEXT,
					method_name TEXT,
					gas_fee_native TEXT,
					gas_fee_usd TEXT,
					value_usd TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(wallet_id, hash),
					FOREIGN KEY (wallet_id) REFERENCES wallets(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_transactions_wallet ON transactions(wallet_id)`,
				`CREATE INDEX idx_transactions_timestamp ON transactions(timestamp)`,
				`CREATE INDEX idx_transactions_classification ON transactions(classification)`,

				`CREATE TABLE IF NOT EXISTS classification_rules (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					contract_address TEXT,
					method_name TEXT,
					token_symbol TEXT,
					chain TEXT,
					classification TEXT NOT NULL,
					priority INTEGER DEFAULT 0,
					is_active INTEGER DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_rules_priority ON classification_rules(priority DESC)`,
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
		Description: "Tax lots and disposals",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS tax_lots (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					wallet_id INTEGER NOT NULL,
					transaction_id INTEGER,
					token TEXT NOT NULL,
					symbol TEXT,
					amount TEXT NOT NULL,
					remaining_amount TEXT NOT NULL,
					cost_basis_usd TEXT NOT NULL,
					acquired_at DATETIME NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (wallet_id) REFERENCES wallets(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_tax_lots_wallet_token ON tax_lots(wallet_id, token)`,

				`CREATE TABLE IF NOT EXISTS disposals (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					wallet_id INTEGER NOT NULL,
					tax_lot_id INTEGER,
					token TEXT NOT NULL,
					symbol TEXT,
					amount TEXT NOT NULL,
					proceeds_usd TEXT NOT NULL,
					cost_basis_usd TEXT NOT NULL,
					gain_loss_usd TEXT NOT NULL,
					is_short_term INTEGER DEFAULT 1,
					acquired_at DATETIME,
					disposed_at DATETIME NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (wallet_id) REFERENCES wallets(id) ON DELETE CASCADE,
					FOREIGN KEY (tax_lot_id) REFERENCES tax_lots(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_disposals_wallet ON disposals(wallet_id)`,
				`CREATE INDEX idx_disposals_disposed_at ON disposals(disposed_at)`,
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
		Description: "Settings singleton",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS settings (
					id INTEGER PRIMARY KEY CHECK (id = 1),
					cost_basis_method TEXT NOT NULL DEFAULT 'fifo',
					tax_year INTEGER DEFAULT 0,
					dust_threshold_usd TEXT NOT NULL DEFAULT '1',
					hide_dust INTEGER DEFAULT 0,
					hide_spam INTEGER DEFAULT 1
				)`,
				`INSERT OR IGNORE INTO settings (id) VALUES (1)`,
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
		Version:     4,
		Description: "Spam and dust flags on transactions",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`ALTER TABLE transactions ADD COLUMN is_spam INTEGER DEFAULT 0`,
				`ALTER TABLE transactions ADD COLUMN is_dust INTEGER DEFAULT 0`,
				`CREATE INDEX idx_transactions_review ON transactions(needs_review) WHERE needs_review = 1`,
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

	// Apply migrations
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

	// Verify we're at the expected schema version
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
