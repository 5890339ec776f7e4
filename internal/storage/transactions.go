package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/chaintally/chaintally/internal/common"
	"github.com/chaintally/chaintally/internal/model"
	"github.com/chaintally/chaintally/internal/service"
)

const transactionColumns = `
	id, wallet_id, hash, chain, timestamp, block_number,
	COALESCE(inbound_token, ''), COALESCE(inbound_symbol, ''), inbound_amount,
	COALESCE(outbound_token, ''), COALESCE(outbound_symbol, ''), outbound_amount,
	classification, confidence, source, needs_review, user_classified,
	COALESCE(contract_address, ''), COALESCE(method_name, ''),
	gas_fee_native, gas_fee_usd, value_usd, is_spam, is_dust`

// SaveTransaction inserts a transaction, skipping silently when the
// (wallet, hash) pair already exists. Returns true when a row was
// actually inserted. The insert-or-ignore makes concurrent syncs of the
// same wallet benign: the loser of the race records a duplicate skip.
func (s *SQLiteStorage) SaveTransaction(ctx context.Context, txn *model.Transaction) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateTransaction(txn); err != nil {
		return false, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO transactions (
			wallet_id, hash, chain, timestamp, block_number,
			inbound_token, inbound_symbol, inbound_amount,
			outbound_token, outbound_symbol, outbound_amount,
			classification, confidence, source, needs_review, user_classified,
			contract_address, method_name,
			gas_fee_native, gas_fee_usd, value_usd, is_spam, is_dust
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.WalletID, txn.Hash, txn.Chain, txn.Timestamp, txn.BlockNumber,
		txn.InboundToken, txn.InboundSymbol, decimalString(txn.InboundAmount),
		txn.OutboundToken, txn.OutboundSymbol, decimalString(txn.OutboundAmount),
		string(txn.Classification), txn.Confidence, string(txn.Source),
		txn.NeedsReview, txn.UserClassified,
		txn.ContractAddress, txn.MethodName,
		decimalString(txn.GasFeeNative), decimalString(txn.GasFeeUsd),
		decimalString(txn.ValueUsd), txn.IsSpam, txn.IsDust,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert transaction %s: %w", txn.Hash, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check insert result: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to get transaction ID: %w", err)
	}
	txn.ID = id

	return true, nil
}

// GetTransaction retrieves a transaction by ID.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: transaction %d", common.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return txn, nil
}

// GetTransactionByHash retrieves a wallet's transaction by hash.
func (s *SQLiteStorage) GetTransactionByHash(ctx context.Context, walletID int64, hash string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(hash, "hash"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE wallet_id = ? AND hash = ?`,
		walletID, hash)
	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, hash)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return txn, nil
}

// GetTransactions retrieves a wallet's transactions matching the filter,
// oldest first.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, walletID int64, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE wallet_id = ?`
	args := []any{walletID}

	if filter.StartDate != nil {
		query += ` AND timestamp >= ?`
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		query += ` AND timestamp < ?`
		args = append(args, *filter.EndDate)
	}
	if filter.NeedsReview != nil {
		query += ` AND needs_review = ?`
		args = append(args, *filter.NeedsReview)
	}
	if !filter.IncludeSpam {
		query += ` AND is_spam = 0`
	}
	if !filter.IncludeDust {
		query += ` AND is_dust = 0`
	}

	query += ` ORDER BY timestamp ASC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", scanErr)
		}
		transactions = append(transactions, *txn)
	}

	return transactions, rows.Err()
}

// UpdateClassification rewrites a transaction's classification state.
// A manual source implies confidence 1.0, review cleared and the
// user-classified flag set; a rule source clears review at confidence
// 1.0 but leaves the row rule-classified; a heuristic source restores
// the review gate for the unknown/contract labels.
func (s *SQLiteStorage) UpdateClassification(ctx context.Context, id int64, class model.Classification, confidence float64, source model.ClassificationSource) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if !class.Valid() {
		return fmt.Errorf("%w: unknown classification %q", ErrInvalidTransaction, class)
	}

	needsReview := class == model.ClassUnknown || class == model.ClassContractInteraction
	userClassified := false
	switch source {
	case model.SourceManual:
		confidence = 1.0
		needsReview = false
		userClassified = true
	case model.SourceRule:
		confidence = 1.0
		needsReview = false
	case model.SourceHeuristic:
		// keep computed values
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidTransaction, source)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET classification = ?, confidence = ?, source = ?, needs_review = ?, user_classified = ?
		WHERE id = ?`,
		string(class), confidence, string(source), needsReview, userClassified, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update classification: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: transaction %d", common.ErrNotFound, id)
	}

	return nil
}

// GetIncomeTransactions retrieves a wallet's income-type transactions
// for the target year.
func (s *SQLiteStorage) GetIncomeTransactions(ctx context.Context, walletID int64, year int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	labels := []string{
		string(model.ClassReward), string(model.ClassAirdrop),
		string(model.ClassInterest), string(model.ClassIncome),
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(labels)), ", ")

	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE wallet_id = ? AND classification IN (` + placeholders + `)
		  AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC`

	args := []any{walletID}
	for _, l := range labels {
		args = append(args, l)
	}
	args = append(args,
		fmt.Sprintf("%04d-01-01 00:00:00", year),
		fmt.Sprintf("%04d-01-01 00:00:00", year+1),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query income transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", scanErr)
		}
		transactions = append(transactions, *txn)
	}

	return transactions, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*model.Transaction, error) {
	var txn model.Transaction
	var inAmount, outAmount, gasNative, gasUsd, valueUsd sql.NullString
	var class, source string

	err := row.Scan(
		&txn.ID, &txn.WalletID, &txn.Hash, &txn.Chain, &txn.Timestamp, &txn.BlockNumber,
		&txn.InboundToken, &txn.InboundSymbol, &inAmount,
		&txn.OutboundToken, &txn.OutboundSymbol, &outAmount,
		&class, &txn.Confidence, &source, &txn.NeedsReview, &txn.UserClassified,
		&txn.ContractAddress, &txn.MethodName,
		&gasNative, &gasUsd, &valueUsd, &txn.IsSpam, &txn.IsDust,
	)
	if err != nil {
		return nil, err
	}

	txn.Classification = model.Classification(class)
	txn.Source = model.ClassificationSource(source)
	txn.InboundAmount = scanDecimal(inAmount)
	txn.OutboundAmount = scanDecimal(outAmount)
	txn.GasFeeNative = scanDecimal(gasNative)
	txn.GasFeeUsd = scanDecimal(gasUsd)
	txn.ValueUsd = scanDecimal(valueUsd)

	return &txn, nil
}
