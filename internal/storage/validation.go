package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chaintally/chaintally/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidWallet      = errors.New("invalid wallet")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidRule        = errors.New("invalid classification rule")
	ErrInvalidTaxLot      = errors.New("invalid tax lot")
	ErrInvalidDisposal    = errors.New("invalid disposal")
	ErrInvalidSettings    = errors.New("invalid settings")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateWallet validates a wallet.
func validateWallet(wallet *model.Wallet) error {
	if wallet == nil {
		return fmt.Errorf("%w: wallet", ErrNilParameter)
	}
	if strings.TrimSpace(wallet.Address) == "" {
		return fmt.Errorf("%w: missing address", ErrInvalidWallet)
	}
	if !strings.HasPrefix(wallet.Address, "0x") || len(wallet.Address) != 42 {
		return fmt.Errorf("%w: malformed address %q", ErrInvalidWallet, wallet.Address)
	}
	if strings.TrimSpace(wallet.Chain) == "" {
		return fmt.Errorf("%w: missing chain", ErrInvalidWallet)
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.Hash == "" {
		return fmt.Errorf("%w: missing hash", ErrInvalidTransaction)
	}
	if txn.WalletID == 0 {
		return fmt.Errorf("%w: missing wallet ID", ErrInvalidTransaction)
	}
	if txn.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidTransaction)
	}
	if !txn.Classification.Valid() {
		return fmt.Errorf("%w: unknown classification %q", ErrInvalidTransaction, txn.Classification)
	}
	if txn.Confidence < 0 || txn.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidTransaction)
	}
	if txn.UserClassified && (txn.NeedsReview || txn.Confidence != 1.0) {
		return fmt.Errorf("%w: user-classified rows must have confidence 1.0 and no review flag", ErrInvalidTransaction)
	}
	return nil
}

// validateRule validates a classification rule.
func validateRule(rule *model.ClassificationRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if !rule.Classification.Valid() {
		return fmt.Errorf("%w: unknown classification %q", ErrInvalidRule, rule.Classification)
	}
	// A rule with no matcher fields would match nothing; reject it
	// outright rather than store a dead rule.
	if !rule.HasConditions() {
		return fmt.Errorf("%w: at least one match condition is required", ErrInvalidRule)
	}
	return nil
}

// validateTaxLot validates a tax lot.
func validateTaxLot(lot *model.TaxLot) error {
	if lot == nil {
		return fmt.Errorf("%w: lot", ErrNilParameter)
	}
	if lot.WalletID == 0 {
		return fmt.Errorf("%w: missing wallet ID", ErrInvalidTaxLot)
	}
	if lot.Token == "" {
		return fmt.Errorf("%w: missing token", ErrInvalidTaxLot)
	}
	if !lot.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidTaxLot)
	}
	if lot.RemainingAmount.IsNegative() || lot.RemainingAmount.GreaterThan(lot.Amount) {
		return fmt.Errorf("%w: remaining amount out of range", ErrInvalidTaxLot)
	}
	if lot.AcquiredAt.IsZero() {
		return fmt.Errorf("%w: missing acquisition time", ErrInvalidTaxLot)
	}
	return nil
}

// validateDisposal validates a disposal.
func validateDisposal(disposal *model.Disposal) error {
	if disposal == nil {
		return fmt.Errorf("%w: disposal", ErrNilParameter)
	}
	if disposal.WalletID == 0 {
		return fmt.Errorf("%w: missing wallet ID", ErrInvalidDisposal)
	}
	if !disposal.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidDisposal)
	}
	if !disposal.GainLossUsd.Equal(disposal.ProceedsUsd.Sub(disposal.CostBasisUsd)) {
		return fmt.Errorf("%w: gain/loss must equal proceeds minus basis", ErrInvalidDisposal)
	}
	if disposal.DisposedAt.IsZero() {
		return fmt.Errorf("%w: missing disposal time", ErrInvalidDisposal)
	}
	return nil
}

// validateSettings validates settings.
func validateSettings(settings *model.Settings) error {
	if settings == nil {
		return fmt.Errorf("%w: settings", ErrNilParameter)
	}
	if !model.ValidMethod(settings.CostBasisMethod) {
		return fmt.Errorf("%w: unknown cost basis method %q", ErrInvalidSettings, settings.CostBasisMethod)
	}
	if settings.DustThresholdUsd.IsNegative() {
		return fmt.Errorf("%w: dust threshold cannot be negative", ErrInvalidSettings)
	}
	return nil
}
