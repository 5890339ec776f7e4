// Package service defines the interfaces for all application collaborators.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chaintally/chaintally/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate   *time.Time
	EndDate     *time.Time
	NeedsReview *bool
	IncludeSpam bool
	IncludeDust bool
	Limit       int
	Offset      int
}

// Storage defines the contract for the persistence layer.
type Storage interface {
	// Wallet operations
	CreateWallet(ctx context.Context, wallet *model.Wallet) error
	GetWallet(ctx context.Context, id int64) (*model.Wallet, error)
	GetWalletByAddress(ctx context.Context, address, chain string) (*model.Wallet, error)
	ListWallets(ctx context.Context) ([]model.Wallet, error)
	DeleteWallet(ctx context.Context, id int64) error

	// Transaction operations
	SaveTransaction(ctx context.Context, txn *model.Transaction) (bool, error)
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	GetTransactionByHash(ctx context.Context, walletID int64, hash string) (*model.Transaction, error)
	GetTransactions(ctx context.Context, walletID int64, filter TransactionFilter) ([]model.Transaction, error)
	UpdateClassification(ctx context.Context, id int64, class model.Classification, confidence float64, source model.ClassificationSource) error
	GetIncomeTransactions(ctx context.Context, walletID int64, year int) ([]model.Transaction, error)

	// Classification rule operations
	CreateRule(ctx context.Context, rule *model.ClassificationRule) error
	GetRule(ctx context.Context, id int64) (*model.ClassificationRule, error)
	GetActiveRules(ctx context.Context) ([]model.ClassificationRule, error)
	UpdateRule(ctx context.Context, rule *model.ClassificationRule) error
	DeleteRule(ctx context.Context, id int64) error

	// Tax lot and disposal operations
	CreateTaxLot(ctx context.Context, lot *model.TaxLot) error
	GetTaxLots(ctx context.Context, walletID int64, token string) ([]model.TaxLot, error)
	UpdateTaxLotRemaining(ctx context.Context, id int64, remaining decimal.Decimal) error
	CreateDisposal(ctx context.Context, disposal *model.Disposal) error
	GetDisposals(ctx context.Context, walletID int64) ([]model.Disposal, error)
	GetDisposalsByYear(ctx context.Context, walletID int64, year int) ([]model.Disposal, error)
	ClearTaxData(ctx context.Context, walletID int64) error

	// Settings operations
	GetSettings(ctx context.Context) (*model.Settings, error)
	SaveSettings(ctx context.Context, settings *model.Settings) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// TransferSource fetches raw asset transfer history for an address.
type TransferSource interface {
	GetOutgoingTransfers(ctx context.Context, address, chain string) ([]model.RawTransfer, error)
	GetIncomingTransfers(ctx context.Context, address, chain string) ([]model.RawTransfer, error)
}

// Notifier delivers review notifications. Delivery failures are logged
// by callers, never propagated into the sync result.
type Notifier interface {
	NotifyReview(ctx context.Context, wallet *model.Wallet, txn *model.Transaction) error
	NotifyReviewSummary(ctx context.Context, wallet *model.Wallet, remaining int) error
}

// SyncStats shows the results of a wallet sync run.
type SyncStats struct {
	Duration          time.Duration
	TotalTransfers    int
	Imported          int
	SkippedDuplicates int
	Flagged           int
}
