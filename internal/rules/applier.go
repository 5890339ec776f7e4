package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chaintally/chaintally/internal/model"
	"github.com/chaintally/chaintally/internal/service"
)

// Applier re-runs the active rule set over stored transactions.
type Applier struct {
	storage service.Storage
}

// NewApplier creates an applier backed by the given storage.
func NewApplier(storage service.Storage) *Applier {
	return &Applier{storage: storage}
}

// ApplyAll evaluates every active rule against a wallet's transactions
// and persists the overrides. Manually classified transactions are
// untouched; rule-classified ones may be rewritten by a newer, higher
// priority rule. Returns the number of transactions reclassified.
func (a *Applier) ApplyAll(ctx context.Context, walletID int64) (int, error) {
	ruleSet, err := a.storage.GetActiveRules(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load rules: %w", err)
	}
	if len(ruleSet) == 0 {
		return 0, nil
	}
	engine := NewEngine(ruleSet)

	transactions, err := a.storage.GetTransactions(ctx, walletID, service.TransactionFilter{
		IncludeSpam: true,
		IncludeDust: true,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load transactions: %w", err)
	}

	applied := 0
	for i := range transactions {
		txn := &transactions[i]
		before := txn.Classification
		if !engine.Apply(txn) {
			continue
		}
		if txn.Classification == before && txn.Source == model.SourceRule {
			continue
		}
		if err := a.storage.UpdateClassification(ctx, txn.ID, txn.Classification, txn.Confidence, model.SourceRule); err != nil {
			return applied, fmt.Errorf("failed to apply rule to %s: %w", txn.Hash, err)
		}
		applied++
		slog.Debug("Rule applied",
			"hash", txn.Hash,
			"from", before,
			"to", txn.Classification)
	}

	return applied, nil
}
