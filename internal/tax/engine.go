package tax

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/chaintally/chaintally/internal/model"
	"github.com/chaintally/chaintally/internal/service"
)

// acquisitionClasses are the labels whose inbound leg opens a tax lot.
var acquisitionClasses = map[model.Classification]bool{
	model.ClassSwap:     true,
	model.ClassAirdrop:  true,
	model.ClassReward:   true,
	model.ClassIncome:   true,
	model.ClassInterest: true,
	model.ClassTransfer: true,
	model.ClassUnstake:  true,
	model.ClassNFTMint:  true,
}

// disposalClasses are the labels whose outbound leg realizes gain/loss.
var disposalClasses = map[model.Classification]bool{
	model.ClassSwap:     true,
	model.ClassNFTSale:  true,
	model.ClassTransfer: true,
}

// Engine replays a wallet's classified transactions into tax lots and
// disposals. Lot mutation is serialized per (wallet, token): two
// concurrent disposals of the same token can never double-consume a lot.
type Engine struct {
	storage service.Storage
	locks   keyedMutex
}

// NewEngine creates a tax engine backed by the given storage.
func NewEngine(storage service.Storage) *Engine {
	return &Engine{storage: storage}
}

// Rebuild recomputes the wallet's entire lot and disposal state from
// its transaction history in chronological order. Rebuilding before a
// report keeps the tax state consistent with reclassifications applied
// since the last run; the same inputs always produce the same output.
func (e *Engine) Rebuild(ctx context.Context, walletID int64) error {
	unlock := e.locks.lock(fmt.Sprintf("wallet:%d", walletID))
	defer unlock()

	settings, err := e.storage.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	method := settings.CostBasisMethod
	if method == model.MethodSpecificID {
		// Batch replay has no caller to pick a lot, so specific-id
		// degrades to first-in-first-out.
		slog.Warn("Cost basis method specific_id has no lot selection during rebuild; using fifo ordering",
			"wallet_id", walletID)
		method = model.MethodFIFO
	}

	transactions, err := e.storage.GetTransactions(ctx, walletID, service.TransactionFilter{IncludeDust: true})
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}
	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].Timestamp.Before(transactions[j].Timestamp)
	})

	if err := e.storage.ClearTaxData(ctx, walletID); err != nil {
		return fmt.Errorf("failed to clear tax data: %w", err)
	}

	for i := range transactions {
		txn := &transactions[i]
		if txn.NeedsReview || txn.IsSpam {
			continue
		}
		// Outbound first: a swap must not consume the lot its own
		// inbound leg opens.
		if txn.HasOutbound() && disposalClasses[txn.Classification] {
			if err := e.dispose(ctx, txn, method); err != nil {
				return err
			}
		}
		if txn.HasInbound() && acquisitionClasses[txn.Classification] {
			if err := e.acquire(ctx, txn); err != nil {
				return err
			}
		}
	}

	return nil
}

// tokenKey identifies a lot inventory. The native asset has no contract
// address, so its symbol serves as the key instead.
func tokenKey(contract, symbol string) string {
	if contract != "" {
		return contract
	}
	if symbol != "" {
		return symbol
	}
	return "native"
}

func (e *Engine) acquire(ctx context.Context, txn *model.Transaction) error {
	lot := &model.TaxLot{
		WalletID:        txn.WalletID,
		TransactionID:   txn.ID,
		Token:           tokenKey(txn.InboundToken, txn.InboundSymbol),
		Symbol:          txn.InboundSymbol,
		Amount:          txn.InboundAmount,
		RemainingAmount: txn.InboundAmount,
		CostBasisUsd:    model.RoundUsd(txn.ValueUsd),
		AcquiredAt:      txn.Timestamp,
	}
	if err := e.storage.CreateTaxLot(ctx, lot); err != nil {
		return fmt.Errorf("failed to create tax lot for tx %s: %w", txn.Hash, err)
	}
	return nil
}

func (e *Engine) dispose(ctx context.Context, txn *model.Transaction, method model.CostBasisMethod) error {
	token := tokenKey(txn.OutboundToken, txn.OutboundSymbol)
	lots, err := e.storage.GetTaxLots(ctx, txn.WalletID, token)
	if err != nil {
		return fmt.Errorf("failed to load tax lots: %w", err)
	}

	ordered := orderLots(lots, method)
	consumed, uncovered := ConsumeLots(ordered, txn.OutboundAmount)
	if uncovered.IsPositive() {
		slog.Warn("Disposal exceeds tracked inventory",
			"hash", txn.Hash,
			"token", txn.OutboundSymbol,
			"uncovered", uncovered.String())
	}

	disposals, err := BuildDisposals(txn.WalletID, token, txn.OutboundSymbol,
		consumed, uncovered, txn.OutboundAmount, txn.ValueUsd, txn.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to build disposals for tx %s: %w", txn.Hash, err)
	}

	for _, c := range consumed {
		remaining := c.Lot.RemainingAmount.Sub(c.Consumed)
		if err := e.storage.UpdateTaxLotRemaining(ctx, c.Lot.ID, remaining); err != nil {
			return fmt.Errorf("failed to update lot %d: %w", c.Lot.ID, err)
		}
	}
	for i := range disposals {
		if err := e.storage.CreateDisposal(ctx, &disposals[i]); err != nil {
			return fmt.Errorf("failed to create disposal for tx %s: %w", txn.Hash, err)
		}
	}

	return nil
}

// keyedMutex serializes work per string key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
