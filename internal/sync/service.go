// Package sync orchestrates the wallet import pipeline: fetch raw
// transfers, aggregate, classify, persist, notify.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	gosync "sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chaintally/chaintally/internal/aggregate"
	"github.com/chaintally/chaintally/internal/classify"
	"github.com/chaintally/chaintally/internal/common"
	"github.com/chaintally/chaintally/internal/model"
	"github.com/chaintally/chaintally/internal/service"
)

// Service runs wallet syncs against the configured collaborators. The
// notifier is optional; a nil notifier silently disables notifications.
type Service struct {
	storage  service.Storage
	source   service.TransferSource
	notifier service.Notifier
}

// NewService creates a sync service.
func NewService(storage service.Storage, source service.TransferSource, notifier service.Notifier) *Service {
	return &Service{
		storage:  storage,
		source:   source,
		notifier: notifier,
	}
}

// SyncWallet imports the wallet's full transfer history. Inserts are
// idempotent per (wallet, hash): an existing row is counted as a skip,
// never an error, so re-running a sync or racing another sync of the
// same wallet is benign. A failed fetch aborts before any insert; rows
// committed by earlier successful runs stay committed.
func (s *Service) SyncWallet(ctx context.Context, wallet *model.Wallet) (*service.SyncStats, error) {
	start := time.Now()

	if !model.ChainSupported(wallet.Chain) {
		return nil, fmt.Errorf("%w: %s (supported: %s)",
			common.ErrUnsupportedChain, wallet.Chain, strings.Join(model.SupportedChains, ", "))
	}

	settings, err := s.storage.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	transfers, err := s.fetchTransfers(ctx, wallet)
	if err != nil {
		return nil, err
	}

	groups := aggregate.GroupByHash(transfers, wallet.Address)
	slog.Info("Aggregated transfers",
		"wallet", wallet.Address,
		"transfers", len(transfers),
		"transactions", len(groups))

	stats := &service.SyncStats{TotalTransfers: len(transfers)}
	var flagged []model.Transaction

	for i := range groups {
		txn := s.buildTransaction(wallet, &groups[i], settings)

		inserted, saveErr := s.storage.SaveTransaction(ctx, txn)
		if saveErr != nil {
			return nil, fmt.Errorf("failed to persist transaction %s: %w", txn.Hash, saveErr)
		}
		if !inserted {
			stats.SkippedDuplicates++
			continue
		}
		stats.Imported++
		if txn.NeedsReview {
			stats.Flagged++
			flagged = append(flagged, *txn)
		}
	}

	s.notifyFlagged(ctx, wallet, flagged)

	stats.Duration = time.Since(start)
	common.LogInfo("Wallet sync complete", common.Fields{
		"wallet":   wallet.Address,
		"imported": stats.Imported,
		"skipped":  stats.SkippedDuplicates,
		"flagged":  stats.Flagged,
		"duration": stats.Duration.String(),
	})
	return stats, nil
}

// fetchTransfers issues the outgoing and incoming queries concurrently
// and merges the results into an order-stable union keyed by the
// provider's unique transfer ID.
func (s *Service) fetchTransfers(ctx context.Context, wallet *model.Wallet) ([]model.RawTransfer, error) {
	var (
		wg       gosync.WaitGroup
		outgoing []model.RawTransfer
		incoming []model.RawTransfer
		outErr   error
		inErr    error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		outgoing, outErr = s.source.GetOutgoingTransfers(ctx, wallet.Address, wallet.Chain)
	}()
	go func() {
		defer wg.Done()
		incoming, inErr = s.source.GetIncomingTransfers(ctx, wallet.Address, wallet.Chain)
	}()
	wg.Wait()

	if outErr != nil {
		return nil, fmt.Errorf("failed to fetch outgoing transfers: %w", outErr)
	}
	if inErr != nil {
		return nil, fmt.Errorf("failed to fetch incoming transfers: %w", inErr)
	}

	seen := make(map[string]struct{}, len(outgoing)+len(incoming))
	union := make([]model.RawTransfer, 0, len(outgoing)+len(incoming))
	for _, t := range append(outgoing, incoming...) {
		key := t.UniqueID
		if key == "" {
			key = t.Hash + "|" + t.From + "|" + t.To + "|" + string(t.Category)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		union = append(union, t)
	}

	return union, nil
}

func (s *Service) buildTransaction(wallet *model.Wallet, group *model.AggregatedTransaction, settings *model.Settings) *model.Transaction {
	result := classify.Classify(group, wallet.Address)

	txn := &model.Transaction{
		WalletID:        wallet.ID,
		Hash:            group.Hash,
		Chain:           wallet.Chain,
		Timestamp:       group.Timestamp,
		BlockNumber:     group.BlockNumber,
		Classification:  result.Classification,
		Confidence:      result.Confidence,
		Source:          model.SourceHeuristic,
		NeedsReview:     classify.NeedsReview(result.Classification),
		ContractAddress: firstContract(group),
	}

	if leg := group.PrimaryInbound(); leg != nil {
		txn.InboundToken = leg.Asset
		txn.InboundSymbol = leg.Symbol
		txn.InboundAmount = leg.Amount
	}
	if leg := group.PrimaryOutbound(); leg != nil {
		txn.OutboundToken = leg.Asset
		txn.OutboundSymbol = leg.Symbol
		txn.OutboundAmount = leg.Amount
	}

	txn.ValueUsd = staticUsdValue(txn)
	txn.IsDust = txn.ValueUsd.IsPositive() && txn.ValueUsd.LessThan(settings.DustThresholdUsd)
	txn.IsSpam = looksLikeSpam(txn)

	return txn
}

// notifyFlagged sends detailed notifications for the first few flagged
// transactions and one rollup for the remainder. Delivery failures are
// logged and never surfaced to the sync caller.
func (s *Service) notifyFlagged(ctx context.Context, wallet *model.Wallet, flagged []model.Transaction) {
	if s.notifier == nil || len(flagged) == 0 {
		return
	}

	detailed := len(flagged)
	if detailed > classify.MaxDetailedNotifications {
		detailed = classify.MaxDetailedNotifications
	}

	for i := 0; i < detailed; i++ {
		if err := s.notifier.NotifyReview(ctx, wallet, &flagged[i]); err != nil {
			common.LogError(err, "Failed to deliver review notification", common.Fields{
				"hash": flagged[i].Hash,
			})
		}
	}

	if remaining := len(flagged) - detailed; remaining > 0 {
		if err := s.notifier.NotifyReviewSummary(ctx, wallet, remaining); err != nil {
			common.LogError(err, "Failed to deliver review summary", common.Fields{
				"remaining": remaining,
			})
		}
	}
}

func firstContract(group *model.AggregatedTransaction) string {
	for i := range group.Transfers {
		if addr := group.Transfers[i].ContractAddress; addr != "" {
			return addr
		}
	}
	return ""
}

// stableSymbols are tokens pegged 1:1 to the dollar; their amount is
// their USD value without a price lookup.
var stableSymbols = map[string]bool{
	"USDC": true,
	"USDT": true,
	"DAI":  true,
	"BUSD": true,
	"TUSD": true,
}

// staticUsdValue assigns the at-ingestion USD value where it can be
// known without a market price: dollar-pegged stablecoin legs. Anything
// else stays zero; no price oracle is wired, pricing services are
// external collaborators.
func staticUsdValue(txn *model.Transaction) decimal.Decimal {
	if stableSymbols[strings.ToUpper(txn.OutboundSymbol)] {
		return model.RoundUsd(txn.OutboundAmount)
	}
	if stableSymbols[strings.ToUpper(txn.InboundSymbol)] {
		return model.RoundUsd(txn.InboundAmount)
	}
	return decimal.Zero
}

// looksLikeSpam flags unsolicited worthless token drops: inbound only,
// no dollar value, and a symbol that reads like an advertisement.
func looksLikeSpam(txn *model.Transaction) bool {
	if txn.HasOutbound() || !txn.HasInbound() || txn.ValueUsd.IsPositive() {
		return false
	}
	symbol := strings.ToLower(txn.InboundSymbol)
	return strings.Contains(symbol, ".") ||
		strings.Contains(symbol, "http") ||
		strings.Contains(symbol, "claim") ||
		len(symbol) > 12
}
