package tax

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaintally/chaintally/internal/model"
	"github.com/chaintally/chaintally/internal/storage"
)

func newTestStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func newTestWallet(t *testing.T, db *storage.SQLiteStorage) *model.Wallet {
	t.Helper()
	wallet := &model.Wallet{
		Address: "0xab5801a7d398351b8be11c439e05c5b3259aec9b",
		Chain:   "eth-mainnet",
	}
	require.NoError(t, db.CreateWallet(context.Background(), wallet))
	return wallet
}

func saveTxn(t *testing.T, db *storage.SQLiteStorage, txn model.Transaction) {
	t.Helper()
	inserted, err := db.SaveTransaction(context.Background(), &txn)
	require.NoError(t, err)
	require.True(t, inserted)
}

func TestEngineRebuild(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	wallet := newTestWallet(t, db)
	engine := NewEngine(db)

	acquisition := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	sale := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	// 2 WETH in for $4000, then 1 WETH swapped away for $3000.
	saveTxn(t, db, model.Transaction{
		WalletID: wallet.ID, Hash: "0xbuy", Chain: wallet.Chain, Timestamp: acquisition,
		InboundToken: "0xweth", InboundSymbol: "WETH", InboundAmount: dec("2"),
		Classification: model.ClassTransfer, Confidence: 0.90, Source: model.SourceHeuristic,
		ValueUsd: dec("4000"),
	})
	saveTxn(t, db, model.Transaction{
		WalletID: wallet.ID, Hash: "0xsell", Chain: wallet.Chain, Timestamp: sale,
		OutboundToken: "0xweth", OutboundSymbol: "WETH", OutboundAmount: dec("1"),
		InboundToken: "0xusdc", InboundSymbol: "USDC", InboundAmount: dec("3000"),
		Classification: model.ClassSwap, Confidence: 0.80, Source: model.SourceHeuristic,
		ValueUsd: dec("3000"),
	})

	require.NoError(t, engine.Rebuild(ctx, wallet.ID))

	wethLots, err := db.GetTaxLots(ctx, wallet.ID, "0xweth")
	require.NoError(t, err)
	require.Len(t, wethLots, 1)
	assert.True(t, wethLots[0].RemainingAmount.Equal(dec("1")), "half the lot remains")
	assert.True(t, wethLots[0].CostBasisUsd.Equal(dec("4000")))

	// The swap's inbound leg opens a USDC lot of its own.
	usdcLots, err := db.GetTaxLots(ctx, wallet.ID, "0xusdc")
	require.NoError(t, err)
	require.Len(t, usdcLots, 1)
	assert.True(t, usdcLots[0].Amount.Equal(dec("3000")))

	disposals, err := db.GetDisposals(ctx, wallet.ID)
	require.NoError(t, err)
	require.Len(t, disposals, 1)

	d := disposals[0]
	assert.Equal(t, wethLots[0].ID, d.TaxLotID)
	assert.True(t, d.ProceedsUsd.Equal(dec("3000")))
	assert.True(t, d.CostBasisUsd.Equal(dec("2000")), "half of the $4000 lot")
	assert.True(t, d.GainLossUsd.Equal(dec("1000")))
	assert.False(t, d.IsShortTerm, "held well past a year")
}

// Rebuilding twice from the same history produces the same state, not
// doubled lots and disposals.
func TestEngineRebuildIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	wallet := newTestWallet(t, db)
	engine := NewEngine(db)

	saveTxn(t, db, model.Transaction{
		WalletID: wallet.ID, Hash: "0xbuy", Chain: wallet.Chain,
		Timestamp:    time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		InboundToken: "0xweth", InboundSymbol: "WETH", InboundAmount: dec("1"),
		Classification: model.ClassTransfer, Confidence: 0.90, Source: model.SourceHeuristic,
		ValueUsd: dec("2000"),
	})
	saveTxn(t, db, model.Transaction{
		WalletID: wallet.ID, Hash: "0xsell", Chain: wallet.Chain,
		Timestamp:     time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		OutboundToken: "0xweth", OutboundSymbol: "WETH", OutboundAmount: dec("1"),
		Classification: model.ClassNFTSale, Confidence: 0.70, Source: model.SourceHeuristic,
		ValueUsd: dec("2500"),
	})

	require.NoError(t, engine.Rebuild(ctx, wallet.ID))
	require.NoError(t, engine.Rebuild(ctx, wallet.ID))

	lots, err := db.GetTaxLots(ctx, wallet.ID, "0xweth")
	require.NoError(t, err)
	assert.Len(t, lots, 1)

	disposals, err := db.GetDisposals(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Len(t, disposals, 1)
}

func TestEngineRebuildSkipsReviewAndSpam(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	wallet := newTestWallet(t, db)
	engine := NewEngine(db)

	saveTxn(t, db, model.Transaction{
		WalletID: wallet.ID, Hash: "0xpending", Chain: wallet.Chain,
		Timestamp:    time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		InboundToken: "0xweth", InboundSymbol: "WETH", InboundAmount: dec("1"),
		Classification: model.ClassUnknown, Confidence: 0.0, Source: model.SourceHeuristic,
		NeedsReview: true, ValueUsd: dec("2000"),
	})
	saveTxn(t, db, model.Transaction{
		WalletID: wallet.ID, Hash: "0xjunk", Chain: wallet.Chain,
		Timestamp:    time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
		InboundToken: "0xscam", InboundSymbol: "FREE-MONEY", InboundAmount: dec("100000"),
		Classification: model.ClassAirdrop, Confidence: 0.70, Source: model.SourceHeuristic,
		IsSpam: true,
	})

	require.NoError(t, engine.Rebuild(ctx, wallet.ID))

	lots, err := db.GetTaxLots(ctx, wallet.ID, "0xweth")
	require.NoError(t, err)
	assert.Empty(t, lots, "unreviewed rows must not open lots")

	spamLots, err := db.GetTaxLots(ctx, wallet.ID, "0xscam")
	require.NoError(t, err)
	assert.Empty(t, spamLots)
}

// Native-asset legs have no contract address; their inventory is keyed
// by symbol instead.
func TestEngineRebuildNativeAsset(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	wallet := newTestWallet(t, db)
	engine := NewEngine(db)

	saveTxn(t, db, model.Transaction{
		WalletID: wallet.ID, Hash: "0xin", Chain: wallet.Chain,
		Timestamp:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		InboundSymbol: "ETH", InboundAmount: dec("1"),
		Classification: model.ClassTransfer, Confidence: 0.90, Source: model.SourceHeuristic,
		ValueUsd: dec("2500"),
	})

	require.NoError(t, engine.Rebuild(ctx, wallet.ID))

	lots, err := db.GetTaxLots(ctx, wallet.ID, "ETH")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, "ETH", lots[0].Symbol)
}

// A disposal with nothing in inventory still records proceeds, as a
// zero-basis short-term gain with no lot reference.
func TestEngineRebuildUncoveredDisposal(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	wallet := newTestWallet(t, db)
	engine := NewEngine(db)

	saveTxn(t, db, model.Transaction{
		WalletID: wallet.ID, Hash: "0xsell", Chain: wallet.Chain,
		Timestamp:     time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		OutboundToken: "0xweth", OutboundSymbol: "WETH", OutboundAmount: dec("1"),
		InboundToken: "0xusdc", InboundSymbol: "USDC", InboundAmount: dec("3100"),
		Classification: model.ClassSwap, Confidence: 0.80, Source: model.SourceHeuristic,
		ValueUsd: dec("3100"),
	})

	require.NoError(t, engine.Rebuild(ctx, wallet.ID))

	disposals, err := db.GetDisposals(ctx, wallet.ID)
	require.NoError(t, err)
	require.Len(t, disposals, 1)
	assert.Equal(t, int64(0), disposals[0].TaxLotID)
	assert.True(t, disposals[0].CostBasisUsd.IsZero())
	assert.True(t, disposals[0].GainLossUsd.Equal(dec("3100")))
	assert.True(t, disposals[0].IsShortTerm)
}

// With no lot picker in the rebuild path, specific_id consumes lots
// oldest-first, exactly as fifo would.
func TestEngineRebuildSpecificIDOrdersOldestFirst(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	wallet := newTestWallet(t, db)
	engine := NewEngine(db)

	settings, err := db.GetSettings(ctx)
	require.NoError(t, err)
	settings.CostBasisMethod = model.MethodSpecificID
	require.NoError(t, db.SaveSettings(ctx, settings))

	// Cheap lot first, expensive lot second. LIFO or HIFO would both
	// consume the second lot; oldest-first consumes the $1000 one.
	saveTxn(t, db, model.Transaction{
		WalletID: wallet.ID, Hash: "0xcheap", Chain: wallet.Chain,
		Timestamp:    time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		InboundToken: "0xweth", InboundSymbol: "WETH", InboundAmount: dec("1"),
		Classification: model.ClassTransfer, Confidence: 0.90, Source: model.SourceHeuristic,
		ValueUsd: dec("1000"),
	})
	saveTxn(t, db, model.Transaction{
		WalletID: wallet.ID, Hash: "0xdear", Chain: wallet.Chain,
		Timestamp:    time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		InboundToken: "0xweth", InboundSymbol: "WETH", InboundAmount: dec("1"),
		Classification: model.ClassTransfer, Confidence: 0.90, Source: model.SourceHeuristic,
		ValueUsd: dec("3000"),
	})
	saveTxn(t, db, model.Transaction{
		WalletID: wallet.ID, Hash: "0xsell", Chain: wallet.Chain,
		Timestamp:     time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		OutboundToken: "0xweth", OutboundSymbol: "WETH", OutboundAmount: dec("1"),
		Classification: model.ClassNFTSale, Confidence: 0.70, Source: model.SourceHeuristic,
		ValueUsd: dec("2500"),
	})

	require.NoError(t, engine.Rebuild(ctx, wallet.ID))

	disposals, err := db.GetDisposals(ctx, wallet.ID)
	require.NoError(t, err)
	require.Len(t, disposals, 1)
	assert.True(t, disposals[0].CostBasisUsd.Equal(dec("1000")), "oldest lot consumed")
	assert.True(t, disposals[0].GainLossUsd.Equal(dec("1500")))

	lots, err := db.GetTaxLots(ctx, wallet.ID, "0xweth")
	require.NoError(t, err)
	require.Len(t, lots, 2)
	for _, lot := range lots {
		if lot.CostBasisUsd.Equal(dec("3000")) {
			assert.True(t, lot.RemainingAmount.Equal(dec("1")), "newer lot untouched")
		}
	}
}

func TestTokenKey(t *testing.T) {
	assert.Equal(t, "0xweth", tokenKey("0xweth", "WETH"))
	assert.Equal(t, "ETH", tokenKey("", "ETH"))
	assert.Equal(t, "native", tokenKey("", ""))
}
