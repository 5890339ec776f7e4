package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaintally/chaintally/internal/common"
	"github.com/chaintally/chaintally/internal/model"
	"github.com/chaintally/chaintally/internal/service"
)

func validTestTransaction(walletID int64) model.Transaction {
	return model.Transaction{
		WalletID:       walletID,
		Hash:           "0xdeadbeef",
		Chain:          "eth-mainnet",
		Timestamp:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		BlockNumber:    19700000,
		InboundToken:   "0xusdc",
		InboundSymbol:  "USDC",
		InboundAmount:  decimal.RequireFromString("500"),
		Classification: model.ClassTransfer,
		Confidence:     0.90,
		Source:         model.SourceHeuristic,
		ValueUsd:       decimal.RequireFromString("500"),
	}
}

func allTransactionsFilter() service.TransactionFilter {
	return service.TransactionFilter{IncludeSpam: true, IncludeDust: true}
}

func TestSaveTransaction(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	wallet := createTestWallet(t, s)

	txn := validTestTransaction(wallet.ID)
	inserted, err := s.SaveTransaction(ctx, &txn)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotZero(t, txn.ID)

	got, err := s.GetTransactionByHash(ctx, wallet.ID, txn.Hash)
	require.NoError(t, err)
	assert.Equal(t, txn.Hash, got.Hash)
	assert.Equal(t, model.ClassTransfer, got.Classification)
	assert.True(t, got.InboundAmount.Equal(decimal.RequireFromString("500")),
		"amounts survive the round trip exactly, got %s", got.InboundAmount)
	assert.Equal(t, model.SourceHeuristic, got.Source)
}

func TestSaveTransactionDuplicateIsSkipped(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	wallet := createTestWallet(t, s)

	first := validTestTransaction(wallet.ID)
	inserted, err := s.SaveTransaction(ctx, &first)
	require.NoError(t, err)
	require.True(t, inserted)

	// Same (wallet, hash): the insert is silently skipped.
	dup := validTestTransaction(wallet.ID)
	dup.Classification = model.ClassSwap
	inserted, err = s.SaveTransaction(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := s.GetTransactionByHash(ctx, wallet.ID, first.Hash)
	require.NoError(t, err)
	assert.Equal(t, model.ClassTransfer, got.Classification, "original row untouched")
}

func TestSaveTransactionValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	wallet := createTestWallet(t, s)

	tests := []struct {
		name   string
		mutate func(*model.Transaction)
	}{
		{"missing hash", func(txn *model.Transaction) { txn.Hash = "" }},
		{"missing wallet", func(txn *model.Transaction) { txn.WalletID = 0 }},
		{"missing timestamp", func(txn *model.Transaction) { txn.Timestamp = time.Time{} }},
		{"bad classification", func(txn *model.Transaction) { txn.Classification = "yolo" }},
		{"confidence above one", func(txn *model.Transaction) { txn.Confidence = 1.5 }},
		{"negative confidence", func(txn *model.Transaction) { txn.Confidence = -0.1 }},
		{"user-classified with review flag", func(txn *model.Transaction) {
			txn.UserClassified = true
			txn.Confidence = 1.0
			txn.NeedsReview = true
		}},
		{"user-classified below full confidence", func(txn *model.Transaction) {
			txn.UserClassified = true
			txn.Confidence = 0.7
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := validTestTransaction(wallet.ID)
			tt.mutate(&txn)
			_, err := s.SaveTransaction(ctx, &txn)
			assert.Error(t, err)
		})
	}
}

func TestGetTransactionsFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	wallet := createTestWallet(t, s)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []model.Transaction{
		{Hash: "0x1", Timestamp: base, Classification: model.ClassTransfer, Confidence: 0.9, Source: model.SourceHeuristic},
		{Hash: "0x2", Timestamp: base.AddDate(0, 1, 0), Classification: model.ClassUnknown, Source: model.SourceHeuristic, NeedsReview: true},
		{Hash: "0x3", Timestamp: base.AddDate(0, 2, 0), Classification: model.ClassSpam, Confidence: 0.9, Source: model.SourceHeuristic, IsSpam: true},
		{Hash: "0x4", Timestamp: base.AddDate(0, 3, 0), Classification: model.ClassTransfer, Confidence: 0.9, Source: model.SourceHeuristic, IsDust: true},
	}
	for i := range rows {
		rows[i].WalletID = wallet.ID
		rows[i].Chain = wallet.Chain
		_, err := s.SaveTransaction(ctx, &rows[i])
		require.NoError(t, err)
	}

	t.Run("default filter hides spam and dust", func(t *testing.T) {
		got, err := s.GetTransactions(ctx, wallet.ID, service.TransactionFilter{})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("include everything", func(t *testing.T) {
		got, err := s.GetTransactions(ctx, wallet.ID, allTransactionsFilter())
		require.NoError(t, err)
		assert.Len(t, got, 4)
		// Oldest first.
		assert.Equal(t, "0x1", got[0].Hash)
		assert.Equal(t, "0x4", got[3].Hash)
	})

	t.Run("review queue", func(t *testing.T) {
		needsReview := true
		got, err := s.GetTransactions(ctx, wallet.ID, service.TransactionFilter{
			NeedsReview: &needsReview, IncludeSpam: true, IncludeDust: true,
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "0x2", got[0].Hash)
	})

	t.Run("date range", func(t *testing.T) {
		start := base.AddDate(0, 1, 0)
		end := base.AddDate(0, 3, 0)
		got, err := s.GetTransactions(ctx, wallet.ID, service.TransactionFilter{
			StartDate: &start, EndDate: &end, IncludeSpam: true, IncludeDust: true,
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "0x2", got[0].Hash)
		assert.Equal(t, "0x3", got[1].Hash)
	})

	t.Run("limit and offset", func(t *testing.T) {
		got, err := s.GetTransactions(ctx, wallet.ID, service.TransactionFilter{
			IncludeSpam: true, IncludeDust: true, Limit: 2, Offset: 1,
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "0x2", got[0].Hash)
	})
}

func TestUpdateClassification(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	wallet := createTestWallet(t, s)

	txn := validTestTransaction(wallet.ID)
	txn.Classification = model.ClassUnknown
	txn.Confidence = 0.0
	txn.NeedsReview = true
	_, err := s.SaveTransaction(ctx, &txn)
	require.NoError(t, err)

	t.Run("manual source implies finality", func(t *testing.T) {
		require.NoError(t, s.UpdateClassification(ctx, txn.ID, model.ClassSwap, 0.5, model.SourceManual))

		got, err := s.GetTransaction(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ClassSwap, got.Classification)
		assert.Equal(t, 1.0, got.Confidence, "manual overrides the passed confidence")
		assert.False(t, got.NeedsReview)
		assert.True(t, got.UserClassified)
		assert.Equal(t, model.SourceManual, got.Source)
	})

	t.Run("rule source clears review but not user flag", func(t *testing.T) {
		require.NoError(t, s.UpdateClassification(ctx, txn.ID, model.ClassStake, 1.0, model.SourceRule))

		got, err := s.GetTransaction(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ClassStake, got.Classification)
		assert.False(t, got.NeedsReview)
		assert.False(t, got.UserClassified)
		assert.Equal(t, model.SourceRule, got.Source)
	})

	t.Run("heuristic source restores the review gate", func(t *testing.T) {
		require.NoError(t, s.UpdateClassification(ctx, txn.ID, model.ClassContractInteraction, 0.0, model.SourceHeuristic))

		got, err := s.GetTransaction(ctx, txn.ID)
		require.NoError(t, err)
		assert.True(t, got.NeedsReview)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		err := s.UpdateClassification(ctx, 9999, model.ClassSwap, 1.0, model.SourceManual)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestGetIncomeTransactions(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	wallet := createTestWallet(t, s)

	rows := []model.Transaction{
		{Hash: "0xreward", Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Classification: model.ClassReward, Confidence: 0.6, ValueUsd: decimal.RequireFromString("50")},
		{Hash: "0xairdrop", Timestamp: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
			Classification: model.ClassAirdrop, Confidence: 0.7, ValueUsd: decimal.RequireFromString("625")},
		{Hash: "0xswap", Timestamp: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
			Classification: model.ClassSwap, Confidence: 0.8},
		{Hash: "0xold", Timestamp: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
			Classification: model.ClassReward, Confidence: 0.6},
	}
	for i := range rows {
		rows[i].WalletID = wallet.ID
		rows[i].Chain = wallet.Chain
		rows[i].Source = model.SourceHeuristic
		_, err := s.SaveTransaction(ctx, &rows[i])
		require.NoError(t, err)
	}

	got, err := s.GetIncomeTransactions(ctx, wallet.ID, 2024)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "0xreward", got[0].Hash)
	assert.Equal(t, "0xairdrop", got[1].Hash)
}
