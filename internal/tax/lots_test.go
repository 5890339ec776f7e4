package tax

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaintally/chaintally/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func lot(id int64, acquired time.Time, amount, remaining, basis string) model.TaxLot {
	return model.TaxLot{
		ID:              id,
		WalletID:        1,
		Token:           "0xweth",
		Symbol:          "WETH",
		Amount:          dec(amount),
		RemainingAmount: dec(remaining),
		CostBasisUsd:    dec(basis),
		AcquiredAt:      acquired,
	}
}

func TestOrderLots(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	lots := []model.TaxLot{
		lot(1, mar, "1", "1", "2000"), // $2000/unit
		lot(2, jan, "1", "1", "3000"), // $3000/unit
		lot(3, jun, "1", "1", "1000"), // $1000/unit
	}

	tests := []struct {
		name   string
		method model.CostBasisMethod
		want   []int64
	}{
		{"fifo is oldest first", model.MethodFIFO, []int64{2, 1, 3}},
		{"lifo is newest first", model.MethodLIFO, []int64{3, 1, 2}},
		{"hifo is highest unit cost first", model.MethodHIFO, []int64{2, 1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ordered := orderLots(lots, tt.method)
			require.Len(t, ordered, len(tt.want))
			for i, id := range tt.want {
				assert.Equal(t, id, ordered[i].ID)
			}
		})
	}

	t.Run("exhausted lots are excluded", func(t *testing.T) {
		withEmpty := append([]model.TaxLot{lot(4, jan, "1", "0", "500")}, lots...)
		ordered := orderLots(withEmpty, model.MethodFIFO)
		assert.Len(t, ordered, 3)
		for _, l := range ordered {
			assert.NotEqual(t, int64(4), l.ID)
		}
	})
}

func TestConsumeLots(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("single lot covers the disposal", func(t *testing.T) {
		consumed, uncovered := ConsumeLots([]model.TaxLot{lot(1, jan, "2", "2", "4000")}, dec("1.5"))
		require.Len(t, consumed, 1)
		assert.True(t, consumed[0].Consumed.Equal(dec("1.5")))
		assert.True(t, uncovered.IsZero())
	})

	t.Run("disposal spills across lots", func(t *testing.T) {
		lots := []model.TaxLot{
			lot(1, jan, "1", "1", "2000"),
			lot(2, feb, "2", "2", "5000"),
		}
		consumed, uncovered := ConsumeLots(lots, dec("2.5"))
		require.Len(t, consumed, 2)
		assert.True(t, consumed[0].Consumed.Equal(dec("1")))
		assert.True(t, consumed[1].Consumed.Equal(dec("1.5")))
		assert.True(t, uncovered.IsZero())
	})

	t.Run("insufficient inventory returns the shortfall", func(t *testing.T) {
		consumed, uncovered := ConsumeLots([]model.TaxLot{lot(1, jan, "1", "1", "2000")}, dec("3"))
		require.Len(t, consumed, 1)
		assert.True(t, consumed[0].Consumed.Equal(dec("1")))
		assert.True(t, uncovered.Equal(dec("2")))
	})

	t.Run("no lots means everything is uncovered", func(t *testing.T) {
		consumed, uncovered := ConsumeLots(nil, dec("1"))
		assert.Empty(t, consumed)
		assert.True(t, uncovered.Equal(dec("1")))
	})
}

// 1.5 WETH bought for $2800, sold 400 days later for $3200: a single
// $400 long-term gain.
func TestBuildDisposalsLongTermGain(t *testing.T) {
	acquired := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	disposed := acquired.Add(400 * 24 * time.Hour)

	lots := []model.TaxLot{lot(1, acquired, "1.5", "1.5", "2800")}
	consumed, uncovered := ConsumeLots(lots, dec("1.5"))

	disposals, err := BuildDisposals(1, "0xweth", "WETH", consumed, uncovered, dec("1.5"), dec("3200"), disposed)
	require.NoError(t, err)
	require.Len(t, disposals, 1)

	d := disposals[0]
	assert.Equal(t, int64(1), d.TaxLotID)
	assert.True(t, d.ProceedsUsd.Equal(dec("3200")))
	assert.True(t, d.CostBasisUsd.Equal(dec("2800")))
	assert.True(t, d.GainLossUsd.Equal(dec("400")))
	assert.False(t, d.IsShortTerm)
	assert.Equal(t, acquired, d.AcquiredAt)
	assert.Equal(t, disposed, d.DisposedAt)
}

func TestBuildDisposalsProRataSplit(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dec1 := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	disposed := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	lots := []model.TaxLot{
		lot(1, jan, "2", "2", "4000"),
		lot(2, dec1, "1", "1", "3000"),
	}
	consumed, uncovered := ConsumeLots(lots, dec("3"))

	disposals, err := BuildDisposals(1, "0xweth", "WETH", consumed, uncovered, dec("3"), dec("9000"), disposed)
	require.NoError(t, err)
	require.Len(t, disposals, 2)

	// 2/3 and 1/3 of the proceeds; rows sum exactly to the total.
	assert.True(t, disposals[0].ProceedsUsd.Equal(dec("6000")))
	assert.True(t, disposals[1].ProceedsUsd.Equal(dec("3000")))
	assert.True(t, disposals[0].ProceedsUsd.Add(disposals[1].ProceedsUsd).Equal(dec("9000")))

	// Term is computed per lot, not per transaction.
	assert.False(t, disposals[0].IsShortTerm)
	assert.True(t, disposals[1].IsShortTerm)
}

// Odd proceeds that do not divide evenly: the final row absorbs the
// rounding remainder so the split sums exactly.
func TestBuildDisposalsRoundingRemainder(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	disposed := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	lots := []model.TaxLot{
		lot(1, jan, "1", "1", "10"),
		lot(2, feb, "1", "1", "10"),
		lot(3, mar, "1", "1", "10"),
	}
	consumed, uncovered := ConsumeLots(lots, dec("3"))

	disposals, err := BuildDisposals(1, "0xweth", "WETH", consumed, uncovered, dec("3"), dec("100"), disposed)
	require.NoError(t, err)
	require.Len(t, disposals, 3)

	total := decimal.Zero
	for _, d := range disposals {
		total = total.Add(d.ProceedsUsd)
		assert.True(t, d.GainLossUsd.Equal(d.ProceedsUsd.Sub(d.CostBasisUsd)),
			"gain/loss must equal proceeds minus basis")
	}
	assert.True(t, total.Equal(dec("100")), "rows sum to the rounded proceeds, got %s", total)
}

func TestBuildDisposalsUncoveredRemainder(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	disposed := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	lots := []model.TaxLot{lot(1, jan, "1", "1", "2000")}
	consumed, uncovered := ConsumeLots(lots, dec("2"))

	disposals, err := BuildDisposals(1, "0xweth", "WETH", consumed, uncovered, dec("2"), dec("5000"), disposed)
	require.NoError(t, err)
	require.Len(t, disposals, 2)

	short := disposals[1]
	assert.Equal(t, int64(0), short.TaxLotID, "uncovered remainder has no lot")
	assert.Equal(t, "WETH", short.Symbol)
	assert.True(t, short.Amount.Equal(dec("1")))
	assert.True(t, short.CostBasisUsd.IsZero(), "no basis without a lot")
	assert.True(t, short.ProceedsUsd.Equal(short.GainLossUsd), "zero-basis proceeds are pure gain")
	assert.True(t, short.IsShortTerm)
	assert.True(t, short.AcquiredAt.IsZero())

	total := disposals[0].ProceedsUsd.Add(short.ProceedsUsd)
	assert.True(t, total.Equal(dec("5000")))
}

func TestBuildDisposalsRejectsNonPositiveAmount(t *testing.T) {
	_, err := BuildDisposals(1, "0xweth", "WETH", nil, decimal.Zero, decimal.Zero, dec("100"), time.Now())
	assert.Error(t, err)
}

// Exactly 365 days is long-term; a day less is short-term.
func TestBuildDisposalsHoldingBoundary(t *testing.T) {
	acquired := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		held      time.Duration
		wantShort bool
	}{
		{"364 days is short-term", 364 * 24 * time.Hour, true},
		{"exactly 365 days is long-term", model.LongTermHolding, false},
		{"366 days is long-term", 366 * 24 * time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lots := []model.TaxLot{lot(1, acquired, "1", "1", "1000")}
			consumed, uncovered := ConsumeLots(lots, dec("1"))

			disposals, err := BuildDisposals(1, "0xweth", "WETH", consumed, uncovered, dec("1"), dec("1200"), acquired.Add(tt.held))
			require.NoError(t, err)
			require.Len(t, disposals, 1)
			assert.Equal(t, tt.wantShort, disposals[0].IsShortTerm)
		})
	}
}
