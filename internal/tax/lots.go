// Package tax matches token disposals against acquisition lots and
// rolls realized gains into yearly summaries.
package tax

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chaintally/chaintally/internal/model"
)

// orderLots sorts open lots into consumption order for the given
// method. Only lots with remaining inventory are returned.
func orderLots(lots []model.TaxLot, method model.CostBasisMethod) []model.TaxLot {
	open := make([]model.TaxLot, 0, len(lots))
	for _, lot := range lots {
		if lot.RemainingAmount.IsPositive() {
			open = append(open, lot)
		}
	}

	switch method {
	case model.MethodLIFO:
		sort.SliceStable(open, func(i, j int) bool {
			return open[i].AcquiredAt.After(open[j].AcquiredAt)
		})
	case model.MethodHIFO:
		sort.SliceStable(open, func(i, j int) bool {
			return open[i].UnitCost().GreaterThan(open[j].UnitCost())
		})
	default:
		// FIFO ordering; specific-id selection happens before this
		// point by narrowing the lot slice to the caller's choice.
		sort.SliceStable(open, func(i, j int) bool {
			return open[i].AcquiredAt.Before(open[j].AcquiredAt)
		})
	}

	return open
}

// Consumption records how much was drawn from one lot.
type Consumption struct {
	Lot      model.TaxLot
	Consumed decimal.Decimal
}

// ConsumeLots draws the disposal amount from the given lots in order,
// spilling into the next lot when one runs dry. When total inventory is
// insufficient, the uncovered remainder is returned so the caller can
// treat it as zero-basis proceeds.
func ConsumeLots(lots []model.TaxLot, amount decimal.Decimal) (consumed []Consumption, uncovered decimal.Decimal) {
	remaining := amount
	for _, lot := range lots {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(remaining, lot.RemainingAmount)
		if !take.IsPositive() {
			continue
		}
		consumed = append(consumed, Consumption{Lot: lot, Consumed: take})
		remaining = remaining.Sub(take)
	}
	return consumed, remaining
}

// BuildDisposals turns a consumption plan into one Disposal per lot.
// Proceeds are apportioned pro rata by quantity, with the final row
// absorbing the rounding remainder so the rows sum exactly to the
// disposal's proceeds. Cost basis is the proportional share of each
// lot's original basis; gainLoss is proceeds minus basis at 2-decimal
// resolution. The short/long-term flag is computed per consumed lot.
func BuildDisposals(walletID int64, token, symbol string, consumed []Consumption, uncovered, totalAmount, proceedsUsd decimal.Decimal, disposedAt time.Time) ([]model.Disposal, error) {
	if !totalAmount.IsPositive() {
		return nil, fmt.Errorf("disposal amount must be positive, got %s", totalAmount)
	}

	proceedsUsd = model.RoundUsd(proceedsUsd)

	var disposals []model.Disposal
	allocated := decimal.Zero

	for i, c := range consumed {
		share := model.RoundUsd(proceedsUsd.Mul(c.Consumed).Div(totalAmount))
		last := i == len(consumed)-1 && !uncovered.IsPositive()
		if last {
			share = proceedsUsd.Sub(allocated)
		}
		allocated = allocated.Add(share)

		basis := model.RoundUsd(c.Lot.UnitCost().Mul(c.Consumed))
		disposals = append(disposals, model.Disposal{
			WalletID:     walletID,
			TaxLotID:     c.Lot.ID,
			Token:        c.Lot.Token,
			Symbol:       c.Lot.Symbol,
			Amount:       c.Consumed,
			ProceedsUsd:  share,
			CostBasisUsd: basis,
			GainLossUsd:  share.Sub(basis),
			IsShortTerm:  disposedAt.Sub(c.Lot.AcquiredAt) < model.LongTermHolding,
			AcquiredAt:   c.Lot.AcquiredAt,
			DisposedAt:   disposedAt,
		})
	}

	// Inventory shortfall: the uncovered portion has no lot and no
	// basis, so its proceeds are entirely gain.
	if uncovered.IsPositive() {
		share := proceedsUsd.Sub(allocated)
		disposals = append(disposals, model.Disposal{
			WalletID:     walletID,
			Token:        token,
			Symbol:       symbol,
			Amount:       uncovered,
			ProceedsUsd:  share,
			CostBasisUsd: decimal.Zero,
			GainLossUsd:  share,
			IsShortTerm:  true,
			DisposedAt:   disposedAt,
		})
	}

	return disposals, nil
}
