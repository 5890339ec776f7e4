package tax

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/chaintally/chaintally/internal/model"
)

// YearlySummary is the four-bucket capital gains rollup for one tax
// year, plus the independently computed income total. Losses are stored
// as absolute values.
type YearlySummary struct {
	Year            int
	ShortTermGains  decimal.Decimal
	ShortTermLosses decimal.Decimal
	LongTermGains   decimal.Decimal
	LongTermLosses  decimal.Decimal
	NetGainLoss     decimal.Decimal
	IncomeUsd       decimal.Decimal
}

// Summarize buckets disposals falling in the target year into
// short/long-term gains and losses. Pure aggregation: re-running over
// the same disposal set yields identical totals.
func Summarize(disposals []model.Disposal, year int) YearlySummary {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	s := YearlySummary{
		Year:            year,
		ShortTermGains:  decimal.Zero,
		ShortTermLosses: decimal.Zero,
		LongTermGains:   decimal.Zero,
		LongTermLosses:  decimal.Zero,
		IncomeUsd:       decimal.Zero,
	}

	for _, d := range disposals {
		if d.DisposedAt.Before(start) || !d.DisposedAt.Before(end) {
			continue
		}
		switch {
		case d.IsShortTerm && d.GainLossUsd.Sign() >= 0:
			s.ShortTermGains = s.ShortTermGains.Add(d.GainLossUsd)
		case d.IsShortTerm:
			s.ShortTermLosses = s.ShortTermLosses.Add(d.GainLossUsd.Abs())
		case d.GainLossUsd.Sign() >= 0:
			s.LongTermGains = s.LongTermGains.Add(d.GainLossUsd)
		default:
			s.LongTermLosses = s.LongTermLosses.Add(d.GainLossUsd.Abs())
		}
	}

	s.NetGainLoss = s.ShortTermGains.Sub(s.ShortTermLosses).
		Add(s.LongTermGains).Sub(s.LongTermLosses)
	return s
}

// SumIncome totals the USD value of income-type transactions in the
// target year. This is a direct transaction scan, independent of lots.
func SumIncome(transactions []model.Transaction, year int) decimal.Decimal {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	total := decimal.Zero
	for _, txn := range transactions {
		if !txn.Classification.IsIncomeType() {
			continue
		}
		if txn.Timestamp.Before(start) || !txn.Timestamp.Before(end) {
			continue
		}
		total = total.Add(model.RoundUsd(txn.ValueUsd))
	}
	return total
}
