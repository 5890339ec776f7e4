// Package report serializes tax summaries to CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/chaintally/chaintally/internal/model"
	"github.com/chaintally/chaintally/internal/tax"
)

const dateLayout = "2006-01-02"

// WriteDisposalDetail writes the capital-gains-detail report: one row
// per disposal.
func WriteDisposalDetail(w io.Writer, disposals []model.Disposal) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Symbol", "Date Acquired", "Date Sold", "Proceeds", "Cost Basis", "Gain/Loss"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, d := range disposals {
		acquired := ""
		if !d.AcquiredAt.IsZero() {
			acquired = d.AcquiredAt.Format(dateLayout)
		}
		row := []string{
			d.Symbol,
			acquired,
			d.DisposedAt.Format(dateLayout),
			d.ProceedsUsd.StringFixed(2),
			d.CostBasisUsd.StringFixed(2),
			d.GainLossUsd.StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write disposal row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteScheduleSummary writes the schedule-summary report: one totals
// row across the four gain/loss buckets.
func WriteScheduleSummary(w io.Writer, summary tax.YearlySummary) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Category", "Short-Term Gain", "Short-Term Loss", "Long-Term Gain", "Long-Term Loss", "Net"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := []string{
		fmt.Sprintf("Capital Gains %d", summary.Year),
		summary.ShortTermGains.StringFixed(2),
		summary.ShortTermLosses.StringFixed(2),
		summary.LongTermGains.StringFixed(2),
		summary.LongTermLosses.StringFixed(2),
		summary.NetGainLoss.StringFixed(2),
	}
	if err := cw.Write(row); err != nil {
		return fmt.Errorf("failed to write summary row: %w", err)
	}

	cw.Flush()
	return cw.Error()
}

// WriteIncomeSummary writes the income report: one row per income type
// plus a totals row.
func WriteIncomeSummary(w io.Writer, transactions []model.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Type", "Amount"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	byType := make(map[model.Classification]decimal.Decimal)
	total := decimal.Zero
	for _, txn := range transactions {
		if !txn.Classification.IsIncomeType() {
			continue
		}
		value := model.RoundUsd(txn.ValueUsd)
		byType[txn.Classification] = byType[txn.Classification].Add(value)
		total = total.Add(value)
	}

	types := make([]string, 0, len(byType))
	for class := range byType {
		types = append(types, string(class))
	}
	sort.Strings(types)

	for _, class := range types {
		row := []string{class, byType[model.Classification(class)].StringFixed(2)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write income row: %w", err)
		}
	}
	if err := cw.Write([]string{"total", total.StringFixed(2)}); err != nil {
		return fmt.Errorf("failed to write total row: %w", err)
	}

	cw.Flush()
	return cw.Error()
}
