package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chaintally/chaintally/internal/cli"
	"github.com/chaintally/chaintally/internal/model"
	"github.com/chaintally/chaintally/internal/report"
	"github.com/chaintally/chaintally/internal/tax"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <wallet-id>",
		Short: "Generate tax reports",
		Long: `Rebuild the wallet's tax lots from its classified history, then
write the selected CSV report.

Report types:
  detail    one row per disposal (capital gains detail)
  summary   short/long-term gain and loss totals for the year
  income    income totals by classification

Transactions still waiting for review are excluded; resolve them first
with 'chaintally classify list'.`,
		Args: cobra.ExactArgs(1),
		RunE: runReport,
	}

	cmd.Flags().Int("year", 0, "tax year (default: settings tax_year, else current year)")
	cmd.Flags().String("type", "summary", "report type: detail, summary, income")
	cmd.Flags().StringP("output", "o", "", "write to file instead of stdout")

	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	walletID, err := parseID(args[0], "wallet")
	if err != nil {
		return err
	}
	reportType, _ := cmd.Flags().GetString("type")
	year, _ := cmd.Flags().GetInt("year")
	output, _ := cmd.Flags().GetString("output")

	db, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(db)

	wallet, err := db.GetWallet(ctx, walletID)
	if err != nil {
		return err
	}

	settings, err := db.GetSettings(ctx)
	if err != nil {
		return err
	}
	if year == 0 {
		year = settings.TaxYear
	}
	if year == 0 {
		year = time.Now().UTC().Year()
	}

	if settings.CostBasisMethod == model.MethodSpecificID {
		fmt.Fprintln(os.Stderr, cli.WarningStyle.Render(
			"cost_basis_method is specific_id, but reports have no lot picker; lots are consumed oldest-first (fifo)"))
	}

	if err := tax.NewEngine(db).Rebuild(ctx, walletID); err != nil {
		return fmt.Errorf("failed to rebuild tax lots: %w", err)
	}

	out, closeOut, err := openOutput(output)
	if err != nil {
		return err
	}
	defer closeOut()

	var netLine string
	switch reportType {
	case "detail":
		disposals, err := db.GetDisposalsByYear(ctx, walletID, year)
		if err != nil {
			return err
		}
		if err := report.WriteDisposalDetail(out, disposals); err != nil {
			return err
		}
	case "summary":
		disposals, err := db.GetDisposalsByYear(ctx, walletID, year)
		if err != nil {
			return err
		}
		summary := tax.Summarize(disposals, year)
		if err := report.WriteScheduleSummary(out, summary); err != nil {
			return err
		}
		style := cli.GainStyle
		if summary.NetGainLoss.IsNegative() {
			style = cli.LossStyle
		}
		netLine = style.Render(fmt.Sprintf("  Net gain/loss: $%s", summary.NetGainLoss.StringFixed(2)))
	case "income":
		income, err := db.GetIncomeTransactions(ctx, walletID, year)
		if err != nil {
			return err
		}
		if err := report.WriteIncomeSummary(out, income); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown report type %q (valid: detail, summary, income)", reportType)
	}

	if output != "" {
		fmt.Println(cli.SuccessStyle.Render(
			fmt.Sprintf("✓ Wrote %s report for %s (%d) to %s", reportType, wallet.Address, year, output)))
		if netLine != "" {
			fmt.Println(netLine)
		}
	}
	return nil
}

// openOutput returns stdout when path is empty. The returned close func
// is a no-op for stdout.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
