package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/chaintally/chaintally/internal/cli"
	"github.com/chaintally/chaintally/internal/model"
)

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change preferences",
	}

	cmd.AddCommand(settingsShowCmd())
	cmd.AddCommand(settingsSetCmd())

	return cmd
}

func settingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			db, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(db)

			settings, err := db.GetSettings(ctx)
			if err != nil {
				return err
			}

			taxYear := "current year"
			if settings.TaxYear != 0 {
				taxYear = strconv.Itoa(settings.TaxYear)
			}

			fmt.Println(cli.TitleStyle.Render("Settings"))
			fmt.Printf("  cost_basis_method   %s\n", settings.CostBasisMethod)
			fmt.Printf("  dust_threshold_usd  %s\n", settings.DustThresholdUsd.StringFixed(2))
			fmt.Printf("  tax_year            %s\n", taxYear)
			fmt.Printf("  hide_dust           %t\n", settings.HideDust)
			fmt.Printf("  hide_spam           %t\n", settings.HideSpam)
			return nil
		},
	}
}

func settingsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a setting",
		Long: `Change one preference.

Keys:
  cost_basis_method   fifo, lifo, hifo, specific_id
  dust_threshold_usd  decimal USD amount, e.g. 1.00
  tax_year            four-digit year, or 0 for the current year
  hide_dust           true or false
  hide_spam           true or false`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key, value := strings.ToLower(args[0]), args[1]

			db, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(db)

			settings, err := db.GetSettings(ctx)
			if err != nil {
				return err
			}

			switch key {
			case "cost_basis_method":
				method := model.CostBasisMethod(strings.ToLower(value))
				if !model.ValidMethod(method) {
					return fmt.Errorf("invalid cost basis method %q (valid: fifo, lifo, hifo, specific_id)", value)
				}
				settings.CostBasisMethod = method
				if method == model.MethodSpecificID {
					fmt.Println(cli.WarningStyle.Render(
						"specific_id has no lot picker yet; reports consume lots oldest-first (fifo) until one exists"))
				}
			case "dust_threshold_usd":
				threshold, err := decimal.NewFromString(value)
				if err != nil || threshold.IsNegative() {
					return fmt.Errorf("invalid dust threshold %q", value)
				}
				settings.DustThresholdUsd = threshold
			case "tax_year":
				year, err := strconv.Atoi(value)
				if err != nil || year < 0 {
					return fmt.Errorf("invalid tax year %q", value)
				}
				settings.TaxYear = year
			case "hide_dust":
				hide, err := strconv.ParseBool(value)
				if err != nil {
					return fmt.Errorf("invalid boolean %q", value)
				}
				settings.HideDust = hide
			case "hide_spam":
				hide, err := strconv.ParseBool(value)
				if err != nil {
					return fmt.Errorf("invalid boolean %q", value)
				}
				settings.HideSpam = hide
			default:
				return fmt.Errorf("unknown setting %q", key)
			}

			if err := db.SaveSettings(ctx, settings); err != nil {
				return err
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("✓ %s = %s", key, value)))
			return nil
		},
	}
}
