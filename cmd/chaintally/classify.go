package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chaintally/chaintally/internal/cli"
	"github.com/chaintally/chaintally/internal/model"
	"github.com/chaintally/chaintally/internal/service"
	"github.com/chaintally/chaintally/internal/storage"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Review and correct transaction classifications",
	}

	cmd.AddCommand(classifyListCmd())
	cmd.AddCommand(classifySetCmd())

	return cmd
}

func classifyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions waiting for review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			walletID, _ := cmd.Flags().GetInt64("wallet")
			all, _ := cmd.Flags().GetBool("all")

			db, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(db)

			filter := service.TransactionFilter{IncludeSpam: all, IncludeDust: true}
			if !all {
				needsReview := true
				filter.NeedsReview = &needsReview
			}

			wallets, err := selectWalletsByID(ctx, db, walletID)
			if err != nil {
				return err
			}

			total := 0
			for i := range wallets {
				txns, err := db.GetTransactions(ctx, wallets[i].ID, filter)
				if err != nil {
					return err
				}
				if len(txns) == 0 {
					continue
				}

				fmt.Println(cli.TitleStyle.Render(walletHeading(&wallets[i])))
				fmt.Println(cli.HeaderStyle.Render(fmt.Sprintf("%-6s %-12s %-14s %-20s %-24s %s",
					"ID", "DATE", "HASH", "CLASSIFICATION", "ACTIVITY", "CONTRACT")))
				for _, txn := range txns {
					fmt.Printf("%-6d %-12s %-14s %-20s %-24s %s\n",
						txn.ID,
						txn.Timestamp.Format("2006-01-02"),
						shortHash(txn.Hash),
						txn.Classification,
						describeActivity(&txn),
						txn.ContractAddress)
				}
				total += len(txns)
			}

			if total == 0 {
				fmt.Println(cli.SuccessStyle.Render("✓ Nothing waiting for review"))
				return nil
			}

			fmt.Println()
			fmt.Println(cli.SubtleStyle.Render(
				fmt.Sprintf("%d transaction(s). Correct one with 'chaintally classify set <id> <label>'.", total)))
			return nil
		},
	}

	cmd.Flags().Int64("wallet", 0, "limit to one wallet id")
	cmd.Flags().Bool("all", false, "show every transaction, not just the review queue")

	return cmd
}

func classifySetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <transaction-id> <classification>",
		Short: "Manually classify a transaction",
		Long: `Assign a classification by hand. Manual classifications are final:
they are recorded at full confidence, removed from the review queue, and
never overwritten by rules or later syncs.

Valid classifications: ` + strings.Join(classificationNames(), ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0], "transaction")
			if err != nil {
				return err
			}

			class := model.Classification(strings.ToLower(args[1]))
			if !class.Valid() {
				return fmt.Errorf("unknown classification %q (valid: %s)",
					args[1], strings.Join(classificationNames(), ", "))
			}

			db, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(db)

			txn, err := db.GetTransaction(ctx, id)
			if err != nil {
				return err
			}

			if err := db.UpdateClassification(ctx, id, class, 1.0, model.SourceManual); err != nil {
				return err
			}

			fmt.Println(cli.SuccessStyle.Render(
				fmt.Sprintf("✓ %s is now %s (was %s)", shortHash(txn.Hash), class, txn.Classification)))
			return nil
		},
	}
}

// selectWalletsByID returns the one wallet when id is set, otherwise all
// tracked wallets.
func selectWalletsByID(ctx context.Context, db *storage.SQLiteStorage, id int64) ([]model.Wallet, error) {
	if id > 0 {
		wallet, err := db.GetWallet(ctx, id)
		if err != nil {
			return nil, err
		}
		return []model.Wallet{*wallet}, nil
	}
	return db.ListWallets(ctx)
}

func walletHeading(w *model.Wallet) string {
	if w.Label != "" {
		return fmt.Sprintf("%s (%s)", w.Label, w.Address)
	}
	return w.Address
}

func shortHash(hash string) string {
	if len(hash) <= 14 {
		return hash
	}
	return hash[:8] + "…" + hash[len(hash)-4:]
}

func describeActivity(txn *model.Transaction) string {
	switch {
	case txn.HasInbound() && txn.HasOutbound():
		return fmt.Sprintf("%s %s ⇄ %s %s",
			txn.OutboundAmount.String(), txn.OutboundSymbol,
			txn.InboundAmount.String(), txn.InboundSymbol)
	case txn.HasInbound():
		return fmt.Sprintf("+%s %s", txn.InboundAmount.String(), txn.InboundSymbol)
	case txn.HasOutbound():
		return fmt.Sprintf("-%s %s", txn.OutboundAmount.String(), txn.OutboundSymbol)
	default:
		return "no value moved"
	}
}

func classificationNames() []string {
	names := make([]string, 0, len(model.AllClassifications))
	for _, c := range model.AllClassifications {
		names = append(names, string(c))
	}
	return names
}
