package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chaintally/chaintally/internal/cli"
	"github.com/chaintally/chaintally/internal/model"
	"github.com/chaintally/chaintally/internal/rules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage classification rules",
		Long: `Rules override the heuristic classifier. Each rule matches on any
combination of contract address, method name, token symbol, and chain;
all set conditions must match. Higher priority wins, and rules never
override a manual classification.`,
	}

	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesRemoveCmd())
	cmd.AddCommand(rulesApplyCmd())

	return cmd
}

func rulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <classification>",
		Short: "Add a classification rule",
		Long: `Create a rule assigning the given classification to matching
transactions. At least one condition flag is required.

Examples:
  chaintally rules add stake --contract 0x00000000219ab540356cbb839cbe05303d7705fa
  chaintally rules add reward --symbol ARB --chain arbitrum-mainnet --priority 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			class := model.Classification(strings.ToLower(args[0]))
			if !class.Valid() {
				return fmt.Errorf("unknown classification %q (valid: %s)",
					args[0], strings.Join(classificationNames(), ", "))
			}

			contract, _ := cmd.Flags().GetString("contract")
			method, _ := cmd.Flags().GetString("method")
			symbol, _ := cmd.Flags().GetString("symbol")
			chain, _ := cmd.Flags().GetString("chain")
			priority, _ := cmd.Flags().GetInt("priority")

			if chain != "" && !model.ChainSupported(chain) {
				return fmt.Errorf("unsupported chain %q (supported: %s)",
					chain, strings.Join(model.SupportedChains, ", "))
			}

			rule := &model.ClassificationRule{
				ContractAddress: contract,
				MethodName:      method,
				TokenSymbol:     symbol,
				Chain:           chain,
				Classification:  class,
				Priority:        priority,
				IsActive:        true,
			}
			if !rule.HasConditions() {
				return fmt.Errorf("at least one of --contract, --method, --symbol, --chain is required")
			}

			db, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(db)

			if err := db.CreateRule(ctx, rule); err != nil {
				return err
			}

			fmt.Println(cli.SuccessStyle.Render(
				fmt.Sprintf("✓ Rule %d created: %s (priority %d)", rule.ID, describeRule(rule), rule.Priority)))
			fmt.Println(cli.SubtleStyle.Render("Run 'chaintally rules apply' to reclassify existing transactions."))
			return nil
		},
	}

	cmd.Flags().String("contract", "", "match on contract address (exact, case-insensitive)")
	cmd.Flags().String("method", "", "match on method name (exact, case-insensitive)")
	cmd.Flags().String("symbol", "", "match on token symbol (substring, case-insensitive)")
	cmd.Flags().String("chain", "", "match on chain (exact)")
	cmd.Flags().Int("priority", 0, "rule priority, higher wins")

	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List classification rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			db, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(db)

			ruleSet, err := db.GetActiveRules(ctx)
			if err != nil {
				return err
			}
			if len(ruleSet) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No rules defined. Add one with 'chaintally rules add'."))
				return nil
			}

			fmt.Println(cli.HeaderStyle.Render(fmt.Sprintf("%-4s %-8s %-20s %s",
				"ID", "PRIORITY", "CLASSIFICATION", "CONDITIONS")))
			for _, rule := range ruleSet {
				fmt.Printf("%-4d %-8d %-20s %s\n",
					rule.ID, rule.Priority, rule.Classification, describeRule(&rule))
			}
			return nil
		},
	}
}

func rulesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a classification rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "rule")
			if err != nil {
				return err
			}

			db, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(db)

			if err := db.DeleteRule(ctx, id); err != nil {
				return err
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("✓ Removed rule %d", id)))
			fmt.Println(cli.SubtleStyle.Render("Existing classifications are kept; run 'chaintally rules apply' to recompute."))
			return nil
		},
	}
}

func rulesApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Re-run the rule set over stored transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			walletID, _ := cmd.Flags().GetInt64("wallet")

			db, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(db)

			wallets, err := selectWalletsByID(ctx, db, walletID)
			if err != nil {
				return err
			}

			applier := rules.NewApplier(db)
			total := 0
			for i := range wallets {
				applied, err := applier.ApplyAll(ctx, wallets[i].ID)
				if err != nil {
					return fmt.Errorf("failed to apply rules to wallet %s: %w", wallets[i].Address, err)
				}
				total += applied
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("✓ Reclassified %d transaction(s)", total)))
			return nil
		},
	}

	cmd.Flags().Int64("wallet", 0, "limit to one wallet id")

	return cmd
}

func describeRule(rule *model.ClassificationRule) string {
	var conditions []string
	if rule.ContractAddress != "" {
		conditions = append(conditions, "contract="+rule.ContractAddress)
	}
	if rule.MethodName != "" {
		conditions = append(conditions, "method="+rule.MethodName)
	}
	if rule.TokenSymbol != "" {
		conditions = append(conditions, "symbol~"+rule.TokenSymbol)
	}
	if rule.Chain != "" {
		conditions = append(conditions, "chain="+rule.Chain)
	}
	return strings.Join(conditions, " ") + " → " + string(rule.Classification)
}
