package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chaintally/chaintally/internal/cli"
	"github.com/chaintally/chaintally/internal/model"
)

func walletsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallets",
		Short: "Manage tracked wallets",
	}

	cmd.AddCommand(walletsAddCmd())
	cmd.AddCommand(walletsListCmd())
	cmd.AddCommand(walletsRemoveCmd())

	return cmd
}

func walletsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <address>",
		Short: "Track a new wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			chain, _ := cmd.Flags().GetString("chain")
			label, _ := cmd.Flags().GetString("label")

			if !model.ChainSupported(chain) {
				return fmt.Errorf("unsupported chain %q (supported: %s)",
					chain, strings.Join(model.SupportedChains, ", "))
			}

			db, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(db)

			wallet := &model.Wallet{
				Address: args[0],
				Chain:   chain,
				Label:   label,
			}
			if err := db.CreateWallet(ctx, wallet); err != nil {
				return err
			}

			fmt.Println(cli.SuccessStyle.Render(
				fmt.Sprintf("✓ Tracking %s on %s (id %d)", wallet.Address, wallet.Chain, wallet.ID)))
			return nil
		},
	}

	cmd.Flags().String("chain", "eth-mainnet", "chain to track the address on")
	cmd.Flags().String("label", "", "display label for the wallet")

	return cmd
}

func walletsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked wallets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			db, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(db)

			wallets, err := db.ListWallets(ctx)
			if err != nil {
				return err
			}
			if len(wallets) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No wallets tracked yet. Add one with 'chaintally wallets add'."))
				return nil
			}

			fmt.Println(cli.HeaderStyle.Render(fmt.Sprintf("%-4s %-44s %-18s %s", "ID", "ADDRESS", "CHAIN", "LABEL")))
			for _, w := range wallets {
				fmt.Printf("%-4d %-44s %-18s %s\n", w.ID, w.Address, w.Chain, w.Label)
			}
			return nil
		},
	}
}

func walletsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Stop tracking a wallet and delete its data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "wallet")
			if err != nil {
				return err
			}

			db, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(db)

			if err := db.DeleteWallet(ctx, id); err != nil {
				return err
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("✓ Removed wallet %d and all of its data", id)))
			return nil
		},
	}
}
