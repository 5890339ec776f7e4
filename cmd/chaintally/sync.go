package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chaintally/chaintally/internal/alchemy"
	"github.com/chaintally/chaintally/internal/cli"
	"github.com/chaintally/chaintally/internal/common"
	"github.com/chaintally/chaintally/internal/model"
	"github.com/chaintally/chaintally/internal/service"
	"github.com/chaintally/chaintally/internal/storage"
	syncsvc "github.com/chaintally/chaintally/internal/sync"
	"github.com/chaintally/chaintally/internal/telegram"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [wallet-id]",
		Short: "Import and classify on-chain activity",
		Long: `Fetch each wallet's transfer history from the configured provider,
aggregate transfers into logical transactions, classify them, and store
the results. Without arguments every tracked wallet is synced.

Examples:
  chaintally sync       # Sync all tracked wallets
  chaintally sync 2     # Sync only wallet 2`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSync,
	}

	cmd.Flags().Bool("no-notify", false, "skip review notifications for this run")
	_ = viper.BindPFlag("sync.no_notify", cmd.Flags().Lookup("no-notify"))

	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(db)

	wallets, err := selectWallets(ctx, db, args)
	if err != nil {
		return err
	}

	source, err := alchemy.NewClient(viper.GetString("alchemy.api_key"))
	if err != nil {
		return common.NewUserError("transfer provider is not configured; set alchemy.api_key", err)
	}

	svc := syncsvc.NewService(db, source, buildNotifier())

	bar := progressbar.NewOptions(len(wallets),
		progressbar.OptionSetDescription("Syncing wallets"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	totals := service.SyncStats{}
	for i := range wallets {
		stats, syncErr := svc.SyncWallet(ctx, &wallets[i])
		if syncErr != nil {
			return fmt.Errorf("sync failed for wallet %s: %w", wallets[i].Address, syncErr)
		}
		totals.TotalTransfers += stats.TotalTransfers
		totals.Imported += stats.Imported
		totals.SkippedDuplicates += stats.SkippedDuplicates
		totals.Flagged += stats.Flagged
		_ = bar.Add(1)
	}

	fmt.Println(cli.TitleStyle.Render("Sync complete"))
	fmt.Printf("  Transfers fetched:  %d\n", totals.TotalTransfers)
	fmt.Printf("  Imported:           %d\n", totals.Imported)
	fmt.Printf("  Already known:      %d\n", totals.SkippedDuplicates)
	if totals.Flagged > 0 {
		fmt.Println(cli.ReviewStyle.Render(
			fmt.Sprintf("  Needs review:       %d (run 'chaintally classify list')", totals.Flagged)))
	}

	return nil
}

func selectWallets(ctx context.Context, db *storage.SQLiteStorage, args []string) ([]model.Wallet, error) {
	if len(args) == 1 {
		id, err := parseID(args[0], "wallet")
		if err != nil {
			return nil, err
		}
		wallet, err := db.GetWallet(ctx, id)
		if err != nil {
			return nil, err
		}
		return []model.Wallet{*wallet}, nil
	}

	wallets, err := db.ListWallets(ctx)
	if err != nil {
		return nil, err
	}
	if len(wallets) == 0 {
		return nil, fmt.Errorf("no wallets tracked; add one with 'chaintally wallets add'")
	}
	return wallets, nil
}

// buildNotifier wires the Telegram notifier when configured. A missing
// notifier only disables notifications; it never blocks a sync.
func buildNotifier() service.Notifier {
	if viper.GetBool("sync.no_notify") {
		return nil
	}

	notifier, err := telegram.NewNotifier(
		viper.GetString("telegram.bot_token"),
		viper.GetString("telegram.chat_id"),
	)
	if err != nil {
		slog.Debug("Telegram notifications disabled", "reason", err)
		return nil
	}
	return notifier
}
