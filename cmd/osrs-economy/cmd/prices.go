package cmd

import (
	"context"
	"log/slog"

	"github.com/jakebrehm/osrs-economy/lib/progress"
	"github.com/jakebrehm/osrs-economy/lib/serviceutil"
	"github.com/jakebrehm/osrs-economy/lib/storage"
	"github.com/jakebrehm/osrs-economy/lib/warehouse"
	"github.com/jakebrehm/osrs-economy/services/prices"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pricesCmd)
}

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Fetch current price quotes for all known items.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		env, err := setup(ctx)
		if err != nil {
			serviceutil.Fatal("failed to set up", err)
		}
		defer env.telemetry.Shutdown(context.Background())

		service := prices.NewService(env.client, env.store, progress.NewConsole(), env.config.Prices)
		quotes, err := service.Run(ctx)
		if err != nil {
			serviceutil.Fatal("prices run failed", err)
		}

		if env.config.Storage.Mode != storage.ModeObject {
			return
		}
		if ctx.Err() != nil {
			slog.Info("run was interrupted, skipping warehouse upload")
			return
		}
		err = warehouse.With(ctx, env.config.Warehouse, func(sink warehouse.Sink) error {
			return prices.Upload(ctx, sink, env.config.Warehouse.PricesTable, quotes)
		})
		if err != nil {
			serviceutil.Fatal("warehouse upload failed", err)
		}
	},
}
