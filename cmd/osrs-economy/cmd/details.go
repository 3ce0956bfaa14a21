package cmd

import (
	"context"
	"log/slog"

	"github.com/jakebrehm/osrs-economy/lib/progress"
	"github.com/jakebrehm/osrs-economy/lib/serviceutil"
	"github.com/jakebrehm/osrs-economy/lib/storage"
	"github.com/jakebrehm/osrs-economy/lib/warehouse"
	"github.com/jakebrehm/osrs-economy/services/details"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(detailsCmd)
}

var detailsCmd = &cobra.Command{
	Use:   "details",
	Short: "Fetch metadata for missing and stale tradeable items.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		env, err := setup(ctx)
		if err != nil {
			serviceutil.Fatal("failed to set up", err)
		}
		defer env.telemetry.Shutdown(context.Background())

		service := details.NewService(env.client, env.store, progress.NewConsole(), env.config.Details)
		doc, err := service.Run(ctx)
		if err != nil {
			serviceutil.Fatal("details run failed", err)
		}

		if env.config.Storage.Mode != storage.ModeObject {
			return
		}
		if ctx.Err() != nil {
			slog.Info("run was interrupted, skipping warehouse upload")
			return
		}
		err = warehouse.With(ctx, env.config.Warehouse, func(sink warehouse.Sink) error {
			return details.Upload(ctx, sink, env.config.Warehouse.ItemsTable, doc)
		})
		if err != nil {
			serviceutil.Fatal("warehouse upload failed", err)
		}
	},
}
