package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jakebrehm/osrs-economy/lib/configutil"
	"github.com/jakebrehm/osrs-economy/lib/geapi"
	"github.com/jakebrehm/osrs-economy/lib/storage"
	"github.com/jakebrehm/osrs-economy/lib/telemetry"
	"github.com/jakebrehm/osrs-economy/lib/warehouse"
	"github.com/jakebrehm/osrs-economy/services/details"
	"github.com/jakebrehm/osrs-economy/services/prices"

	"github.com/spf13/cobra"
)

type Config struct {
	ProjectName    string           `json:"project_name"`
	UserAgent      string           `json:"user_agent"`
	TimeoutSeconds int              `json:"timeout_seconds"`
	Endpoints      geapi.Endpoints  `json:"endpoints"`
	Details        details.Config   `json:"details"`
	Prices         prices.Config    `json:"prices"`
	Storage        storage.Config   `json:"storage"`
	Warehouse      warehouse.Config `json:"warehouse"`
}

var storageMode string
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "osrs-economy",
	Short: "Ingests OSRS item details and price quotes from public APIs.",
	Long: `Ingests item metadata and price quotes for the Old School RuneScape
economy, persists them as JSON documents (locally or in object storage)
and, in object mode, loads finished snapshots into warehouse tables.

Runs are resumable: interrupting with Ctrl+C checkpoints progress and a
later run picks up where this one stopped.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storageMode, "storage", "", "override the configured storage mode (local or object)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func Execute(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		os.Exit(1)
	}
}

type env struct {
	config    Config
	client    *geapi.Client
	store     storage.Store
	telemetry telemetry.Telemetry
}

func setup(ctx context.Context) (env, error) {
	telemetry.InitSlog(verbose)

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		return env{}, fmt.Errorf("read config: %w", err)
	}
	if storageMode != "" {
		config.Storage.Mode = storage.Mode(storageMode)
	}

	tel, err := telemetry.SetupFromEnv(ctx, "osrs-economy")
	if err != nil {
		return env{}, fmt.Errorf("setup telemetry: %w", err)
	}
	telemetry.InstrumentPerfStats(ctx)

	client := geapi.NewClient(geapi.Config{
		Endpoints:      config.Endpoints,
		UserAgent:      config.UserAgent,
		TimeoutSeconds: config.TimeoutSeconds,
	})

	store, err := storage.FromConfig(config.Storage, storage.Resolve(config.Storage, time.Now()))
	if err != nil {
		return env{}, err
	}

	return env{
		config:    config,
		client:    client,
		store:     store,
		telemetry: tel,
	}, nil
}
