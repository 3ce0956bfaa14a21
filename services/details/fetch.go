package details

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jakebrehm/osrs-economy/lib/geapi"
	"github.com/jakebrehm/osrs-economy/lib/progress"
	"github.com/jakebrehm/osrs-economy/lib/storage"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

type Config struct {
	// records older than this many days are candidates for re-fetching
	StalenessDays int `json:"staleness_days"`
	// upper bound on stale records re-fetched per run
	SampleSize int `json:"sample_size"`
	// number of processed items between checkpoints
	ChunkSize int `json:"chunk_size"`
	// pause between detail lookups, to stay under the upstream rate limit
	WaitSeconds float64 `json:"wait_seconds"`
	SaveIcons   bool    `json:"save_icons"`
}

func (c Config) withDefaults() Config {
	if c.StalenessDays == 0 {
		c.StalenessDays = 30
	}
	if c.SampleSize == 0 {
		c.SampleSize = 50
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 20
	}
	if c.WaitSeconds == 0 {
		c.WaitSeconds = 5
	}
	return c
}

// Fetcher is the resumable detail-fetch loop. It issues one lookup per
// identifier in the work set, strictly sequentially, and checkpoints the
// document every ChunkSize items and once more at exit.
type Fetcher struct {
	client   *geapi.Client
	store    storage.Store
	reporter progress.Reporter
	limiter  *rate.Limiter
	config   Config
}

func NewFetcher(client *geapi.Client, store storage.Store, reporter progress.Reporter, config Config) *Fetcher {
	config = config.withDefaults()
	wait := time.Duration(config.WaitSeconds * float64(time.Second))
	return &Fetcher{
		client:   client,
		store:    store,
		reporter: reporter,
		limiter:  rate.NewLimiter(rate.Every(wait), 1),
		config:   config,
	}
}

// Run processes the work set against doc. total and done size the
// progress display (items known overall, items already up to date).
//
// A failed lookup marks the id invalid and the loop continues; the
// upstream delists items silently, so a transient failure is not
// distinguishable from a permanent one here. Cancelling ctx stops the
// loop gracefully: the current item's result is committed, a final
// checkpoint is written, and the remaining identifiers are left for the
// next run. Only checkpoint write failures abort the run.
func (f *Fetcher) Run(ctx context.Context, doc *Document, work []int, total, done int) error {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(attribute.Int("work_set", len(work)))

	f.reporter.Start("Fetching", int64(total), int64(done))
	defer f.reporter.Done()

	unsaved := 0
	for i, id := range work {
		detail, err := f.client.ItemDetail(ctx, id)
		if err != nil {
			slog.Warn("marking item invalid", "id", id, "err", err)
			f.reporter.SetMessage("Skipping")
			doc.MarkInvalid(id)
		} else {
			slog.Info("fetched item", "id", id, "name", detail.Name)
			f.reporter.SetMessage("Fetching")
			doc.Upsert(normalizeItem(detail, time.Now()))
			if f.config.SaveIcons && detail.Icon != "" {
				f.saveIcon(ctx, id, detail.Icon)
			}
		}
		f.reporter.Increment(1)
		unsaved++

		if unsaved >= f.config.ChunkSize {
			unsaved = 0
			err := Checkpoint(ctx, f.store, doc)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "checkpoint failed")
				return fmt.Errorf("checkpoint: %w", err)
			}
		}

		// the inter-request wait doubles as the cancellation point;
		// it is skipped after the final item and when stopping early
		if i == len(work)-1 {
			break
		}
		err = f.limiter.Wait(ctx)
		if err != nil {
			f.reporter.SetMessage("Stopping")
			slog.Info("stopping fetch early", "processed", i+1, "remaining", len(work)-i-1)
			break
		}
	}

	err := Checkpoint(ctx, f.store, doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "final checkpoint failed")
		return fmt.Errorf("final checkpoint: %w", err)
	}
	return nil
}

// saveIcon is a best-effort side effect: a failure never rolls back or
// blocks the record commit.
func (f *Fetcher) saveIcon(ctx context.Context, id int, url string) {
	data, err := f.client.FetchIcon(ctx, url)
	if err != nil {
		slog.Warn("failed to fetch item icon", "id", id, "err", err)
		return
	}
	name := fmt.Sprintf("images/%d.gif", id)
	err = f.store.PutBytes(context.WithoutCancel(ctx), storage.KindIcons, name, data, "image/gif")
	if err != nil {
		slog.Warn("failed to store item icon", "id", id, "err", err)
	}
}
