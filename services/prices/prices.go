// Package prices fetches current price quotes for every known item in
// fixed-size batches. Unlike the details loop there is no per-item
// staleness or invalid bookkeeping: quotes are ephemeral and the whole
// table is rebuilt each run.
package prices

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/jakebrehm/osrs-economy/lib/geapi"
	"github.com/jakebrehm/osrs-economy/lib/progress"
	"github.com/jakebrehm/osrs-economy/lib/storage"
	"github.com/jakebrehm/osrs-economy/lib/warehouse"
	"github.com/jakebrehm/osrs-economy/services/details"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("services/prices")

// the upstream rejects requests with more than 100 ids
const maxBatchSize = 100

type Config struct {
	BatchSize int `json:"batch_size"`
	// pause between batches
	WaitSeconds float64 `json:"wait_seconds"`
}

func (c Config) withDefaults() Config {
	if c.BatchSize == 0 || c.BatchSize > maxBatchSize {
		c.BatchSize = maxBatchSize
	}
	if c.WaitSeconds == 0 {
		c.WaitSeconds = 1
	}
	return c
}

type Service struct {
	client   *geapi.Client
	store    storage.Store
	reporter progress.Reporter
	config   Config
}

func NewService(client *geapi.Client, store storage.Store, reporter progress.Reporter, config Config) Service {
	return Service{
		client:   client,
		store:    store,
		reporter: reporter,
		config:   config.withDefaults(),
	}
}

// Run fetches quotes for the ids of every valid record in the details
// document. Each batch's result is merged into the accumulating table and
// the table is checkpointed after every batch, so an interrupted run
// still leaves a usable snapshot behind. A failed batch contributes
// nothing and the loop moves on; there is no retry.
func (s Service) Run(ctx context.Context) (map[string]geapi.PriceQuote, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	doc := details.LoadDocument(ctx, s.store)
	ids := doc.IDs()
	span.SetAttributes(attribute.Int("ids", len(ids)))
	if len(ids) == 0 {
		slog.Info("no known items to price, run the details fetch first")
		return map[string]geapi.PriceQuote{}, nil
	}

	wait := time.Duration(s.config.WaitSeconds * float64(time.Second))
	limiter := rate.NewLimiter(rate.Every(wait), 1)

	s.reporter.Start("Fetching", int64(len(ids)), 0)
	defer s.reporter.Done()

	table := map[string]geapi.PriceQuote{}
	batches := chunk(ids, s.config.BatchSize)
	for i, batch := range batches {
		quotes := s.client.Prices(ctx, batch)
		for id, quote := range quotes {
			table[id] = quote
		}
		s.reporter.Increment(int64(len(batch)))

		err := s.store.Save(context.WithoutCancel(ctx), storage.KindPrices, table)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "checkpoint failed")
			return table, fmt.Errorf("checkpoint: %w", err)
		}

		if i == len(batches)-1 {
			break
		}
		err = limiter.Wait(ctx)
		if err != nil {
			s.reporter.SetMessage("Stopping")
			slog.Info("stopping price fetch early", "batches", i+1, "remaining", len(batches)-i-1)
			break
		}
	}

	slog.Info("finished fetching prices", "quotes", len(table))
	return table, nil
}

// Upload appends the run's quotes to the warehouse prices table. Nothing
// is truncated: price history accumulates across runs.
func Upload(ctx context.Context, sink warehouse.Sink, table string, quotes map[string]geapi.PriceQuote) error {
	ctx, span := tracer.Start(ctx, "Upload")
	defer span.End()

	err := sink.InsertPrices(ctx, table, Rows(quotes))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Rows converts a quote table into warehouse rows, sorted by item id.
func Rows(quotes map[string]geapi.PriceQuote) []warehouse.PriceRow {
	rows := make([]warehouse.PriceRow, 0, len(quotes))
	for key, quote := range quotes {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		rows = append(rows, warehouse.PriceRow{
			ItemID:    id,
			Timestamp: quote.Timestamp,
			Price:     quote.Price,
			Volume:    quote.Volume,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ItemID < rows[j].ItemID })
	return rows
}

func chunk(ids []int, size int) [][]int {
	var out [][]int
	for pos := 0; pos < len(ids); pos += size {
		end := pos + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[pos:end])
	}
	return out
}
