package details

import (
	"context"
	"log/slog"
	"time"

	"github.com/jakebrehm/osrs-economy/lib/geapi"
	"github.com/jakebrehm/osrs-economy/lib/progress"
	"github.com/jakebrehm/osrs-economy/lib/storage"
	"github.com/jakebrehm/osrs-economy/lib/warehouse"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/details")

// Service runs one full details pass: load the document, reconcile it
// against the live id index, fetch what is missing or stale, checkpoint
// along the way.
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

func (s Service) Run(ctx context.Context) (*Document, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	doc := LoadDocument(ctx, s.store)
	all := s.client.ListActiveIDs(ctx)

	work := ComputeWorkSet(all, doc, time.Now(), s.config.StalenessDays, s.config.SampleSize)
	span.SetAttributes(
		attribute.Int("known", len(doc.Items)),
		attribute.Int("invalid", len(doc.Invalid)),
		attribute.Int("work_set", len(work)),
	)
	if len(work) == 0 {
		slog.Info("all items are up to date")
		return doc, nil
	}

	total := len(all) - len(doc.Invalid)
	done := total - len(work)

	fetcher := NewFetcher(s.client, s.store, s.reporter, s.config)
	err := fetcher.Run(ctx, doc, work, total, done)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return doc, err
	}

	slog.Info("finished fetching items", "items", len(doc.Items), "invalid", len(doc.Invalid))
	return doc, nil
}

// Upload fully replaces the warehouse items table with the document's
// records. Truncate-then-insert keeps the load idempotent under the
// at-least-once delivery model.
func Upload(ctx context.Context, sink warehouse.Sink, table string, doc *Document) error {
	ctx, span := tracer.Start(ctx, "Upload")
	defer span.End()

	err := sink.Truncate(ctx, table)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	err = sink.InsertItems(ctx, table, doc.ItemRows())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
