// Package warehouse loads finished snapshots into relational tables. The
// items table is fully replaced each run (truncate then insert, the
// at-least-once model the pipeline accepts); price rows are appended.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var tracer = otel.Tracer("lib/warehouse")

type Config struct {
	DSN         string `json:"dsn"`
	ItemsTable  string `json:"items_table"`
	PricesTable string `json:"prices_table"`
}

type ItemRow struct {
	ID          int
	Name        string
	Description string
	// nil when the upstream value could not be coerced to a boolean
	IsMembers *bool
	UpdatedAt time.Time
}

type PriceRow struct {
	ItemID    int
	Timestamp string
	Price     int64
	Volume    int64
}

type Sink struct {
	db *sql.DB
}

func NewSink(db *sql.DB) Sink {
	return Sink{db: db}
}

// With opens a connection for the duration of fn and guarantees it is
// released on every exit path, including cancellation and panics.
func With(ctx context.Context, config Config, fn func(Sink) error) error {
	db, err := sql.Open("pgx", config.DSN)
	if err != nil {
		return fmt.Errorf("warehouse: open: %w", err)
	}
	defer db.Close()

	err = db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("warehouse: ping: %w", err)
	}
	return fn(Sink{db: db})
}

// Truncate empties a table. DELETE rather than TRUNCATE so the statement
// also runs against sqlite.
func (s Sink) Truncate(ctx context.Context, table string) error {
	ctx, span := tracer.Start(ctx, "Truncate")
	defer span.End()
	span.SetAttributes(attribute.String("table", table))

	_, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s Sink) InsertItems(ctx context.Context, table string, rows []ItemRow) error {
	ctx, span := tracer.Start(ctx, "InsertItems")
	defer span.End()
	span.SetAttributes(
		attribute.String("table", table),
		attribute.Int("rows", len(rows)),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (id, name, description, is_members, updated_at) VALUES ($1, $2, $3, $4, $5)",
		table,
	))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err = stmt.ExecContext(ctx, row.ID, row.Name, row.Description, row.IsMembers, row.UpdatedAt)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("insert item %d: %w", row.ID, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s Sink) InsertPrices(ctx context.Context, table string, rows []PriceRow) error {
	ctx, span := tracer.Start(ctx, "InsertPrices")
	defer span.End()
	span.SetAttributes(
		attribute.String("table", table),
		attribute.Int("rows", len(rows)),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (item_id, timestamp, price, volume) VALUES ($1, $2, $3, $4)",
		table,
	))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err = stmt.ExecContext(ctx, row.ItemID, row.Timestamp, row.Price, row.Volume)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("insert price for item %d: %w", row.ItemID, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
