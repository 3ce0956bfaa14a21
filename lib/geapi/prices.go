package geapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// PriceQuote is one entry of the batch price endpoint's response mapping.
type PriceQuote struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Price     int64  `json:"price"`
	Volume    int64  `json:"volume"`
}

// Prices fetches current quotes for up to 100 item ids in one request; the
// upstream takes them as a single `|`-delimited query parameter.
//
// A failed batch yields an empty map rather than an error: the price loop
// tolerates partial failure and moves on to the next batch.
func (c *Client) Prices(ctx context.Context, ids []int) map[string]PriceQuote {
	ctx, span := tracer.Start(context.WithoutCancel(ctx), "Prices")
	defer span.End()
	span.SetAttributes(attribute.Int("batch_size", len(ids)))

	joined := make([]string, len(ids))
	for i, id := range ids {
		joined[i] = strconv.Itoa(id)
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("id", strings.Join(joined, "|")).
		Get(c.endpoints.Prices)
	if err != nil {
		slog.Warn("failed to fetch item prices", "err", err)
		return map[string]PriceQuote{}
	}
	if res.IsError() {
		slog.Warn("failed to fetch item prices", "status", res.StatusCode())
		return map[string]PriceQuote{}
	}

	// the response carries status fields next to the id keys, so each
	// entry is decoded individually and non-quote values are dropped
	var body map[string]json.RawMessage
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		slog.Warn("failed to decode price response", "err", err)
		return map[string]PriceQuote{}
	}

	quotes := make(map[string]PriceQuote, len(body))
	for key, raw := range body {
		if _, err := strconv.Atoi(key); err != nil {
			continue
		}
		var quote PriceQuote
		if err := json.Unmarshal(raw, &quote); err != nil {
			slog.Warn("ignoring malformed price entry", "id", key, "err", err)
			continue
		}
		quotes[key] = quote
	}
	return quotes
}
