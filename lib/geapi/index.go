package geapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
)

// ListActiveIDs fetches the set of currently tradeable item ids from the
// index endpoint. Only the keys of the response mapping are consumed.
//
// Any transport or decode failure yields an empty result, never an error:
// callers must treat that as "no identifiers known this run" and not as
// "zero items exist".
func (c *Client) ListActiveIDs(ctx context.Context) []int {
	ctx, span := tracer.Start(ctx, "ListActiveIDs")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		Get(c.endpoints.Index)
	if err != nil {
		slog.Warn("failed to fetch item ids", "err", err)
		return nil
	}
	if res.IsError() {
		slog.Warn("failed to fetch item ids", "status", res.StatusCode())
		return nil
	}

	var body struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		slog.Warn("failed to decode item id index", "err", err)
		return nil
	}

	ids := make([]int, 0, len(body.Data))
	for key := range body.Data {
		id, err := strconv.Atoi(key)
		if err != nil {
			slog.Warn("ignoring non-numeric id in index", "key", key)
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)

	span.SetAttributes(attribute.Int("count", len(ids)))
	return ids
}
