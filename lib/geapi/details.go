package geapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ItemDetail is the subset of the detail endpoint's response the pipeline
// cares about. Members is the raw upstream value ("true"/"false", anything
// else means unknown); Icon is only used for the icon side channel.
type ItemDetail struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Members     string `json:"members"`
	Icon        string `json:"icon"`
}

// ItemDetail looks up a single item by id. Unlike the index and price
// endpoints, failures here are returned to the caller, which records the
// id as invalid.
func (c *Client) ItemDetail(ctx context.Context, id int) (ItemDetail, error) {
	// cancellation is cooperative and evaluated between items by the
	// fetch loop; a lookup that is already in flight runs to completion
	// (bounded by the client timeout) so its result can still be committed
	ctx, span := tracer.Start(context.WithoutCancel(ctx), "ItemDetail")
	defer span.End()
	span.SetAttributes(attribute.Int("id", id))

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("item", strconv.Itoa(id)).
		Get(c.endpoints.Details)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return ItemDetail{}, err
	}
	if res.IsError() {
		err := fmt.Errorf("detail lookup for item %d: status %d", id, res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected status")
		return ItemDetail{}, err
	}

	var body struct {
		Item ItemDetail `json:"item"`
	}
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse json response")
		return ItemDetail{}, err
	}

	return body.Item, nil
}

// FetchIcon downloads the icon bytes referenced by a detail response.
func (c *Client) FetchIcon(ctx context.Context, url string) ([]byte, error) {
	ctx, span := tracer.Start(context.WithoutCancel(ctx), "FetchIcon")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return nil, err
	}
	if res.IsError() {
		err := fmt.Errorf("icon fetch: status %d", res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected status")
		return nil, err
	}
	return res.Body(), nil
}
