// Package geapi provides clients for the three upstream endpoints the
// pipeline consumes: the wiki index of tradeable item ids, the per-item
// detail endpoint and the batch price endpoint.
package geapi

import (
	"time"

	"github.com/jakebrehm/osrs-economy/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("lib/geapi")

type Endpoints struct {
	Index   string `json:"index"`
	Details string `json:"details"`
	Prices  string `json:"prices"`
}

type Config struct {
	Endpoints Endpoints `json:"endpoints"`
	UserAgent string    `json:"user_agent"`
	// per-request timeout in seconds, 0 means 30
	TimeoutSeconds int `json:"timeout_seconds"`
}

type Client struct {
	http      *resty.Client
	endpoints Endpoints
}

func NewClient(config Config) *Client {
	timeout := time.Duration(config.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = time.Second * 30
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", config.UserAgent)

	telemetry.InstrumentResty(client, "geapi/http")

	return &Client{
		http:      client,
		endpoints: config.Endpoints,
	}
}
