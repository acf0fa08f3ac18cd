package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/boddenberg/stylist-bfa-go/internal/infra/resilience"
)

// TrendsClient reads the trend tags feed. The feed answers either
// {"trends": [...]} or a bare JSON array.
type TrendsClient struct {
	httpClient *http.Client
	feedURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewTrendsClient creates a new TrendsClient.
func NewTrendsClient(httpClient *http.Client, feedURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *TrendsClient {
	return &TrendsClient{httpClient: httpClient, feedURL: feedURL, cb: cb, cfg: cfg}
}

// FetchTrends implements port.TrendFetcher.
func (c *TrendsClient) FetchTrends(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "TrendsClient.FetchTrends")
	defer span.End()

	if c.feedURL == "" {
		return nil, errors.New("trends feed url not configured")
	}

	trends, err := resilience.Call(ctx, c.cb, c.cfg, func() ([]string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
		if err != nil {
			return nil, resilience.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		var raw json.RawMessage
		if err := doJSON(c.httpClient, req, "trends", c.feedURL, &raw); err != nil {
			return nil, err
		}
		return parseTrends(raw)
	})
	if err != nil {
		span.RecordError(err)
		return nil, wrapErr("trends", err)
	}
	return trends, nil
}

func parseTrends(raw json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var obj struct {
		Trends []string `json:"trends"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, resilience.Permanent(err)
	}
	return obj.Trends, nil
}
