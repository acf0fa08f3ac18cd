package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/resilience"
)

// UPCItemDBClient looks codes up in the UPCItemDB trial API.
type UPCItemDBClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewUPCItemDBClient creates a new UPCItemDBClient.
func NewUPCItemDBClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *UPCItemDBClient {
	return &UPCItemDBClient{httpClient: httpClient, baseURL: baseURL, cb: cb, cfg: cfg}
}

// Name implements port.BarcodeLookup.
func (c *UPCItemDBClient) Name() string { return domain.BarcodeSourceUPCItemDB }

type upcItemDBResponse struct {
	Code  string `json:"code"`
	Total int    `json:"total"`
	Items []struct {
		EAN         string   `json:"ean"`
		UPC         string   `json:"upc"`
		Title       string   `json:"title"`
		Brand       string   `json:"brand"`
		Category    string   `json:"category"`
		Description string   `json:"description"`
		Images      []string `json:"images"`
	} `json:"items"`
}

// Lookup implements port.BarcodeLookup.
func (c *UPCItemDBClient) Lookup(ctx context.Context, code string) (*domain.BarcodeProduct, error) {
	ctx, span := tracer.Start(ctx, "UPCItemDBClient.Lookup")
	defer span.End()
	span.SetAttributes(attribute.String("barcode.code", code))

	endpoint := c.baseURL + "/prod/trial/lookup?upc=" + url.QueryEscape(code)

	product, err := resilience.Call(ctx, c.cb, c.cfg, func() (*domain.BarcodeProduct, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, resilience.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		var body upcItemDBResponse
		if err := doJSON(c.httpClient, req, "barcode", code, &body); err != nil {
			return nil, err
		}
		if body.Total == 0 || len(body.Items) == 0 || body.Items[0].Title == "" {
			return nil, resilience.Permanent(&domain.ErrNotFound{Resource: "barcode", ID: code})
		}
		it := body.Items[0]
		return &domain.BarcodeProduct{
			Code:        code,
			Title:       it.Title,
			Brand:       it.Brand,
			Category:    it.Category,
			Description: it.Description,
			Images:      it.Images,
			Source:      domain.BarcodeSourceUPCItemDB,
			Confidence:  1,
		}, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, wrapErr(domain.BarcodeSourceUPCItemDB, err)
	}
	return product, nil
}

// RapidAPIClient looks codes up in a RapidAPI barcode service.
type RapidAPIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	apiHost    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewRapidAPIClient creates a new RapidAPIClient.
func NewRapidAPIClient(httpClient *http.Client, baseURL, apiKey, apiHost string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *RapidAPIClient {
	return &RapidAPIClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		apiHost:    apiHost,
		cb:         cb,
		cfg:        cfg,
	}
}

// Name implements port.BarcodeLookup.
func (c *RapidAPIClient) Name() string { return domain.BarcodeSourceRapidAPI }

type rapidAPIResponse struct {
	Product struct {
		Title       string          `json:"title"`
		Brand       string          `json:"brand"`
		Category    json.RawMessage `json:"category"`
		Description string          `json:"description"`
		Images      []string        `json:"images"`
	} `json:"product"`
}

// Lookup implements port.BarcodeLookup.
func (c *RapidAPIClient) Lookup(ctx context.Context, code string) (*domain.BarcodeProduct, error) {
	ctx, span := tracer.Start(ctx, "RapidAPIClient.Lookup")
	defer span.End()
	span.SetAttributes(attribute.String("barcode.code", code))

	endpoint := c.baseURL + "/?query=" + url.QueryEscape(code)

	product, err := resilience.Call(ctx, c.cb, c.cfg, func() (*domain.BarcodeProduct, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, resilience.Permanent(err)
		}
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
		req.Header.Set("X-RapidAPI-Host", c.apiHost)

		var body rapidAPIResponse
		if err := doJSON(c.httpClient, req, "barcode", code, &body); err != nil {
			return nil, err
		}
		if body.Product.Title == "" {
			return nil, resilience.Permanent(&domain.ErrNotFound{Resource: "barcode", ID: code})
		}
		return &domain.BarcodeProduct{
			Code:        code,
			Title:       body.Product.Title,
			Brand:       body.Product.Brand,
			Category:    flattenCategory(body.Product.Category),
			Description: body.Product.Description,
			Images:      body.Product.Images,
			Source:      domain.BarcodeSourceRapidAPI,
			Confidence:  0.9,
		}, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, wrapErr(domain.BarcodeSourceRapidAPI, err)
	}
	return product, nil
}

// flattenCategory accepts a string or a list of strings.
func flattenCategory(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, " > ")
	}
	return ""
}
