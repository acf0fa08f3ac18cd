package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/resilience"
)

// ProductClient searches products through a SerpAPI-style shopping endpoint.
type ProductClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewProductClient creates a new ProductClient.
func NewProductClient(httpClient *http.Client, baseURL, apiKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *ProductClient {
	return &ProductClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		cb:         cb,
		cfg:        cfg,
	}
}

type shoppingResponse struct {
	ShoppingResults []struct {
		Title          string  `json:"title"`
		ExtractedPrice float64 `json:"extracted_price"`
		Link           string  `json:"link"`
		ProductLink    string  `json:"product_link"`
		Thumbnail      string  `json:"thumbnail"`
		Source         string  `json:"source"`
	} `json:"shopping_results"`
}

// Search returns the top shopping hit for query.
func (c *ProductClient) Search(ctx context.Context, query string) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "ProductClient.Search")
	defer span.End()
	span.SetAttributes(attribute.String("product.query", query))

	q := url.Values{}
	q.Set("engine", "google_shopping")
	q.Set("q", query)
	q.Set("num", "5")
	q.Set("api_key", c.apiKey)
	endpoint := c.baseURL + "/search.json?" + q.Encode()

	product, err := resilience.Call(ctx, c.cb, c.cfg, func() (*domain.Product, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, resilience.Permanent(err)
		}
		var body shoppingResponse
		if err := doJSON(c.httpClient, req, "product", query, &body); err != nil {
			return nil, err
		}
		for _, r := range body.ShoppingResults {
			if r.Title == "" {
				continue
			}
			link := r.Link
			if link == "" {
				link = r.ProductLink
			}
			return &domain.Product{
				Title:    r.Title,
				Price:    r.ExtractedPrice,
				URL:      link,
				ImageURL: r.Thumbnail,
				Merchant: r.Source,
			}, nil
		}
		return nil, resilience.Permanent(&domain.ErrNotFound{Resource: "product", ID: query})
	})
	if err != nil {
		span.RecordError(err)
		return nil, wrapErr("product-search", err)
	}
	return product, nil
}
