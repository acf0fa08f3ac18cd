package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/resilience"
)

// UnsplashClient finds a photo for a search term. Calls are rate limited to
// stay inside the API quota.
type UnsplashClient struct {
	httpClient *http.Client
	baseURL    string
	accessKey  string
	limiter    *rate.Limiter
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewUnsplashClient creates a new UnsplashClient.
func NewUnsplashClient(httpClient *http.Client, baseURL, accessKey string, limiter *rate.Limiter, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *UnsplashClient {
	return &UnsplashClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		accessKey:  accessKey,
		limiter:    limiter,
		cb:         cb,
		cfg:        cfg,
	}
}

type unsplashSearch struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
			Small   string `json:"small"`
		} `json:"urls"`
	} `json:"results"`
}

// SearchPhoto returns the URL of the first photo matching term.
func (c *UnsplashClient) SearchPhoto(ctx context.Context, term string) (string, error) {
	ctx, span := tracer.Start(ctx, "UnsplashClient.SearchPhoto")
	defer span.End()
	span.SetAttributes(attribute.String("unsplash.term", term))

	if err := c.limiter.Wait(ctx); err != nil {
		return "", &domain.ErrTimeout{Operation: "unsplash rate limit"}
	}

	q := url.Values{}
	q.Set("query", term)
	q.Set("per_page", "1")
	q.Set("orientation", "portrait")
	endpoint := c.baseURL + "/search/photos?" + q.Encode()

	photo, err := resilience.Call(ctx, c.cb, c.cfg, func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return "", resilience.Permanent(err)
		}
		req.Header.Set("Authorization", "Client-ID "+c.accessKey)
		req.Header.Set("Accept-Version", "v1")

		var body unsplashSearch
		if err := doJSON(c.httpClient, req, "photo", term, &body); err != nil {
			return "", err
		}
		for _, r := range body.Results {
			if r.URLs.Regular != "" {
				return r.URLs.Regular, nil
			}
			if r.URLs.Small != "" {
				return r.URLs.Small, nil
			}
		}
		return "", resilience.Permanent(&domain.ErrNotFound{Resource: "photo", ID: term})
	})
	if err != nil {
		span.RecordError(err)
		return "", wrapErr("unsplash", err)
	}
	return photo, nil
}
