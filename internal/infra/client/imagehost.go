package client

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/stylist-bfa-go/internal/infra/resilience"
)

// ImageHostClient uploads rendered looks to an imgbb-compatible host.
type ImageHostClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewImageHostClient creates a new ImageHostClient.
func NewImageHostClient(httpClient *http.Client, baseURL, apiKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *ImageHostClient {
	return &ImageHostClient{httpClient: httpClient, baseURL: baseURL, apiKey: apiKey, cb: cb, cfg: cfg}
}

type uploadResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
	} `json:"data"`
}

// Upload implements port.ImageHost.
func (c *ImageHostClient) Upload(ctx context.Context, name string, data []byte) (string, error) {
	ctx, span := tracer.Start(ctx, "ImageHostClient.Upload")
	defer span.End()
	span.SetAttributes(attribute.String("image.name", name), attribute.Int("image.bytes", len(data)))

	form := url.Values{}
	form.Set("image", base64.StdEncoding.EncodeToString(data))
	form.Set("name", name)
	encoded := form.Encode()
	endpoint := c.baseURL + "/1/upload?key=" + url.QueryEscape(c.apiKey)

	link, err := resilience.Call(ctx, c.cb, c.cfg, func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(encoded))
		if err != nil {
			return "", resilience.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		var body uploadResponse
		if err := doJSON(c.httpClient, req, "image upload", name, &body); err != nil {
			return "", err
		}
		if !body.Success || body.Data.URL == "" {
			return "", errors.New("image host rejected upload")
		}
		return body.Data.URL, nil
	})
	if err != nil {
		span.RecordError(err)
		return "", wrapErr("image-host", err)
	}
	return link, nil
}
