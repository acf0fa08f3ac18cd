// Package client implements the outbound HTTP adapters: product search,
// trends feed, Unsplash, image hosting and barcode lookup services.
// Every call runs under a circuit breaker with retry and a tracing span.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/resilience"
)

var tracer = otel.Tracer("client")

// maxErrorBody bounds how much of an error response is kept for the message.
const maxErrorBody = 512

// doJSON sends req and decodes a 2xx JSON body into out. 404 becomes
// *domain.ErrNotFound and other 4xx answers are permanent; 5xx and transport
// errors are left retryable.
func doJSON(httpClient *http.Client, req *http.Request, resource, id string, out any) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return resilience.Permanent(&domain.ErrNotFound{Resource: resource, ID: id})
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%s returned status %d", resource, resp.StatusCode)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resilience.Permanent(fmt.Errorf("%s returned status %d: %s", resource, resp.StatusCode, body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resilience.Permanent(fmt.Errorf("decode %s response: %w", resource, err))
	}
	return nil
}

// wrapErr maps resilience failures onto domain errors. Not-found answers pass
// through untouched.
func wrapErr(service string, err error) error {
	var nf *domain.ErrNotFound
	if errors.As(err, &nf) {
		return nf
	}
	if resilience.IsCircuitOpen(err) {
		return &domain.ErrCircuitOpen{Service: service}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ErrTimeout{Operation: service}
	}
	return &domain.ErrExternalService{Service: service, Err: err}
}
