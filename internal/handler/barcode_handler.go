package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
)

// BarcodeService decodes and looks up retail barcodes.
type BarcodeService interface {
	Decode(ctx context.Context, imageURL string) (string, error)
	Lookup(ctx context.Context, code string) (*domain.BarcodeProduct, error)
	Scan(ctx context.Context, imageURL string) (*domain.BarcodeScan, error)
}

func barcodeDecodeHandler(svc BarcodeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/barcode/decode")
		defer span.End()

		var req imageRequest
		if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.ImageURL) == "" {
			writeError(w, http.StatusBadRequest, "image_url is required")
			return
		}

		code, err := svc.Decode(ctx, strings.TrimSpace(req.ImageURL))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"code": code})
	}
}

func barcodeScanHandler(svc BarcodeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/barcode/scan")
		defer span.End()

		var req imageRequest
		if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.ImageURL) == "" {
			writeError(w, http.StatusBadRequest, "image_url is required")
			return
		}

		scan, err := svc.Scan(ctx, strings.TrimSpace(req.ImageURL))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, scan)
	}
}

func barcodeLookupHandler(svc BarcodeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/barcode/{code}")
		defer span.End()

		code := chi.URLParam(r, "code")
		span.SetAttributes(attribute.String("barcode", code))

		product, err := svc.Lookup(ctx, code)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, product)
	}
}
