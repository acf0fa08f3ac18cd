package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/season"
)

// StylistService is the outfit service as seen by the handlers.
type StylistService interface {
	Analyze(ctx context.Context, userID, imageURL string) (*domain.AnalyzeResult, error)
	Recreate(ctx context.Context, userID string, req *domain.RecreateRequest) (*domain.RecreateResult, error)
	PersonalizedShop(ctx context.Context, userID string, req *domain.ShopRequest) (*domain.ShopResult, error)
	Suggest(ctx context.Context, userID string, day time.Time) (*domain.SuggestResult, error)
	CapsuleReport(ctx context.Context, userID string, month time.Month, hemisphere string) (season.Report, error)
}

// TagEnricher previews the tag weighting.
type TagEnricher interface {
	Enrich(ctx context.Context, userTags []string) []domain.StyleTag
}

type imageRequest struct {
	ImageURL string `json:"image_url"`
}

func analyzeHandler(svc StylistService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/analyze")
		defer span.End()

		userID := UserIDFromContext(ctx)
		span.SetAttributes(attribute.String("user.id", userID))

		var req imageRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, `invalid request body: expected {"image_url": "..."}`)
			return
		}

		res, err := svc.Analyze(ctx, userID, strings.TrimSpace(req.ImageURL))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func recreateHandler(svc StylistService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/recreate")
		defer span.End()

		userID := UserIDFromContext(ctx)
		span.SetAttributes(attribute.String("user.id", userID))

		var req domain.RecreateRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := svc.Recreate(ctx, userID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func shopHandler(svc StylistService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/shop")
		defer span.End()

		userID := UserIDFromContext(ctx)
		span.SetAttributes(attribute.String("user.id", userID))

		var req domain.ShopRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := svc.PersonalizedShop(ctx, userID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func suggestHandler(svc StylistService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/suggest")
		defer span.End()

		userID := UserIDFromContext(ctx)
		span.SetAttributes(attribute.String("user.id", userID))

		var day time.Time
		if v := r.URL.Query().Get("date"); v != "" {
			d, err := time.Parse("2006-01-02", v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
				return
			}
			day = d
		}

		res, err := svc.Suggest(ctx, userID, day)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func capsuleHandler(svc StylistService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/capsule")
		defer span.End()

		var month time.Month
		if v := r.URL.Query().Get("month"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 12 {
				writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
				return
			}
			month = time.Month(n)
		}

		report, err := svc.CapsuleReport(ctx, UserIDFromContext(ctx), month, r.URL.Query().Get("hemisphere"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if report.Gaps == nil {
			report.Gaps = []season.Gap{}
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func enrichTagsHandler(enricher TagEnricher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/tags/enrich")
		defer span.End()

		var names []string
		for _, t := range strings.Split(r.URL.Query().Get("tags"), ",") {
			if t = strings.TrimSpace(t); t != "" {
				names = append(names, t)
			}
		}

		writeJSON(w, http.StatusOK, map[string][]domain.StyleTag{
			"tags": enricher.Enrich(ctx, names),
		})
	}
}
