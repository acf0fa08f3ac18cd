package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/llm"
	"github.com/boddenberg/stylist-bfa-go/internal/tags"
)

var errNoTags = errors.New("model returned no tags")

// Analyze tags the style of the outfit in the photo. Model failures are not
// returned: the static fallback tags are served with Fallback set.
func (s *Stylist) Analyze(ctx context.Context, userID, imageURL string) (*domain.AnalyzeResult, error) {
	if strings.TrimSpace(imageURL) == "" {
		return nil, &domain.ErrValidation{Field: "image_url", Message: "is required"}
	}

	ctx, span := tracer.Start(ctx, "Stylist.Analyze")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("analyze", time.Since(start)) }()

	names, backend, err := s.analyzeTags(ctx, imageURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("outfit analysis fell back to static tags",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		s.metrics.IncrFallback("analyze")
		return &domain.AnalyzeResult{
			Tags:     tags.FromNames(tags.FallbackTags, domain.TagSourceFallback),
			Fallback: true,
		}, nil
	}

	return &domain.AnalyzeResult{
		Tags:    tags.FromNames(names, domain.TagSourceAnalysis),
		Backend: backend,
	}, nil
}

func (s *Stylist) analyzeTags(ctx context.Context, imageURL string) ([]string, string, error) {
	out, err := s.router.Complete(ctx, &domain.CompletionRequest{
		System:      analyzeSystem,
		Prompt:      "Tag the style of this outfit.",
		ImageURL:    imageURL,
		JSON:        true,
		Temperature: 0.2,
		MaxTokens:   300,
	})
	if err != nil {
		return nil, "", err
	}
	s.metrics.RecordTokens(out.Usage)

	names, err := parseTagList(out.Text)
	if err != nil {
		return nil, "", err
	}
	if len(tags.NormalizeAll(names)) == 0 {
		return nil, "", errNoTags
	}
	return names, out.Backend, nil
}

// parseTagList accepts {"tags": [...]} or a bare array of strings.
func parseTagList(text string) ([]string, error) {
	raw, err := llm.ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list, nil
	}
	var obj struct {
		Tags []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, err
	}
	return obj.Tags, nil
}
