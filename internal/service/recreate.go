package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/llm"
	"github.com/boddenberg/stylist-bfa-go/internal/personalize"
	"github.com/boddenberg/stylist-bfa-go/internal/season"
)

var errEmptyOutfit = errors.New("outfit has no items")

// Recreate builds a complete outfit in the style of the given tags, adapted
// to the user's profile and wardrobe.
//
// Steps:
//  1. enrich the tags with trends
//  2. load profile and wardrobe
//  3. ask the model for the outfit
//  4. personalization enforcement on the outfit text
//  5. product search per item
//  6. image guard and fallback images
//  7. optionally render the look
func (s *Stylist) Recreate(ctx context.Context, userID string, req *domain.RecreateRequest) (*domain.RecreateResult, error) {
	if len(req.Tags) == 0 && req.ImageURL == "" {
		return nil, &domain.ErrValidation{Field: "tags", Message: "tags or image_url is required"}
	}

	ctx, span := tracer.Start(ctx, "Stylist.Recreate")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("recreate", time.Since(start)) }()

	// --- Step 1-2: tags + user context ---
	styleTags := s.enricher.Enrich(ctx, req.Tags)

	uc, err := s.loadContext(ctx, userID, contextParts{preferences: true, wardrobe: true})
	if err != nil {
		return nil, err
	}
	now := s.now()
	hemisphere := season.North
	if uc.Profile != nil {
		hemisphere = season.ParseHemisphere(uc.Profile.Hemisphere)
	}

	// --- Step 3: model ---
	out, err := s.router.Complete(ctx, &domain.CompletionRequest{
		System:      stylistSystem,
		Prompt:      recreatePrompt(styleTags, uc, req, season.ForDate(now, hemisphere)),
		ImageURL:    req.ImageURL,
		JSON:        true,
		Temperature: 0.7,
		MaxTokens:   1200,
	})
	if err != nil {
		s.logger.Error("recreate completion failed", zap.String("user_id", userID), zap.Error(err))
		s.metrics.IncrExternalError("llm")
		return nil, fmt.Errorf("recreate completion: %w", err)
	}
	s.metrics.RecordTokens(out.Usage)

	var outfit domain.Outfit
	if err := llm.DecodeJSON(out.Text, &outfit); err != nil || len(outfit.Items) == 0 {
		if err == nil {
			err = errEmptyOutfit
		}
		s.logger.Warn("unparsable recreate answer", zap.String("user_id", userID), zap.Error(err))
		return nil, &domain.ErrExternalService{Service: "llm", Err: err}
	}

	// --- Step 4: enforcement ---
	enforcer := personalize.NewEnforcer(personalize.RulesFor(uc, ""), s.fallbacks)
	outfits := []domain.Outfit{outfit}
	enforcer.Rewrite(outfits, nil)

	// --- Step 5-6: products + images ---
	s.attachProducts(ctx, itemPointers(outfits, nil))
	enforcer.GuardImages(outfits, nil)

	// --- Step 7: render ---
	if req.RenderImage {
		s.renderLook(ctx, userID, &outfits[0], enforcer.Rules().Gender)
	}

	actions := enforcer.Actions()
	s.metrics.RecordEnforcement(actions)

	return &domain.RecreateResult{
		Outfit:      outfits[0],
		Tags:        styleTags,
		Backend:     out.Backend,
		Enforcement: actions,
	}, nil
}
