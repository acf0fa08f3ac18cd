package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/llm"
	"github.com/boddenberg/stylist-bfa-go/internal/personalize"
	"github.com/boddenberg/stylist-bfa-go/internal/season"
)

type shopReply struct {
	Outfits   []domain.Outfit       `json:"outfits"`
	Purchases []domain.PurchaseItem `json:"purchases"`
}

// PersonalizedShop produces outfits and a shopping list for the user, then
// enforces the user's rules on the model output in a fixed order: gender lock,
// climate, fit, color, product search, image guard.
func (s *Stylist) PersonalizedShop(ctx context.Context, userID string, req *domain.ShopRequest) (*domain.ShopResult, error) {
	if req.Budget < 0 {
		return nil, &domain.ErrValidation{Field: "budget", Message: "must not be negative"}
	}

	ctx, span := tracer.Start(ctx, "Stylist.PersonalizedShop")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("shop", time.Since(start)) }()

	uc, err := s.loadContext(ctx, userID, contextParts{preferences: true, wardrobe: true, feedback: true})
	if err != nil {
		return nil, err
	}

	rules := personalize.RulesFor(uc, req.Notes)
	hemisphere := season.North
	if uc.Profile != nil {
		hemisphere = season.ParseHemisphere(uc.Profile.Hemisphere)
	}

	out, err := s.openai.Complete(ctx, &domain.CompletionRequest{
		System:      stylistSystem,
		Prompt:      shopPrompt(uc, rules, req, season.ForDate(s.now(), hemisphere)),
		JSON:        true,
		Temperature: 0.6,
		MaxTokens:   2000,
	})
	if err != nil {
		s.logger.Error("shop completion failed", zap.String("user_id", userID), zap.Error(err))
		s.metrics.IncrExternalError("openai")
		return nil, fmt.Errorf("shop completion: %w", err)
	}
	s.metrics.RecordTokens(out.Usage)

	var reply shopReply
	if err := llm.DecodeJSON(out.Text, &reply); err != nil {
		s.logger.Warn("unparsable shop answer", zap.String("user_id", userID), zap.Error(err))
		return nil, &domain.ErrExternalService{Service: "llm", Err: err}
	}

	enforcer := personalize.NewEnforcer(rules, s.fallbacks)
	purchases := enforcer.Rewrite(reply.Outfits, reply.Purchases)

	s.attachProducts(ctx, itemPointers(nil, purchases))
	enforcer.GuardImages(reply.Outfits, purchases)

	actions := enforcer.Actions()
	s.metrics.RecordEnforcement(actions)
	s.logger.Info("personalized shop built",
		zap.String("user_id", userID),
		zap.Int("outfits", len(reply.Outfits)),
		zap.Int("purchases", len(purchases)),
		zap.Int("enforcement_actions", len(actions)),
	)

	if reply.Outfits == nil {
		reply.Outfits = []domain.Outfit{}
	}
	if purchases == nil {
		purchases = []domain.PurchaseItem{}
	}
	return &domain.ShopResult{
		Outfits:     reply.Outfits,
		Purchases:   purchases,
		Enforcement: actions,
	}, nil
}
