package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/llm"
	"github.com/boddenberg/stylist-bfa-go/internal/personalize"
	"github.com/boddenberg/stylist-bfa-go/internal/season"
)

type suggestReply struct {
	Brief  string         `json:"brief"`
	Outfit *domain.Outfit `json:"outfit"`
}

// Suggest writes the daily style brief for day. The capsule gap report is
// always attached; when the model fails the brief is built from it.
func (s *Stylist) Suggest(ctx context.Context, userID string, day time.Time) (*domain.SuggestResult, error) {
	ctx, span := tracer.Start(ctx, "Stylist.Suggest")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("suggest", time.Since(start)) }()

	if day.IsZero() {
		day = s.now()
	}
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	uc, err := s.loadContext(ctx, userID, contextParts{preferences: true, wardrobe: true, eventsFrom: dayStart, eventDays: 1})
	if err != nil {
		return nil, err
	}

	hemisphere := season.North
	if uc.Profile != nil {
		hemisphere = season.ParseHemisphere(uc.Profile.Hemisphere)
	}
	current := season.ForDate(day, hemisphere)
	report := season.GapReport(current, uc.Wardrobe)

	result := &domain.SuggestResult{
		Date:        dayStart.Format("2006-01-02"),
		Season:      string(current),
		CapsuleGaps: report.Text,
	}

	reply, err := s.suggestReply(ctx, uc, day, report)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("daily brief fell back to capsule report", zap.String("user_id", userID), zap.Error(err))
		s.metrics.IncrFallback("suggest")
		result.Brief = fallbackBrief(current, uc, report)
		result.Fallback = true
		return result, nil
	}

	result.Brief = strings.TrimSpace(reply.Brief)
	if reply.Outfit != nil && len(reply.Outfit.Items) > 0 {
		enforcer := personalize.NewEnforcer(personalize.RulesFor(uc, ""), s.fallbacks)
		outfits := []domain.Outfit{*reply.Outfit}
		enforcer.Rewrite(outfits, nil)
		enforcer.GuardImages(outfits, nil)
		s.metrics.RecordEnforcement(enforcer.Actions())
		result.Outfit = &outfits[0]
	}
	return result, nil
}

func (s *Stylist) suggestReply(ctx context.Context, uc *domain.UserContext, day time.Time, report season.Report) (*suggestReply, error) {
	out, err := s.router.Complete(ctx, &domain.CompletionRequest{
		System:      stylistSystem,
		Prompt:      suggestPrompt(uc, day, report),
		JSON:        true,
		Temperature: 0.7,
		MaxTokens:   800,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordTokens(out.Usage)

	var reply suggestReply
	if err := llm.DecodeJSON(out.Text, &reply); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reply.Brief) == "" {
		return nil, fmt.Errorf("empty brief")
	}
	return &reply, nil
}

func fallbackBrief(current season.Season, uc *domain.UserContext, report season.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s styling day.", current.Title())
	if len(uc.Events) > 0 {
		e := uc.Events[0]
		fmt.Fprintf(&b, " Plan around %s at %s", e.Title, e.StartsAt.Format("15:04"))
		if e.DressCode != "" {
			fmt.Fprintf(&b, " (%s)", e.DressCode)
		}
		b.WriteString(".")
	}
	b.WriteString(" ")
	b.WriteString(report.Text)
	return b.String()
}
