package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/stylist-bfa-go/internal/season"
)

// CapsuleReport diffs the seasonal capsule for month against the user's
// wardrobe. An empty hemisphere falls back to the profile, then North.
// A zero month means the current one.
func (s *Stylist) CapsuleReport(ctx context.Context, userID string, month time.Month, hemisphere string) (season.Report, error) {
	ctx, span := tracer.Start(ctx, "Stylist.CapsuleReport")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	uc, err := s.loadContext(ctx, userID, contextParts{wardrobe: true})
	if err != nil {
		return season.Report{}, err
	}

	if hemisphere == "" && uc.Profile != nil {
		hemisphere = uc.Profile.Hemisphere
	}
	if month == 0 {
		month = s.now().Month()
	}
	return season.GapReport(season.ForMonth(month, season.ParseHemisphere(hemisphere)), uc.Wardrobe), nil
}
