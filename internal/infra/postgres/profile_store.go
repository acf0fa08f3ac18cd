package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
)

// ============================================================
// User context, implements port.ProfileStore
// ============================================================

const selectStyleProfile = `
SELECT user_id::text, COALESCE(name, ''), COALESCE(gender, ''), COALESCE(body_type, ''),
       COALESCE(style_tags, '{}'), COALESCE(climate, ''), COALESCE(location, ''),
       COALESCE(hemisphere, ''), COALESCE(sizes, '')
  FROM style_profiles
 WHERE user_id = $1
 LIMIT 1`

// GetStyleProfile returns the style_profiles row of the user.
func (s *Store) GetStyleProfile(ctx context.Context, userID string) (*domain.StyleProfile, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetStyleProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var p domain.StyleProfile
	err := s.db.QueryRow(ctx, selectStyleProfile, userID).Scan(
		&p.UserID, &p.Name, &p.Gender, &p.BodyType,
		&p.StyleTags, &p.Climate, &p.Location, &p.Hemisphere, &p.Sizes,
	)
	if err != nil {
		return nil, notFound(err, "style_profile", userID)
	}
	return &p, nil
}

const selectPreferences = `
SELECT user_id::text, COALESCE(color_notes, ''), COALESCE(fit_notes, ''),
       COALESCE(favorite_brands, '{}'), COALESCE(avoid_materials, '{}'),
       COALESCE(budget_min, 0)::float8, COALESCE(budget_max, 0)::float8, COALESCE(currency, '')
  FROM user_preferences
 WHERE user_id = $1
 LIMIT 1`

// GetPreferences returns the user_preferences row of the user.
func (s *Store) GetPreferences(ctx context.Context, userID string) (*domain.Preferences, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetPreferences")
	defer span.End()

	var p domain.Preferences
	err := s.db.QueryRow(ctx, selectPreferences, userID).Scan(
		&p.UserID, &p.ColorNotes, &p.FitNotes, &p.FavoriteBrands, &p.AvoidMaterials,
		&p.BudgetMin, &p.BudgetMax, &p.Currency,
	)
	if err != nil {
		return nil, notFound(err, "preferences", userID)
	}
	return &p, nil
}

const selectWardrobe = `
SELECT id::text, user_id::text, name, COALESCE(category, ''), COALESCE(color, ''),
       COALESCE(brand, ''), COALESCE(season, ''), COALESCE(image_url, ''),
       COALESCE(wear_count, 0), last_worn_at
  FROM wardrobe_items
 WHERE user_id = $1
 ORDER BY created_at DESC
 LIMIT $2`

// ListWardrobe returns the newest wardrobe items of the user.
func (s *Store) ListWardrobe(ctx context.Context, userID string, limit int) ([]domain.WardrobeItem, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListWardrobe")
	defer span.End()

	rows, err := s.db.Query(ctx, selectWardrobe, userID, limit)
	if err != nil {
		return nil, dbErr("wardrobe_items", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.WardrobeItem, error) {
		var it domain.WardrobeItem
		err := row.Scan(&it.ID, &it.UserID, &it.Name, &it.Category, &it.Color,
			&it.Brand, &it.Season, &it.ImageURL, &it.WearCount, &it.LastWornAt)
		return it, err
	})
	if err != nil {
		return nil, dbErr("wardrobe_items", err)
	}
	return items, nil
}

const selectFeedback = `
SELECT COALESCE(outfit_title, ''), rating, COALESCE(comment, ''), created_at
  FROM outfit_feedback
 WHERE user_id = $1
 ORDER BY created_at DESC
 LIMIT $2`

// ListFeedback returns the latest outfit ratings of the user.
func (s *Store) ListFeedback(ctx context.Context, userID string, limit int) ([]domain.OutfitFeedback, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListFeedback")
	defer span.End()

	rows, err := s.db.Query(ctx, selectFeedback, userID, limit)
	if err != nil {
		return nil, dbErr("outfit_feedback", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OutfitFeedback, error) {
		var f domain.OutfitFeedback
		err := row.Scan(&f.OutfitTitle, &f.Rating, &f.Comment, &f.CreatedAt)
		return f, err
	})
	if err != nil {
		return nil, dbErr("outfit_feedback", err)
	}
	return out, nil
}

const selectEvents = `
SELECT title, starts_at, COALESCE(dress_code, ''), COALESCE(location, '')
  FROM calendar_events
 WHERE user_id = $1 AND starts_at >= $2 AND starts_at < $3
 ORDER BY starts_at
 LIMIT 20`

// ListUpcomingEvents returns the calendar entries in [from, from+days).
func (s *Store) ListUpcomingEvents(ctx context.Context, userID string, from time.Time, days int) ([]domain.CalendarEvent, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListUpcomingEvents")
	defer span.End()

	rows, err := s.db.Query(ctx, selectEvents, userID, from, from.AddDate(0, 0, days))
	if err != nil {
		return nil, dbErr("calendar_events", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CalendarEvent, error) {
		var e domain.CalendarEvent
		err := row.Scan(&e.Title, &e.StartsAt, &e.DressCode, &e.Location)
		return e, err
	})
	if err != nil {
		return nil, dbErr("calendar_events", err)
	}
	return out, nil
}

const selectWearHistory = `
SELECT COALESCE(w.name, ''), COALESCE(w.category, ''), h.worn_at
  FROM wear_history h
  LEFT JOIN wardrobe_items w ON w.id = h.item_id
 WHERE h.user_id = $1
 ORDER BY h.worn_at DESC
 LIMIT $2`

// ListWearHistory returns what the user wore recently.
func (s *Store) ListWearHistory(ctx context.Context, userID string, limit int) ([]domain.WearEntry, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListWearHistory")
	defer span.End()

	rows, err := s.db.Query(ctx, selectWearHistory, userID, limit)
	if err != nil {
		return nil, dbErr("wear_history", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.WearEntry, error) {
		var e domain.WearEntry
		err := row.Scan(&e.ItemName, &e.Category, &e.WornAt)
		return e, err
	})
	if err != nil {
		return nil, dbErr("wear_history", err)
	}
	return out, nil
}
