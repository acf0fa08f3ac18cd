// Package domain defines the core entities of the stylist BFA.
// Rows come from tables owned by the surrounding application; these structs
// only carry the columns the stylist flows read.
package domain

import (
	"strings"
	"time"
)

// Gender values stored in style_profiles.gender.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderUnisex = "unisex"
)

// NormalizeGender maps free-form profile values onto the Gender constants.
// Unknown values become GenderUnisex.
func NormalizeGender(g string) string {
	switch strings.ToLower(strings.TrimSpace(g)) {
	case "male", "man", "men", "m", "masculine":
		return GenderMale
	case "female", "woman", "women", "f", "feminine":
		return GenderFemale
	default:
		return GenderUnisex
	}
}

// ============================================================
// Style profile & preferences
// ============================================================

// StyleProfile is a row of style_profiles.
type StyleProfile struct {
	UserID     string   `json:"user_id"`
	Name       string   `json:"name,omitempty"`
	Gender     string   `json:"gender"`
	BodyType   string   `json:"body_type,omitempty"`
	StyleTags  []string `json:"style_tags,omitempty"`
	Climate    string   `json:"climate,omitempty"` // hot, tropical, temperate, cold...
	Location   string   `json:"location,omitempty"`
	Hemisphere string   `json:"hemisphere,omitempty"` // north, south
	Sizes      string   `json:"sizes,omitempty"`
}

// Preferences is a row of user_preferences. ColorNotes and FitNotes are free
// text typed by the user ("only black and navy", "no skinny jeans").
type Preferences struct {
	UserID         string   `json:"user_id"`
	ColorNotes     string   `json:"color_notes,omitempty"`
	FitNotes       string   `json:"fit_notes,omitempty"`
	FavoriteBrands []string `json:"favorite_brands,omitempty"`
	AvoidMaterials []string `json:"avoid_materials,omitempty"`
	BudgetMin      float64  `json:"budget_min,omitempty"`
	BudgetMax      float64  `json:"budget_max,omitempty"`
	Currency       string   `json:"currency,omitempty"`
}

// ============================================================
// Wardrobe & history
// ============================================================

// WardrobeItem is a row of wardrobe_items.
type WardrobeItem struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	Category   string     `json:"category"`
	Color      string     `json:"color,omitempty"`
	Brand      string     `json:"brand,omitempty"`
	Season     string     `json:"season,omitempty"`
	ImageURL   string     `json:"image_url,omitempty"`
	WearCount  int        `json:"wear_count"`
	LastWornAt *time.Time `json:"last_worn_at,omitempty"`
}

// CalendarEvent is an upcoming entry of calendar_events.
type CalendarEvent struct {
	Title     string    `json:"title"`
	StartsAt  time.Time `json:"starts_at"`
	DressCode string    `json:"dress_code,omitempty"`
	Location  string    `json:"location,omitempty"`
}

// OutfitFeedback is a row of outfit_feedback.
type OutfitFeedback struct {
	OutfitTitle string    `json:"outfit_title"`
	Rating      int       `json:"rating"` // 1..5
	Comment     string    `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// WearEntry is a row of wear_history joined with the worn item name.
type WearEntry struct {
	ItemName string    `json:"item_name"`
	Category string    `json:"category"`
	WornAt   time.Time `json:"worn_at"`
}

// UserContext bundles everything the prompt builders read about a user.
type UserContext struct {
	Profile     *StyleProfile
	Preferences *Preferences
	Wardrobe    []WardrobeItem
	Feedback    []OutfitFeedback
	Events      []CalendarEvent
}

// GenderOrUnisex returns the normalized profile gender.
func (u *UserContext) GenderOrUnisex() string {
	if u == nil || u.Profile == nil {
		return GenderUnisex
	}
	return NormalizeGender(u.Profile.Gender)
}
