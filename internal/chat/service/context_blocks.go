package service

import (
	"fmt"
	"strings"

	chatdomain "github.com/boddenberg/stylist-bfa-go/internal/chat/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/domain"
)

var blockTitles = map[string]string{
	BlockProfile:     "Client profile",
	BlockPreferences: "Preferences",
	BlockWardrobe:    "Wardrobe",
	BlockCapsule:     "Season capsule",
	BlockCalendar:    "Upcoming calendar",
	BlockFeedback:    "Recent outfit feedback",
	BlockWear:        "Recently worn",
	BlockTrends:      "Current trends",
	BlockHistory:     "Conversation so far",
}

func blockTitle(label string) string {
	if t, ok := blockTitles[label]; ok {
		return t
	}
	return label
}

func formatProfile(p *domain.StyleProfile) string {
	var parts []string
	if p.Name != "" {
		parts = append(parts, "name "+p.Name)
	}
	parts = append(parts, "gender "+domain.NormalizeGender(p.Gender))
	if p.BodyType != "" {
		parts = append(parts, "body type "+p.BodyType)
	}
	if p.Sizes != "" {
		parts = append(parts, "sizes "+p.Sizes)
	}
	if p.Climate != "" {
		parts = append(parts, "climate "+p.Climate)
	}
	if p.Location != "" {
		parts = append(parts, "lives in "+p.Location)
	}
	if len(p.StyleTags) > 0 {
		parts = append(parts, "style "+strings.Join(p.StyleTags, ", "))
	}
	return strings.Join(parts, "; ")
}

func formatPreferences(p *domain.Preferences) string {
	var lines []string
	if p.ColorNotes != "" {
		lines = append(lines, "Colors: "+p.ColorNotes)
	}
	if p.FitNotes != "" {
		lines = append(lines, "Fit: "+p.FitNotes)
	}
	if len(p.FavoriteBrands) > 0 {
		lines = append(lines, "Favorite brands: "+strings.Join(p.FavoriteBrands, ", "))
	}
	if len(p.AvoidMaterials) > 0 {
		lines = append(lines, "Avoids: "+strings.Join(p.AvoidMaterials, ", "))
	}
	if p.BudgetMax > 0 {
		cur := p.Currency
		if cur == "" {
			cur = "USD"
		}
		lines = append(lines, fmt.Sprintf("Budget: %.0f-%.0f %s per piece", p.BudgetMin, p.BudgetMax, cur))
	}
	return strings.Join(lines, "\n")
}

func formatWardrobe(items []domain.WardrobeItem) string {
	if len(items) == 0 {
		return ""
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		line := "- " + it.Name
		if it.Color != "" {
			line += " (" + it.Color + ")"
		}
		if it.Category != "" {
			line += " [" + it.Category + "]"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func formatCalendar(events []domain.CalendarEvent) string {
	if len(events) == 0 {
		return ""
	}
	lines := make([]string, 0, len(events))
	for _, e := range events {
		line := fmt.Sprintf("- %s: %s", e.StartsAt.Format("Mon 2 Jan 15:04"), e.Title)
		if e.DressCode != "" {
			line += " (dress code: " + e.DressCode + ")"
		}
		if e.Location != "" {
			line += " at " + e.Location
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func formatFeedback(fb []domain.OutfitFeedback) string {
	if len(fb) == 0 {
		return ""
	}
	lines := make([]string, 0, len(fb))
	for _, f := range fb {
		line := fmt.Sprintf("- %s: %d/5", f.OutfitTitle, f.Rating)
		if f.Comment != "" {
			line += " \"" + f.Comment + "\""
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func formatWear(wear []domain.WearEntry) string {
	if len(wear) == 0 {
		return ""
	}
	lines := make([]string, 0, len(wear))
	for _, w := range wear {
		lines = append(lines, fmt.Sprintf("- %s %s", w.WornAt.Format("2 Jan"), w.ItemName))
	}
	return strings.Join(lines, "\n")
}

// formatHistory renders the transcript, leaving out the message being
// answered.
func formatHistory(msgs []chatdomain.Message, currentID string) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.ID != "" && m.ID == currentID {
			continue
		}
		who := "Client"
		if m.Role == "assistant" {
			who = "You"
		}
		lines = append(lines, who+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}
