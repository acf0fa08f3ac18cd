package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/personalize"
	"github.com/boddenberg/stylist-bfa-go/internal/season"
)

const stylistSystem = `You are a professional personal stylist. You answer with JSON only, no prose, no markdown.`

const analyzeSystem = stylistSystem + `
Look at the outfit in the photo and describe its style as short tags
(for example "minimalist", "streetwear", "earth tones", "relaxed tailoring").
Reply with {"tags": ["tag", ...]} using at most 10 tags.`

const outfitSchema = `{"title": string, "description": string, "items": [{"name": string, "category": string, "color": string, "description": string, "search_query": string}]}`

const shopSchema = `{"outfits": [` + outfitSchema + `], "purchases": [{"name": string, "category": string, "color": string, "description": string, "search_query": string, "reason": string, "priority": 1-3}]}`

const suggestSchema = `{"brief": string, "outfit": ` + outfitSchema + `}`

func recreatePrompt(styleTags []domain.StyleTag, uc *domain.UserContext, req *domain.RecreateRequest, s season.Season) string {
	var b strings.Builder
	b.WriteString("Recreate a complete outfit in this style.\n")
	fmt.Fprintf(&b, "Style tags (strongest first): %s\n", joinTagNames(styleTags))
	if req.Occasion != "" {
		fmt.Fprintf(&b, "Occasion: %s\n", req.Occasion)
	}
	fmt.Fprintf(&b, "Season: %s\n", s)
	writeProfile(&b, uc)
	writeWardrobe(&b, uc, 25)
	b.WriteString("Prefer pieces the user already owns; every item needs a concrete search_query for an online shop.\n")
	fmt.Fprintf(&b, "Reply with %s", outfitSchema)
	return b.String()
}

func shopPrompt(uc *domain.UserContext, rules personalize.Rules, req *domain.ShopRequest, s season.Season) string {
	var b strings.Builder
	b.WriteString("Build a personalized shopping list: 2 outfits and the pieces worth buying to complete them.\n")
	if req.Occasion != "" {
		fmt.Fprintf(&b, "Occasion: %s\n", req.Occasion)
	}
	fmt.Fprintf(&b, "Season: %s\n", s)
	writeProfile(&b, uc)
	writePreferences(&b, uc, req.Budget)
	writeWardrobe(&b, uc, 40)
	writeFeedback(&b, uc)

	b.WriteString("Hard constraints:\n")
	switch rules.Gender {
	case domain.GenderMale:
		b.WriteString("- menswear only\n")
	case domain.GenderFemale:
		b.WriteString("- womenswear only\n")
	}
	if len(rules.Color.Only) > 0 {
		fmt.Fprintf(&b, "- use only these colors: %s\n", strings.Join(rules.Color.Only, ", "))
	}
	if len(rules.Color.Except) > 0 {
		fmt.Fprintf(&b, "- never use: %s\n", strings.Join(rules.Color.Except, ", "))
	}
	if len(rules.Fit.Banned) > 0 {
		fmt.Fprintf(&b, "- never suggest these fits: %s\n", strings.Join(rules.Fit.Banned, ", "))
	}
	switch rules.Climate.Kind {
	case personalize.ClimateHot:
		b.WriteString("- hot climate: breathable fabrics, no wool, fleece or puffers\n")
	case personalize.ClimateCold:
		b.WriteString("- cold climate: warm layers, no sandals, shorts or linen\n")
	}
	if req.Notes != "" {
		fmt.Fprintf(&b, "User notes: %s\n", req.Notes)
	}
	b.WriteString("Do not list items the user already owns as purchases.\n")
	fmt.Fprintf(&b, "Reply with %s", shopSchema)
	return b.String()
}

func suggestPrompt(uc *domain.UserContext, day time.Time, report season.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write today's style brief for %s (%s).\n", day.Format("Monday, 2 January 2006"), report.Season)
	writeProfile(&b, uc)
	if len(uc.Events) > 0 {
		b.WriteString("Today's calendar:\n")
		for _, e := range uc.Events {
			fmt.Fprintf(&b, "- %s at %s", e.Title, e.StartsAt.Format("15:04"))
			if e.DressCode != "" {
				fmt.Fprintf(&b, " (dress code: %s)", e.DressCode)
			}
			b.WriteString("\n")
		}
	}
	writeWardrobe(&b, uc, 30)
	fmt.Fprintf(&b, "Capsule report: %s\n", report.Text)
	b.WriteString("Keep the brief under 80 words and build the outfit from the wardrobe.\n")
	fmt.Fprintf(&b, "Reply with %s", suggestSchema)
	return b.String()
}

func renderPrompt(outfit *domain.Outfit, gender string) string {
	parts := make([]string, 0, len(outfit.Items))
	for _, it := range outfit.Items {
		parts = append(parts, strings.TrimSpace(it.Color+" "+it.Name))
	}
	who := "a model"
	switch gender {
	case domain.GenderMale:
		who = "a male model"
	case domain.GenderFemale:
		who = "a female model"
	}
	return fmt.Sprintf("Full-body editorial fashion photo of %s wearing %s. Plain studio background, natural light.",
		who, strings.Join(parts, ", "))
}

func barcodeGuessPrompt(code string) string {
	return fmt.Sprintf(`Barcode %s was not found in any product database.
Guess the product it most likely belongs to, judging from the GS1 prefix and your knowledge.
Reply with {"title": string, "brand": string, "category": string, "confidence": number between 0 and 1}.`, code)
}

func writeProfile(b *strings.Builder, uc *domain.UserContext) {
	if uc == nil || uc.Profile == nil {
		return
	}
	p := uc.Profile
	fmt.Fprintf(b, "User: gender %s", domain.NormalizeGender(p.Gender))
	if p.BodyType != "" {
		fmt.Fprintf(b, ", body type %s", p.BodyType)
	}
	if p.Sizes != "" {
		fmt.Fprintf(b, ", sizes %s", p.Sizes)
	}
	if p.Climate != "" {
		fmt.Fprintf(b, ", climate %s", p.Climate)
	}
	if p.Location != "" {
		fmt.Fprintf(b, ", lives in %s", p.Location)
	}
	b.WriteString("\n")
	if len(p.StyleTags) > 0 {
		fmt.Fprintf(b, "Style: %s\n", strings.Join(p.StyleTags, ", "))
	}
}

func writePreferences(b *strings.Builder, uc *domain.UserContext, budget float64) {
	if uc != nil && uc.Preferences != nil {
		p := uc.Preferences
		if p.ColorNotes != "" {
			fmt.Fprintf(b, "Color notes: %s\n", p.ColorNotes)
		}
		if p.FitNotes != "" {
			fmt.Fprintf(b, "Fit notes: %s\n", p.FitNotes)
		}
		if len(p.FavoriteBrands) > 0 {
			fmt.Fprintf(b, "Favorite brands: %s\n", strings.Join(p.FavoriteBrands, ", "))
		}
		if len(p.AvoidMaterials) > 0 {
			fmt.Fprintf(b, "Avoid materials: %s\n", strings.Join(p.AvoidMaterials, ", "))
		}
		if budget <= 0 && p.BudgetMax > 0 {
			budget = p.BudgetMax
		}
	}
	if budget > 0 {
		fmt.Fprintf(b, "Budget per item: up to %.0f\n", budget)
	}
}

func writeWardrobe(b *strings.Builder, uc *domain.UserContext, max int) {
	if uc == nil || len(uc.Wardrobe) == 0 {
		return
	}
	b.WriteString("Wardrobe:\n")
	for i, it := range uc.Wardrobe {
		if i == max {
			break
		}
		fmt.Fprintf(b, "- %s", it.Name)
		if it.Color != "" {
			fmt.Fprintf(b, " (%s)", it.Color)
		}
		if it.Category != "" {
			fmt.Fprintf(b, " [%s]", it.Category)
		}
		b.WriteString("\n")
	}
}

func writeFeedback(b *strings.Builder, uc *domain.UserContext) {
	if uc == nil || len(uc.Feedback) == 0 {
		return
	}
	b.WriteString("Past outfit ratings (1-5):\n")
	for _, f := range uc.Feedback {
		fmt.Fprintf(b, "- %s: %d", f.OutfitTitle, f.Rating)
		if f.Comment != "" {
			fmt.Fprintf(b, " %q", f.Comment)
		}
		b.WriteString("\n")
	}
}

func joinTagNames(ts []domain.StyleTag) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}
