package season_test

import (
	"testing"
	"time"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/season"
)

func TestForMonth(t *testing.T) {
	cases := []struct {
		month time.Month
		h     season.Hemisphere
		want  season.Season
	}{
		{time.January, season.North, season.Winter},
		{time.March, season.North, season.Spring},
		{time.July, season.North, season.Summer},
		{time.October, season.North, season.Autumn},
		{time.December, season.North, season.Winter},
		{time.January, season.South, season.Summer},
		{time.April, season.South, season.Autumn},
		{time.August, season.South, season.Winter},
	}
	for _, tc := range cases {
		if got := season.ForMonth(tc.month, tc.h); got != tc.want {
			t.Errorf("ForMonth(%s, %s) = %s, want %s", tc.month, tc.h, got, tc.want)
		}
	}
}

func TestParseHemisphere(t *testing.T) {
	if season.ParseHemisphere("Southern") != season.South {
		t.Error("expected southern to parse as South")
	}
	if season.ParseHemisphere("") != season.North {
		t.Error("expected empty to default to North")
	}
}

func TestGapReport_MissingSlots(t *testing.T) {
	wardrobe := []domain.WardrobeItem{
		{Name: "Grey wool overcoat", Category: "outerwear"},
		{Name: "Navy crew knit", Category: "tops"},
		{Name: "Selvedge jeans", Category: "bottoms"},
		{Name: "Black chinos", Category: "bottoms"},
	}

	report := season.GapReport(season.Winter, wardrobe)

	if report.Complete() {
		t.Fatal("expected gaps in winter capsule")
	}
	want := map[string]int{"sweater": 2, "boots": 1, "scarf": 1}
	if len(report.Gaps) != len(want) {
		t.Fatalf("expected %d gaps, got %+v", len(want), report.Gaps)
	}
	for _, g := range report.Gaps {
		if want[g.Category] != g.Need {
			t.Errorf("gap %s: need %d, want %d", g.Category, g.Need, want[g.Category])
		}
	}
	if report.Text != "Winter capsule gaps: sweater (2 more), boots (1 more), scarf (1 more)." {
		t.Errorf("unexpected text %q", report.Text)
	}
}

func TestGapReport_Complete(t *testing.T) {
	wardrobe := []domain.WardrobeItem{
		{Name: "White tee", Category: "t-shirt"},
		{Name: "Striped tee", Category: "t-shirt"},
		{Name: "Black tee", Category: "t-shirt"},
		{Name: "Tank top", Category: "tops"},
		{Name: "Denim shorts", Category: "bottoms"},
		{Name: "Pleated skirt", Category: "bottoms"},
		{Name: "Slip dress", Category: "dress"},
		{Name: "Leather sandals", Category: "shoes"},
	}

	report := season.GapReport(season.Summer, wardrobe)
	if !report.Complete() {
		t.Fatalf("expected complete capsule, got %+v", report.Gaps)
	}
	if report.Text != "Your summer capsule is complete." {
		t.Errorf("unexpected text %q", report.Text)
	}
}

func TestCapsule_ReturnsCopy(t *testing.T) {
	slots := season.Capsule(season.Spring)
	slots[0].Count = 99
	if season.Capsule(season.Spring)[0].Count == 99 {
		t.Fatal("Capsule must not expose the template")
	}
}
