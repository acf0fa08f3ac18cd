package season

import (
	"fmt"
	"strings"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
)

// Slot is one category of a capsule template.
type Slot struct {
	Category string
	Count    int
	Keywords []string
}

// Gap is a template slot the wardrobe does not fill.
type Gap struct {
	Category string `json:"category"`
	Have     int    `json:"have"`
	Need     int    `json:"need"`
}

// Report is the result of GapReport.
type Report struct {
	Season Season `json:"season"`
	Gaps   []Gap  `json:"gaps"`
	Text   string `json:"text"`
}

// Complete reports whether no slot is missing.
func (r Report) Complete() bool { return len(r.Gaps) == 0 }

var capsules = map[Season][]Slot{
	Winter: {
		{Category: "coat", Count: 1, Keywords: []string{"coat", "parka", "puffer", "overcoat"}},
		{Category: "sweater", Count: 3, Keywords: []string{"sweater", "jumper", "cardigan", "knit", "pullover"}},
		{Category: "trousers", Count: 2, Keywords: []string{"trousers", "pants", "jeans", "chinos"}},
		{Category: "boots", Count: 1, Keywords: []string{"boot"}},
		{Category: "scarf", Count: 1, Keywords: []string{"scarf"}},
	},
	Spring: {
		{Category: "light jacket", Count: 1, Keywords: []string{"jacket", "trench", "blazer"}},
		{Category: "shirt", Count: 3, Keywords: []string{"shirt", "blouse"}},
		{Category: "trousers", Count: 2, Keywords: []string{"trousers", "pants", "jeans", "chinos"}},
		{Category: "sneakers", Count: 1, Keywords: []string{"sneaker", "trainer", "loafer"}},
	},
	Summer: {
		{Category: "t-shirt", Count: 4, Keywords: []string{"t-shirt", "tee", "tank", "top"}},
		{Category: "shorts", Count: 2, Keywords: []string{"shorts", "skirt"}},
		{Category: "dress", Count: 1, Keywords: []string{"dress", "linen shirt"}},
		{Category: "sandals", Count: 1, Keywords: []string{"sandal", "espadrille", "slide"}},
	},
	Autumn: {
		{Category: "jacket", Count: 1, Keywords: []string{"jacket", "trench", "coat"}},
		{Category: "knitwear", Count: 2, Keywords: []string{"sweater", "cardigan", "knit", "jumper"}},
		{Category: "trousers", Count: 2, Keywords: []string{"trousers", "pants", "jeans", "chinos"}},
		{Category: "boots", Count: 1, Keywords: []string{"boot"}},
	},
}

// Capsule returns a copy of the capsule template for s.
func Capsule(s Season) []Slot {
	slots := capsules[s]
	out := make([]Slot, len(slots))
	copy(out, slots)
	return out
}

// GapReport counts wardrobe items against the capsule template of s. Each item
// fills at most one slot, the first one it matches.
func GapReport(s Season, wardrobe []domain.WardrobeItem) Report {
	slots := capsules[s]
	have := make([]int, len(slots))

	for _, item := range wardrobe {
		cat := strings.ToLower(strings.TrimSpace(item.Category))
		name := strings.ToLower(item.Name)
		for i, slot := range slots {
			if matchesSlot(slot, cat, name) {
				have[i]++
				break
			}
		}
	}

	report := Report{Season: s}
	for i, slot := range slots {
		if have[i] < slot.Count {
			report.Gaps = append(report.Gaps, Gap{
				Category: slot.Category,
				Have:     have[i],
				Need:     slot.Count - have[i],
			})
		}
	}
	report.Text = formatReport(s, report.Gaps)
	return report
}

func matchesSlot(slot Slot, category, name string) bool {
	if category == slot.Category {
		return true
	}
	for _, kw := range slot.Keywords {
		if strings.Contains(category, kw) || strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

func formatReport(s Season, gaps []Gap) string {
	if len(gaps) == 0 {
		return fmt.Sprintf("Your %s capsule is complete.", s)
	}
	parts := make([]string, 0, len(gaps))
	for _, g := range gaps {
		parts = append(parts, fmt.Sprintf("%s (%d more)", g.Category, g.Need))
	}
	return fmt.Sprintf("%s capsule gaps: %s.", s.Title(), strings.Join(parts, ", "))
}
