package personalize

import (
	"regexp"
	"strings"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
)

// Garment kinds used by the fallback image table.
const (
	KindTop       = "top"
	KindBottom    = "bottom"
	KindOuterwear = "outerwear"
	KindDress     = "dress"
	KindShoes     = "shoes"
	KindBag       = "bag"
	KindAccessory = "accessory"
)

var kindPatterns = []struct {
	kind string
	re   *regexp.Regexp
}{
	// outerwear before top so "shirt jacket" is a jacket
	{KindOuterwear, regexp.MustCompile(`(?i)\b(jacket|coat|blazer|parka|trench|puffer|overcoat|gilet|vest|cardigan|outerwear)s?\b`)},
	{KindDress, regexp.MustCompile(`(?i)\b(dress|jumpsuit|gown|romper)(es|s)?\b`)},
	{KindShoes, regexp.MustCompile(`(?i)\b(shoe|sneaker|trainer|boot|loafer|sandal|heel|pump|flats|mule|oxford|derby|espadrille|footwear)s?\b`)},
	{KindBag, regexp.MustCompile(`(?i)\b(bag|tote|backpack|clutch|purse|satchel|crossbody)s?\b`)},
	{KindAccessory, regexp.MustCompile(`(?i)\b(accessory|accessories|belt|scarf|scarves|hat|cap|beanie|watch|necklace|earring|bracelet|ring|sunglasses|jewelry|jewellery|gloves?)s?\b`)},
	{KindBottom, regexp.MustCompile(`(?i)\b(jeans|trousers|pants|chinos|shorts|skirt|leggings|joggers|culottes|bottoms?)\b`)},
	{KindTop, regexp.MustCompile(`(?i)\b(shirt|t-shirt|tee|blouse|top|sweater|jumper|hoodie|sweatshirt|polo|tank|knit|pullover|turtleneck|camisole)s?\b`)},
}

// CategoryKind classifies an item by its category, falling back to its name.
// Returns "" when neither matches.
func CategoryKind(category, name string) string {
	for _, text := range []string{category, name} {
		for _, p := range kindPatterns {
			if p.re.MatchString(text) {
				return p.kind
			}
		}
	}
	return ""
}

var fallbackTable = map[string]map[string]string{
	KindTop: {
		domain.GenderMale:   "men/top.jpg",
		domain.GenderFemale: "women/top.jpg",
		domain.GenderUnisex: "unisex/top.jpg",
	},
	KindBottom: {
		domain.GenderMale:   "men/bottom.jpg",
		domain.GenderFemale: "women/bottom.jpg",
		domain.GenderUnisex: "unisex/bottom.jpg",
	},
	KindOuterwear: {
		domain.GenderMale:   "men/outerwear.jpg",
		domain.GenderFemale: "women/outerwear.jpg",
		domain.GenderUnisex: "unisex/outerwear.jpg",
	},
	KindDress: {
		domain.GenderFemale: "women/dress.jpg",
		domain.GenderUnisex: "unisex/dress.jpg",
	},
	KindShoes: {
		domain.GenderMale:   "men/shoes.jpg",
		domain.GenderFemale: "women/shoes.jpg",
		domain.GenderUnisex: "unisex/shoes.jpg",
	},
	KindBag: {
		domain.GenderMale:   "men/bag.jpg",
		domain.GenderFemale: "women/bag.jpg",
		domain.GenderUnisex: "unisex/bag.jpg",
	},
	KindAccessory: {
		domain.GenderUnisex: "unisex/accessory.jpg",
	},
}

const genericFallback = "generic.jpg"

// FallbackImages resolves fallback image URLs against a static asset host.
type FallbackImages struct {
	base string
}

// NewFallbackImages creates a resolver for images served under baseURL.
func NewFallbackImages(baseURL string) *FallbackImages {
	return &FallbackImages{base: strings.TrimRight(baseURL, "/")}
}

// For returns the fallback image for an item of the given category and gender.
// Missing gender entries use the unisex image; unknown categories use the
// generic image.
func (f *FallbackImages) For(category, name, gender string) string {
	path := genericFallback
	if row, ok := fallbackTable[CategoryKind(category, name)]; ok {
		if p, ok := row[domain.NormalizeGender(gender)]; ok {
			path = p
		} else if p, ok := row[domain.GenderUnisex]; ok {
			path = p
		}
	}
	return f.base + "/" + path
}

// GuardImage clears a product image that signals the opposite gender, then
// makes sure the item has an image: the product's when present, else the
// fallback. It reports what it did.
func (f *FallbackImages) GuardImage(item *domain.OutfitItem, gender string) (cleared, fellBack bool) {
	if p := item.Product; p != nil && p.ImageURL != "" {
		if OppositeGenderSignal(p.Title+" "+p.URL+" "+p.ImageURL, gender) {
			if item.ImageURL == p.ImageURL {
				item.ImageURL = ""
			}
			p.ImageURL = ""
			cleared = true
		}
	}
	if item.ImageURL != "" && OppositeGenderSignal(item.ImageURL, gender) {
		item.ImageURL = ""
		cleared = true
	}
	if item.ImageURL == "" && item.Product != nil && item.Product.ImageURL != "" {
		item.ImageURL = item.Product.ImageURL
	}
	if item.ImageURL == "" {
		item.ImageURL = f.For(item.Category, item.Name, gender)
		fellBack = true
	}
	return cleared, fellBack
}
