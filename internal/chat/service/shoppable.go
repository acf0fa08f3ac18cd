package service

import (
	"regexp"
	"strings"

	chatdomain "github.com/boddenberg/stylist-bfa-go/internal/chat/domain"
)

var (
	bracketTermRe = regexp.MustCompile(`\[\[([^\[\]\n]{2,80})\]\]`)
	boldTermRe    = regexp.MustCompile(`\*\*([^*\n]{2,80})\*\*`)
	garmentRe     = regexp.MustCompile(`(?i)\b(?:shirt|tee|t-shirt|blouse|top|tank|polo|sweater|jumper|cardigan|hoodie|sweatshirt|jacket|coat|overcoat|blazer|trench|parka|vest|gilet|dress|skirt|jeans|denim|trousers|pants|chinos|shorts|leggings|joggers|suit|jumpsuit|sneakers|trainers|boots|loafers|heels|pumps|sandals|flats|mules|shoes|bag|tote|clutch|backpack|belt|scarf|hat|cap|beanie|sunglasses|watch|necklace|earrings|bracelet|tie)s?\b`)
	spaceRe       = regexp.MustCompile(`\s+`)
)

// ExtractShoppable pulls the shoppable terms out of a model reply. Terms in
// [[double brackets]] come first, then **bold** phrases naming a garment. At
// most MaxShoppableTerms are kept, deduped case-insensitively. The returned
// reply has the bracket markers removed; bold stays as markdown.
func ExtractShoppable(reply string) (string, []string) {
	var terms []string
	seen := map[string]bool{}
	add := func(raw string) {
		t := cleanTerm(raw)
		key := strings.ToLower(t)
		if t == "" || seen[key] || len(terms) >= chatdomain.MaxShoppableTerms {
			return
		}
		seen[key] = true
		terms = append(terms, t)
	}

	for _, m := range bracketTermRe.FindAllStringSubmatch(reply, -1) {
		add(m[1])
	}
	for _, m := range boldTermRe.FindAllStringSubmatch(reply, -1) {
		if garmentRe.MatchString(m[1]) {
			add(m[1])
		}
	}

	clean := bracketTermRe.ReplaceAllString(reply, "$1")
	return strings.TrimSpace(clean), terms
}

func cleanTerm(s string) string {
	s = spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
	return strings.Trim(s, ".,;:!?\"'()")
}
