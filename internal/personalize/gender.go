package personalize

import (
	"regexp"
	"strings"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
)

var (
	maleWordsRe   = regexp.MustCompile(`(?i)\b(?:for\s+(?:men|him)|men'?s|man'?s|men|male|guys|boys|masculine)\b'?`)
	femaleWordsRe = regexp.MustCompile(`(?i)\b(?:for\s+(?:women|her)|women'?s|woman'?s|women|female|ladies|lady'?s|girls|feminine)\b'?`)
)

func genderPrefix(gender string) string {
	switch gender {
	case domain.GenderMale:
		return "men's"
	case domain.GenderFemale:
		return "women's"
	}
	return ""
}

func ownWords(gender string) *regexp.Regexp {
	switch gender {
	case domain.GenderMale:
		return maleWordsRe
	case domain.GenderFemale:
		return femaleWordsRe
	}
	return nil
}

func oppositeWords(gender string) *regexp.Regexp {
	switch gender {
	case domain.GenderMale:
		return femaleWordsRe
	case domain.GenderFemale:
		return maleWordsRe
	}
	return nil
}

// GenderLock pins a product search query to the user's gender: words of the
// opposite gender are removed and "men's"/"women's" is prefixed exactly once.
// Unisex and unknown genders leave the query unchanged.
func GenderLock(query, gender string) string {
	gender = domain.NormalizeGender(gender)
	prefix := genderPrefix(gender)
	if prefix == "" {
		return query
	}
	q := oppositeWords(gender).ReplaceAllString(query, "")
	q = ownWords(gender).ReplaceAllString(q, "")
	q = tidy(strings.ToLower(q))
	if q == "" {
		return prefix
	}
	return prefix + " " + q
}

// OppositeGenderSignal reports whether text (a product title or URL) names
// the opposite gender.
func OppositeGenderSignal(text, gender string) bool {
	re := oppositeWords(domain.NormalizeGender(gender))
	if re == nil {
		return false
	}
	return re.MatchString(urlWords(text))
}

// urlWords turns path separators into spaces so "/womens-dresses/" reads as
// words.
func urlWords(s string) string {
	return strings.NewReplacer("-", " ", "_", " ", "/", " ", "+", " ", "%20", " ").Replace(s)
}
