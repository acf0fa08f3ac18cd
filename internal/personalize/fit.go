package personalize

import (
	"regexp"
	"strings"
)

// Fits is the recognized fit vocabulary, in canonical form.
var Fits = []string{
	"skinny", "slim", "oversized", "baggy", "cropped", "wide-leg", "bodycon",
	"relaxed", "tapered", "high-waisted", "low-rise", "boxy", "flared",
}

var fitAliases = map[string]string{
	"slim fit":     "slim",
	"slim-fit":     "slim",
	"skinny fit":   "skinny",
	"oversize":     "oversized",
	"crop":         "cropped",
	"wide leg":     "wide-leg",
	"high waisted": "high-waisted",
	"high waist":   "high-waisted",
	"high rise":    "high-waisted",
	"low rise":     "low-rise",
	"flare":        "flared",
	"flares":       "flared",
	"bootcut":      "flared",
	"loose":        "relaxed",
	"relaxed fit":  "relaxed",
}

var (
	fitSet     = make(map[string]bool, len(Fits))
	fitWordRe  *regexp.Regexp
	fitAnyRe   = map[string]*regexp.Regexp{}
	fitFillers = map[string]bool{
		"or": true, "and": true, "nor": true, "&": true, ",": true, "a": true, "the": true,
		"any": true, "anything": true, "like": true, "wear": true, "wearing": true,
		"too": true, "really": true, "fan": true, "of": true, "big": true, "fit": true,
		"fits": true, "cut": true, "cuts": true, "style": true, "styles": true,
		"jeans": true, "pants": true, "trousers": true, "tops": true, "top": true,
		"shirts": true, "dresses": true, "skirts": true, "shorts": true,
		"sweaters": true, "jackets": true, "clothes": true, "stuff": true,
		"things": true, "more": true,
	}
	fitNegTriggers = map[string]bool{
		"no": true, "avoid": true, "hate": true, "hates": true, "not": true,
		"never": true, "dislike": true, "without": true, "don't": true, "dont": true,
	}
)

func init() {
	variants := make(map[string][]string, len(Fits))
	all := make([]string, 0, len(Fits)+len(fitAliases))
	for _, f := range Fits {
		fitSet[f] = true
		variants[f] = []string{f}
		all = append(all, f)
	}
	for alias, f := range fitAliases {
		variants[f] = append(variants[f], alias)
		all = append(all, alias)
	}
	fitWordRe = alternation(all, "")
	for f, v := range variants {
		fitAnyRe[f] = alternation(v, `(?:[\s\-]+fit)?`)
	}
}

// CanonicalFit maps a fit word or alias onto the Fits vocabulary, or "".
func CanonicalFit(word string) string {
	w := strings.ToLower(strings.TrimSpace(word))
	if f, ok := fitAliases[w]; ok {
		return f
	}
	if f, ok := fitAliases[phraseSepRe.ReplaceAllString(w, " ")]; ok {
		return f
	}
	if fitSet[w] {
		return w
	}
	for _, f := range Fits {
		if phraseSepRe.ReplaceAllString(f, " ") == phraseSepRe.ReplaceAllString(w, " ") {
			return f
		}
	}
	return ""
}

// FitRule is the parsed form of a user's fit notes.
type FitRule struct {
	Banned []string `json:"banned,omitempty"`
}

// Empty reports whether the rule bans nothing.
func (r FitRule) Empty() bool { return len(r.Banned) == 0 }

// ParseFitRule finds fit words preceded by a negation:
// "no skinny or cropped jeans" bans skinny and cropped,
// "I don't like oversized tops" bans oversized.
func ParseFitRule(text string) FitRule {
	lower := fitWordRe.ReplaceAllStringFunc(strings.ToLower(text), func(m string) string {
		return CanonicalFit(m)
	})
	toks := ruleTokenRe.FindAllString(lower, -1)

	var rule FitRule
	for i, tok := range toks {
		if !fitNegTriggers[tok] {
			continue
		}
		for j := i + 1; j < len(toks); j++ {
			t := toks[j]
			if fitSet[t] {
				rule.Banned = appendUnique(rule.Banned, t)
				continue
			}
			if !fitFillers[t] {
				break
			}
		}
	}
	return rule
}

// Mentions returns the banned fits named in text.
func (r FitRule) Mentions(text string) []string {
	var out []string
	for _, f := range r.Banned {
		if fitAnyRe[f].MatchString(text) {
			out = append(out, f)
		}
	}
	return out
}

// Strip removes every banned fit word (and a trailing "fit") from text.
// "Skinny black jeans" with skinny banned becomes "Black jeans".
func (r FitRule) Strip(text string) string {
	for _, f := range r.Banned {
		text = removeKeepCase(text, fitAnyRe[f])
	}
	return text
}
