package personalize

import (
	"regexp"
	"strings"
)

// Colors is the recognized color vocabulary, in canonical form.
var Colors = []string{
	"black", "white", "gray", "navy", "beige", "cream", "brown", "tan", "camel",
	"khaki", "olive", "green", "blue", "red", "burgundy", "pink", "purple",
	"lavender", "yellow", "mustard", "orange", "gold", "silver", "teal", "coral",
}

// Neutrals are the recolor targets for excepted colors, in preference order.
var Neutrals = []string{"black", "white", "navy", "gray", "beige"}

var colorAliases = map[string]string{
	"grey":      "gray",
	"charcoal":  "gray",
	"ivory":     "cream",
	"ecru":      "cream",
	"off white": "cream",
	"maroon":    "burgundy",
	"wine":      "burgundy",
	"navy blue": "navy",
	"violet":    "purple",
	"lilac":     "lavender",
	"taupe":     "beige",
	"nude":      "beige",
	"sand":      "beige",
	"chocolate": "brown",
}

var (
	colorSet     = make(map[string]bool, len(Colors))
	colorVariant = make(map[string][]string, len(Colors))
	colorWordRe  *regexp.Regexp
	colorAnyRe   = map[string]*regexp.Regexp{}
	ruleTokenRe  = regexp.MustCompile(`[a-z][a-z'\-]*|[,&.;!?]`)
)

func init() {
	all := make([]string, 0, len(Colors)+len(colorAliases))
	for _, c := range Colors {
		colorSet[c] = true
		colorVariant[c] = []string{c}
		all = append(all, c)
	}
	for alias, c := range colorAliases {
		colorVariant[c] = append(colorVariant[c], alias)
		all = append(all, alias)
	}
	colorWordRe = alternation(all, "")
	for c, variants := range colorVariant {
		colorAnyRe[c] = alternation(variants, "")
	}
}

// CanonicalColor returns the first vocabulary color mentioned in text, or "".
// "Light Grey" yields "gray".
func CanonicalColor(text string) string {
	m := colorWordRe.FindString(text)
	if m == "" {
		return ""
	}
	m = strings.ToLower(phraseSepRe.ReplaceAllString(m, " "))
	if c, ok := colorAliases[m]; ok {
		return c
	}
	if colorSet[m] {
		return m
	}
	return ""
}

// ColorRule is the parsed form of a user's color notes.
type ColorRule struct {
	Only   []string `json:"only,omitempty"`
	Except []string `json:"except,omitempty"`
}

// Empty reports whether the rule restricts nothing.
func (r ColorRule) Empty() bool { return len(r.Only) == 0 && len(r.Except) == 0 }

// Allows reports whether an item of the given color passes the rule.
// Unrecognized colors always pass.
func (r ColorRule) Allows(color string) bool {
	c := CanonicalColor(color)
	if c == "" {
		return true
	}
	if len(r.Only) > 0 {
		return contains(r.Only, c)
	}
	return !contains(r.Except, c)
}

// Replacement returns the color an offending item is recolored to: the first
// Only color, else the first neutral not excepted. "" when nothing fits.
func (r ColorRule) Replacement() string {
	if len(r.Only) > 0 {
		return r.Only[0]
	}
	for _, n := range Neutrals {
		if !contains(r.Except, n) {
			return n
		}
	}
	return ""
}

// Recolor rewrites every mention of color in text to replacement.
func Recolor(text, color, replacement string) string {
	re, ok := colorAnyRe[CanonicalColor(color)]
	if !ok || replacement == "" {
		return text
	}
	return replaceKeepCase(text, re, replacement)
}

var (
	onlyTriggers = map[string]bool{"only": true, "just": true, "exclusively": true, "solely": true}
	negTriggers  = map[string]bool{
		"except": true, "no": true, "avoid": true, "not": true, "never": true,
		"hate": true, "hates": true, "without": true, "dislike": true,
		"don't": true, "dont": true,
	}
	colorFillers = map[string]bool{
		"wear": true, "wearing": true, "in": true, "the": true, "and": true, "or": true,
		"nor": true, "a": true, "any": true, "like": true, "too": true, "much": true,
		"fan": true, "of": true, "big": true, "really": true, "color": true,
		"colors": true, "colour": true, "colours": true, "tones": true, "shades": true,
		"light": true, "dark": true, "pale": true, "bright": true, "deep": true,
		"soft": true, "muted": true, "&": true, ",": true,
	}
)

// ParseColorRule extracts "only X" and "except X" constraints from free text.
//
//	"only black and navy"     -> Only [black navy]
//	"black and navy only"     -> Only [black navy]
//	"nothing but beige"       -> Only [beige]
//	"anything but beige"      -> Except [beige]
//	"no pink or yellow"       -> Except [pink yellow]
//	"I don't like grey"       -> Except [gray]
//	"I love black, just not pink" -> Except [pink]
//
// A color named in both lists stays in Only.
func ParseColorRule(text string) ColorRule {
	toks := colorTokens(text)
	var rule ColorRule
	consumed := make([]bool, len(toks))

	for i, tok := range toks {
		switch {
		case onlyTriggers[tok] && i+1 < len(toks) && negTriggers[toks[i+1]]:
			// "just not pink" negates; the negation word handles it.
		case onlyTriggers[tok] || (tok == "but" && i > 0 && toks[i-1] == "nothing"):
			colors := collectForward(toks, i+1, consumed)
			if len(colors) == 0 {
				colors = collectBackward(toks, i-1, consumed)
			}
			for _, c := range colors {
				rule.Only = appendUnique(rule.Only, c)
			}
		case negTriggers[tok] || (tok == "but" && i > 0 && toks[i-1] == "anything"):
			for _, c := range collectForward(toks, i+1, consumed) {
				rule.Except = appendUnique(rule.Except, c)
			}
		}
	}

	if len(rule.Only) > 0 && len(rule.Except) > 0 {
		kept := rule.Except[:0]
		for _, c := range rule.Except {
			if !contains(rule.Only, c) {
				kept = append(kept, c)
			}
		}
		rule.Except = kept
	}
	if len(rule.Except) == 0 {
		rule.Except = nil
	}
	return rule
}

// colorTokens lowercases text, folds multi-word aliases into one canonical
// token and splits it into words and punctuation.
func colorTokens(text string) []string {
	lower := colorWordRe.ReplaceAllStringFunc(strings.ToLower(text), func(m string) string {
		return CanonicalColor(m)
	})
	return ruleTokenRe.FindAllString(lower, -1)
}

// collectForward gathers the color list starting at j. A comma ends the list
// when the colors after it are claimed by a trailing "only".
func collectForward(toks []string, j int, consumed []bool) []string {
	var out []string
	for ; j < len(toks); j++ {
		t := toks[j]
		if colorSet[t] {
			out = append(out, t)
			consumed[j] = true
			continue
		}
		if t == "," && groupEndsWithOnly(toks, j+1) {
			break
		}
		if !colorFillers[t] {
			break
		}
	}
	return out
}

func collectBackward(toks []string, j int, consumed []bool) []string {
	var out []string
	for ; j >= 0; j-- {
		t := toks[j]
		if consumed[j] {
			break
		}
		if colorSet[t] {
			out = append([]string{t}, out...)
			consumed[j] = true
			continue
		}
		if !colorFillers[t] {
			break
		}
	}
	return out
}

func groupEndsWithOnly(toks []string, j int) bool {
	seen := false
	for ; j < len(toks); j++ {
		t := toks[j]
		switch {
		case colorSet[t]:
			seen = true
		case t == "and" || t == "or" || t == "&":
		default:
			return seen && t == "only"
		}
	}
	return false
}
