// Package personalize holds the rules that rewrite model output to honor a
// user's stated preferences: gender locking, climate patching, fit bans,
// color restrictions and image guarding. Every rule is a pure function over
// strings; Enforcer sequences them and keeps a log of what changed.
package personalize

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	wordRe       = regexp.MustCompile(`[a-z][a-z'\-]*`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
	spaceCommaRe = regexp.MustCompile(`\s+([,.;:])`)
	phraseSepRe  = regexp.MustCompile(`[\s\-]+`)
	danglingRe   = regexp.MustCompile(`^[\s,\-–]+|[\s,\-–]+$`)
)

// tokens splits lowercased text into words. Hyphens and apostrophes stay
// inside words ("wide-leg", "don't").
func tokens(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// alternation builds a case-insensitive whole-word regexp for the phrases.
// Longer phrases come first so "navy blue" wins over "navy".
func alternation(phrases []string, suffix string) *regexp.Regexp {
	sorted := make([]string, len(phrases))
	copy(sorted, phrases)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	quoted := make([]string, len(sorted))
	for i, p := range sorted {
		words := phraseSepRe.Split(p, -1)
		for j, w := range words {
			words[j] = regexp.QuoteMeta(w)
		}
		quoted[i] = strings.Join(words, `[\s\-]*`)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)` + suffix + `\b`)
}

// replaceKeepCase swaps every match of re with repl, capitalizing repl when
// the match started with an upper-case letter.
func replaceKeepCase(s string, re *regexp.Regexp, repl string) string {
	return re.ReplaceAllStringFunc(s, func(match string) string {
		r, _ := utf8.DecodeRuneInString(match)
		if unicode.IsUpper(r) {
			return capitalize(repl)
		}
		return repl
	})
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// tidy collapses the whitespace and punctuation left behind by removals.
func tidy(s string) string {
	s = multiSpaceRe.ReplaceAllString(s, " ")
	s = spaceCommaRe.ReplaceAllString(s, "$1")
	s = danglingRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// removeKeepCase deletes matches of re and re-capitalizes the first letter
// when the original text started upper-case.
func removeKeepCase(s string, re *regexp.Regexp) string {
	if !re.MatchString(s) {
		return s
	}
	out := tidy(re.ReplaceAllString(s, ""))
	first, _ := utf8.DecodeRuneInString(s)
	if unicode.IsUpper(first) {
		out = capitalize(out)
	}
	return out
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func appendUnique(list []string, v string) []string {
	if contains(list, v) {
		return list
	}
	return append(list, v)
}
