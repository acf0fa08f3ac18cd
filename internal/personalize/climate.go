package personalize

import (
	"regexp"
	"strings"
)

// Climate buckets.
const (
	ClimateHot       = "hot"
	ClimateCold      = "cold"
	ClimateTemperate = "temperate"
)

var (
	hotClimateRe  = regexp.MustCompile(`(?i)\b(hot|tropical|warm|humid|desert|arid|equatorial)\b`)
	coldClimateRe = regexp.MustCompile(`(?i)\b(cold|snowy|snow|arctic|freezing|alpine|subarctic|nordic|polar)\b`)
)

// ClassifyClimate maps a profile climate string onto a bucket.
func ClassifyClimate(climate string) string {
	switch {
	case hotClimateRe.MatchString(climate):
		return ClimateHot
	case coldClimateRe.MatchString(climate):
		return ClimateCold
	default:
		return ClimateTemperate
	}
}

// Swap replaces one garment or material word with another.
type Swap struct {
	From string
	To   string
	re   *regexp.Regexp
}

func swap(from, to string) Swap {
	return Swap{From: from, To: to, re: alternation([]string{from}, "s?")}
}

var hotSwaps = []Swap{
	swap("down jacket", "lightweight jacket"),
	swap("down coat", "lightweight coat"),
	swap("down vest", "lightweight vest"),
	swap("puffer", "lightweight"),
	swap("parka", "rain jacket"),
	swap("wool", "linen"),
	swap("fleece", "cotton"),
	swap("cashmere", "cotton"),
	swap("thermal", "breathable"),
}

var coldSwaps = []Swap{
	swap("tank top", "long-sleeve top"),
	swap("linen", "wool"),
	swap("sandal", "boot"),
	swap("shorts", "trousers"),
}

// ClimateRule patches garments that make no sense for the user's climate.
type ClimateRule struct {
	Kind  string
	Swaps []Swap
}

// NewClimateRule builds the rule for a profile climate string. Temperate and
// unknown climates produce a no-op rule.
func NewClimateRule(climate string) ClimateRule {
	kind := ClassifyClimate(climate)
	switch kind {
	case ClimateHot:
		return ClimateRule{Kind: kind, Swaps: hotSwaps}
	case ClimateCold:
		return ClimateRule{Kind: kind, Swaps: coldSwaps}
	default:
		return ClimateRule{Kind: kind}
	}
}

// Patch applies every swap to text and returns the swaps that fired.
func (r ClimateRule) Patch(text string) (string, []Swap) {
	var fired []Swap
	for _, s := range r.Swaps {
		if !s.re.MatchString(text) {
			continue
		}
		text = s.re.ReplaceAllStringFunc(text, func(m string) string {
			repl := s.To
			if strings.HasSuffix(strings.ToLower(m), "s") && !strings.HasSuffix(strings.ToLower(s.From), "s") {
				repl += "s"
			}
			if first := m[:1]; strings.ToUpper(first) == first && strings.ToLower(first) != first {
				repl = capitalize(repl)
			}
			return repl
		})
		fired = append(fired, s)
	}
	return text, fired
}
