// Package tags normalizes free-text style tags, weights them and merges in
// trend tags from the trends feed.
package tags

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/observability"
	"github.com/boddenberg/stylist-bfa-go/internal/port"
)

const (
	// MaxTags caps the enriched tag list injected into prompts.
	MaxTags = 12

	trendWeight = 0.6
	trendBoost  = 0.25
	trendsKey   = "trends"
)

var weights = map[string]float64{
	"minimalist":     1.3,
	"quiet luxury":   1.3,
	"streetwear":     1.2,
	"smart casual":   1.2,
	"business":       1.2,
	"old money":      1.15,
	"athleisure":     1.1,
	"bohemian":       1.1,
	"preppy":         1.1,
	"vintage":        1.1,
	"y2k":            1.05,
	"classic":        1.05,
	"monochrome":     1.05,
	"casual":         1.0,
	"sporty":         1.0,
	"edgy":           1.0,
	"romantic":       0.95,
	"grunge":         0.95,
	"gorpcore":       0.9,
	"cottagecore":    0.9,
	"coastal":        0.9,
	"scandi":         1.1,
	"techwear":       1.0,
	"workwear":       1.0,
	"eclectic":       0.85,
	"avant garde":    0.85,
	"normcore":       0.85,
	"dark academia":  0.9,
	"western":        0.85,
	"resort":         0.9,
	"party":          0.9,
	"formal":         1.15,
	"black tie":      1.15,
	"festival":       0.8,
	"loungewear":     0.8,
	"maximalist":     0.9,
	"utility":        0.95,
	"tailored":       1.15,
	"relaxed":        0.95,
	"neutral tones":  1.0,
	"earth tones":    1.0,
	"color blocking": 0.9,
}

// DefaultTrends is served when the trends feed is unavailable.
var DefaultTrends = []string{
	"quiet luxury",
	"relaxed tailoring",
	"sheer layers",
	"burgundy",
	"suede",
	"ballet flats",
}

// FallbackTags is returned by outfit analysis when the model gives nothing
// usable.
var FallbackTags = []string{
	"casual",
	"classic",
	"smart casual",
	"neutral tones",
	"minimalist",
}

var (
	separators = regexp.MustCompile(`[_\-]+`)
	spaces     = regexp.MustCompile(`\s+`)
)

// Normalize lowercases, trims, strips '#', maps '_' and '-' to spaces and
// collapses whitespace.
func Normalize(tag string) string {
	t := strings.ToLower(strings.TrimSpace(tag))
	t = strings.ReplaceAll(t, "#", "")
	t = separators.ReplaceAllString(t, " ")
	t = spaces.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// NormalizeAll normalizes and dedupes tags, keeping first-seen order.
func NormalizeAll(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		t := Normalize(raw)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Weight returns the table weight for a normalized tag, 1.0 when unknown.
func Weight(tag string) float64 {
	if w, ok := weights[tag]; ok {
		return w
	}
	return 1.0
}

// Enricher merges user tags with trend tags.
type Enricher struct {
	trends  port.TrendFetcher
	cache   port.Cache[[]string]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewEnricher creates an Enricher. trends may be nil, in which case the static
// list is used.
func NewEnricher(trends port.TrendFetcher, cache port.Cache[[]string], metrics *observability.Metrics, logger *zap.Logger) *Enricher {
	return &Enricher{trends: trends, cache: cache, metrics: metrics, logger: logger}
}

// Trends returns the current trend tags, normalized.
func (e *Enricher) Trends(ctx context.Context) []string {
	if e.cache != nil {
		if cached, ok := e.cache.Get(trendsKey); ok {
			e.metrics.IncrCacheHit("trends")
			return cached
		}
		e.metrics.IncrCacheMiss("trends")
	}

	if e.trends == nil {
		return NormalizeAll(DefaultTrends)
	}

	raw, err := e.trends.FetchTrends(ctx)
	list := NormalizeAll(raw)
	if err != nil || len(list) == 0 {
		e.logger.Warn("trends feed unavailable, using static list", zap.Error(err))
		e.metrics.IncrFallback("trends")
		return NormalizeAll(DefaultTrends)
	}

	if e.cache != nil {
		e.cache.Set(trendsKey, list)
	}
	return list
}

// Enrich weights the user tags and merges the trend tags into them.
// A trend tag the user already has boosts that tag; the others join with a
// lower weight. The result is sorted by weight then name and capped at MaxTags.
func (e *Enricher) Enrich(ctx context.Context, userTags []string) []domain.StyleTag {
	return Merge(NormalizeAll(userTags), e.Trends(ctx))
}

// Merge is the pure part of Enrich. Both inputs must already be normalized.
func Merge(userTags, trendTags []string) []domain.StyleTag {
	out := make([]domain.StyleTag, 0, len(userTags)+len(trendTags))
	index := make(map[string]int, len(userTags))
	for _, t := range userTags {
		if _, dup := index[t]; dup {
			continue
		}
		index[t] = len(out)
		out = append(out, domain.StyleTag{Name: t, Weight: Weight(t), Source: domain.TagSourceUser})
	}

	for _, t := range trendTags {
		if i, ok := index[t]; ok {
			if out[i].Source == domain.TagSourceUser {
				out[i].Weight += trendBoost
			}
			continue
		}
		index[t] = len(out)
		out = append(out, domain.StyleTag{Name: t, Weight: trendWeight, Source: domain.TagSourceTrend})
	}

	Sort(out)
	if len(out) > MaxTags {
		out = out[:MaxTags]
	}
	return out
}

// Sort orders tags by weight desc, then name.
func Sort(tags []domain.StyleTag) {
	sort.SliceStable(tags, func(i, j int) bool {
		if tags[i].Weight != tags[j].Weight {
			return tags[i].Weight > tags[j].Weight
		}
		return tags[i].Name < tags[j].Name
	})
}

// Names returns the tag names in order.
func Names(tags []domain.StyleTag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Name
	}
	return out
}

// FromNames builds weighted tags from raw names with the given source.
func FromNames(names []string, source string) []domain.StyleTag {
	norm := NormalizeAll(names)
	out := make([]domain.StyleTag, 0, len(norm))
	for _, n := range norm {
		out = append(out, domain.StyleTag{Name: n, Weight: Weight(n), Source: source})
	}
	Sort(out)
	if len(out) > MaxTags {
		out = out[:MaxTags]
	}
	return out
}
