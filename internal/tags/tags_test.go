package tags_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/cache"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/observability"
	"github.com/boddenberg/stylist-bfa-go/internal/tags"
)

type mockTrends struct {
	tags  []string
	err   error
	calls int
}

func (m *mockTrends) FetchTrends(_ context.Context) ([]string, error) {
	m.calls++
	return m.tags, m.err
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Minimalist ", "minimalist"},
		{"#Quiet_Luxury", "quiet luxury"},
		{"old-money", "old money"},
		{"smart   casual", "smart casual"},
		{"##", ""},
		{" -_ ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tags.Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestNormalizeAll_DedupesAndDropsEmpty(t *testing.T) {
	got := tags.NormalizeAll([]string{"Streetwear", "#streetwear", "", "y2k", "street-wear"})
	assert.Equal(t, []string{"streetwear", "y2k", "street wear"}, got)
}

func TestWeight(t *testing.T) {
	assert.Equal(t, 1.3, tags.Weight("minimalist"))
	assert.Equal(t, 1.0, tags.Weight("something new"))
}

func TestMerge_BoostsExistingAndAddsTrends(t *testing.T) {
	got := tags.Merge([]string{"casual", "minimalist"}, []string{"casual", "suede"})

	require.Len(t, got, 3)
	assert.Equal(t, domain.StyleTag{Name: "minimalist", Weight: 1.3, Source: domain.TagSourceUser}, got[0])
	assert.Equal(t, "casual", got[1].Name)
	assert.InDelta(t, 1.25, got[1].Weight, 1e-9)
	assert.Equal(t, domain.TagSourceUser, got[1].Source)
	assert.Equal(t, domain.StyleTag{Name: "suede", Weight: 0.6, Source: domain.TagSourceTrend}, got[2])
}

func TestMerge_SortsByWeightThenName(t *testing.T) {
	got := tags.Merge([]string{"zeta", "alpha", "streetwear"}, nil)
	assert.Equal(t, []string{"streetwear", "alpha", "zeta"}, tags.Names(got))
}

func TestMerge_CapsAtMaxTags(t *testing.T) {
	user := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		user = append(user, string(rune('a'+i)))
	}
	got := tags.Merge(user, []string{"trend one"})
	assert.Len(t, got, tags.MaxTags)
	for _, tg := range got {
		assert.NotEqual(t, "trend one", tg.Name, "low-weight trend should be cut first")
	}
}

func TestEnricher_UsesFeedAndCaches(t *testing.T) {
	feed := &mockTrends{tags: []string{"Ballet_Flats", "minimalist"}}
	c := cache.New[[]string](time.Minute)
	defer c.Close()
	e := tags.NewEnricher(feed, c, observability.NewMetrics(), zap.NewNop())

	first := e.Enrich(context.Background(), []string{"#minimalist"})
	second := e.Enrich(context.Background(), []string{"minimalist"})

	assert.Equal(t, 1, feed.calls)
	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, "minimalist", first[0].Name)
	assert.InDelta(t, 1.55, first[0].Weight, 1e-9)
	assert.Equal(t, "ballet flats", first[1].Name)
}

func TestEnricher_FallsBackOnFeedError(t *testing.T) {
	feed := &mockTrends{err: errors.New("feed down")}
	metrics := observability.NewMetrics()
	e := tags.NewEnricher(feed, nil, metrics, zap.NewNop())

	got := e.Trends(context.Background())

	assert.Equal(t, tags.NormalizeAll(tags.DefaultTrends), got)
	metrics.IncrRequest("success")
	assert.InDelta(t, 1.0, metrics.GetSnapshot().FallbackRate, 1e-9)
}

func TestEnricher_FallsBackOnEmptyFeed(t *testing.T) {
	e := tags.NewEnricher(&mockTrends{tags: []string{" ", "#"}}, nil, observability.NewMetrics(), zap.NewNop())
	assert.Equal(t, tags.NormalizeAll(tags.DefaultTrends), e.Trends(context.Background()))
}

func TestFromNames(t *testing.T) {
	got := tags.FromNames([]string{"Casual", "streetwear", "casual"}, domain.TagSourceAnalysis)
	require.Len(t, got, 2)
	assert.Equal(t, "streetwear", got[0].Name)
	assert.Equal(t, domain.TagSourceAnalysis, got[1].Source)
}
