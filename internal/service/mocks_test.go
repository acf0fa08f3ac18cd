package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/cache"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/observability"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/stylist-bfa-go/internal/personalize"
	"github.com/boddenberg/stylist-bfa-go/internal/service"
	"github.com/boddenberg/stylist-bfa-go/internal/tags"
)

// --- Mocks ---

type mockCompleter struct {
	mu      sync.Mutex
	fn      func(req *domain.CompletionRequest) (*domain.Completion, error)
	reply   string
	backend string
	err     error
	calls   []*domain.CompletionRequest
}

func (m *mockCompleter) Complete(_ context.Context, req *domain.CompletionRequest) (*domain.Completion, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	if m.fn != nil {
		return m.fn(req)
	}
	if m.err != nil {
		return nil, m.err
	}
	backend := m.backend
	if backend == "" {
		backend = domain.BackendOpenAI
	}
	return &domain.Completion{Text: m.reply, Backend: backend, Usage: domain.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}}, nil
}

func (m *mockCompleter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockStore struct {
	profile     *domain.StyleProfile
	preferences *domain.Preferences
	wardrobe    []domain.WardrobeItem
	feedback    []domain.OutfitFeedback
	events      []domain.CalendarEvent
	wear        []domain.WearEntry
	err         error
}

func (m *mockStore) GetStyleProfile(_ context.Context, userID string) (*domain.StyleProfile, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.profile == nil {
		return nil, &domain.ErrNotFound{Resource: "style_profile", ID: userID}
	}
	return m.profile, nil
}

func (m *mockStore) GetPreferences(_ context.Context, userID string) (*domain.Preferences, error) {
	if m.preferences == nil {
		return nil, &domain.ErrNotFound{Resource: "preferences", ID: userID}
	}
	return m.preferences, nil
}

func (m *mockStore) ListWardrobe(_ context.Context, _ string, _ int) ([]domain.WardrobeItem, error) {
	return m.wardrobe, nil
}

func (m *mockStore) ListFeedback(_ context.Context, _ string, _ int) ([]domain.OutfitFeedback, error) {
	return m.feedback, nil
}

func (m *mockStore) ListUpcomingEvents(_ context.Context, _ string, _ time.Time, _ int) ([]domain.CalendarEvent, error) {
	return m.events, nil
}

func (m *mockStore) ListWearHistory(_ context.Context, _ string, _ int) ([]domain.WearEntry, error) {
	return m.wear, nil
}

type mockProducts struct {
	mu      sync.Mutex
	queries []string
	missing string // queries containing this word are not found
}

func (m *mockProducts) Search(_ context.Context, query string) (*domain.Product, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	if m.missing != "" && strings.Contains(query, m.missing) {
		return nil, &domain.ErrNotFound{Resource: "product", ID: query}
	}
	return &domain.Product{
		Title:    "Shop " + query,
		Price:    59,
		URL:      "https://shop.test/p?q=" + query,
		ImageURL: "https://shop.test/img/item.jpg",
	}, nil
}

func (m *mockProducts) searched() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

type mockImageGen struct{ err error }

func (m *mockImageGen) GenerateImage(_ context.Context, _ string) ([]byte, error) {
	return []byte("png"), m.err
}

type mockImageHost struct{ uploads int }

func (m *mockImageHost) Upload(_ context.Context, name string, _ []byte) (string, error) {
	m.uploads++
	return "https://i.host/" + name + ".png", nil
}

const fallbackBase = "https://img.test/fallback"

type stylistFixture struct {
	router   *mockCompleter
	openai   *mockCompleter
	store    *mockStore
	products *mockProducts
	imageGen *mockImageGen
	host     *mockImageHost
	svc      *service.Stylist
}

func newStylist(t *testing.T, store *mockStore) *stylistFixture {
	t.Helper()
	trendCache := cache.New[[]string](time.Minute)
	productCache := cache.New[*domain.Product](time.Minute)
	t.Cleanup(func() {
		trendCache.Close()
		productCache.Close()
	})

	f := &stylistFixture{
		router:   &mockCompleter{backend: domain.BackendVertex},
		openai:   &mockCompleter{},
		store:    store,
		products: &mockProducts{},
		imageGen: &mockImageGen{},
		host:     &mockImageHost{},
	}
	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	f.svc = service.NewStylist(service.StylistDeps{
		Router:       f.router,
		OpenAI:       f.openai,
		Enricher:     tags.NewEnricher(nil, trendCache, metrics, logger),
		Store:        store,
		Products:     f.products,
		ImageGen:     f.imageGen,
		ImageHost:    f.host,
		Fallbacks:    personalize.NewFallbackImages(fallbackBase),
		Bulkhead:     resilience.NewBulkhead(2),
		ProductCache: productCache,
		Metrics:      metrics,
		Logger:       logger,
	})
	return f
}

func hasRule(actions []domain.EnforcementAction, rule string) bool {
	for _, a := range actions {
		if a.Rule == rule {
			return true
		}
	}
	return false
}

// counterValue reads one labelled counter from a metrics registry.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == label && l.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
