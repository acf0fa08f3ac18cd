package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/handler"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/client"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/llm"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/observability"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/stylist-bfa-go/internal/personalize"
	"github.com/boddenberg/stylist-bfa-go/internal/port"
	"github.com/boddenberg/stylist-bfa-go/internal/service"
	"github.com/boddenberg/stylist-bfa-go/internal/tags"
)

type stubProfiles struct{ profile *domain.StyleProfile }

func (s stubProfiles) GetStyleProfile(context.Context, string) (*domain.StyleProfile, error) {
	return s.profile, nil
}

func (s stubProfiles) GetPreferences(_ context.Context, userID string) (*domain.Preferences, error) {
	return nil, &domain.ErrNotFound{Resource: "preferences", ID: userID}
}

func (s stubProfiles) ListWardrobe(context.Context, string, int) ([]domain.WardrobeItem, error) {
	return nil, nil
}

func (s stubProfiles) ListFeedback(context.Context, string, int) ([]domain.OutfitFeedback, error) {
	return nil, nil
}

func (s stubProfiles) ListUpcomingEvents(context.Context, string, time.Time, int) ([]domain.CalendarEvent, error) {
	return nil, nil
}

func (s stubProfiles) ListWearHistory(context.Context, string, int) ([]domain.WearEntry, error) {
	return nil, nil
}

// openAIServer answers every chat completion with reply.
func openAIServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 120, "completion_tokens": 80, "total_tokens": 200},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newIntegrationRouter(t *testing.T, llmReply string, productsURL, upcURL string) (http.Handler, *observability.Metrics) {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	rcfg := resilience.Config{MaxRetries: 0, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 4}
	httpClient := &http.Client{Timeout: 5 * time.Second}

	oa, err := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:      "sk-test",
		BaseURL:     openAIServer(t, llmReply).URL + "/v1",
		ChatModel:   "gpt-4o",
		VisionModel: "gpt-4o",
	}, resilience.NewCircuitBreaker("openai-it"), rcfg)
	if err != nil {
		t.Fatal(err)
	}
	router := llm.NewRouter(llm.RouterConfig{Secondary: oa}, metrics, logger)
	enricher := tags.NewEnricher(nil, nil, metrics, logger)

	stylist := service.NewStylist(service.StylistDeps{
		Router:    router,
		OpenAI:    oa,
		Enricher:  enricher,
		Store:     stubProfiles{profile: &domain.StyleProfile{UserID: "u1", Gender: "female"}},
		Products:  client.NewProductClient(httpClient, productsURL, "key", resilience.NewCircuitBreaker("products-it"), rcfg),
		Fallbacks: personalize.NewFallbackImages("https://img.test/fallback"),
		Bulkhead:  resilience.NewBulkhead(2),
		Metrics:   metrics,
		Logger:    logger,
	})
	barcode := service.NewBarcode(oa, []port.BarcodeLookup{
		client.NewUPCItemDBClient(httpClient, upcURL, resilience.NewCircuitBreaker("upc-it"), rcfg),
	}, nil, metrics, logger)

	return handler.NewRouter(handler.RouterDeps{
		Stylist:  stylist,
		Barcode:  barcode,
		Enricher: enricher,
		Auth:     handler.NewAuth(testSecret, true, logger),
		Metrics:  metrics,
		Logger:   logger,
	}), metrics
}

// TestIntegration_Recreate runs the recreate flow over real clients against
// mocked OpenAI and product search APIs.
func TestIntegration_Recreate(t *testing.T) {
	products := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"shopping_results": []map[string]any{{
				"title":           "Belted trench coat",
				"extracted_price": 189.0,
				"link":            "https://shop.test/trench",
				"thumbnail":       "https://shop.test/trench.jpg",
				"source":          "Shop",
			}},
		})
	}))
	defer products.Close()

	reply := `{"title": "City minimal", "items": [{"name": "Trench coat", "category": "coat", "color": "beige", "search_query": "women's trench coat"}]}`
	router, metrics := newIntegrationRouter(t, reply, products.URL, "http://127.0.0.1:1")

	req := httptest.NewRequest(http.MethodPost, "/v1/recreate", strings.NewReader(`{"tags": ["minimalist"]}`))
	req.Header.Set(handler.DevUserHeader, "u1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var res domain.RecreateResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if res.Backend != domain.BackendOpenAI {
		t.Errorf("expected openai backend, got %q", res.Backend)
	}
	if len(res.Outfit.Items) != 1 {
		t.Fatalf("expected one item, got %+v", res.Outfit.Items)
	}
	item := res.Outfit.Items[0]
	if item.Product == nil || item.Product.Title != "Belted trench coat" {
		t.Errorf("expected product attached, got %+v", item.Product)
	}
	if item.ImageURL != "https://shop.test/trench.jpg" {
		t.Errorf("expected product image, got %q", item.ImageURL)
	}
	if snap := metrics.GetSnapshot(); snap.AvgTokensPerRequest != 200 {
		t.Errorf("expected token usage recorded, got %+v", snap)
	}
}

// TestIntegration_BarcodeLookup resolves a code through the UPCitemdb client.
func TestIntegration_BarcodeLookup(t *testing.T) {
	upc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("upc") != "036000291452" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"code":  "OK",
			"total": 1,
			"items": []map[string]any{{"upc": "036000291452", "title": "Canvas tote", "brand": "Acme"}},
		})
	}))
	defer upc.Close()

	router, _ := newIntegrationRouter(t, "{}", "http://127.0.0.1:1", upc.URL)

	req := httptest.NewRequest(http.MethodGet, "/v1/barcode/036000291452", nil)
	req.Header.Set(handler.DevUserHeader, "u1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var p domain.BarcodeProduct
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.Title != "Canvas tote" || p.Source != domain.BarcodeSourceUPCItemDB || p.Confidence != 1 {
		t.Errorf("unexpected product %+v", p)
	}
}

// TestIntegration_InvalidBarcode never reaches the lookup services.
func TestIntegration_InvalidBarcode(t *testing.T) {
	router, _ := newIntegrationRouter(t, "{}", "http://127.0.0.1:1", "http://127.0.0.1:1")

	req := httptest.NewRequest(http.MethodGet, "/v1/barcode/036000291453", nil)
	req.Header.Set(handler.DevUserHeader, "u1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for a bad check digit, got %d", rec.Code)
	}
}
