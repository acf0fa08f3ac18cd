package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/resilience"
)

var testCfg = resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxConcurrency: 4}

func TestProductClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "google_shopping", r.URL.Query().Get("engine"))
		assert.Equal(t, "men's navy chinos", r.URL.Query().Get("q"))
		assert.Equal(t, "k", r.URL.Query().Get("api_key"))
		fmt.Fprint(w, `{"shopping_results":[{"title":""},{"title":"Navy Chinos","extracted_price":49.9,"product_link":"https://shop/p/1","thumbnail":"https://img/1.jpg","source":"Shop"}]}`)
	}))
	defer srv.Close()

	c := NewProductClient(srv.Client(), srv.URL, "k", resilience.NewCircuitBreaker("products"), testCfg)
	p, err := c.Search(context.Background(), "men's navy chinos")
	require.NoError(t, err)
	assert.Equal(t, "Navy Chinos", p.Title)
	assert.Equal(t, 49.9, p.Price)
	assert.Equal(t, "https://shop/p/1", p.URL)
	assert.Equal(t, "https://img/1.jpg", p.ImageURL)
	assert.Equal(t, "Shop", p.Merchant)
}

func TestProductClient_NoResultsIsNotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"shopping_results":[]}`)
	}))
	defer srv.Close()

	cb := resilience.NewCircuitBreaker("products-miss")
	c := NewProductClient(srv.Client(), srv.URL, "k", cb, testCfg)
	for i := 0; i < 6; i++ {
		_, err := c.Search(context.Background(), "purple kilt")
		var nf *domain.ErrNotFound
		require.ErrorAs(t, err, &nf)
	}
	assert.Equal(t, int32(6), atomic.LoadInt32(&calls), "misses are not retried and never open the breaker")
}

func TestProductClient_ServerErrorRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewProductClient(srv.Client(), srv.URL, "k", resilience.NewCircuitBreaker("products-5xx"), testCfg)
	_, err := c.Search(context.Background(), "coat")
	var ext *domain.ErrExternalService
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, "product-search", ext.Service)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestProductClient_BadRequestNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewProductClient(srv.Client(), srv.URL, "k", resilience.NewCircuitBreaker("products-4xx"), testCfg)
	_, err := c.Search(context.Background(), "coat")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTrendsClient_Formats(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"object", `{"trends":["quiet luxury","gorpcore"]}`, []string{"quiet luxury", "gorpcore"}},
		{"array", `["y2k","coastal"]`, []string{"y2k", "coastal"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c := NewTrendsClient(srv.Client(), srv.URL, resilience.NewCircuitBreaker("trends-"+tt.name), testCfg)
			got, err := c.FetchTrends(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTrendsClient_Unconfigured(t *testing.T) {
	c := NewTrendsClient(http.DefaultClient, "", resilience.NewCircuitBreaker("trends-empty"), testCfg)
	_, err := c.FetchTrends(context.Background())
	assert.Error(t, err)
}

func TestUnsplashClient_SearchPhoto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/photos", r.URL.Path)
		assert.Equal(t, "Client-ID key", r.Header.Get("Authorization"))
		assert.Equal(t, "linen shirt", r.URL.Query().Get("query"))
		fmt.Fprint(w, `{"results":[{"urls":{"regular":"https://images.unsplash.com/a"}}]}`)
	}))
	defer srv.Close()

	c := NewUnsplashClient(srv.Client(), srv.URL, "key", resilience.NewRateLimiter(0, 1), resilience.NewCircuitBreaker("unsplash"), testCfg)
	got, err := c.SearchPhoto(context.Background(), "linen shirt")
	require.NoError(t, err)
	assert.Equal(t, "https://images.unsplash.com/a", got)
}

func TestUnsplashClient_RateLimitHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{"urls":{"small":"https://images.unsplash.com/s"}}]}`)
	}))
	defer srv.Close()

	// one token, refilled every 100s: the second call must wait past the deadline
	limiter := resilience.NewRateLimiter(0.01, 1)
	c := NewUnsplashClient(srv.Client(), srv.URL, "key", limiter, resilience.NewCircuitBreaker("unsplash-rl"), testCfg)

	got, err := c.SearchPhoto(context.Background(), "boots")
	require.NoError(t, err)
	assert.Equal(t, "https://images.unsplash.com/s", got)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.SearchPhoto(ctx, "boots")
	var te *domain.ErrTimeout
	assert.ErrorAs(t, err, &te)
}

func TestImageHostClient_Upload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "hostkey", r.URL.Query().Get("key"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "look-1", r.PostForm.Get("name"))
		assert.Equal(t, "aGVsbG8=", r.PostForm.Get("image"))
		fmt.Fprint(w, `{"success":true,"data":{"url":"https://i.host/look-1.png"}}`)
	}))
	defer srv.Close()

	c := NewImageHostClient(srv.Client(), srv.URL, "hostkey", resilience.NewCircuitBreaker("imagehost"), testCfg)
	got, err := c.Upload(context.Background(), "look-1", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "https://i.host/look-1.png", got)
}

func TestUPCItemDBClient_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/prod/trial/lookup", r.URL.Path)
		switch r.URL.Query().Get("upc") {
		case "036000291452":
			fmt.Fprint(w, `{"code":"OK","total":1,"items":[{"title":"Denim Jacket","brand":"Levi's","category":"Apparel > Outerwear","images":["https://img/j.jpg"]}]}`)
		default:
			fmt.Fprint(w, `{"code":"OK","total":0,"items":[]}`)
		}
	}))
	defer srv.Close()

	c := NewUPCItemDBClient(srv.Client(), srv.URL, resilience.NewCircuitBreaker("upcitemdb"), testCfg)
	assert.Equal(t, domain.BarcodeSourceUPCItemDB, c.Name())

	p, err := c.Lookup(context.Background(), "036000291452")
	require.NoError(t, err)
	assert.Equal(t, "Denim Jacket", p.Title)
	assert.Equal(t, "Levi's", p.Brand)
	assert.Equal(t, domain.BarcodeSourceUPCItemDB, p.Source)
	assert.Equal(t, 1.0, p.Confidence)

	_, err = c.Lookup(context.Background(), "4006381333931")
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestRapidAPIClient_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "rk", r.Header.Get("X-RapidAPI-Key"))
		assert.Equal(t, "barcodes.example", r.Header.Get("X-RapidAPI-Host"))
		if r.URL.Query().Get("query") == "404" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"product":{"title":"Wool Scarf","category":["Apparel","Accessories"]}}`)
	}))
	defer srv.Close()

	c := NewRapidAPIClient(srv.Client(), srv.URL, "rk", "barcodes.example", resilience.NewCircuitBreaker("rapidapi"), testCfg)
	p, err := c.Lookup(context.Background(), "96385074")
	require.NoError(t, err)
	assert.Equal(t, "Wool Scarf", p.Title)
	assert.Equal(t, "Apparel > Accessories", p.Category)
	assert.Equal(t, domain.BarcodeSourceRapidAPI, p.Source)

	_, err = c.Lookup(context.Background(), "404")
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestFlattenCategory(t *testing.T) {
	assert.Equal(t, "Shoes", flattenCategory([]byte(`"Shoes"`)))
	assert.Equal(t, "A > B", flattenCategory([]byte(`["A","B"]`)))
	assert.Equal(t, "", flattenCategory(nil))
	assert.Equal(t, "", flattenCategory([]byte(`42`)))
}
