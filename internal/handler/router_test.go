package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/handler"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/observability"
	"github.com/boddenberg/stylist-bfa-go/internal/season"
)

const testSecret = "test-secret"

type fakeStylist struct {
	userID string
	day    time.Time
	month  time.Month
	hemi   string
	err    error
}

func (f *fakeStylist) Analyze(ctx context.Context, userID, imageURL string) (*domain.AnalyzeResult, error) {
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	return &domain.AnalyzeResult{Tags: []domain.StyleTag{{Name: "minimalist", Weight: 1}}}, nil
}

func (f *fakeStylist) Recreate(_ context.Context, userID string, req *domain.RecreateRequest) (*domain.RecreateResult, error) {
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	return &domain.RecreateResult{Outfit: domain.Outfit{Title: strings.Join(req.Tags, "+")}}, nil
}

func (f *fakeStylist) PersonalizedShop(_ context.Context, userID string, _ *domain.ShopRequest) (*domain.ShopResult, error) {
	f.userID = userID
	return &domain.ShopResult{}, f.err
}

func (f *fakeStylist) Suggest(_ context.Context, userID string, day time.Time) (*domain.SuggestResult, error) {
	f.userID, f.day = userID, day
	return &domain.SuggestResult{Date: day.Format("2006-01-02")}, f.err
}

func (f *fakeStylist) CapsuleReport(_ context.Context, userID string, month time.Month, hemisphere string) (season.Report, error) {
	f.userID, f.month, f.hemi = userID, month, hemisphere
	return season.Report{Season: season.Winter}, f.err
}

type fakeBarcode struct {
	code string
	err  error
}

func (f *fakeBarcode) Decode(_ context.Context, _ string) (string, error) {
	return "036000291452", f.err
}

func (f *fakeBarcode) Lookup(_ context.Context, code string) (*domain.BarcodeProduct, error) {
	f.code = code
	if f.err != nil {
		return nil, f.err
	}
	return &domain.BarcodeProduct{Code: code, Title: "Canvas tote", Source: domain.BarcodeSourceUPCItemDB, Confidence: 1}, nil
}

func (f *fakeBarcode) Scan(_ context.Context, _ string) (*domain.BarcodeScan, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.BarcodeScan{Code: "036000291452"}, nil
}

type fakeEnricher struct{}

func (fakeEnricher) Enrich(_ context.Context, names []string) []domain.StyleTag {
	out := make([]domain.StyleTag, 0, len(names))
	for _, n := range names {
		out = append(out, domain.StyleTag{Name: n, Weight: 1, Source: domain.TagSourceUser})
	}
	return out
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type routerFixture struct {
	stylist *fakeStylist
	barcode *fakeBarcode
	metrics *observability.Metrics
	router  http.Handler
}

func newRouter(t *testing.T, devAuth bool, health ...handler.HealthCheck) *routerFixture {
	t.Helper()
	f := &routerFixture{
		stylist: &fakeStylist{},
		barcode: &fakeBarcode{},
		metrics: observability.NewMetrics(),
	}
	f.router = handler.NewRouter(handler.RouterDeps{
		Stylist:  f.stylist,
		Barcode:  f.barcode,
		Enricher: fakeEnricher{},
		Auth:     handler.NewAuth(testSecret, devAuth, zap.NewNop()),
		Health:   health,
		Metrics:  f.metrics,
		Logger:   zap.NewNop(),
	})
	return f
}

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func (f *routerFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "u1"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// --- Probes ---

func TestHealthz(t *testing.T) {
	f := newRouter(t, false,
		handler.HealthCheck{Name: "postgres", Pinger: fakePinger{}},
		handler.HealthCheck{Name: "redis", Pinger: fakePinger{err: errors.New("connection refused")}},
	)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var health domain.HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "degraded" || len(health.Services) != 3 {
		t.Errorf("expected degraded with 3 services, got %+v", health)
	}
}

func TestReadyzPingMetrics(t *testing.T) {
	f := newRouter(t, false)
	for _, path := range []string{"/readyz", "/ping", "/metrics"} {
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

// --- Auth ---

func TestAuth(t *testing.T) {
	tests := []struct {
		name    string
		devAuth bool
		header  map[string]string
		want    int
	}{
		{"missing token", false, nil, http.StatusUnauthorized},
		{"valid token", false, map[string]string{"Authorization": "Bearer " + signToken(t, testSecret, "u1")}, http.StatusOK},
		{"wrong secret", false, map[string]string{"Authorization": "Bearer " + signToken(t, "other", "u1")}, http.StatusUnauthorized},
		{"no subject", false, map[string]string{"Authorization": "Bearer " + signToken(t, testSecret, "")}, http.StatusUnauthorized},
		{"not bearer", false, map[string]string{"Authorization": "Basic dTE6cHc="}, http.StatusUnauthorized},
		{"dev header disabled", false, map[string]string{"X-User-ID": "u1"}, http.StatusUnauthorized},
		{"dev header enabled", true, map[string]string{"X-User-ID": "u1"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouter(t, tt.devAuth)
			req := httptest.NewRequest(http.MethodGet, "/v1/suggest", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			if tt.want == http.StatusOK && f.stylist.userID != "u1" {
				t.Errorf("expected user u1 in context, got %q", f.stylist.userID)
			}
		})
	}
}

func TestAuth_RejectsUnsignedToken(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	a := handler.NewAuth(testSecret, false, zap.NewNop())
	if _, err := a.Verify(token); err == nil {
		t.Error("alg none must be rejected")
	}
}

// --- Stylist routes ---

func TestRecreateRoute(t *testing.T) {
	f := newRouter(t, false)
	rec := f.do(t, http.MethodPost, "/v1/recreate", `{"tags": ["minimalist", "street wear"]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res domain.RecreateResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Outfit.Title != "minimalist+street wear" {
		t.Errorf("unexpected outfit %q", res.Outfit.Title)
	}

	if rec := f.do(t, http.MethodPost, "/v1/recreate", "{not json"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad body: expected 400, got %d", rec.Code)
	}
}

func TestShopRoute_EmptyBody(t *testing.T) {
	f := newRouter(t, false)
	if rec := f.do(t, http.MethodPost, "/v1/shop", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestSuggestRoute_Date(t *testing.T) {
	f := newRouter(t, false)

	rec := f.do(t, http.MethodGet, "/v1/suggest?date=2026-01-15", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.stylist.day.Format("2006-01-02") != "2026-01-15" {
		t.Errorf("date not passed through, got %v", f.stylist.day)
	}

	if rec := f.do(t, http.MethodGet, "/v1/suggest?date=15/01/2026", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestCapsuleRoute(t *testing.T) {
	f := newRouter(t, false)

	rec := f.do(t, http.MethodGet, "/v1/capsule?month=7&hemisphere=south", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.stylist.month != time.July || f.stylist.hemi != "south" {
		t.Errorf("unexpected params %v/%q", f.stylist.month, f.stylist.hemi)
	}
	if !strings.Contains(rec.Body.String(), `"gaps":[]`) {
		t.Errorf("gaps must serialize as an empty list, got %s", rec.Body.String())
	}

	for _, q := range []string{"month=0", "month=13", "month=july"} {
		if rec := f.do(t, http.MethodGet, "/v1/capsule?"+q, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestEnrichTagsRoute(t *testing.T) {
	f := newRouter(t, false)
	rec := f.do(t, http.MethodGet, "/v1/tags/enrich?tags=minimalist,+boho,,", "")

	var body struct {
		Tags []domain.StyleTag `json:"tags"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Tags) != 2 || body.Tags[1].Name != "boho" {
		t.Errorf("unexpected tags %+v", body.Tags)
	}
}

// --- Errors & metrics ---

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&domain.ErrValidation{Field: "image_url", Message: "is required"}, http.StatusBadRequest},
		{&domain.ErrNotFound{Resource: "style_profile", ID: "u1"}, http.StatusNotFound},
		{&domain.ErrExternalService{Service: "openai", Err: errors.New("500")}, http.StatusBadGateway},
		{&domain.ErrTimeout{Operation: "vertex"}, http.StatusGatewayTimeout},
		{&domain.ErrCircuitOpen{Service: "openai"}, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		f := newRouter(t, false)
		f.stylist.err = tt.err
		rec := f.do(t, http.MethodPost, "/v1/analyze", `{"image_url": "https://img.test/look.jpg"}`)
		if rec.Code != tt.want {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.want, rec.Code)
		}
	}
}

func TestRequestMetrics(t *testing.T) {
	f := newRouter(t, false)
	f.do(t, http.MethodPost, "/v1/analyze", `{"image_url": "https://img.test/look.jpg"}`)
	f.stylist.err = &domain.ErrExternalService{Service: "openai", Err: errors.New("500")}
	f.do(t, http.MethodPost, "/v1/analyze", `{"image_url": "https://img.test/look.jpg"}`)

	snap := f.metrics.GetSnapshot()
	if snap.TotalRequests != 2 || snap.ErrorRate != 0.5 {
		t.Errorf("expected 2 requests with 50%% errors, got %+v", snap)
	}

	rec := f.do(t, http.MethodGet, "/v1/metrics/stylist", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"totalRequests":2`) {
		t.Errorf("unexpected snapshot response %d %s", rec.Code, rec.Body.String())
	}
}

// --- Barcode ---

func TestBarcodeRoutes(t *testing.T) {
	f := newRouter(t, false)

	rec := f.do(t, http.MethodGet, "/v1/barcode/036000291452", "")
	if rec.Code != http.StatusOK || f.barcode.code != "036000291452" {
		t.Fatalf("lookup: got %d, code %q", rec.Code, f.barcode.code)
	}

	rec = f.do(t, http.MethodPost, "/v1/barcode/decode", `{"image_url": "https://img.test/label.jpg"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"code":"036000291452"`) {
		t.Errorf("decode: got %d %s", rec.Code, rec.Body.String())
	}

	if rec := f.do(t, http.MethodPost, "/v1/barcode/scan", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("scan without image: expected 400, got %d", rec.Code)
	}
}

func TestBarcodeRoutes_Errors(t *testing.T) {
	f := newRouter(t, false)

	f.barcode.err = &domain.ErrInvalidBarcode{Input: "123", Reason: "bad length"}
	if rec := f.do(t, http.MethodGet, "/v1/barcode/123", ""); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid code: expected 422, got %d", rec.Code)
	}

	f.barcode.err = &domain.ErrNotFound{Resource: "barcode", ID: "036000291452"}
	if rec := f.do(t, http.MethodGet, "/v1/barcode/036000291452", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown code: expected 404, got %d", rec.Code)
	}
}
