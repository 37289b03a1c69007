package httpserver

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avishek-m/pricecompare/internal/adminsvc"
	"github.com/avishek-m/pricecompare/internal/analytics"
	"github.com/avishek-m/pricecompare/internal/authsvc"
	"github.com/avishek-m/pricecompare/internal/domain"
	"github.com/avishek-m/pricecompare/internal/orchestrator"
	"github.com/avishek-m/pricecompare/internal/platform"
	"github.com/avishek-m/pricecompare/pkg/auth"
	"github.com/avishek-m/pricecompare/pkg/health"
	"github.com/avishek-m/pricecompare/pkg/middleware"
)

func newTestRouter() (http.Handler, *fakeContentStore) {
	store := newFakeContentStore()
	jwt := auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour)

	handlers := map[domain.Platform]platform.Handler{
		domain.BigBasket: &fakeHandler{listings: []domain.ProductListing{
			{Platform: domain.BigBasket, Name: "Atta 5kg", Price: 275, PriceOk: true,
				Quantity: domain.ParsedQuantity{Ok: true, Value: 5000, Unit: domain.UnitGrams}},
		}},
	}
	o := orchestrator.New(&fakeGeocoder{desc: &domain.LocationDescriptor{PlaceID: "place-1"}}, handlers, nil, discardLogger())

	deps := Dependencies{
		Orchestrator: o,
		Auth:         authsvc.New(&fakeUserGeocoder{}, store, discardLogger()),
		Admin:        adminsvc.New(store, jwt, discardLogger()),
		Content:      store,
		Analytics:    analytics.NewAggregator(),
		JWT:          jwt,
		APIKeyPool:   []string{"key-a"},
		Health:       health.NewHandler(),
		Logger:       discardLogger(),
		CORS:         middleware.CORSConfig{AllowedOrigins: []string{"*"}},
	}
	return NewRouter(deps), store
}

func TestRouter_HealthEndpointsAreUnauthenticated(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_SearchEndpointReachable(t *testing.T) {
	router, _ := newTestRouter()

	body := `{"item_name":"atta","lat":12.9,"lon":77.6}`
	req := httptest.NewRequest(http.MethodPost, "/get-search-results", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_AdminCRUDRequiresAuth(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/offers", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_AdminCRUDAcceptsValidToken(t *testing.T) {
	router, _ := newTestRouter()
	jwt := auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	token, err := jwt.GenerateAccessToken("admin", "", "admin")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/offers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_CustomerAnalyticsIsPublic(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/customer_analytics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
