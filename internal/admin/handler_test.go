package admin_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"stampd/internal/admin"
	"stampd/internal/fees"
	"stampd/internal/providers"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedFetcher struct{ price float64 }

func (f fixedFetcher) CurrentPrice(context.Context) (float64, error) { return f.price, nil }

func newRouter(t *testing.T, warm bool) chi.Router {
	t.Helper()

	registry := providers.NewRegistry()
	require.NoError(t, registry.Register(providers.NewSimpleProvider()))
	require.NoError(t, registry.Register(providers.NewSignerProvider()))

	prices := fees.NewPriceLoader(fixedFetcher{price: 2000})
	if warm {
		_, err := prices.Refresh(context.Background())
		require.NoError(t, err)
	}

	router := chi.NewRouter()
	admin.New(registry, prices, slog.Default()).Register(router)
	return router
}

func TestListProviders(t *testing.T) {
	router := newRouter(t, false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/providers", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Providers []string `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, []string{"Signer", "Simple"}, response.Providers)
}

func TestEthPriceColdCache(t *testing.T) {
	router := newRouter(t, false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/eth-price", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEthPriceWarmCache(t *testing.T) {
	router := newRouter(t, true)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/eth-price", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		PriceUSD float64 `json:"price_usd"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, float64(2000), response.PriceUSD)
}

func TestRefreshPrice(t *testing.T) {
	router := newRouter(t, false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/eth-price/refresh", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFeeQuote(t *testing.T) {
	router := newRouter(t, true)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fees/quote?usd=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "1000000000000000", response["wei"])
}

func TestFeeQuoteRequiresUSD(t *testing.T) {
	router := newRouter(t, true)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fees/quote", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
