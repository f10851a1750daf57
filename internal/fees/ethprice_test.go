package fees_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"stampd/internal/fees"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	calls atomic.Int64
	price atomic.Value // float64
	err   atomic.Value // error
}

func newStubFetcher(price float64) *stubFetcher {
	f := &stubFetcher{}
	f.price.Store(price)
	return f
}

func (f *stubFetcher) CurrentPrice(context.Context) (float64, error) {
	f.calls.Add(1)
	if err, ok := f.err.Load().(error); ok && err != nil {
		return 0, err
	}
	return f.price.Load().(float64), nil
}

func TestPriceCachedWithinPeriod(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	fetcher := newStubFetcher(3000)

	loader := fees.NewPriceLoader(fetcher,
		fees.WithRefreshPeriod(5*time.Minute),
		fees.WithPriceClock(func() time.Time { return *clock }),
	)

	for i := 0; i < 5; i++ {
		price, err := loader.Price(context.Background())
		require.NoError(t, err)
		assert.Equal(t, float64(3000), price)
	}

	assert.Equal(t, int64(1), fetcher.calls.Load(), "repeated reads within the period must not refetch")
}

func TestPriceServesStaleWhileRefreshing(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	fetcher := newStubFetcher(3000)

	loader := fees.NewPriceLoader(fetcher,
		fees.WithRefreshPeriod(5*time.Minute),
		fees.WithPriceClock(func() time.Time { return *clock }),
	)

	_, err := loader.Price(context.Background())
	require.NoError(t, err)

	later := now.Add(10 * time.Minute)
	clock = &later
	fetcher.price.Store(float64(3500))

	price, err := loader.Price(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(3000), price, "the stale price is served immediately")

	assert.Eventually(t, func() bool {
		p, _, ok := loader.Cached()
		return ok && p == 3500
	}, time.Second, 5*time.Millisecond, "the background refresh must land")
}

func TestPriceColdCacheFetchFailure(t *testing.T) {
	fetcher := newStubFetcher(0)
	fetcher.err.Store(errors.New("api down"))

	loader := fees.NewPriceLoader(fetcher)
	_, err := loader.Price(context.Background())
	require.Error(t, err)

	_, _, ok := loader.Cached()
	assert.False(t, ok, "a failed cold fetch must not populate the cache")
}

func TestRefreshForcesFetch(t *testing.T) {
	fetcher := newStubFetcher(3000)
	loader := fees.NewPriceLoader(fetcher)

	_, err := loader.Price(context.Background())
	require.NoError(t, err)

	fetcher.price.Store(float64(4000))
	price, err := loader.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(4000), price)
}

func TestWeiAmount(t *testing.T) {
	loader := fees.NewPriceLoader(newStubFetcher(2000))

	wei, err := loader.WeiAmount(context.Background(), 2) // $2 at $2000/ETH = 0.001 ETH
	require.NoError(t, err)

	expected := big.NewInt(1_000_000_000_000_000) // 1e15 wei
	assert.Zero(t, wei.Cmp(expected))
}

func TestWeiAmountRejectsNegativeFee(t *testing.T) {
	loader := fees.NewPriceLoader(newStubFetcher(2000))
	_, err := loader.WeiAmount(context.Background(), -1)
	require.Error(t, err)
}

func TestHTTPPriceFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ethereum": map[string]any{"usd": 3100.52}})
	}))
	defer server.Close()

	price, err := fees.NewHTTPPriceFetcher(server.URL).CurrentPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3100.52, price)
}

func TestHTTPPriceFetcherRejectsBadPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ethereum": map[string]any{"usd": 0}})
	}))
	defer server.Close()

	_, err := fees.NewHTTPPriceFetcher(server.URL).CurrentPrice(context.Background())
	require.Error(t, err)
}
