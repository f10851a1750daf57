// Package fees converts USD-denominated attestation fees into wei using a
// time-bounded cache of the ETH spot price.
package fees

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	dErrors "stampd/pkg/domain-errors"

	"golang.org/x/sync/singleflight"
)

// DefaultRefreshPeriod bounds how stale a served price may be.
const DefaultRefreshPeriod = 5 * time.Minute

// PriceFetcher fetches the current ETH/USD spot price.
type PriceFetcher interface {
	CurrentPrice(ctx context.Context) (float64, error)
}

// HTTPPriceFetcher queries a JSON price API shaped like
// {"ethereum":{"usd":3100.52}}.
type HTTPPriceFetcher struct {
	url  string
	http *http.Client
}

// NewHTTPPriceFetcher builds a fetcher against the given price endpoint.
func NewHTTPPriceFetcher(url string) *HTTPPriceFetcher {
	return &HTTPPriceFetcher{
		url:  url,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// CurrentPrice implements PriceFetcher.
func (f *HTTPPriceFetcher) CurrentPrice(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "building price request")
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeTimeout, "fetching eth price")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, dErrors.New(dErrors.CodeInternal, fmt.Sprintf("price api returned status %d", resp.StatusCode))
	}

	var body struct {
		Ethereum struct {
			USD float64 `json:"usd"`
		} `json:"ethereum"`
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "reading price response")
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "decoding price response")
	}
	if body.Ethereum.USD <= 0 {
		return 0, dErrors.New(dErrors.CodeInternal, "price api returned a non-positive price")
	}
	return body.Ethereum.USD, nil
}

// PriceLoader serves a cached ETH price, refreshing it at most once per
// period. Within the period the cached value is returned without any network
// traffic. When the cache has gone stale the loader serves the stale value
// immediately and refreshes in the background, so fee computation never
// blocks on the price API once warmed.
type PriceLoader struct {
	fetcher PriceFetcher
	period  time.Duration
	now     func() time.Time
	logger  *slog.Logger

	group singleflight.Group

	mu        sync.RWMutex
	price     float64
	fetchedAt time.Time
}

// LoaderOption customizes a PriceLoader.
type LoaderOption func(*PriceLoader)

// WithRefreshPeriod overrides the cache lifetime.
func WithRefreshPeriod(period time.Duration) LoaderOption {
	return func(l *PriceLoader) { l.period = period }
}

// WithPriceClock injects a time source for tests.
func WithPriceClock(now func() time.Time) LoaderOption {
	return func(l *PriceLoader) { l.now = now }
}

// WithPriceLogger sets the loader logger.
func WithPriceLogger(logger *slog.Logger) LoaderOption {
	return func(l *PriceLoader) { l.logger = logger }
}

// NewPriceLoader builds a PriceLoader around the fetcher.
func NewPriceLoader(fetcher PriceFetcher, opts ...LoaderOption) *PriceLoader {
	l := &PriceLoader{
		fetcher: fetcher,
		period:  DefaultRefreshPeriod,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Price returns the ETH/USD price, fetching only when the cache is cold.
func (l *PriceLoader) Price(ctx context.Context) (float64, error) {
	l.mu.RLock()
	price, fetchedAt := l.price, l.fetchedAt
	l.mu.RUnlock()

	if !fetchedAt.IsZero() {
		if l.now().Sub(fetchedAt) < l.period {
			return price, nil
		}
		// Stale: serve the old value and refresh off the request path.
		l.refreshAsync()
		return price, nil
	}

	return l.Refresh(ctx)
}

// Refresh fetches the price now, collapsing concurrent callers into one
// upstream request.
func (l *PriceLoader) Refresh(ctx context.Context) (float64, error) {
	v, err, _ := l.group.Do("eth-price", func() (any, error) {
		price, err := l.fetcher.CurrentPrice(ctx)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.price = price
		l.fetchedAt = l.now()
		l.mu.Unlock()
		return price, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

func (l *PriceLoader) refreshAsync() {
	ch := l.group.DoChan("eth-price", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		price, err := l.fetcher.CurrentPrice(ctx)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.price = price
		l.fetchedAt = l.now()
		l.mu.Unlock()
		return price, nil
	})

	go func() {
		if result := <-ch; result.Err != nil {
			l.logger.Warn("background eth price refresh failed", "error", result.Err)
		}
	}()
}

// Cached exposes the cached price and its fetch time for status reporting.
func (l *PriceLoader) Cached() (price float64, fetchedAt time.Time, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.price, l.fetchedAt, !l.fetchedAt.IsZero()
}

// WeiAmount converts a USD fee into wei at the current price.
func (l *PriceLoader) WeiAmount(ctx context.Context, usd float64) (*big.Int, error) {
	if usd < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "fee must not be negative")
	}

	price, err := l.Price(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading eth price")
	}
	if price <= 0 {
		return nil, dErrors.New(dErrors.CodeInternal, "no usable eth price")
	}

	eth := new(big.Float).Quo(big.NewFloat(usd), big.NewFloat(price))
	wei, _ := new(big.Float).Mul(eth, big.NewFloat(1e18)).Int(nil)
	return wei, nil
}
