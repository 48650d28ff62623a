// Package rates proxies the external TON/USD quote so API consumers
// never talk to the upstream price source directly.
package rates

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.coingecko.com"
	priceEndpoint  = "/api/v3/simple/price"
	requestTimeout = 5 * time.Second
)

// FallbackPrice is served when the upstream source is unreachable or
// returns garbage, so the endpoint degrades instead of erroring.
var FallbackPrice = decimal.NewFromFloat(5.5)

// Quote is one TON/USD observation
type Quote struct {
	PriceUSD decimal.Decimal
	Fallback bool
	FetchedAt time.Time
}

// Client fetches the TON/USD price from the quote source with a short
// in-process cache, falling back to a static price when the source is
// unavailable.
type Client struct {
	http *resty.Client
	log  *zap.Logger

	cacheTTL time.Duration

	mu     sync.Mutex
	cached *Quote
}

type priceResponse struct {
	TON struct {
		USD float64 `json:"usd"`
	} `json:"the-open-network"`
}

// New constructs a rates client against the default quote source
func New(log *zap.Logger) *Client {
	return NewWithBaseURL(defaultBaseURL, log)
}

// NewWithBaseURL constructs a rates client against a specific quote
// source, used by tests to point at a stub server
func NewWithBaseURL(baseURL string, log *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout)

	return &Client{
		http:     httpClient,
		log:      log,
		cacheTTL: time.Minute,
	}
}

// TonPrice returns the current TON/USD quote. Failures never surface
// to the caller; a stale cache entry or the static fallback is served
// instead.
func (c *Client) TonPrice(ctx context.Context) Quote {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && time.Since(c.cached.FetchedAt) < c.cacheTTL {
		return *c.cached
	}

	quote, err := c.fetch(ctx)
	if err != nil {
		c.log.Warn("ton price fetch failed, serving fallback", zap.Error(err))
		if c.cached != nil {
			return *c.cached
		}
		return Quote{PriceUSD: FallbackPrice, Fallback: true, FetchedAt: time.Now()}
	}

	c.cached = &quote
	return quote
}

func (c *Client) fetch(ctx context.Context) (Quote, error) {
	var body priceResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           "the-open-network",
			"vs_currencies": "usd",
		}).
		SetResult(&body).
		Get(priceEndpoint)
	if err != nil {
		return Quote{}, err
	}
	if resp.StatusCode() != 200 {
		return Quote{}, fmt.Errorf("quote source returned status %d", resp.StatusCode())
	}
	if body.TON.USD <= 0 {
		return Quote{}, fmt.Errorf("quote source returned non-positive price %v", body.TON.USD)
	}

	return Quote{
		PriceUSD:  decimal.NewFromFloat(body.TON.USD),
		FetchedAt: time.Now(),
	}, nil
}
