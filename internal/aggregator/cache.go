package aggregator

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const spotPriceTTL = 30 * time.Second

// PriceCache keeps the last known spot prices in redis. The fan-out
// hub reads it to serve initial_prices snapshots to new subscribers
// without waiting for the next poll tick. A nil redis client degrades
// to a no-op cache.
type PriceCache struct {
	rdb *redis.Client
}

// NewPriceCache creates a price cache backed by the given redis client.
func NewPriceCache(rdb *redis.Client) *PriceCache {
	return &PriceCache{rdb: rdb}
}

// SetPrices stores a batch of token prices.
func (pc *PriceCache) SetPrices(ctx context.Context, prices map[string]decimal.Decimal) {
	if pc.rdb == nil || len(prices) == 0 {
		return
	}

	pipe := pc.rdb.Pipeline()
	for token, price := range prices {
		pipe.Set(ctx, "spot:"+token, price.String(), spotPriceTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.WithError(err).Warn("Failed to cache spot prices")
	}
}

// GetPrices returns the cached prices for the requested tokens.
// Tokens without a cached price are simply absent from the result.
func (pc *PriceCache) GetPrices(ctx context.Context, tokens []string) map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal)
	if pc.rdb == nil || len(tokens) == 0 {
		return prices
	}

	keys := make([]string, len(tokens))
	for i, token := range tokens {
		keys[i] = "spot:" + token
	}

	values, err := pc.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		logrus.WithError(err).Warn("Failed to read cached spot prices")
		return prices
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(s)
		if err != nil {
			continue
		}
		prices[tokens[i]] = price
	}
	return prices
}
