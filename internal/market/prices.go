// Package market composes the provider pool, the price oracle and the
// stale-tolerant cache into the data feeds a dashboard polls.
package market

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/keystonelabs/chainkit/internal/cache"
	"github.com/keystonelabs/chainkit/internal/oracle"
)

// DefaultPriceTTL keeps prices fresh enough to track the market while
// respecting upstream rate limits.
const DefaultPriceTTL = 60 * time.Second

// PriceService serves USD spot prices through the cache.
type PriceService struct {
	oracle *oracle.Client
	cache  *cache.Cache[float64]
	ttl    time.Duration
	log    *zap.Logger
}

func NewPriceService(o *oracle.Client, c *cache.Cache[float64], ttl time.Duration, log *zap.Logger) *PriceService {
	if ttl == 0 {
		ttl = DefaultPriceTTL
	}
	return &PriceService{oracle: o, cache: c, ttl: ttl, log: log.Named("prices")}
}

// GetPrice returns the USD price of symbol, cached for the service TTL. On
// upstream failure a stale cached price is served when one exists.
func (s *PriceService) GetPrice(ctx context.Context, symbol string) (float64, error) {
	upper := strings.ToUpper(symbol)
	return s.cache.GetOrFetch(ctx, "price:"+upper, s.ttl, func(ctx context.Context) (float64, error) {
		return s.oracle.GetPrice(ctx, upper)
	})
}

// GetPrices fetches each symbol through the cache so fresh entries do not
// trigger upstream calls. Symbols that fail with no cached fallback are
// skipped and logged.
func (s *PriceService) GetPrices(ctx context.Context, symbols []string) map[string]float64 {
	out := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		price, err := s.GetPrice(ctx, symbol)
		if err != nil {
			s.log.Warn("price unavailable", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		out[strings.ToUpper(symbol)] = price
	}
	return out
}
