package market

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/keystonelabs/chainkit/internal/cache"
	"github.com/keystonelabs/chainkit/internal/metrics"
	"github.com/keystonelabs/chainkit/internal/provider"
)

// DefaultGasTTL is shorter than the price TTL; gas moves faster.
const DefaultGasTTL = 30 * time.Second

// maxSamples bounds the per-chain sample window used for statistics.
const maxSamples = 512

var weiPerGwei = big.NewFloat(1e9)

// GasStats summarizes recently sampled gas prices for one chain, in gwei.
type GasStats struct {
	Chain   uint64
	Samples int
	Mean    float64
	StdDev  float64
	P50     float64
	P95     float64
}

// GasTracker serves cached gas prices from the provider pool and keeps a
// rolling sample window per chain for statistics.
type GasTracker struct {
	pool  *provider.Pool
	cache *cache.Cache[*big.Int]
	ttl   time.Duration
	log   *zap.Logger

	mu      sync.Mutex
	samples map[uint64][]float64
}

func NewGasTracker(pool *provider.Pool, c *cache.Cache[*big.Int], ttl time.Duration, log *zap.Logger) *GasTracker {
	if ttl == 0 {
		ttl = DefaultGasTTL
	}
	return &GasTracker{
		pool:    pool,
		cache:   c,
		ttl:     ttl,
		log:     log.Named("gas"),
		samples: make(map[uint64][]float64),
	}
}

// GasPrice returns the chain's gas price in wei, cached for the tracker TTL
// with stale fallback on upstream failure.
func (t *GasTracker) GasPrice(ctx context.Context, chainID uint64) (*big.Int, error) {
	key := fmt.Sprintf("gas:%d", chainID)
	return t.cache.GetOrFetch(ctx, key, t.ttl, func(ctx context.Context) (*big.Int, error) {
		prov, err := t.pool.Get(chainID)
		if err != nil {
			return nil, err
		}
		return prov.GasPrice(ctx)
	})
}

// Sample fetches the current gas price and records it in the rolling window.
// Used by the background sampler; failures are logged and skipped.
func (t *GasTracker) Sample(ctx context.Context, chainID uint64) {
	price, err := t.GasPrice(ctx, chainID)
	if err != nil {
		t.log.Warn("gas sample failed", zap.Uint64("chain_id", chainID), zap.Error(err))
		return
	}
	gwei := weiToGwei(price)
	metrics.GasPriceGwei.WithLabelValues(strconv.FormatUint(chainID, 10)).Set(gwei)

	t.mu.Lock()
	window := append(t.samples[chainID], gwei)
	if len(window) > maxSamples {
		window = window[len(window)-maxSamples:]
	}
	t.samples[chainID] = window
	t.mu.Unlock()
}

// Stats computes mean, standard deviation and quantiles over the recorded
// window. The second return is false until at least one sample exists.
func (t *GasTracker) Stats(chainID uint64) (GasStats, bool) {
	t.mu.Lock()
	window := append([]float64(nil), t.samples[chainID]...)
	t.mu.Unlock()

	if len(window) == 0 {
		return GasStats{}, false
	}

	sorted := append([]float64(nil), window...)
	sort.Float64s(sorted)

	s := GasStats{
		Chain:   chainID,
		Samples: len(window),
		Mean:    stat.Mean(window, nil),
		P50:     stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P95:     stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}
	if len(window) > 1 {
		s.StdDev = stat.StdDev(window, nil)
	}
	return s, true
}

func weiToGwei(wei *big.Int) float64 {
	gwei, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerGwei).Float64()
	return gwei
}
