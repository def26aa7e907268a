package market

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/keystonelabs/chainkit/internal/cache"
	"github.com/keystonelabs/chainkit/internal/oracle"
	"github.com/keystonelabs/chainkit/internal/provider"
)

func gasPool(t *testing.T, hexPrice string, calls *atomic.Int64) *provider.Pool {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"` + hexPrice + `"}`))
	}))
	t.Cleanup(srv.Close)
	return provider.NewPool([]provider.ChainConfig{
		{ChainID: 1, Name: "test", RPCURL: srv.URL},
	}, zap.NewNop())
}

func TestGasPriceCached(t *testing.T) {
	var calls atomic.Int64
	pool := gasPool(t, "0x4a817c800", &calls) // 20 gwei
	tracker := NewGasTracker(pool, cache.New[*big.Int](nil, zap.NewNop()), time.Minute, zap.NewNop())

	for i := 0; i < 3; i++ {
		price, err := tracker.GasPrice(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(20_000_000_000), price)
	}
	assert.Equal(t, int64(1), calls.Load(), "cached reads must not hit the node")
}

func TestGasPriceUnknownChain(t *testing.T) {
	var calls atomic.Int64
	pool := gasPool(t, "0x1", &calls)
	tracker := NewGasTracker(pool, cache.New[*big.Int](nil, zap.NewNop()), time.Minute, zap.NewNop())

	_, err := tracker.GasPrice(context.Background(), 999)
	assert.ErrorIs(t, err, provider.ErrUnknownChain)
}

func TestSampleAndStats(t *testing.T) {
	var calls atomic.Int64
	pool := gasPool(t, "0x2540be400", &calls) // 10 gwei
	tracker := NewGasTracker(pool, cache.New[*big.Int](nil, zap.NewNop()), time.Minute, zap.NewNop())

	_, ok := tracker.Stats(1)
	assert.False(t, ok, "no samples yet")

	tracker.Sample(context.Background(), 1)

	stats, ok := tracker.Stats(1)
	require.True(t, ok)
	assert.Equal(t, uint64(1), stats.Chain)
	assert.Equal(t, 1, stats.Samples)
	assert.InDelta(t, 10.0, stats.Mean, 1e-9)
	assert.Zero(t, stats.StdDev)
}

func TestStatsFixedWindow(t *testing.T) {
	tracker := NewGasTracker(nil, cache.New[*big.Int](nil, zap.NewNop()), time.Minute, zap.NewNop())
	tracker.samples[1] = []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	stats, ok := tracker.Stats(1)
	require.True(t, ok)
	assert.Equal(t, 10, stats.Samples)
	assert.InDelta(t, 5.5, stats.Mean, 1e-9)
	assert.InDelta(t, 3.0277, stats.StdDev, 1e-3)
	assert.InDelta(t, 5.0, stats.P50, 1e-9)
	assert.InDelta(t, 10.0, stats.P95, 1e-9)
}

func TestSampleWindowBounded(t *testing.T) {
	tracker := NewGasTracker(nil, cache.New[*big.Int](nil, zap.NewNop()), time.Minute, zap.NewNop())
	for i := 0; i < maxSamples+50; i++ {
		tracker.mu.Lock()
		window := append(tracker.samples[1], float64(i))
		if len(window) > maxSamples {
			window = window[len(window)-maxSamples:]
		}
		tracker.samples[1] = window
		tracker.mu.Unlock()
	}
	stats, ok := tracker.Stats(1)
	require.True(t, ok)
	assert.Equal(t, maxSamples, stats.Samples)
}

func priceService(t *testing.T, fail *atomic.Bool, calls *atomic.Int64, ttl time.Duration) *PriceService {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if fail.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ethereum":{"usd":3500},"bitcoin":{"usd":98000}}`))
	}))
	t.Cleanup(srv.Close)
	client := oracle.NewClient(srv.URL, nil, zap.NewNop())
	return NewPriceService(client, cache.New[float64](nil, zap.NewNop()), ttl, zap.NewNop())
}

func TestGetPriceCached(t *testing.T) {
	var fail atomic.Bool
	var calls atomic.Int64
	svc := priceService(t, &fail, &calls, time.Minute)

	for i := 0; i < 3; i++ {
		price, err := svc.GetPrice(context.Background(), "eth")
		require.NoError(t, err)
		assert.Equal(t, 3500.0, price)
	}
	assert.Equal(t, int64(1), calls.Load())
}

func TestGetPriceStaleFallback(t *testing.T) {
	var fail atomic.Bool
	var calls atomic.Int64
	svc := priceService(t, &fail, &calls, 10*time.Millisecond)

	price, err := svc.GetPrice(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Equal(t, 3500.0, price)

	time.Sleep(20 * time.Millisecond)
	fail.Store(true)

	// The expired entry is served when the upstream fails.
	price, err = svc.GetPrice(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Equal(t, 3500.0, price)
}

func TestGetPricesSkipsFailures(t *testing.T) {
	var fail atomic.Bool
	var calls atomic.Int64
	svc := priceService(t, &fail, &calls, time.Minute)

	prices := svc.GetPrices(context.Background(), []string{"ETH", "BTC", "NOT_A_TOKEN"})
	assert.Equal(t, map[string]float64{"ETH": 3500, "BTC": 98000}, prices)
}
