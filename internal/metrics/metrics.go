package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EndpointResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "endpoint_responses_total",
		Help: "The total number of endpoint responses",
	}, []string{"endpoint", "status_code"})

	// JSON-RPC transport
	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rpc_requests_total",
		Help: "Total JSON-RPC requests issued, by chain, method and outcome",
	}, []string{"chain", "method", "outcome"})

	RPCRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rpc_request_duration_seconds",
		Help:    "Duration of JSON-RPC requests",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
	}, []string{"chain", "method"})

	// Decode outcomes
	DecodedCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "decoded_calls_total",
		Help: "Transaction input decode outcomes",
	}, []string{"outcome"})

	DecodedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "decoded_events_total",
		Help: "Receipt log decode outcomes",
	}, []string{"outcome"})

	// Price/gas cache
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_requests_total",
		Help: "Cache lookups by result (hit, remote_hit, miss, stale_fallback, error)",
	}, []string{"result"})

	// Gas sampling
	GasPriceGwei = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gas_price_gwei",
		Help: "Last sampled gas price in gwei, per chain",
	}, []string{"chain"})
)
