package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/keystonelabs/chainkit/internal/auth"
	"github.com/keystonelabs/chainkit/internal/cache"
	"github.com/keystonelabs/chainkit/internal/codec"
	"github.com/keystonelabs/chainkit/internal/config"
	"github.com/keystonelabs/chainkit/internal/logger"
	"github.com/keystonelabs/chainkit/internal/market"
	"github.com/keystonelabs/chainkit/internal/oracle"
	"github.com/keystonelabs/chainkit/internal/provider"
	"github.com/keystonelabs/chainkit/internal/receipt"
	"github.com/keystonelabs/chainkit/internal/txdecode"
)

func main() {
	home := flag.String("home", config.GetDefaultConfigHome(), "chainkit home directory")
	flag.Parse()

	app := fx.New(
		fx.Provide(
			func() (*config.Config, error) { return config.LoadConfig(*home) },
			newLogger,
			codec.NewSignatureDB,
			newPool,
			newRedis,
			newPriceService,
			newGasTracker,
			newDecoder,
			newParser,
			newServer,
		),
		fx.Invoke(run),
	)
	app.Run()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.New(cfg.Logger.Verbosity)
	if err != nil {
		return nil, err
	}
	return log.Named("chainkitd"), nil
}

func newPool(cfg *config.Config, log *zap.Logger) *provider.Pool {
	registry := provider.DefaultChains()
	if len(cfg.Chains) > 0 {
		registry = registry[:0]
		for _, c := range cfg.Chains {
			registry = append(registry, provider.ChainConfig{
				ChainID:     c.ChainID,
				Name:        c.Name,
				RPCURL:      c.RPCURL,
				ExplorerURL: c.ExplorerURL,
			})
		}
	}
	return provider.NewPool(registry, log)
}

// newRedis returns nil when no address is configured; the caches then run
// in-process only.
func newRedis(cfg *config.Config) *redis.Client {
	if cfg.Cache.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
}

func newPriceService(cfg *config.Config, remote *redis.Client, log *zap.Logger) *market.PriceService {
	client := oracle.NewClient(cfg.Oracle.BaseURL, cfg.Oracle.Tokens, log)
	return market.NewPriceService(client, cache.New[float64](remote, log), cfg.Cache.PriceTTL, log)
}

func newGasTracker(cfg *config.Config, pool *provider.Pool, remote *redis.Client, log *zap.Logger) *market.GasTracker {
	return market.NewGasTracker(pool, cache.New[*big.Int](remote, log), cfg.Cache.GasTTL, log)
}

func newDecoder(db *codec.SignatureDB, log *zap.Logger) *txdecode.Decoder {
	return txdecode.NewDecoder(db, log)
}

func newParser(db *codec.SignatureDB, log *zap.Logger) *receipt.Parser {
	return receipt.NewParser(db, log)
}

func run(lc fx.Lifecycle, cfg *config.Config, srv *Server, tracker *market.GasTracker, log *zap.Logger) {
	nonceCache := auth.NewNonceCache(5*time.Minute, 1*time.Minute)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Daemon.ListenPort),
		Handler: srv.Routes(nonceCache),
	}
	sampler, stopSampler := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", httpServer.Addr)
			if err != nil {
				return err
			}
			log.Info("Starting server", zap.String("addr", httpServer.Addr))
			go func() {
				if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
					log.Error("server stopped", zap.Error(err))
				}
			}()
			go sampleGas(sampler, tracker, cfg.Daemon.GasSampleInterval, cfg.Daemon.GasSampleChains)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopSampler()
			return httpServer.Shutdown(ctx)
		},
	})
}

// sampleGas polls each configured chain on a fixed interval so Stats has a
// rolling window to summarize.
func sampleGas(ctx context.Context, tracker *market.GasTracker, interval time.Duration, chains []uint64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, chainID := range chains {
				tracker.Sample(ctx, chainID)
			}
		}
	}
}
