package provider

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
)

// Pool holds the registered chain configurations and the lazily dialed
// provider handles. Reads are concurrent; registration is exclusive. The lock
// is never held across a network operation.
type Pool struct {
	mu        sync.RWMutex
	chains    map[uint64]ChainConfig
	providers map[uint64]*Provider
	log       *zap.Logger
}

// NewPool creates a pool pre-registered with the given chains.
func NewPool(chains []ChainConfig, log *zap.Logger) *Pool {
	p := &Pool{
		chains:    make(map[uint64]ChainConfig, len(chains)),
		providers: make(map[uint64]*Provider),
		log:       log.Named("pool"),
	}
	for _, c := range chains {
		p.chains[c.ChainID] = c
	}
	return p
}

// Get returns the shared provider for the chain, dialing it on first use.
// All concurrent callers for the same chain receive the same handle.
func (p *Pool) Get(chainID uint64) (*Provider, error) {
	p.mu.RLock()
	if prov, ok := p.providers[chainID]; ok {
		p.mu.RUnlock()
		return prov, nil
	}
	cfg, registered := p.chains[chainID]
	p.mu.RUnlock()

	if !registered {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChain, chainID)
	}

	// Dial outside the lock. For HTTP this is cheap; the double check below
	// keeps a single shared handle if two callers race here.
	prov, err := Dial(cfg, p.log)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.providers[chainID]; ok {
		prov.Close()
		return existing, nil
	}
	p.providers[chainID] = prov
	p.log.Info("provider dialed", zap.Uint64("chain_id", chainID), zap.String("chain", cfg.Name))
	return prov, nil
}

// Add registers a new chain. Registering an existing chain id fails with
// ErrDuplicateChain unless overwrite is set, in which case any dialed handle
// for that chain is dropped and re-created on next use.
func (p *Pool) Add(cfg ChainConfig, overwrite bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.chains[cfg.ChainID]; exists && !overwrite {
		return fmt.Errorf("%w: %d", ErrDuplicateChain, cfg.ChainID)
	}
	if old, ok := p.providers[cfg.ChainID]; ok {
		old.Close()
		delete(p.providers, cfg.ChainID)
	}
	p.chains[cfg.ChainID] = cfg
	p.log.Info("chain registered", zap.Uint64("chain_id", cfg.ChainID), zap.String("chain", cfg.Name))
	return nil
}

// Chains lists the registered chain configurations.
func (p *Pool) Chains() []ChainConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]ChainConfig, 0, len(p.chains))
	for _, c := range p.chains {
		out = append(out, c)
	}
	return out
}

// DefaultChains returns the built-in chain registry. RPC URLs can be
// overridden per chain via environment variables.
func DefaultChains() []ChainConfig {
	return []ChainConfig{
		{ChainID: 1, Name: "Ethereum Mainnet", RPCURL: envOr("ETH_MAINNET_RPC", "https://eth.llamarpc.com"), ExplorerURL: "https://etherscan.io"},
		{ChainID: 11155111, Name: "Sepolia Testnet", RPCURL: envOr("ETH_SEPOLIA_RPC", "https://rpc.sepolia.org"), ExplorerURL: "https://sepolia.etherscan.io"},
		{ChainID: 137, Name: "Polygon", RPCURL: envOr("POLYGON_RPC", "https://polygon.llamarpc.com"), ExplorerURL: "https://polygonscan.com"},
		{ChainID: 42161, Name: "Arbitrum One", RPCURL: envOr("ARBITRUM_RPC", "https://arb1.arbitrum.io/rpc"), ExplorerURL: "https://arbiscan.io"},
		{ChainID: 10, Name: "Optimism", RPCURL: envOr("OPTIMISM_RPC", "https://mainnet.optimism.io"), ExplorerURL: "https://optimistic.etherscan.io"},
		{ChainID: 56, Name: "BNB Smart Chain", RPCURL: envOr("BSC_RPC", "https://bsc-dataseed.binance.org"), ExplorerURL: "https://bscscan.com"},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
