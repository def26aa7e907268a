// Package provider maintains per-chain JSON-RPC connections and exposes the
// read-only node operations the rest of the system invokes on demand.
package provider

import (
	"context"
	"errors"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/keystonelabs/chainkit/internal/metrics"
	"github.com/keystonelabs/chainkit/internal/receipt"
)

// ChainConfig describes one registered chain. Immutable once registered
// except through an explicit overwrite.
type ChainConfig struct {
	ChainID     uint64 `yaml:"chainId"`
	Name        string `yaml:"name"`
	RPCURL      string `yaml:"rpcUrl"`
	ExplorerURL string `yaml:"explorerUrl,omitempty"`
}

// Block is the subset of eth_getBlockByNumber this system reads.
type Block struct {
	Number        hexutil.Uint64 `json:"number"`
	Hash          common.Hash    `json:"hash"`
	ParentHash    common.Hash    `json:"parentHash"`
	Timestamp     hexutil.Uint64 `json:"timestamp"`
	GasLimit      hexutil.Uint64 `json:"gasLimit"`
	GasUsed       hexutil.Uint64 `json:"gasUsed"`
	BaseFeePerGas *hexutil.Big   `json:"baseFeePerGas"`
}

// callMsg is the eth_call parameter object.
type callMsg struct {
	From *common.Address `json:"from,omitempty"`
	To   *common.Address `json:"to"`
	Data hexutil.Bytes   `json:"data"`
}

// Provider is the shared handle for one chain. It is safe for concurrent use
// and lives for the process lifetime once dialed.
type Provider struct {
	cfg ChainConfig
	rpc *rpc.Client
	log *zap.Logger
}

// Dial creates a provider for the chain. For HTTP endpoints no request is
// issued until the first call.
func Dial(cfg ChainConfig, log *zap.Logger) (*Provider, error) {
	client, err := rpc.DialContext(context.Background(), cfg.RPCURL)
	if err != nil {
		return nil, &TransportError{Method: "dial", Err: err}
	}
	return &Provider{
		cfg: cfg,
		rpc: client,
		log: log.Named("provider").With(zap.Uint64("chain_id", cfg.ChainID)),
	}, nil
}

func (p *Provider) ChainID() uint64     { return p.cfg.ChainID }
func (p *Provider) ChainName() string   { return p.cfg.Name }
func (p *Provider) ExplorerURL() string { return p.cfg.ExplorerURL }

// Close releases the underlying transport.
func (p *Provider) Close() { p.rpc.Close() }

// BalanceAt returns the wei balance of the address at the latest block.
func (p *Provider) BalanceAt(ctx context.Context, address common.Address) (*big.Int, error) {
	var result hexutil.Big
	if err := p.call(ctx, &result, "eth_getBalance", address, rpc.LatestBlockNumber); err != nil {
		return nil, err
	}
	return result.ToInt(), nil
}

// NonceAt returns the transaction count of the address at the latest block.
func (p *Provider) NonceAt(ctx context.Context, address common.Address) (uint64, error) {
	var result hexutil.Uint64
	if err := p.call(ctx, &result, "eth_getTransactionCount", address, rpc.LatestBlockNumber); err != nil {
		return 0, err
	}
	return uint64(result), nil
}

// GasPrice returns the node's current gas price in wei.
func (p *Provider) GasPrice(ctx context.Context) (*big.Int, error) {
	var result hexutil.Big
	if err := p.call(ctx, &result, "eth_gasPrice"); err != nil {
		return nil, err
	}
	return result.ToInt(), nil
}

// CallContract executes a read-only eth_call against the contract.
func (p *Provider) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	var result hexutil.Bytes
	msg := callMsg{To: &to, Data: data}
	if err := p.call(ctx, &result, "eth_call", msg, rpc.LatestBlockNumber); err != nil {
		return nil, err
	}
	return result, nil
}

// BlockNumber returns the current head block number.
func (p *Provider) BlockNumber(ctx context.Context) (uint64, error) {
	var result hexutil.Uint64
	if err := p.call(ctx, &result, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return uint64(result), nil
}

// BlockByNumber fetches a block header by number; nil means latest.
func (p *Provider) BlockByNumber(ctx context.Context, number *big.Int) (*Block, error) {
	arg := rpc.LatestBlockNumber
	if number != nil {
		arg = rpc.BlockNumber(number.Int64())
	}
	var result *Block
	if err := p.call(ctx, &result, "eth_getBlockByNumber", arg, false); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, &RPCError{Method: "eth_getBlockByNumber", Code: -32000, Message: "block not found"}
	}
	return result, nil
}

// TransactionReceipt fetches the receipt of a mined transaction. The result
// is the raw receipt shape; callers hand it to the receipt parser.
func (p *Provider) TransactionReceipt(ctx context.Context, txHash common.Hash) (*receipt.Receipt, error) {
	var result *receipt.Receipt
	if err := p.call(ctx, &result, "eth_getTransactionReceipt", txHash); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, &RPCError{Method: "eth_getTransactionReceipt", Code: -32000, Message: "receipt not found"}
	}
	return result, nil
}

// call issues one JSON-RPC request and classifies any failure. There is no
// retry at this layer.
func (p *Provider) call(ctx context.Context, result any, method string, args ...any) error {
	chain := strconv.FormatUint(p.cfg.ChainID, 10)
	start := time.Now()
	err := p.rpc.CallContext(ctx, result, method, args...)
	metrics.RPCRequestDuration.WithLabelValues(chain, method).Observe(time.Since(start).Seconds())

	if err == nil {
		metrics.RPCRequests.WithLabelValues(chain, method, "ok").Inc()
		return nil
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		metrics.RPCRequests.WithLabelValues(chain, method, "transport_error").Inc()
		p.log.Warn("rpc http failure", zap.String("method", method), zap.Int("status", httpErr.StatusCode))
		return &TransportError{Method: method, Status: httpErr.StatusCode, Err: err}
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		metrics.RPCRequests.WithLabelValues(chain, method, "rpc_error").Inc()
		p.log.Warn("rpc protocol error", zap.String("method", method),
			zap.Int("code", rpcErr.ErrorCode()), zap.String("message", rpcErr.Error()))
		return &RPCError{Method: method, Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
	}

	metrics.RPCRequests.WithLabelValues(chain, method, "transport_error").Inc()
	p.log.Warn("rpc transport failure", zap.String("method", method), zap.Error(err))
	return &TransportError{Method: method, Err: err}
}
