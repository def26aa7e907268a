package main

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/keystonelabs/chainkit/internal/auth"
	"github.com/keystonelabs/chainkit/internal/codec"
	"github.com/keystonelabs/chainkit/internal/eip191"
	"github.com/keystonelabs/chainkit/internal/market"
	"github.com/keystonelabs/chainkit/internal/metrics"
	"github.com/keystonelabs/chainkit/internal/provider"
	"github.com/keystonelabs/chainkit/internal/receipt"
	"github.com/keystonelabs/chainkit/internal/txdecode"
)

// Server exposes the codec and query services over an authenticated HTTP
// API. Health and metrics endpoints are unauthenticated.
type Server struct {
	pool    *provider.Pool
	prices  *market.PriceService
	gas     *market.GasTracker
	decoder *txdecode.Decoder
	parser  *receipt.Parser
	log     *zap.Logger
}

func newServer(pool *provider.Pool, prices *market.PriceService, gas *market.GasTracker,
	decoder *txdecode.Decoder, parser *receipt.Parser, log *zap.Logger) *Server {
	return &Server{pool: pool, prices: prices, gas: gas, decoder: decoder, parser: parser, log: log}
}

// Routes builds the handler tree. Signed-request auth guards every /v1 route.
func (s *Server) Routes(nonceCache *auth.NonceCache) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	guard := func(endpoint string, h http.HandlerFunc) {
		mux.Handle(endpoint, metrics.Middleware(auth.Middleware(h, s.log, nonceCache, nil), endpoint))
	}
	guard("/v1/decode/input", s.handleDecodeInput)
	guard("/v1/decode/receipt", s.handleDecodeReceipt)
	guard("/v1/verify", s.handleVerify)
	guard("/v1/balance", s.handleBalance)
	guard("/v1/gas", s.handleGas)
	guard("/v1/prices", s.handlePrices)
	return mux
}

type paramJSON struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Value   string `json:"value"`
	Indexed bool   `json:"indexed,omitempty"`
}

type callJSON struct {
	Kind     string      `json:"kind"`
	Selector string      `json:"selector,omitempty"`
	Method   string      `json:"method,omitempty"`
	Params   []paramJSON `json:"params,omitempty"`
	Leftover string      `json:"leftover,omitempty"`
}

func (s *Server) handleDecodeInput(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	call, err := s.decoder.Decode(req.Input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	out := callJSON{Kind: string(call.Kind)}
	if call.Kind != txdecode.CallTransfer {
		out.Selector = "0x" + hex.EncodeToString(call.Selector[:])
	}
	if call.Method != nil {
		out.Method = call.Method.Sig
	}
	for _, p := range call.Params {
		out.Params = append(out.Params, paramJSON{
			Name:  p.Name,
			Type:  string(p.Type),
			Value: codec.FormatValue(p.Value),
		})
	}
	if len(call.Leftover) > 0 {
		out.Leftover = "0x" + hex.EncodeToString(call.Leftover)
	}
	writeJSON(w, s.log, out)
}

type eventJSON struct {
	Address  string      `json:"address"`
	Known    bool        `json:"known"`
	Event    string      `json:"event,omitempty"`
	Args     []paramJSON `json:"args,omitempty"`
	Topics   []string    `json:"topics"`
	Data     string      `json:"data,omitempty"`
	LogIndex uint64      `json:"logIndex"`
}

type receiptJSON struct {
	TransactionHash string      `json:"transactionHash"`
	BlockNumber     uint64      `json:"blockNumber"`
	From            string      `json:"from"`
	To              string      `json:"to,omitempty"`
	ContractAddress string      `json:"contractAddress,omitempty"`
	Succeeded       bool        `json:"succeeded"`
	GasUsed         uint64      `json:"gasUsed"`
	TotalFeeWei     string      `json:"totalFeeWei"`
	TotalFeeEth     string      `json:"totalFeeEth"`
	Events          []eventJSON `json:"events"`
}

func (s *Server) handleDecodeReceipt(w http.ResponseWriter, r *http.Request) {
	var raw receipt.Receipt
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, "invalid receipt", http.StatusBadRequest)
		return
	}
	parsed := s.parser.Parse(&raw)

	out := receiptJSON{
		TransactionHash: parsed.TransactionHash.Hex(),
		BlockNumber:     parsed.BlockNumber,
		From:            parsed.From.Hex(),
		Succeeded:       parsed.Succeeded,
		GasUsed:         parsed.GasUsed,
		TotalFeeWei:     parsed.TotalFeeWei.String(),
		TotalFeeEth:     parsed.TotalFeeEth,
		Events:          make([]eventJSON, 0, len(parsed.Events)),
	}
	if parsed.To != nil {
		out.To = parsed.To.Hex()
	}
	if parsed.ContractAddress != nil {
		out.ContractAddress = parsed.ContractAddress.Hex()
	}
	for _, ev := range parsed.Events {
		ej := eventJSON{
			Address:  ev.Address.Hex(),
			Known:    ev.Known(),
			LogIndex: ev.LogIndex,
		}
		for _, topic := range ev.RawTopics {
			ej.Topics = append(ej.Topics, topic.Hex())
		}
		if len(ev.RawData) > 0 {
			ej.Data = "0x" + hex.EncodeToString(ev.RawData)
		}
		if ev.Known() {
			ej.Event = ev.Event.Sig
			for _, a := range ev.Args {
				ej.Args = append(ej.Args, paramJSON{
					Name:    a.Name,
					Type:    string(a.Type),
					Value:   codec.FormatValue(a.Value),
					Indexed: a.Indexed,
				})
			}
		}
		out.Events = append(out.Events, ej)
	}
	writeJSON(w, s.log, out)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message   string `json:"message"`
		Signature string `json:"signature"`
		Address   string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	valid, err := eip191.Verify(req.Message, req.Signature, req.Address)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, s.log, map[string]bool{"valid": valid})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if !common.IsHexAddress(address) {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}
	chainID, err := chainParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p, err := s.pool.Get(chainID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	balance, err := p.BalanceAt(r.Context(), common.HexToAddress(address))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, s.log, map[string]string{
		"wei": balance.String(),
		"eth": receipt.FormatWei(balance, receipt.EthDecimals),
	})
}

func (s *Server) handleGas(w http.ResponseWriter, r *http.Request) {
	chainID, err := chainParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	price, err := s.gas.GasPrice(r.Context(), chainID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	out := map[string]any{"chain": chainID, "wei": price.String()}
	if stats, ok := s.gas.Stats(chainID); ok {
		out["stats"] = stats
	}
	writeJSON(w, s.log, out)
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	symbols := strings.Split(r.URL.Query().Get("symbols"), ",")
	if len(symbols) == 1 && symbols[0] == "" {
		http.Error(w, "missing symbols parameter", http.StatusBadRequest)
		return
	}
	writeJSON(w, s.log, s.prices.GetPrices(r.Context(), symbols))
}

func chainParam(r *http.Request) (uint64, error) {
	raw := r.URL.Query().Get("chain")
	if raw == "" {
		return 1, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}

func writeJSON(w http.ResponseWriter, log *zap.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to write response", zap.Error(err))
	}
}
