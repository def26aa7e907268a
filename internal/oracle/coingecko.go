// Package oracle fetches spot prices from the external price API.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the CoinGecko v3 API root.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// ErrUnsupportedSymbol wraps symbols missing from the token map.
type ErrUnsupportedSymbol struct{ Symbol string }

func (e *ErrUnsupportedSymbol) Error() string {
	return fmt.Sprintf("oracle: unsupported symbol %q", e.Symbol)
}

// DefaultTokens maps token symbols to provider ids.
func DefaultTokens() map[string]string {
	return map[string]string{
		"ETH":  "ethereum",
		"BTC":  "bitcoin",
		"SOL":  "solana",
		"BNB":  "binancecoin",
		"LINK": "chainlink",
		"UNI":  "uniswap",
		"AAVE": "aave",
		"MKR":  "maker",
		"CRV":  "curve-dao-token",
		"LDO":  "lido-dao",
	}
}

// Client queries the simple-price endpoint. It performs no caching; the
// market layer wraps it in the stale-tolerant cache.
type Client struct {
	baseURL string
	tokens  map[string]string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(baseURL string, tokens map[string]string, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if tokens == nil {
		tokens = DefaultTokens()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log.Named("oracle"),
	}
}

// Supported reports whether the symbol has a provider id.
func (c *Client) Supported(symbol string) bool {
	_, ok := c.tokens[strings.ToUpper(symbol)]
	return ok
}

// GetPrice returns the USD price of one token symbol.
func (c *Client) GetPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := c.GetPrices(ctx, []string{symbol})
	if err != nil {
		return 0, err
	}
	price, ok := prices[strings.ToUpper(symbol)]
	if !ok {
		return 0, fmt.Errorf("oracle: no price returned for %q", symbol)
	}
	return price, nil
}

// GetPrices returns USD prices for the symbols in one request, keyed by the
// upper-cased symbol.
func (c *Client) GetPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	ids := make([]string, 0, len(symbols))
	bySymbol := make(map[string]string, len(symbols))
	for _, s := range symbols {
		upper := strings.ToUpper(s)
		id, ok := c.tokens[upper]
		if !ok {
			return nil, &ErrUnsupportedSymbol{Symbol: s}
		}
		ids = append(ids, id)
		bySymbol[upper] = id
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
		c.baseURL, url.QueryEscape(strings.Join(ids, ",")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oracle: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle: unexpected status %d", resp.StatusCode)
	}

	// Response shape: {"<id>": {"usd": <amount>}, ...}
	var body map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("oracle: malformed response: %w", err)
	}

	out := make(map[string]float64, len(symbols))
	for symbol, id := range bySymbol {
		entry, ok := body[id]
		if !ok {
			c.log.Warn("price missing from response", zap.String("symbol", symbol), zap.String("id", id))
			continue
		}
		out[symbol] = entry["usd"]
	}
	return out, nil
}
