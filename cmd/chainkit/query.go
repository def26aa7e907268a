package main

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/keystonelabs/chainkit/internal/cache"
	"github.com/keystonelabs/chainkit/internal/config"
	"github.com/keystonelabs/chainkit/internal/market"
	"github.com/keystonelabs/chainkit/internal/oracle"
	"github.com/keystonelabs/chainkit/internal/provider"
	"github.com/keystonelabs/chainkit/internal/receipt"
)

func queryCommands() *cli.Command {
	chainFlag := &cli.Uint64Flag{
		Name:  "chain",
		Value: 1,
		Usage: "Chain id to query",
	}

	return &cli.Command{
		Name:  "query",
		Usage: "Query chain state and market data",
		Subcommands: []*cli.Command{
			{
				Name:      "balance",
				Usage:     "Native balance of an address",
				ArgsUsage: "<address>",
				Flags:     []cli.Flag{chainFlag},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("expected exactly one address argument")
					}
					if !common.IsHexAddress(c.Args().First()) {
						return fmt.Errorf("invalid address %q", c.Args().First())
					}
					p, err := cliPool(c).Get(c.Uint64("chain"))
					if err != nil {
						return err
					}
					balance, err := p.BalanceAt(c.Context, common.HexToAddress(c.Args().First()))
					if err != nil {
						return err
					}
					fmt.Printf("%s wei (%s ETH)\n", balance, receipt.FormatWei(balance, receipt.EthDecimals))
					return nil
				},
			},
			{
				Name:      "nonce",
				Usage:     "Transaction count of an address",
				ArgsUsage: "<address>",
				Flags:     []cli.Flag{chainFlag},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("expected exactly one address argument")
					}
					if !common.IsHexAddress(c.Args().First()) {
						return fmt.Errorf("invalid address %q", c.Args().First())
					}
					p, err := cliPool(c).Get(c.Uint64("chain"))
					if err != nil {
						return err
					}
					nonce, err := p.NonceAt(c.Context, common.HexToAddress(c.Args().First()))
					if err != nil {
						return err
					}
					fmt.Println(nonce)
					return nil
				},
			},
			{
				Name:  "gas",
				Usage: "Current gas price, cached with a short TTL",
				Flags: []cli.Flag{chainFlag},
				Action: func(c *cli.Context) error {
					log := c.App.Metadata["logger"].(*zap.Logger)
					cfg := c.App.Metadata["config"].(*config.Config)

					tracker := market.NewGasTracker(
						cliPool(c),
						cache.New[*big.Int](redisClient(cfg), log),
						cfg.Cache.GasTTL,
						log,
					)
					price, err := tracker.GasPrice(c.Context, c.Uint64("chain"))
					if err != nil {
						return err
					}
					gwei := new(big.Float).Quo(new(big.Float).SetInt(price), big.NewFloat(1e9))
					fmt.Printf("%s wei (%s gwei)\n", price, gwei.Text('f', 2))
					return nil
				},
			},
			{
				Name:      "block",
				Usage:     "Latest block number, or a block header by number",
				ArgsUsage: "[number]",
				Flags:     []cli.Flag{chainFlag},
				Action: func(c *cli.Context) error {
					p, err := cliPool(c).Get(c.Uint64("chain"))
					if err != nil {
						return err
					}
					if c.NArg() == 0 {
						number, err := p.BlockNumber(c.Context)
						if err != nil {
							return err
						}
						fmt.Println(number)
						return nil
					}
					number, ok := new(big.Int).SetString(c.Args().First(), 10)
					if !ok {
						return fmt.Errorf("invalid block number %q", c.Args().First())
					}
					block, err := p.BlockByNumber(c.Context, number)
					if err != nil {
						return err
					}
					fmt.Printf("Number:    %d\n", uint64(block.Number))
					fmt.Printf("Hash:      %s\n", block.Hash)
					fmt.Printf("Timestamp: %d\n", uint64(block.Timestamp))
					fmt.Printf("Gas used:  %d / %d\n", uint64(block.GasUsed), uint64(block.GasLimit))
					return nil
				},
			},
			{
				Name:      "price",
				Usage:     "USD price for one or more token symbols",
				ArgsUsage: "<symbol> [symbol...]",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return fmt.Errorf("expected at least one symbol argument")
					}
					log := c.App.Metadata["logger"].(*zap.Logger)
					cfg := c.App.Metadata["config"].(*config.Config)

					svc := market.NewPriceService(
						oracle.NewClient(cfg.Oracle.BaseURL, cfg.Oracle.Tokens, log),
						cache.New[float64](redisClient(cfg), log),
						cfg.Cache.PriceTTL,
						log,
					)
					for symbol, price := range svc.GetPrices(c.Context, c.Args().Slice()) {
						fmt.Printf("%-6s $%.2f\n", strings.ToUpper(symbol), price)
					}
					return nil
				},
			},
		},
	}
}

func cliPool(c *cli.Context) *provider.Pool {
	cfg := c.App.Metadata["config"].(*config.Config)
	log := c.App.Metadata["logger"].(*zap.Logger)
	return provider.NewPool(chains(cfg), log)
}

// redisClient returns nil when no remote cache is configured; the cache falls
// back to its in-process tier.
func redisClient(cfg *config.Config) *redis.Client {
	if cfg.Cache.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
}
