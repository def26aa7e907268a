package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/common-nighthawk/go-figure"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/keystonelabs/chainkit/fixtures"
	"github.com/keystonelabs/chainkit/internal/codec"
	"github.com/keystonelabs/chainkit/internal/config"
	"github.com/keystonelabs/chainkit/internal/logger"
	"github.com/keystonelabs/chainkit/internal/provider"
)

func main() {
	var home string
	var cfg *config.Config
	var rootLogger *zap.Logger

	app := &cli.App{
		Name:  "chainkit",
		Usage: "Decode, verify and query EVM chain data",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "home",
				Value:       config.GetDefaultConfigHome(),
				Usage:       "Path to the chainkit home directory",
				EnvVars:     []string{"CHAINKIT_HOME"},
				Destination: &home,
			},
		},
		Before: func(c *cli.Context) error {
			// init must run before a config exists.
			if c.Args().First() == "init" {
				return nil
			}
			var err error
			cfg, err = config.LoadConfig(home)
			if err != nil {
				return fmt.Errorf("failed to load config (run 'chainkit init' first): %w", err)
			}
			zapLogger, err := logger.New(cfg.Logger.Verbosity)
			if err != nil {
				return err
			}
			rootLogger = zapLogger.Named("cli")

			c.App.Metadata["home"] = home
			c.App.Metadata["config"] = cfg
			c.App.Metadata["logger"] = rootLogger
			c.App.Metadata["sigdb"] = codec.NewSignatureDB()
			return nil
		},
		Commands: []*cli.Command{
			initCommand(&home),
			accountCommands(),
			decodeCommands(),
			verifyCommands(),
			queryCommands(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		if rootLogger != nil {
			rootLogger.Fatal("failed to run app", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func initCommand(home *string) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create the home directory with a default config",
		Action: func(c *cli.Context) error {
			figure.NewFigure("chainkit", "", true).Print()
			if err := os.MkdirAll(*home, 0700); err != nil {
				return err
			}
			path := filepath.Join(*home, "config.yaml")
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config already exists at %s", path)
			}
			if err := os.WriteFile(path, fixtures.ConfigTemplate, 0600); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
}

// chains resolves the chain registry: config override or the built-in set.
func chains(cfg *config.Config) []provider.ChainConfig {
	if len(cfg.Chains) == 0 {
		return provider.DefaultChains()
	}
	out := make([]provider.ChainConfig, 0, len(cfg.Chains))
	for _, c := range cfg.Chains {
		out = append(out, provider.ChainConfig{
			ChainID:     c.ChainID,
			Name:        c.Name,
			RPCURL:      c.RPCURL,
			ExplorerURL: c.ExplorerURL,
		})
	}
	return out
}
