package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/keystonelabs/chainkit/internal/config"
	"github.com/keystonelabs/chainkit/internal/keystore"
)

func accountCommands() *cli.Command {
	passphraseFlag := &cli.StringFlag{
		Name:     "passphrase",
		Usage:    "Keystore passphrase",
		EnvVars:  []string{"CHAINKIT_PASSPHRASE"},
		Required: true,
	}

	return &cli.Command{
		Name:  "account",
		Usage: "Manage the local encrypted key",
		Subcommands: []*cli.Command{
			{
				Name:  "new",
				Usage: "Create a new encrypted keyfile",
				Flags: []cli.Flag{passphraseFlag},
				Action: func(c *cli.Context) error {
					log := c.App.Metadata["logger"].(*zap.Logger)
					cfg := c.App.Metadata["config"].(*config.Config)

					address, err := keystore.GenerateKeyFile(cfg.Keystore.Path, c.String("passphrase"))
					if err != nil {
						return err
					}
					log.Info("Created keyfile",
						zap.String("path", cfg.Keystore.Path),
						zap.String("address", address.Hex()))
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Show the account address without decrypting the key",
				Action: func(c *cli.Context) error {
					cfg := c.App.Metadata["config"].(*config.Config)
					kf, err := keystore.LoadKeyFile(cfg.Keystore.Path)
					if err != nil {
						return err
					}
					fmt.Println(kf.Address)
					return nil
				},
			},
			{
				Name:  "unlock",
				Usage: "Verify the passphrase decrypts the keyfile",
				Flags: []cli.Flag{passphraseFlag},
				Action: func(c *cli.Context) error {
					log := c.App.Metadata["logger"].(*zap.Logger)
					cfg := c.App.Metadata["config"].(*config.Config)

					_, address, err := keystore.LoadPrivateKey(cfg.Keystore.Path, c.String("passphrase"))
					if err != nil {
						return err
					}
					log.Info("Keyfile ok", zap.String("address", address.Hex()))
					return nil
				},
			},
		},
	}
}
