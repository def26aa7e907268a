package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"

	"github.com/keystonelabs/chainkit/internal/config"
	"github.com/keystonelabs/chainkit/internal/eip191"
	"github.com/keystonelabs/chainkit/internal/keystore"
)

func verifyCommands() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Sign and verify prefixed personal messages",
		Subcommands: []*cli.Command{
			{
				Name:  "message",
				Usage: "Generate a challenge message for wallet binding",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "nonce", Usage: "Nonce to embed (random when empty)"},
				},
				Action: func(c *cli.Context) error {
					nonce := c.String("nonce")
					if nonce == "" {
						buf := make([]byte, 16)
						if _, err := rand.Read(buf); err != nil {
							return err
						}
						nonce = hex.EncodeToString(buf)
					}
					fmt.Println(eip191.GenerateSignMessage(nonce))
					return nil
				},
			},
			{
				Name:      "sign",
				Usage:     "Sign a message with the keystore key",
				ArgsUsage: "<message>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "passphrase",
						Usage:    "Keystore passphrase",
						EnvVars:  []string{"CHAINKIT_PASSPHRASE"},
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("expected exactly one message argument")
					}
					cfg := c.App.Metadata["config"].(*config.Config)

					key, address, err := keystore.LoadPrivateKey(cfg.Keystore.Path, c.String("passphrase"))
					if err != nil {
						return err
					}
					digest := eip191.HashMessage(c.Args().First())
					sig, err := crypto.Sign(digest.Bytes(), key)
					if err != nil {
						return err
					}
					sig[64] += 27
					fmt.Printf("Address:   %s\n", address.Hex())
					fmt.Printf("Signature: 0x%s\n", hex.EncodeToString(sig))
					return nil
				},
			},
			{
				Name:      "signature",
				Usage:     "Check a signature against a message and expected address",
				ArgsUsage: "<message> <signature> <address>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 3 {
						return fmt.Errorf("expected message, signature and address arguments")
					}
					message := c.Args().Get(0)
					signatureHex := c.Args().Get(1)
					address := c.Args().Get(2)

					ok, err := eip191.Verify(message, signatureHex, address)
					if err != nil {
						return err
					}
					if !ok {
						signer, _ := eip191.RecoverSignerHex(message, signatureHex)
						return fmt.Errorf("signature does not match: recovered %s", signer.Hex())
					}
					fmt.Printf("Valid signature from %s\n", address)
					return nil
				},
			},
		},
	}
}
