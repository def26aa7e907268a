package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/keystonelabs/chainkit/internal/codec"
	"github.com/keystonelabs/chainkit/internal/receipt"
	"github.com/keystonelabs/chainkit/internal/txdecode"
)

func decodeCommands() *cli.Command {
	return &cli.Command{
		Name:  "decode",
		Usage: "Decode transaction input data and receipts",
		Subcommands: []*cli.Command{
			{
				Name:      "input",
				Usage:     "Decode raw transaction input data",
				ArgsUsage: "<hex calldata>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("expected exactly one calldata argument")
					}
					log := c.App.Metadata["logger"].(*zap.Logger)
					db := c.App.Metadata["sigdb"].(*codec.SignatureDB)

					call, err := txdecode.NewDecoder(db, log).Decode(c.Args().First())
					if err != nil {
						return err
					}
					printCall(call)
					return nil
				},
			},
			{
				Name:      "receipt",
				Usage:     "Parse a transaction receipt from a JSON file",
				ArgsUsage: "<receipt.json>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("expected exactly one receipt file argument")
					}
					log := c.App.Metadata["logger"].(*zap.Logger)
					db := c.App.Metadata["sigdb"].(*codec.SignatureDB)

					data, err := os.ReadFile(c.Args().First())
					if err != nil {
						return err
					}
					var r receipt.Receipt
					if err := json.Unmarshal(data, &r); err != nil {
						return fmt.Errorf("failed to parse receipt: %w", err)
					}
					printReceipt(receipt.NewParser(db, log).Parse(&r))
					return nil
				},
			},
		},
	}
}

func printCall(call *txdecode.DecodedCall) {
	switch call.Kind {
	case txdecode.CallTransfer:
		fmt.Println("Plain value transfer (no calldata)")
	case txdecode.CallUnknown:
		fmt.Printf("Unknown selector 0x%x (%d bytes of data)\n", call.Selector, len(call.Leftover))
	case txdecode.CallKnown:
		fmt.Printf("Method: %s\n", call.Method.Sig)
		for _, p := range call.Params {
			fmt.Printf("  %-12s %-8s %s\n", p.Name, p.Type, codec.FormatValue(p.Value))
		}
		if len(call.Leftover) > 0 {
			fmt.Printf("  undecoded tail: 0x%s\n", hex.EncodeToString(call.Leftover))
		}
	}
}

func printReceipt(parsed *receipt.ParsedReceipt) {
	status := "success"
	if !parsed.Succeeded {
		status = "reverted"
	}
	fmt.Printf("Transaction: %s\n", parsed.TransactionHash)
	fmt.Printf("Status:      %s\n", status)
	fmt.Printf("Block:       %d\n", parsed.BlockNumber)
	fmt.Printf("From:        %s\n", parsed.From)
	if parsed.To != nil {
		fmt.Printf("To:          %s\n", parsed.To)
	}
	if parsed.ContractAddress != nil {
		fmt.Printf("Deployed:    %s\n", parsed.ContractAddress)
	}
	fmt.Printf("Gas used:    %d\n", parsed.GasUsed)
	fmt.Printf("Fee:         %s wei (%s ETH)\n", parsed.TotalFeeWei, parsed.TotalFeeEth)
	fmt.Printf("Events:      %d\n", len(parsed.Events))
	for _, ev := range parsed.Events {
		if !ev.Known() {
			fmt.Printf("  [%d] unknown event at %s (%d topics)\n", ev.LogIndex, ev.Address, len(ev.RawTopics))
			continue
		}
		fmt.Printf("  [%d] %s at %s\n", ev.LogIndex, ev.Event.Sig, ev.Address)
		for _, a := range ev.Args {
			marker := " "
			if a.Indexed {
				marker = "*"
			}
			fmt.Printf("      %s %-12s %-8s %s\n", marker, a.Name, a.Type, codec.FormatValue(a.Value))
		}
	}
}
