package fixtures

import (
	_ "embed"
)

//go:embed config/config.yaml.template
var ConfigTemplate []byte

//go:embed receipts/erc20_transfer.json
var ERC20TransferReceipt []byte

//go:embed receipts/weth_withdrawal.json
var WETHWithdrawalReceipt []byte
