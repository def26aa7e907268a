// Package receipt parses transaction receipts and decodes their event logs
// against the static event signature database.
package receipt

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/keystonelabs/chainkit/internal/codec"
)

// Log is one receipt log entry as returned by eth_getTransactionReceipt.
type Log struct {
	Address  common.Address `json:"address"`
	Topics   []common.Hash  `json:"topics"`
	Data     hexutil.Bytes  `json:"data"`
	LogIndex hexutil.Uint64 `json:"logIndex"`
}

// Receipt is the JSON-RPC transaction receipt shape. Quantity fields are
// 0x-hex on the wire.
type Receipt struct {
	TransactionHash   common.Hash     `json:"transactionHash"`
	BlockNumber       hexutil.Uint64  `json:"blockNumber"`
	From              common.Address  `json:"from"`
	To                *common.Address `json:"to"`
	ContractAddress   *common.Address `json:"contractAddress"`
	Status            hexutil.Uint64  `json:"status"`
	GasUsed           hexutil.Uint64  `json:"gasUsed"`
	EffectiveGasPrice *hexutil.Big    `json:"effectiveGasPrice"`
	Logs              []Log           `json:"logs"`
}

// EventArg is one decoded, named event argument.
type EventArg struct {
	Name    string
	Type    codec.Type
	Indexed bool
	Value   any
}

// DecodedEvent is a single log, either matched against the event database or
// preserved raw. Event is nil for unknown logs; RawTopics and RawData always
// carry the original bytes.
type DecodedEvent struct {
	Address   common.Address
	Event     *codec.EventSignature
	Args      []EventArg
	RawTopics []common.Hash
	RawData   []byte
	LogIndex  uint64
}

// Known reports whether the log matched an entry of the event database.
func (e *DecodedEvent) Known() bool { return e.Event != nil }

// ParsedReceipt is the typed result of parsing a receipt: execution status,
// gas accounting and the ordered decoded events.
type ParsedReceipt struct {
	TransactionHash   common.Hash
	BlockNumber       uint64
	From              common.Address
	To                *common.Address
	ContractAddress   *common.Address
	Succeeded         bool
	GasUsed           uint64
	EffectiveGasPrice *big.Int
	// TotalFeeWei is GasUsed * EffectiveGasPrice.
	TotalFeeWei *big.Int
	// TotalFeeEth is TotalFeeWei scaled by 18 decimals, e.g. "0.00042".
	TotalFeeEth string
	Events      []DecodedEvent
}
