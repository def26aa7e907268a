package codec

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// SignatureDB maps 4-byte method selectors and 32-byte event topics to their
// named, typed shapes. It is built once at startup and is safe for concurrent
// reads; it is never mutated afterwards.
type SignatureDB struct {
	methods map[[4]byte]*MethodSignature
	events  map[common.Hash]*EventSignature
}

// NewSignatureDB builds the static signature database. The tables cover the
// ERC20 and ERC721 surfaces, WETH wrap/unwrap and a representative Uniswap
// swap. Selectors and topics are the Keccak-256 values of the canonical
// signatures.
func NewSignatureDB() *SignatureDB {
	db := &SignatureDB{
		methods: make(map[[4]byte]*MethodSignature),
		events:  make(map[common.Hash]*EventSignature),
	}

	methods := []MethodSignature{
		// ERC20
		{
			Selector: sel("a9059cbb"), Name: "transfer", Sig: "transfer(address,uint256)",
			Params: []Param{{"to", TypeAddress}, {"amount", TypeUint256}},
		},
		{
			Selector: sel("095ea7b3"), Name: "approve", Sig: "approve(address,uint256)",
			Params: []Param{{"spender", TypeAddress}, {"amount", TypeUint256}},
		},
		{
			Selector: sel("23b872dd"), Name: "transferFrom", Sig: "transferFrom(address,address,uint256)",
			Params: []Param{{"from", TypeAddress}, {"to", TypeAddress}, {"amount", TypeUint256}},
		},
		{
			Selector: sel("70a08231"), Name: "balanceOf", Sig: "balanceOf(address)",
			Params: []Param{{"owner", TypeAddress}},
		},
		{
			Selector: sel("dd62ed3e"), Name: "allowance", Sig: "allowance(address,address)",
			Params: []Param{{"owner", TypeAddress}, {"spender", TypeAddress}},
		},
		{Selector: sel("18160ddd"), Name: "totalSupply", Sig: "totalSupply()"},
		{Selector: sel("06fdde03"), Name: "name", Sig: "name()"},
		{Selector: sel("95d89b41"), Name: "symbol", Sig: "symbol()"},
		{Selector: sel("313ce567"), Name: "decimals", Sig: "decimals()"},

		// ERC721
		{
			Selector: sel("42842e0e"), Name: "safeTransferFrom", Sig: "safeTransferFrom(address,address,uint256)",
			Params: []Param{{"from", TypeAddress}, {"to", TypeAddress}, {"tokenId", TypeUint256}},
		},
		{
			Selector: sel("b88d4fde"), Name: "safeTransferFrom", Sig: "safeTransferFrom(address,address,uint256,bytes)",
			Params: []Param{{"from", TypeAddress}, {"to", TypeAddress}, {"tokenId", TypeUint256}, {"data", TypeBytes}},
		},
		{
			Selector: sel("6352211e"), Name: "ownerOf", Sig: "ownerOf(uint256)",
			Params: []Param{{"tokenId", TypeUint256}},
		},
		{
			Selector: sel("c87b56dd"), Name: "tokenURI", Sig: "tokenURI(uint256)",
			Params: []Param{{"tokenId", TypeUint256}},
		},

		// WETH
		{Selector: sel("d0e30db0"), Name: "deposit", Sig: "deposit()"},
		{
			Selector: sel("2e1a7d4d"), Name: "withdraw", Sig: "withdraw(uint256)",
			Params: []Param{{"amount", TypeUint256}},
		},

		// Uniswap V3 SwapRouter. The struct parameter is static, so its
		// fields are laid out as consecutive words; the narrow integers
		// (uint24 fee, uint160 sqrtPriceLimitX96) occupy a full word each
		// and are decoded as uint256.
		{
			Selector: sel("414bf389"), Name: "exactInputSingle",
			Sig: "exactInputSingle((address,address,uint24,address,uint256,uint256,uint256,uint160))",
			Params: []Param{
				{"tokenIn", TypeAddress}, {"tokenOut", TypeAddress}, {"fee", TypeUint256},
				{"recipient", TypeAddress}, {"deadline", TypeUint256}, {"amountIn", TypeUint256},
				{"amountOutMinimum", TypeUint256}, {"sqrtPriceLimitX96", TypeUint256},
			},
		},
	}

	events := []EventSignature{
		{
			Topic: topic("ddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"),
			Name:  "Transfer", Sig: "Transfer(address,address,uint256)",
			Args: []EventArg{
				{"from", TypeAddress, true}, {"to", TypeAddress, true}, {"value", TypeUint256, false},
			},
		},
		{
			Topic: topic("8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925"),
			Name:  "Approval", Sig: "Approval(address,address,uint256)",
			Args: []EventArg{
				{"owner", TypeAddress, true}, {"spender", TypeAddress, true}, {"value", TypeUint256, false},
			},
		},
		{
			Topic: topic("17307eab39ab6107e8899845ad3d59bd9653f200f220920489ca2b5937696c31"),
			Name:  "ApprovalForAll", Sig: "ApprovalForAll(address,address,bool)",
			Args: []EventArg{
				{"owner", TypeAddress, true}, {"operator", TypeAddress, true}, {"approved", TypeBool, false},
			},
		},
		{
			Topic: topic("8be0079c531659141344cd1fd0a4f28419497f9722a3daafe3b4186f6b6457e0"),
			Name:  "OwnershipTransferred", Sig: "OwnershipTransferred(address,address)",
			Args: []EventArg{
				{"previousOwner", TypeAddress, true}, {"newOwner", TypeAddress, true},
			},
		},
		{
			Topic: topic("e1fffcc4923d04b559f4d29a8bfc6cda04eb5b0d3c460751c2402c5c5cc9109c"),
			Name:  "Deposit", Sig: "Deposit(address,uint256)",
			Args: []EventArg{
				{"dst", TypeAddress, true}, {"wad", TypeUint256, false},
			},
		},
		{
			Topic: topic("7fcf532c15f0a6db0bd6d0e038bea71d30d808c7d98cb3bf7268a95bf5081b65"),
			Name:  "Withdrawal", Sig: "Withdrawal(address,uint256)",
			Args: []EventArg{
				{"src", TypeAddress, true}, {"wad", TypeUint256, false},
			},
		},
		// Uniswap V2 pair
		{
			Topic: topic("d78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822"),
			Name:  "Swap", Sig: "Swap(address,uint256,uint256,uint256,uint256,address)",
			Args: []EventArg{
				{"sender", TypeAddress, true},
				{"amount0In", TypeUint256, false}, {"amount1In", TypeUint256, false},
				{"amount0Out", TypeUint256, false}, {"amount1Out", TypeUint256, false},
				{"to", TypeAddress, true},
			},
		},
	}

	for i := range methods {
		m := methods[i]
		db.methods[m.Selector] = &m
	}
	for i := range events {
		e := events[i]
		db.events[e.Topic] = &e
	}
	return db
}

// LookupMethod resolves a 4-byte selector given as hex, with or without a
// leading 0x. A miss is not an error; callers fall back to the unknown
// variant.
func (db *SignatureDB) LookupMethod(selector string) (*MethodSignature, bool) {
	b, err := hex.DecodeString(strip0x(selector))
	if err != nil || len(b) != 4 {
		return nil, false
	}
	var s [4]byte
	copy(s[:], b)
	return db.MethodBySelector(s)
}

// MethodBySelector resolves a raw 4-byte selector.
func (db *SignatureDB) MethodBySelector(selector [4]byte) (*MethodSignature, bool) {
	m, ok := db.methods[selector]
	return m, ok
}

// LookupEvent resolves an event by its topic0 given as hex, with or without a
// leading 0x.
func (db *SignatureDB) LookupEvent(topic0 string) (*EventSignature, bool) {
	b, err := hex.DecodeString(strip0x(topic0))
	if err != nil || len(b) != common.HashLength {
		return nil, false
	}
	return db.EventByTopic(common.BytesToHash(b))
}

// EventByTopic resolves an event by its raw topic0.
func (db *SignatureDB) EventByTopic(topic0 common.Hash) (*EventSignature, bool) {
	e, ok := db.events[topic0]
	return e, ok
}

// Methods returns every method entry, for callers that need to iterate the
// table.
func (db *SignatureDB) Methods() []*MethodSignature {
	out := make([]*MethodSignature, 0, len(db.methods))
	for _, m := range db.methods {
		out = append(out, m)
	}
	return out
}

func strip0x(s string) string {
	s = strings.TrimPrefix(s, "0x")
	return strings.TrimPrefix(s, "0X")
}

func sel(h string) [4]byte {
	b, err := hex.DecodeString(h)
	if err != nil || len(b) != 4 {
		panic("codec: bad selector constant " + h)
	}
	var s [4]byte
	copy(s[:], b)
	return s
}

func topic(h string) common.Hash {
	b, err := hex.DecodeString(h)
	if err != nil || len(b) != common.HashLength {
		panic("codec: bad topic constant " + h)
	}
	return common.BytesToHash(b)
}
