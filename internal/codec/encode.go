package codec

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Word is the fixed unit of ABI encoding.
const Word = 32

// EncodeCall builds contract call data: the 4-byte selector derived from the
// canonical signature of name and the argument types, followed by the
// ABI-encoded arguments. Static values occupy one 32-byte word; string and
// bytes values are referenced by offset and length-prefixed in the tail.
func EncodeCall(name string, args ...Arg) ([]byte, error) {
	types := make([]string, len(args))
	for i, a := range args {
		if !supported(a.Type) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, a.Type)
		}
		types[i] = string(a.Type)
	}
	sig := fmt.Sprintf("%s(%s)", name, strings.Join(types, ","))
	selector := crypto.Keccak256([]byte(sig))[:4]

	body, err := encodeArgs(args)
	if err != nil {
		return nil, err
	}
	return append(selector, body...), nil
}

// encodeArgs produces the head/tail layout shared by call data and return
// data.
func encodeArgs(args []Arg) ([]byte, error) {
	headSize := len(args) * Word
	head := make([]byte, 0, headSize)
	var tail []byte

	for _, a := range args {
		if isDynamic(a.Type) {
			offset := new(big.Int).SetInt64(int64(headSize + len(tail)))
			head = append(head, leftPad(offset.Bytes())...)
			t, err := encodeDynamic(a)
			if err != nil {
				return nil, err
			}
			tail = append(tail, t...)
			continue
		}
		word, err := encodeStatic(a)
		if err != nil {
			return nil, err
		}
		head = append(head, word...)
	}
	return append(head, tail...), nil
}

func encodeStatic(a Arg) ([]byte, error) {
	switch a.Type {
	case TypeAddress:
		addr, ok := a.Value.(common.Address)
		if !ok {
			return nil, fmt.Errorf("%w: address value is %T", ErrMalformedData, a.Value)
		}
		return leftPad(addr.Bytes()), nil
	case TypeUint256:
		v, ok := a.Value.(*big.Int)
		if !ok || v == nil || v.Sign() < 0 || v.BitLen() > 256 {
			return nil, fmt.Errorf("%w: uint256 value is %T", ErrMalformedData, a.Value)
		}
		return leftPad(v.Bytes()), nil
	case TypeBool:
		b, ok := a.Value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: bool value is %T", ErrMalformedData, a.Value)
		}
		word := make([]byte, Word)
		if b {
			word[Word-1] = 1
		}
		return word, nil
	case TypeBytes32:
		v, ok := a.Value.([32]byte)
		if !ok {
			return nil, fmt.Errorf("%w: bytes32 value is %T", ErrMalformedData, a.Value)
		}
		out := make([]byte, Word)
		copy(out, v[:])
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, a.Type)
	}
}

func encodeDynamic(a Arg) ([]byte, error) {
	var data []byte
	switch a.Type {
	case TypeString:
		s, ok := a.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: string value is %T", ErrMalformedData, a.Value)
		}
		data = []byte(s)
	case TypeBytes:
		b, ok := a.Value.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: bytes value is %T", ErrMalformedData, a.Value)
		}
		data = b
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, a.Type)
	}

	length := new(big.Int).SetInt64(int64(len(data)))
	out := leftPad(length.Bytes())
	out = append(out, data...)
	if rem := len(data) % Word; rem != 0 {
		out = append(out, make([]byte, Word-rem)...)
	}
	return out, nil
}

func supported(t Type) bool {
	switch t {
	case TypeAddress, TypeUint256, TypeBool, TypeBytes32, TypeString, TypeBytes:
		return true
	}
	return false
}

// leftPad right-aligns b in a 32-byte word.
func leftPad(b []byte) []byte {
	if len(b) >= Word {
		return b[len(b)-Word:]
	}
	out := make([]byte, Word)
	copy(out[Word-len(b):], b)
	return out
}
