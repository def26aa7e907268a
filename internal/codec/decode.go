package codec

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DecodeReturn decodes raw return (or event data) bytes positionally against
// the expected types. Values come back as common.Address, *big.Int, bool,
// [32]byte, string or []byte depending on the type tag.
func DecodeReturn(types []Type, data []byte) ([]any, error) {
	if len(data) < len(types)*Word {
		return nil, fmt.Errorf("%w: have %d bytes, need at least %d", ErrMalformedData, len(data), len(types)*Word)
	}
	values := make([]any, len(types))
	for i, t := range types {
		v, err := decodeAt(t, data, i*Word)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// decodeAt decodes the value whose head word sits at offset. Dynamic types
// follow the offset word into the tail.
func decodeAt(t Type, data []byte, offset int) (any, error) {
	if offset+Word > len(data) {
		return nil, fmt.Errorf("%w: truncated word at offset %d", ErrMalformedData, offset)
	}
	word := data[offset : offset+Word]

	switch t {
	case TypeAddress:
		return common.BytesToAddress(word[Word-common.AddressLength:]), nil
	case TypeUint256:
		return new(big.Int).SetBytes(word), nil
	case TypeBool:
		return word[Word-1] != 0, nil
	case TypeBytes32:
		var out [32]byte
		copy(out[:], word)
		return out, nil
	case TypeString, TypeBytes:
		return decodeDynamic(t, data, word)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
}

func decodeDynamic(t Type, data []byte, offsetWord []byte) (any, error) {
	// The offset and length words are untrusted; compare by subtraction so
	// values near MaxInt64 cannot wrap the check.
	offset := new(big.Int).SetBytes(offsetWord)
	if !offset.IsInt64() || offset.Int64() > int64(len(data)-Word) {
		return nil, fmt.Errorf("%w: dynamic offset out of range", ErrMalformedData)
	}
	start := int(offset.Int64())

	length := new(big.Int).SetBytes(data[start : start+Word])
	if !length.IsInt64() || length.Int64() > int64(len(data)-start-Word) {
		return nil, fmt.Errorf("%w: dynamic length out of range", ErrMalformedData)
	}
	payload := data[start+Word : start+Word+int(length.Int64())]

	if t == TypeString {
		return string(payload), nil
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// FormatValue renders a decoded value the way explorers display it: addresses
// and byte blobs as 0x-hex, integers in decimal.
func FormatValue(v any) string {
	switch x := v.(type) {
	case common.Address:
		return x.Hex()
	case *big.Int:
		return x.String()
	case bool:
		return fmt.Sprintf("%t", x)
	case [32]byte:
		return "0x" + common.Bytes2Hex(x[:])
	case []byte:
		return "0x" + common.Bytes2Hex(x)
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}
