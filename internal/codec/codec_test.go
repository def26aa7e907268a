package codec

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureDBSelectors(t *testing.T) {
	db := NewSignatureDB()

	cases := []struct {
		selector string
		name     string
	}{
		{"a9059cbb", "transfer"},
		{"095ea7b3", "approve"},
		{"23b872dd", "transferFrom"},
		{"70a08231", "balanceOf"},
		{"dd62ed3e", "allowance"},
		{"18160ddd", "totalSupply"},
		{"42842e0e", "safeTransferFrom"},
		{"6352211e", "ownerOf"},
		{"d0e30db0", "deposit"},
		{"2e1a7d4d", "withdraw"},
		{"414bf389", "exactInputSingle"},
	}
	for _, tc := range cases {
		m, ok := db.LookupMethod(tc.selector)
		require.True(t, ok, "selector %s should be known", tc.selector)
		assert.Equal(t, tc.name, m.Name)
	}

	// Lookup accepts an optional 0x prefix.
	withPrefix, ok := db.LookupMethod("0xa9059cbb")
	require.True(t, ok)
	bare, _ := db.LookupMethod("a9059cbb")
	assert.Same(t, bare, withPrefix)

	_, ok = db.LookupMethod("deadbeef")
	assert.False(t, ok)
	_, ok = db.LookupMethod("not hex")
	assert.False(t, ok)
}

func TestSignatureDBTopics(t *testing.T) {
	db := NewSignatureDB()

	cases := []struct {
		topic string
		name  string
	}{
		{"ddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef", "Transfer"},
		{"8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925", "Approval"},
		{"7fcf532c15f0a6db0bd6d0e038bea71d30d808c7d98cb3bf7268a95bf5081b65", "Withdrawal"},
		{"d78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822", "Swap"},
	}
	for _, tc := range cases {
		e, ok := db.LookupEvent("0x" + tc.topic)
		require.True(t, ok, "topic %s should be known", tc.topic)
		assert.Equal(t, tc.name, e.Name)
	}

	// Prefix handling matches the method lookup.
	bare, ok := db.LookupEvent("ddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
	require.True(t, ok)
	withPrefix, _ := db.LookupEvent("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
	assert.Same(t, bare, withPrefix)

	_, ok = db.LookupEvent("0x" + "00" + "ddf252ad")
	assert.False(t, ok)
}

func TestDatabaseRoundTrip(t *testing.T) {
	// Every database method whose parameters are word-level types must
	// survive an encode/decode round trip exactly.
	db := NewSignatureDB()
	sample := map[Type]any{
		TypeAddress: common.HexToAddress("0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb1"),
		TypeUint256: big.NewInt(987654321),
		TypeBool:    true,
		TypeBytes32: [32]byte{0x01, 0x02},
		TypeString:  "round trip",
		TypeBytes:   []byte{0xca, 0xfe},
	}
	for _, m := range db.Methods() {
		if len(m.Params) == 0 {
			continue
		}
		args := make([]Arg, len(m.Params))
		types := make([]Type, len(m.Params))
		for i, p := range m.Params {
			args[i] = Arg{p.Type, sample[p.Type]}
			types[i] = p.Type
		}
		data, err := EncodeCall(m.Name, args...)
		require.NoError(t, err, m.Sig)

		values, err := DecodeReturn(types, data[4:])
		require.NoError(t, err, m.Sig)
		for i := range args {
			assert.Equal(t, args[i].Value, values[i], "%s param %d", m.Sig, i)
		}
	}
}

func TestSelectorDerivation(t *testing.T) {
	// EncodeCall derives the selector from the canonical signature, so for
	// every database entry with supported parameters the derived selector
	// must match the stored constant.
	db := NewSignatureDB()
	for _, m := range db.Methods() {
		if m.Name == "exactInputSingle" {
			// Tuple signature, selector cannot be derived from the
			// flattened parameter list.
			continue
		}
		args := make([]Arg, len(m.Params))
		skip := false
		for i, p := range m.Params {
			switch p.Type {
			case TypeAddress:
				args[i] = Arg{TypeAddress, common.Address{}}
			case TypeUint256:
				args[i] = Arg{TypeUint256, big.NewInt(0)}
			case TypeBool:
				args[i] = Arg{TypeBool, false}
			case TypeBytes32:
				args[i] = Arg{TypeBytes32, [32]byte{}}
			case TypeString:
				args[i] = Arg{TypeString, ""}
			case TypeBytes:
				args[i] = Arg{TypeBytes, []byte{}}
			default:
				skip = true
			}
		}
		if skip {
			continue
		}
		data, err := EncodeCall(m.Name, args...)
		require.NoError(t, err, m.Sig)
		assert.Equal(t, m.Selector[:], data[:4], m.Sig)
	}
}

func TestEncodeCallTransfer(t *testing.T) {
	to := common.HexToAddress("0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb1")
	amount, _ := new(big.Int).SetString("de0b6b3a7640000", 16) // 1 ETH

	data, err := EncodeCall("transfer",
		Arg{TypeAddress, to},
		Arg{TypeUint256, amount},
	)
	require.NoError(t, err)

	want := "a9059cbb" +
		"000000000000000000000000742d35cc6634c0532925a3b844bc9e7595f0beb1" +
		"0000000000000000000000000000000000000000000000000de0b6b3a7640000"
	assert.Equal(t, want, hex.EncodeToString(data))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	addr := common.HexToAddress("0x00000000219ab540356cBB839Cbe05303d7705Fa")
	var blob [32]byte
	blob[0] = 0xab
	blob[31] = 0xcd

	args := []Arg{
		{TypeAddress, addr},
		{TypeUint256, big.NewInt(1234567890)},
		{TypeBool, true},
		{TypeBytes32, blob},
		{TypeString, "hello chainkit"},
		{TypeBytes, []byte{0xde, 0xad, 0xbe, 0xef, 0x01}},
	}
	data, err := EncodeCall("everything", args...)
	require.NoError(t, err)

	types := []Type{TypeAddress, TypeUint256, TypeBool, TypeBytes32, TypeString, TypeBytes}
	values, err := DecodeReturn(types, data[4:])
	require.NoError(t, err)
	require.Len(t, values, len(types))

	assert.Equal(t, addr, values[0])
	assert.Equal(t, big.NewInt(1234567890), values[1])
	assert.Equal(t, true, values[2])
	assert.Equal(t, blob, values[3])
	assert.Equal(t, "hello chainkit", values[4])
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef, 0x01}, values[5])
}

func TestEncodeCallErrors(t *testing.T) {
	t.Run("unsupported type", func(t *testing.T) {
		_, err := EncodeCall("f", Arg{Type("uint8[]"), nil})
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("value type mismatch", func(t *testing.T) {
		_, err := EncodeCall("f", Arg{TypeUint256, "not a big int"})
		assert.ErrorIs(t, err, ErrMalformedData)
	})

	t.Run("negative uint256", func(t *testing.T) {
		_, err := EncodeCall("f", Arg{TypeUint256, big.NewInt(-1)})
		assert.ErrorIs(t, err, ErrMalformedData)
	})
}

func TestDecodeReturnErrors(t *testing.T) {
	t.Run("short data", func(t *testing.T) {
		_, err := DecodeReturn([]Type{TypeUint256, TypeUint256}, make([]byte, Word))
		assert.ErrorIs(t, err, ErrMalformedData)
	})

	t.Run("dynamic offset out of range", func(t *testing.T) {
		word := make([]byte, Word)
		word[Word-1] = 0xff // offset way past the data
		_, err := DecodeReturn([]Type{TypeString}, word)
		assert.ErrorIs(t, err, ErrMalformedData)
	})

	t.Run("dynamic length out of range", func(t *testing.T) {
		data := make([]byte, 2*Word)
		data[Word-1] = Word // offset points at the second word
		data[2*Word-1] = 99 // length larger than the remaining bytes
		_, err := DecodeReturn([]Type{TypeBytes}, data)
		assert.ErrorIs(t, err, ErrMalformedData)
	})

	// Offsets and lengths near MaxInt64 must fail the bounds check rather
	// than wrap it and panic on the slice expression.
	hugeWord := func() []byte {
		word := make([]byte, Word)
		copy(word[Word-8:], []byte{0x7f, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xf0})
		return word
	}

	t.Run("dynamic offset near MaxInt64", func(t *testing.T) {
		_, err := DecodeReturn([]Type{TypeBytes}, hugeWord())
		assert.ErrorIs(t, err, ErrMalformedData)
	})

	t.Run("dynamic length near MaxInt64", func(t *testing.T) {
		data := make([]byte, 2*Word)
		data[Word-1] = Word // offset points at the second word
		copy(data[Word:], hugeWord())
		_, err := DecodeReturn([]Type{TypeString}, data)
		assert.ErrorIs(t, err, ErrMalformedData)
	})

	t.Run("offset past MaxInt64", func(t *testing.T) {
		word := make([]byte, Word)
		word[0] = 0x01 // 2^248, not representable as int64
		_, err := DecodeReturn([]Type{TypeBytes}, word)
		assert.ErrorIs(t, err, ErrMalformedData)
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, err := DecodeReturn([]Type{Type("tuple")}, make([]byte, Word))
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})
}

func TestFormatValue(t *testing.T) {
	addr := common.HexToAddress("0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb1")
	assert.Equal(t, "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb1", FormatValue(addr))
	assert.Equal(t, "1000000000000000000", FormatValue(big.NewInt(1e18)))
	assert.Equal(t, "true", FormatValue(true))
	assert.Equal(t, "0xdeadbeef", FormatValue([]byte{0xde, 0xad, 0xbe, 0xef}))
	assert.Equal(t, "hello", FormatValue("hello"))
}
