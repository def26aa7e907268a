// Package txdecode turns raw transaction input data into named method calls
// using the static signature database.
package txdecode

import (
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/keystonelabs/chainkit/internal/codec"
	"github.com/keystonelabs/chainkit/internal/metrics"
)

// CallKind tags the decode outcome.
type CallKind string

const (
	// CallTransfer is input shorter than a selector: a plain value transfer.
	CallTransfer CallKind = "transfer"
	// CallKnown is a selector present in the signature database.
	CallKnown CallKind = "known"
	// CallUnknown is a selector the database does not cover. The raw bytes
	// are preserved.
	CallUnknown CallKind = "unknown"
)

// NamedValue is one decoded parameter.
type NamedValue struct {
	Name  string
	Type  codec.Type
	Value any
}

// DecodedCall is the result of decoding transaction input data. Exactly one
// of the three kinds applies; Unknown and truncated Known calls keep the
// original bytes so nothing is silently discarded.
type DecodedCall struct {
	Kind     CallKind
	Selector [4]byte
	Method   *codec.MethodSignature
	Params   []NamedValue
	// Leftover holds bytes after the last cleanly decoded parameter of a
	// known call, or the full parameter area of an unknown one.
	Leftover []byte
}

// Decoder decodes transaction input against an immutable signature database.
// It performs no I/O.
type Decoder struct {
	db  *codec.SignatureDB
	log *zap.Logger
}

func NewDecoder(db *codec.SignatureDB, log *zap.Logger) *Decoder {
	return &Decoder{db: db, log: log.Named("txdecode")}
}

// Decode classifies and decodes raw input data given as hex, with or without
// a leading 0x. Input shorter than 4 bytes is a plain value transfer, not an
// error. Unknown selectors decode to the unknown variant with the raw bytes
// attached.
func (d *Decoder) Decode(rawInputHex string) (*DecodedCall, error) {
	raw, err := hex.DecodeString(strip0x(rawInputHex))
	if err != nil {
		return nil, fmt.Errorf("txdecode: invalid hex input: %w", err)
	}

	if len(raw) < 4 {
		metrics.DecodedCalls.WithLabelValues(string(CallTransfer)).Inc()
		return &DecodedCall{Kind: CallTransfer}, nil
	}

	var selector [4]byte
	copy(selector[:], raw[:4])
	params := raw[4:]

	method, ok := d.db.MethodBySelector(selector)
	if !ok {
		d.log.Debug("unknown selector", zap.String("selector", hex.EncodeToString(selector[:])))
		metrics.DecodedCalls.WithLabelValues(string(CallUnknown)).Inc()
		return &DecodedCall{Kind: CallUnknown, Selector: selector, Leftover: params}, nil
	}

	call := &DecodedCall{Kind: CallKnown, Selector: selector, Method: method}
	call.Params, call.Leftover = decodeParams(method.Params, params)
	metrics.DecodedCalls.WithLabelValues(string(CallKnown)).Inc()
	return call, nil
}

// decodeParams decodes as many declared parameters as the data cleanly
// yields. On the first truncated or invalid parameter it stops and returns
// the undecoded remainder, so an identified method is never thrown away over
// trailing corruption.
func decodeParams(declared []codec.Param, data []byte) ([]NamedValue, []byte) {
	values := make([]NamedValue, 0, len(declared))
	for i, p := range declared {
		types := make([]codec.Type, 0, i+1)
		for _, d := range declared[:i+1] {
			types = append(types, d.Type)
		}
		// Re-decode the prefix each round; dynamic offsets point past the
		// head so a truncated tail must fail the whole parameter.
		decoded, err := codec.DecodeReturn(types, data)
		if err != nil {
			return values, data[i*codec.Word:]
		}
		values = append(values, NamedValue{Name: p.Name, Type: p.Type, Value: decoded[i]})
	}
	if tail := len(declared) * codec.Word; headOnly(declared) && tail < len(data) {
		return values, data[tail:]
	}
	return values, nil
}

// headOnly reports whether every declared parameter is static, in which case
// any bytes past the head words are leftover.
func headOnly(declared []codec.Param) bool {
	for _, p := range declared {
		if p.Type == codec.TypeString || p.Type == codec.TypeBytes {
			return false
		}
	}
	return true
}

func strip0x(s string) string {
	s = strings.TrimPrefix(s, "0x")
	return strings.TrimPrefix(s, "0X")
}
