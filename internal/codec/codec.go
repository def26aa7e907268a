package codec

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// Type identifies the ABI type of a single parameter. Only the subset used by
// the signature databases is supported.
type Type string

const (
	TypeAddress Type = "address"
	TypeUint256 Type = "uint256"
	TypeBool    Type = "bool"
	TypeBytes32 Type = "bytes32"
	TypeString  Type = "string"
	TypeBytes   Type = "bytes"
)

var (
	// ErrUnsupportedType is returned when a parameter type is outside the
	// supported subset.
	ErrUnsupportedType = errors.New("codec: unsupported type")
	// ErrMalformedData is returned when the raw bytes are too short or
	// structurally invalid for the expected types.
	ErrMalformedData = errors.New("codec: malformed data")
)

// Param describes one method parameter.
type Param struct {
	Name string
	Type Type
}

// MethodSignature is a static entry of the method database.
type MethodSignature struct {
	Selector [4]byte
	Name     string
	// Sig is the canonical signature string the selector was derived from.
	Sig    string
	Params []Param
}

// EventArg describes one event argument.
type EventArg struct {
	Name    string
	Type    Type
	Indexed bool
}

// EventSignature is a static entry of the event database.
type EventSignature struct {
	Topic common.Hash
	Name  string
	Sig   string
	Args  []EventArg
}

// Arg pairs a type with a value for encoding.
type Arg struct {
	Type  Type
	Value any
}

// isDynamic reports whether values of t are length-prefixed in the tail
// section of the encoding.
func isDynamic(t Type) bool {
	return t == TypeString || t == TypeBytes
}
