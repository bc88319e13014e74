package domain

import "time"

var zeroTime time.Time

// Kind is the semantic type of an operation parameter or return value.
type Kind int

const (
	KindNone Kind = iota // no value (void return)
	KindString
	KindInt
	KindFloat
	KindBool
	KindBytes
	KindTime
	KindObject
	KindList
)

// String returns a human-readable representation of the kind
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindBytes:
		return "bytes"
	case KindTime:
		return "time"
	case KindObject:
		return "object"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// ZeroValue returns the default value used for a parameter whose field is
// absent from the request document.
func (k Kind) ZeroValue() any {
	switch k {
	case KindString:
		return ""
	case KindInt:
		return int64(0)
	case KindFloat:
		return float64(0)
	case KindBool:
		return false
	case KindBytes:
		return []byte(nil)
	case KindTime:
		return zeroTime
	case KindObject:
		return map[string]any(nil)
	case KindList:
		return []any(nil)
	default:
		return nil
	}
}

// Parameter describes one declared operation parameter.
type Parameter struct {
	Name     string
	Kind     Kind
	Optional bool
}

// Operation describes one overload of a remote operation: its name, the
// ordered parameter list, and the return kind (KindNone for void).
type Operation struct {
	Name    string
	Params  []Parameter
	Returns Kind
}

// ContractDefinition is the declaration surface consumed by the registry.
// It is produced by an external discovery mechanism (server reflection,
// typed Go interface declarations, or hand-written metadata).
type ContractDefinition struct {
	Service    string // route prefix / logical service name
	Contract   string // contract type identity, used in channel cache keys
	Bridgeable bool
	Operations []Operation
}
