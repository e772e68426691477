// Package compileerr defines the error kinds the lowering pipeline can
// report (spec §7). Every kind is a short, human-readable tag; there is
// no retry path, errors abort the current compilation unit.
package compileerr

import "fmt"

// Kind tags a failure reported by the lowering pipeline.
type Kind int

const (
	UnresolvedName Kind = iota
	TypeMismatch
	UnsupportedABI
	InvalidLValue
	AssignToType
	DuplicateDeclaration
	ConstantExpected
	InternalInvariant
)

func (k Kind) String() string {
	switch k {
	case UnresolvedName:
		return "unresolved-name"
	case TypeMismatch:
		return "type-mismatch"
	case UnsupportedABI:
		return "unsupported-abi"
	case InvalidLValue:
		return "invalid-lvalue"
	case AssignToType:
		return "assign-to-type"
	case DuplicateDeclaration:
		return "duplicate-declaration"
	case ConstantExpected:
		return "constant-expected"
	case InternalInvariant:
		return "internal-invariant"
	default:
		return "unknown"
	}
}

// Error is the concrete error type every lowering entry point returns.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
