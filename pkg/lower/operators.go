// Infix operator lowering, split out per the teacher's pkg/cshmgen file
// convention (operators.go holds the op-selection and constant-folding
// tables separately from general expression dispatch).
package lower

import (
	"github.com/arclang/arcc/pkg/compileerr"
	"github.com/arclang/arcc/pkg/ssa"
	"github.com/arclang/arcc/pkg/tast"
	"github.com/arclang/arcc/pkg/types"
)

// lowerInfix lowers a binary operation. Two integer-literal operands are
// constant-folded at lowering time into a single Iconst, per spec.md
// §4.4's final bullet; any other operand shape lowers both sides and
// emits the matching Iadd/Isub/Imul/Isdiv/Icmp instruction. Boolean
// operands only support Eq/NotEq, using the same width-1 Icmp encoding.
func (fs *funcState) lowerInfix(e tast.Infix) (ssa.Value, error) {
	if lhsLit, ok := e.Left.(tast.IntLit); ok {
		if rhsLit, ok := e.Right.(tast.IntLit); ok {
			return fs.foldIntInfix(e.Op, lhsLit.Value, rhsLit.Value)
		}
	}

	lhs, err := fs.lowerExpr(e.Left)
	if err != nil {
		return -1, err
	}
	rhs, err := fs.lowerExpr(e.Right)
	if err != nil {
		return -1, err
	}

	switch e.Left.Type().(type) {
	case types.Int:
		return fs.emitIntInfix(e.Op, lhs, rhs)
	case types.Bool:
		return fs.emitBoolInfix(e.Op, lhs, rhs)
	default:
		return -1, compileerr.New(compileerr.TypeMismatch, "infix operator %s is not defined for type %s", e.Op, e.Left.Type())
	}
}

// foldIntInfix evaluates op over two constant operands directly, never
// emitting Lhs/Rhs as separate Iconst instructions.
func (fs *funcState) foldIntInfix(op tast.InfixOp, l, r int64) (ssa.Value, error) {
	switch op {
	case tast.Add:
		return fs.b.Iconst(l + r)
	case tast.Sub:
		return fs.b.Iconst(l - r)
	case tast.Mul:
		return fs.b.Iconst(l * r)
	case tast.Eq:
		return fs.b.Iconst(boolImm(l == r))
	case tast.NotEq:
		return fs.b.Iconst(boolImm(l != r))
	case tast.Div:
		return fs.b.Iconst(l / r)
	case tast.Gt:
		return fs.b.Iconst(boolImm(l > r))
	case tast.Lt:
		return fs.b.Iconst(boolImm(l < r))
	default:
		return -1, compileerr.New(compileerr.InternalInvariant, "lower: unhandled infix op %s", op)
	}
}

func (fs *funcState) emitIntInfix(op tast.InfixOp, lhs, rhs ssa.Value) (ssa.Value, error) {
	switch op {
	case tast.Add:
		return fs.b.Iadd(lhs, rhs)
	case tast.Sub:
		return fs.b.Isub(lhs, rhs)
	case tast.Mul:
		return fs.b.Imul(lhs, rhs)
	case tast.Div:
		return fs.b.Isdiv(lhs, rhs)
	case tast.Eq:
		return fs.b.Icmp(ssa.CondEq, lhs, rhs)
	case tast.NotEq:
		return fs.b.Icmp(ssa.CondNe, lhs, rhs)
	case tast.Gt:
		return fs.b.Icmp(ssa.CondGt, lhs, rhs)
	case tast.Lt:
		return fs.b.Icmp(ssa.CondLt, lhs, rhs)
	default:
		return -1, compileerr.New(compileerr.InternalInvariant, "lower: unhandled infix op %s", op)
	}
}

func (fs *funcState) emitBoolInfix(op tast.InfixOp, lhs, rhs ssa.Value) (ssa.Value, error) {
	switch op {
	case tast.Eq:
		return fs.b.Icmp(ssa.CondEq, lhs, rhs)
	case tast.NotEq:
		return fs.b.Icmp(ssa.CondNe, lhs, rhs)
	default:
		return -1, compileerr.New(compileerr.TypeMismatch, "infix operator %s is not defined for bool", op)
	}
}

func boolImm(v bool) int64 {
	if v {
		return 1
	}
	return 0
}
