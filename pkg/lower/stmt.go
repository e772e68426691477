// Statement lowering, split out from expr.go per the teacher's
// pkg/cshmgen file convention (one file per node category, sharing a
// single translator-shaped struct).
package lower

import (
	"github.com/arclang/arcc/pkg/compileerr"
	"github.com/arclang/arcc/pkg/ssa"
	"github.com/arclang/arcc/pkg/tast"
)

// lowerStmt lowers one statement, returning the IR value it produces
// (every statement is expression-valued in this language's Block
// semantics; non-value-producing statements yield a zero constant).
func (fs *funcState) lowerStmt(stmt tast.Stmt) (ssa.Value, error) {
	switch s := stmt.(type) {
	case tast.ExprStmt:
		return fs.lowerExpr(s.Expr)
	case tast.LetStmt:
		return fs.lowerLet(s)
	case *tast.BlockStmt:
		return fs.lowerBlockLike(s.Statements)
	case tast.WhileStmt:
		return fs.lowerWhile(s)
	case tast.StructStmt:
		if _, err := fs.eng.defineStruct(fs.table, s.Ty); err != nil {
			return -1, err
		}
		return fs.b.Iconst(0)
	case tast.ExternStmt:
		return fs.lowerExtern(s)
	case tast.ReturnStmt:
		return fs.lowerReturnStmt(s)
	case tast.ImplStmt:
		if err := fs.lowerImpl(s); err != nil {
			return -1, err
		}
		return fs.b.Iconst(0)
	default:
		return -1, compileerr.New(compileerr.InternalInvariant, "lower: unhandled statement %T", stmt)
	}
}

// lowerBlockExpr lowers a BlockExpr's statements, used wherever a block
// appears in expression position (a function body, an if-arm).
func (fs *funcState) lowerBlockExpr(b *tast.BlockExpr) (ssa.Value, error) {
	return fs.lowerBlockLike(b.Statements)
}

// lowerBlockLike lowers a flat statement list and, at the end, releases
// every GC-needing symbol currently bound in this function's shared
// table (see releaseScope). The block's value is its last statement's
// value, or a zero constant for an empty block.
func (fs *funcState) lowerBlockLike(stmts []tast.Stmt) (ssa.Value, error) {
	retVal, err := fs.b.Iconst(0)
	if err != nil {
		return -1, err
	}
	for _, stmt := range stmts {
		retVal, err = fs.lowerStmt(stmt)
		if err != nil {
			return -1, err
		}
	}
	if err := fs.releaseScope(); err != nil {
		return -1, err
	}
	return retVal, nil
}

// lowerLet lowers `let name = value`: emit value, retain it if its type
// needs GC, define the symbol, declare and bind the IR variable.
func (fs *funcState) lowerLet(s tast.LetStmt) (ssa.Value, error) {
	val, err := fs.lowerExpr(s.Value)
	if err != nil {
		return -1, err
	}
	if err := fs.retainIfNeeded(val, s.Ty.NeedsGC()); err != nil {
		return -1, err
	}
	sym, err := defineValueSymbol(fs.table, s.Name, s.Ty)
	if err != nil {
		return -1, err
	}
	if err := fs.b.DeclareVar(ssa.Var(sym.VarIndex)); err != nil {
		return -1, err
	}
	if err := fs.b.DefVar(ssa.Var(sym.VarIndex), val); err != nil {
		return -1, err
	}
	return fs.b.Iconst(0)
}

// lowerWhile lowers a pre-test loop into head/body/exit blocks.
func (fs *funcState) lowerWhile(s tast.WhileStmt) (ssa.Value, error) {
	head, err := fs.b.CreateBlock()
	if err != nil {
		return -1, err
	}
	body, err := fs.b.CreateBlock()
	if err != nil {
		return -1, err
	}
	exit, err := fs.b.CreateBlock()
	if err != nil {
		return -1, err
	}

	if err := fs.b.Jump(head, nil); err != nil {
		return -1, err
	}

	if err := fs.b.SwitchToBlock(head); err != nil {
		return -1, err
	}
	condVal, err := fs.lowerExpr(s.Condition)
	if err != nil {
		return -1, err
	}
	if err := fs.b.Brif(condVal, body, nil, exit, nil); err != nil {
		return -1, err
	}

	if err := fs.b.SwitchToBlock(body); err != nil {
		return -1, err
	}
	if _, err := fs.lowerBlockLike(s.Body.Statements); err != nil {
		return -1, err
	}
	if err := fs.b.Jump(head, nil); err != nil {
		return -1, err
	}

	if err := fs.b.SealBlock(body); err != nil {
		return -1, err
	}
	if err := fs.b.SealBlock(head); err != nil {
		return -1, err
	}

	if err := fs.b.SwitchToBlock(exit); err != nil {
		return -1, err
	}
	if err := fs.b.SealBlock(exit); err != nil {
		return -1, err
	}
	return fs.b.Iconst(0)
}

// lowerReturnStmt lowers `return expr`: emit, retain if GC-needing
// (ownership transfers to the caller), emit the IR return.
func (fs *funcState) lowerReturnStmt(s tast.ReturnStmt) (ssa.Value, error) {
	val, err := fs.lowerExpr(s.Expr)
	if err != nil {
		return -1, err
	}
	if err := fs.retainIfNeeded(val, s.Expr.Type().NeedsGC()); err != nil {
		return -1, err
	}
	if err := fs.b.Return(val, true); err != nil {
		return -1, err
	}
	return val, nil
}

// lowerExtern lowers an `extern "C"` declaration appearing inside a
// function body: reject any ABI other than C, import the function,
// register it under alias, and bind a local variable holding its
// address — exactly the reference's Extern statement handling.
func (fs *funcState) lowerExtern(s tast.ExternStmt) (ssa.Value, error) {
	if s.ABI != "C" {
		return -1, compileerr.New(compileerr.UnsupportedABI, "unsupported abi: %s", s.ABI)
	}
	ref := fs.eng.Module.ImportFunction(s.ExternName)
	sym := fs.table.DefineFunc(s.Alias)
	if err := fs.b.DeclareVar(ssa.Var(sym.VarIndex)); err != nil {
		return -1, err
	}
	addr, err := fs.b.FuncAddr(ref)
	if err != nil {
		return -1, err
	}
	if err := fs.b.DefVar(ssa.Var(sym.VarIndex), addr); err != nil {
		return -1, err
	}
	return fs.b.Iconst(0)
}
