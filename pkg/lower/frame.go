package lower

import (
	"fmt"

	"github.com/arclang/arcc/pkg/compileerr"
	"github.com/arclang/arcc/pkg/ssa"
	"github.com/arclang/arcc/pkg/symtab"
	"github.com/arclang/arcc/pkg/tast"
	"github.com/arclang/arcc/pkg/types"
)

// funcState threads the Builder and symbol table shared by one
// function's entire body through every statement/expression lowering
// call, the Go shape of the reference's FunctionState. Following the
// reference exactly (compiler_impl.rs never creates a nested table for
// a Block, While body, or If arm — only a Function literal calls
// SymbolTable::from_outer): every Block-like construct within a
// function shares this single table, and scope-exit release walks
// whatever is in it at that point, params included.
type funcState struct {
	eng   *Engine
	b     *ssa.Builder
	table *symtab.Table
}

// lowerNamedFunction declares and builds a named function with no
// outer-scope address binding: the path used for true top-level
// function statements and for Impl methods, neither of which is ever
// referenced through a bound local variable (call sites resolve them by
// mangled name through the module's function registry instead).
func (fs *funcState) lowerNamedFunction(fn tast.Function) (ssa.FuncRef, error) {
	eng := fs.eng
	sig := funcSigOf(fn, eng.Target)
	ssaFn, ref := eng.Module.DeclareFunction(fn.Name, sig)
	fs.table.DefineFunc(fn.Name)
	if err := eng.buildFunctionBody(ssaFn, fs.table, fn); err != nil {
		return -1, err
	}
	return ref, nil
}

// lowerFunctionExpr lowers a named Function literal appearing in
// expression position: declare it, emit an address-of-function value
// and bind a local variable to it in the *enclosing* scope (spec.md
// §4.4), then build the body in a fresh frame. Anonymous function
// literals (Name == "") are rejected — this language's only function
// values are named definitions and Impl methods, matching the
// reference, which never implements the anonymous-closure case either.
func (fs *funcState) lowerFunctionExpr(fn tast.Function) (ssa.Value, error) {
	if fn.Name == "" {
		return -1, compileerr.New(compileerr.InternalInvariant, "lower: anonymous function literals are not supported")
	}
	eng := fs.eng
	sig := funcSigOf(fn, eng.Target)
	ssaFn, ref := eng.Module.DeclareFunction(fn.Name, sig)

	addr, err := fs.b.FuncAddr(ref)
	if err != nil {
		return -1, err
	}
	sym := fs.table.DefineFunc(fn.Name)
	if err := fs.b.DeclareVar(ssa.Var(sym.VarIndex)); err != nil {
		return -1, err
	}
	if err := fs.b.DefVar(ssa.Var(sym.VarIndex), addr); err != nil {
		return -1, err
	}

	if err := eng.buildFunctionBody(ssaFn, fs.table, fn); err != nil {
		return -1, err
	}
	return addr, nil
}

// buildFunctionBody builds ssaFn's body in a fresh frame nested under
// enclosing: self-reference and parameters are bound first, then the
// body is lowered and the function is finalized.
func (eng *Engine) buildFunctionBody(ssaFn *ssa.Function, enclosing *symtab.Table, fn tast.Function) error {
	b, err := ssa.NewBuilder(ssaFn)
	if err != nil {
		return err
	}
	entry, err := b.CreateBlock()
	if err != nil {
		return err
	}
	if err := b.SwitchToBlock(entry); err != nil {
		return err
	}

	fnTable := symtab.NewChild(enclosing)
	fnTable.DefineFunc(fn.Name)

	for _, p := range fn.Params {
		sym, err := defineValueSymbol(fnTable, p.Name, p.Ty)
		if err != nil {
			return err
		}
		if err := b.DeclareVar(ssa.Var(sym.VarIndex)); err != nil {
			return err
		}
		paramVal, err := b.BlockParam(entry)
		if err != nil {
			return err
		}
		if err := b.DefVar(ssa.Var(sym.VarIndex), paramVal); err != nil {
			return err
		}
	}

	if err := b.SealBlock(entry); err != nil {
		return err
	}

	body := &funcState{eng: eng, b: b, table: fnTable}
	result, err := body.lowerBlockExpr(fn.Body)
	if err != nil {
		return err
	}

	retTy := fn.RetTy
	if retTy == nil {
		retTy = types.Unit{}
	}
	if _, isUnit := retTy.(types.Unit); isUnit {
		err = b.Return(0, false)
	} else {
		err = b.Return(result, true)
	}
	if err != nil {
		return err
	}
	return b.Finalize()
}

// lowerImpl expands an Impl block's methods into ordinary named
// function definitions, mangled "{impl}__{fn}" per spec.md §4.4 — the
// mangle always uses the Impl name, matching the reference's
// compile_stmt Impl arm (it ignores `for_` for naming, using it only as
// an existence check). Methods are built via lowerNamedFunction rather
// than the reference's outer-bind path: nothing ever looks a method up
// by a bound local variable, only by its mangled name through the
// module's function registry (the struct-method call-site rewrite in
// expr.go), so the outer address binding would be dead weight here.
func (fs *funcState) lowerImpl(s tast.ImplStmt) error {
	if _, ok := fs.table.Get(s.Impl); !ok {
		return compileerr.New(compileerr.UnresolvedName, "cannot find type %q in this scope", s.Impl)
	}
	if s.For != "" {
		if _, ok := fs.table.Get(s.For); !ok {
			return compileerr.New(compileerr.UnresolvedName, "cannot find type %q in this scope", s.For)
		}
	}
	for _, stmt := range s.Block.Statements {
		exprStmt, ok := stmt.(tast.ExprStmt)
		if !ok {
			continue
		}
		fn, ok := exprStmt.Expr.(tast.Function)
		if !ok || fn.Name == "" {
			continue
		}
		fn.Name = fmt.Sprintf("%s__%s", s.Impl, fn.Name)
		if _, err := fs.lowerNamedFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

// funcSigOf computes the ssa.FuncSig for fn's declared parameter/return
// types at target's pointer width.
func funcSigOf(fn tast.Function, target interface{ PointerWidth() int }) ssa.FuncSig {
	widths := make([]int, len(fn.Params))
	for i, p := range fn.Params {
		widths[i] = byteWidthOf(p.Ty, target.PointerWidth())
	}
	retWidth := 0
	if fn.RetTy != nil {
		if _, isUnit := fn.RetTy.(types.Unit); !isUnit {
			retWidth = byteWidthOf(fn.RetTy, target.PointerWidth())
		}
	}
	return ssa.FuncSig{ParamWidths: widths, RetWidth: retWidth}
}

func byteWidthOf(t types.Type, pointerWidth int) int {
	switch tt := t.(type) {
	case types.Int:
		return tt.Width.ByteSize(pointerWidth)
	case types.Bool:
		return 1
	case types.Unit:
		return 0
	default:
		return pointerWidth
	}
}

// defineValueSymbol binds name as an ordinary value in table, except when
// ty is a struct type: then it binds a KindStruct symbol carrying the
// struct's layout, so releaseScope's NeedsGC check later recognizes it as
// a reference-counted binding needing a release at scope exit. Used for
// both let bindings and parameters, since the reference releases both the
// same way (see releaseScope's doc comment).
func defineValueSymbol(table *symtab.Table, name string, ty types.Type) (symtab.Symbol, error) {
	st, ok := ty.(types.Struct)
	if !ok {
		return table.Define(name), nil
	}
	sl, ok := table.LookupStructLayout(st.Name)
	if !ok {
		return symtab.Symbol{}, compileerr.New(compileerr.UnresolvedName, "undefined struct: %s", st.Name)
	}
	return table.DefineStruct(name, sl), nil
}
