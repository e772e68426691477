// Expression lowering, split from stmt.go per the teacher's
// pkg/cshmgen file convention.
package lower

import (
	"fmt"

	"github.com/arclang/arcc/pkg/compileerr"
	"github.com/arclang/arcc/pkg/layout"
	"github.com/arclang/arcc/pkg/ssa"
	"github.com/arclang/arcc/pkg/symtab"
	"github.com/arclang/arcc/pkg/tast"
	"github.com/arclang/arcc/pkg/types"
)

func (fs *funcState) lowerExpr(expr tast.Expr) (ssa.Value, error) {
	switch e := expr.(type) {
	case tast.IntLit:
		return fs.b.Iconst(e.Value)
	case tast.BoolLit:
		if e.Value {
			return fs.b.Iconst(1)
		}
		return fs.b.Iconst(0)
	case tast.StrLit:
		return fs.lowerStrLit(e)
	case tast.Ident:
		return fs.lowerIdent(e)
	case tast.FieldAccess:
		return fs.lowerFieldAccess(e)
	case tast.BuildStruct:
		return fs.lowerBuildStruct(e)
	case tast.Assign:
		return fs.lowerAssign(e)
	case tast.Function:
		return fs.lowerFunctionExpr(e)
	case tast.Call:
		return fs.lowerCall(e)
	case tast.If:
		return fs.lowerIf(e)
	case tast.Infix:
		return fs.lowerInfix(e)
	case tast.BlockExpr:
		return fs.lowerBlockExpr(&e)
	default:
		return -1, compileerr.New(compileerr.InternalInvariant, "lower: unhandled expression %T", expr)
	}
}

// lowerIdent resolves name against the symbol table. A Local or Free
// read uses the bound IR variable. A Global name denotes a top-level
// function or extern alias (this language's library mode has no
// top-level value bindings, only Function/Struct/Extern/Impl), so it
// resolves through the module's function registry and materializes its
// address.
func (fs *funcState) lowerIdent(e tast.Ident) (ssa.Value, error) {
	sym, ok := fs.table.Get(e.Name)
	if !ok {
		return -1, compileerr.New(compileerr.UnresolvedName, "undefined variable: %s", e.Name)
	}
	switch sym.Scope {
	case symtab.ScopeLocal, symtab.ScopeFree:
		return fs.b.UseVar(ssa.Var(sym.VarIndex))
	case symtab.ScopeGlobal:
		fref, ok := fs.eng.Module.FuncRefByName(e.Name)
		if !ok {
			return -1, compileerr.New(compileerr.UnresolvedName, "undefined global: %s", e.Name)
		}
		return fs.b.FuncAddr(fref)
	default:
		return -1, compileerr.New(compileerr.UnresolvedName, "undefined variable: %s", e.Name)
	}
}

// lowerStrLit interns the literal (plus a NUL terminator) into the
// module's data map under a name derived from its byte length and the
// process-wide monotonic counter, and returns its address.
func (fs *funcState) lowerStrLit(e tast.StrLit) (ssa.Value, error) {
	content := e.Value + "\x00"
	n := stringCounter.Add(1) - 1
	name := fmt.Sprintf("str_%d_%d", len(content), n)
	ref := fs.eng.Module.DeclareData(name, []byte(content))
	return fs.b.GlobalValue(ref)
}

// lowerFieldAccess lowers `obj.f`: lower obj, resolve its struct layout,
// compute obj + offset(f), and load the field's lowered value.
func (fs *funcState) lowerFieldAccess(e tast.FieldAccess) (ssa.Value, error) {
	objPtr, err := fs.lowerExpr(e.Object)
	if err != nil {
		return -1, err
	}
	sl, err := fs.structLayoutOf(e.Object.Type())
	if err != nil {
		return -1, err
	}
	idx := sl.FieldIndex(e.Field)
	if idx < 0 {
		return -1, compileerr.New(compileerr.UnresolvedName, "field %q not found in struct %q", e.Field, sl.Name)
	}
	return fs.b.Load(objPtr, int32(sl.Offsets[idx]))
}

// lowerBuildStruct allocates a fresh instance (the runtime contract
// initializes __ref_count__ to 1) and stores each explicit field.
func (fs *funcState) lowerBuildStruct(e tast.BuildStruct) (ssa.Value, error) {
	sl, err := fs.lookupStructLayout(e.StructName)
	if err != nil {
		return -1, err
	}
	sizeVal, err := fs.b.Iconst(int64(sl.Size))
	if err != nil {
		return -1, err
	}
	allocAddr, err := fs.b.FuncAddr(fs.eng.Module.Runtime.Alloc)
	if err != nil {
		return -1, err
	}
	structPtr, err := fs.b.Call(allocAddr, []ssa.Value{sizeVal})
	if err != nil {
		return -1, err
	}
	for _, f := range e.Fields {
		idx := sl.FieldIndex(f.Name)
		if idx < 0 {
			return -1, compileerr.New(compileerr.UnresolvedName, "field %q not found in struct %q", f.Name, sl.Name)
		}
		fieldVal, err := fs.lowerExpr(f.Value)
		if err != nil {
			return -1, err
		}
		if err := fs.b.Store(structPtr, int32(sl.Offsets[idx]), fieldVal); err != nil {
			return -1, err
		}
	}
	return structPtr, nil
}

// lowerAssign lowers an assignment through an Ident or FieldAccess
// lvalue; any other shape is an InvalidLValue error.
func (fs *funcState) lowerAssign(e tast.Assign) (ssa.Value, error) {
	switch left := e.Left.(type) {
	case tast.Ident:
		return fs.lowerAssignIdent(left, e.Right)
	case tast.FieldAccess:
		return fs.lowerAssignField(left, e.Right)
	default:
		return -1, compileerr.New(compileerr.InvalidLValue, "assign target must be an identifier or field access, got %T", e.Left)
	}
}

func (fs *funcState) lowerAssignIdent(left tast.Ident, right tast.Expr) (ssa.Value, error) {
	if !types.Equal(left.Type(), right.Type()) {
		return -1, compileerr.New(compileerr.TypeMismatch, "expected %s, got %s", left.Type(), right.Type())
	}
	sym, ok := fs.table.Get(left.Name)
	if !ok {
		return -1, compileerr.New(compileerr.UnresolvedName, "undefined variable %q", left.Name)
	}
	if !sym.IsVal {
		return -1, compileerr.New(compileerr.AssignToType, "assign to a type: %s", left.Name)
	}
	newVal, err := fs.lowerExpr(right)
	if err != nil {
		return -1, err
	}
	oldVal, err := fs.b.UseVar(ssa.Var(sym.VarIndex))
	if err != nil {
		return -1, err
	}
	if left.Ty.NeedsGC() {
		if err := fs.updatePtr(newVal, oldVal); err != nil {
			return -1, err
		}
	}
	if err := fs.b.DefVar(ssa.Var(sym.VarIndex), newVal); err != nil {
		return -1, err
	}
	return newVal, nil
}

func (fs *funcState) lowerAssignField(left tast.FieldAccess, right tast.Expr) (ssa.Value, error) {
	newVal, err := fs.lowerExpr(right)
	if err != nil {
		return -1, err
	}
	objPtr, err := fs.lowerExpr(left.Object)
	if err != nil {
		return -1, err
	}
	sl, err := fs.structLayoutOf(left.Object.Type())
	if err != nil {
		return -1, err
	}
	idx := sl.FieldIndex(left.Field)
	if idx < 0 {
		return -1, compileerr.New(compileerr.UnresolvedName, "field %q not found in struct %q", left.Field, sl.Name)
	}
	offset := int32(sl.Offsets[idx])
	fieldTy := left.Type()

	var oldVal ssa.Value
	needsGC := fieldTy.NeedsGC()
	if needsGC {
		oldVal, err = fs.b.Load(objPtr, offset)
		if err != nil {
			return -1, err
		}
		if err := fs.retain(newVal); err != nil {
			return -1, err
		}
	}
	if err := fs.b.Store(objPtr, offset, newVal); err != nil {
		return -1, err
	}
	if needsGC {
		if err := fs.release(oldVal); err != nil {
			return -1, err
		}
	}
	return newVal, nil
}

// lowerCall lowers a function call. A callee that is a field access on a
// struct whose field type is itself a function is rewritten to a direct
// call to "{structName}__{fieldName}". Otherwise a bare identifier found
// in the function registry, and not variadic, is a direct call; anything
// else evaluates the callee to an address and calls indirectly. Per
// spec.md §4.5, non-variadic calls retain each GC-needing argument
// before the call and release it after, regardless of direct/indirect
// dispatch; variadic calls pass arguments unchanged.
func (fs *funcState) lowerCall(e tast.Call) (ssa.Value, error) {
	if fa, ok := e.Func.(tast.FieldAccess); ok {
		if sl, err := fs.structLayoutOf(fa.Object.Type()); err == nil {
			if _, isFunc := fa.Type().(types.Func); isFunc {
				rewritten := e
				rewritten.Func = tast.Ident{Name: sl.Name + "__" + fa.Field, Ty: fa.Ty}
				rewritten.FuncTy = e.FuncTy
				rewritten.FuncTy.Variadic = false
				return fs.lowerDirectOrIndirectCall(rewritten, sl.Name+"__"+fa.Field)
			}
		}
	}

	if ident, ok := e.Func.(tast.Ident); ok {
		return fs.lowerDirectOrIndirectCall(e, ident.Name)
	}
	return fs.lowerIndirectCall(e, e.Func)
}

// lowerDirectOrIndirectCall resolves name against the module's function
// registry: found and non-variadic means a direct call; otherwise the
// callee expression is evaluated and the call goes through indirectly.
func (fs *funcState) lowerDirectOrIndirectCall(e tast.Call, name string) (ssa.Value, error) {
	ref, found := fs.eng.Module.FuncRefByName(name)
	if found && !e.FuncTy.Variadic {
		args, err := fs.lowerCallArgs(e)
		if err != nil {
			return -1, err
		}
		addr, err := fs.b.FuncAddr(ref)
		if err != nil {
			return -1, err
		}
		result, err := fs.b.Call(addr, args)
		if err != nil {
			return -1, err
		}
		if err := fs.releaseCallArgs(e, args); err != nil {
			return -1, err
		}
		return result, nil
	}
	return fs.lowerIndirectCall(e, tast.Ident{Name: name, Ty: e.Func.Type()})
}

func (fs *funcState) lowerIndirectCall(e tast.Call, calleeExpr tast.Expr) (ssa.Value, error) {
	calleeVal, err := fs.lowerExpr(calleeExpr)
	if err != nil {
		return -1, err
	}
	args, err := fs.lowerCallArgs(e)
	if err != nil {
		return -1, err
	}
	result, err := fs.b.CallIndirect(calleeVal, args)
	if err != nil {
		return -1, err
	}
	if err := fs.releaseCallArgs(e, args); err != nil {
		return -1, err
	}
	return result, nil
}

// lowerCallArgs lowers each argument, retaining GC-needing ones before
// the call for non-variadic calls (spec.md §4.5); variadic arguments
// pass through unchanged.
func (fs *funcState) lowerCallArgs(e tast.Call) ([]ssa.Value, error) {
	args := make([]ssa.Value, len(e.Args))
	for i, argExpr := range e.Args {
		v, err := fs.lowerExpr(argExpr)
		if err != nil {
			return nil, err
		}
		if !e.FuncTy.Variadic && i < len(e.FuncTy.Params) {
			if err := fs.retainIfNeeded(v, e.FuncTy.Params[i].NeedsGC()); err != nil {
				return nil, err
			}
		}
		args[i] = v
	}
	return args, nil
}

// releaseCallArgs releases each GC-needing argument after a
// non-variadic call completes, balancing lowerCallArgs' retain.
func (fs *funcState) releaseCallArgs(e tast.Call, args []ssa.Value) error {
	if e.FuncTy.Variadic {
		return nil
	}
	for i, v := range args {
		if i >= len(e.FuncTy.Params) {
			break
		}
		if err := fs.releaseIfNeeded(v, e.FuncTy.Params[i].NeedsGC()); err != nil {
			return err
		}
	}
	return nil
}

// lowerIf lowers an if-expression: then/end blocks, and an else block
// only when one is present. When no else exists, the condition's false
// edge jumps straight to end with a zero constant of the consequence's
// type — the resolved Open Question behavior (SPEC_FULL.md §4).
func (fs *funcState) lowerIf(e tast.If) (ssa.Value, error) {
	thenBlock, err := fs.b.CreateBlock()
	if err != nil {
		return -1, err
	}
	endBlock, err := fs.b.CreateBlock()
	if err != nil {
		return -1, err
	}
	endParam, err := fs.b.BlockParam(endBlock)
	if err != nil {
		return -1, err
	}

	var elseBlock ssa.Block = -1
	if e.Else != nil {
		elseBlock, err = fs.b.CreateBlock()
		if err != nil {
			return -1, err
		}
	}

	condVal, err := fs.lowerExpr(e.Condition)
	if err != nil {
		return -1, err
	}
	falseTarget := endBlock
	var falseArgs []ssa.Value
	if e.Else != nil {
		falseTarget = elseBlock
	} else {
		zeroVal, err := fs.b.Iconst(0)
		if err != nil {
			return -1, err
		}
		falseArgs = []ssa.Value{zeroVal}
	}
	if err := fs.b.Brif(condVal, thenBlock, nil, falseTarget, falseArgs); err != nil {
		return -1, err
	}

	if err := fs.b.SwitchToBlock(thenBlock); err != nil {
		return -1, err
	}
	thenVal, err := fs.lowerExpr(e.Consequence)
	if err != nil {
		return -1, err
	}
	if err := fs.b.Jump(endBlock, []ssa.Value{thenVal}); err != nil {
		return -1, err
	}
	if err := fs.b.SealBlock(thenBlock); err != nil {
		return -1, err
	}

	if e.Else != nil {
		if err := fs.b.SwitchToBlock(elseBlock); err != nil {
			return -1, err
		}
		elseVal, err := fs.lowerExpr(e.Else)
		if err != nil {
			return -1, err
		}
		if err := fs.b.Jump(endBlock, []ssa.Value{elseVal}); err != nil {
			return -1, err
		}
		if err := fs.b.SealBlock(elseBlock); err != nil {
			return -1, err
		}
	}

	if err := fs.b.SwitchToBlock(endBlock); err != nil {
		return -1, err
	}
	if err := fs.b.SealBlock(endBlock); err != nil {
		return -1, err
	}
	return endParam, nil
}

// structLayoutOf resolves t's struct layout, erroring if t is not a
// struct type.
func (fs *funcState) structLayoutOf(t types.Type) (*layout.StructLayout, error) {
	st, ok := t.(types.Struct)
	if !ok {
		return nil, compileerr.New(compileerr.TypeMismatch, "expected struct type, got %s", t)
	}
	return fs.lookupStructLayout(st.Name)
}

func (fs *funcState) lookupStructLayout(name string) (*layout.StructLayout, error) {
	sl, ok := fs.table.LookupStructLayout(name)
	if !ok {
		return nil, compileerr.New(compileerr.UnresolvedName, "undefined struct: %s", name)
	}
	return sl, nil
}
