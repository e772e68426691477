// Package mono implements the Monomorphizer (spec.md §4.3): a
// three-phase collect/discover/generate pass that turns each generic
// function template plus its distinct call-site instantiations into one
// concrete, mangled-named function per instantiation, then rewrites call
// sites and prunes the original templates.
//
// Ported phase-for-phase from
// original_source/ant_cranelift_compiler-master/src/monomorphizer/mod.rs;
// the recursive Transformer-returns-a-new-tree idiom follows
// _examples/raymyers-ralph-cc-go/pkg/simpllocals's TransformExpr/
// TransformStmt shape, adapted here to three distinct tree walks
// (collect, substitute, rewrite-call-sites) instead of one.
package mono

import (
	"fmt"
	"strings"

	"github.com/arclang/arcc/pkg/compileerr"
	"github.com/arclang/arcc/pkg/tast"
	"github.com/arclang/arcc/pkg/types"
)

type genericFunctionInfo struct {
	fn         tast.Function
	paramNames []string
}

type instanceKey struct {
	funcName string
	typeArgs []types.Type
}

func (k instanceKey) mangledSuffix() string {
	parts := make([]string, len(k.typeArgs))
	for i, t := range k.typeArgs {
		parts[i] = t.String()
	}
	return strings.Join(parts, "_")
}

func (k instanceKey) mangledName() string {
	return fmt.Sprintf("%s__mono_%s", k.funcName, k.mangledSuffix())
}

// Monomorphizer collects generic function templates and their call-site
// instantiations across a single compilation unit, then specializes and
// rewrites in place.
type Monomorphizer struct {
	genericFunctions map[string]genericFunctionInfo
	instances        []instanceKey
	seen             map[string]bool
}

// New returns a Monomorphizer ready to process one Program.
func New() *Monomorphizer {
	return &Monomorphizer{
		genericFunctions: make(map[string]genericFunctionInfo),
		instances:        nil,
		seen:             make(map[string]bool),
	}
}

// Monomorphize runs the collect -> discover -> generate-and-replace
// pipeline over prog, mutating its top-level statement list in place.
func (m *Monomorphizer) Monomorphize(prog *tast.Program) error {
	m.collectGenericFunctions(prog)
	m.collectInstances(prog)
	return m.generateAndReplace(prog)
}

// --- Phase 1: collect generic function templates ---

func (m *Monomorphizer) collectGenericFunctions(prog *tast.Program) {
	for _, stmt := range prog.Statements {
		collectInStmt(stmt, m.genericFunctions)
	}
}

func collectInStmt(stmt tast.Stmt, out map[string]genericFunctionInfo) {
	switch s := stmt.(type) {
	case tast.ExprStmt:
		collectInExpr(s.Expr, out)
	case tast.LetStmt:
		collectInExpr(s.Value, out)
	case *tast.BlockStmt:
		for _, inner := range s.Statements {
			collectInStmt(inner, out)
		}
	case tast.WhileStmt:
		collectInExpr(s.Condition, out)
		for _, inner := range s.Body.Statements {
			collectInStmt(inner, out)
		}
	case tast.ReturnStmt:
		collectInExpr(s.Expr, out)
	}
}

func collectInExpr(expr tast.Expr, out map[string]genericFunctionInfo) {
	switch e := expr.(type) {
	case tast.Function:
		if len(e.GenericParams) > 0 && e.Name != "" {
			out[e.Name] = genericFunctionInfo{fn: e, paramNames: append([]string(nil), e.GenericParams...)}
		}
	case tast.Call:
		collectInExpr(e.Func, out)
		for _, arg := range e.Args {
			collectInExpr(arg, out)
		}
	case tast.Infix:
		collectInExpr(e.Left, out)
		collectInExpr(e.Right, out)
	case tast.If:
		collectInExpr(e.Condition, out)
		collectInExpr(e.Consequence, out)
		if e.Else != nil {
			collectInExpr(e.Else, out)
		}
	}
}

// --- Phase 2: discover distinct call-site instantiations ---

func (m *Monomorphizer) collectInstances(prog *tast.Program) {
	for _, stmt := range prog.Statements {
		m.collectInstancesInStmt(stmt)
	}
}

func (m *Monomorphizer) collectInstancesInStmt(stmt tast.Stmt) {
	switch s := stmt.(type) {
	case tast.ExprStmt:
		m.collectInstancesInExpr(s.Expr)
	case tast.LetStmt:
		m.collectInstancesInExpr(s.Value)
	case *tast.BlockStmt:
		for _, inner := range s.Statements {
			m.collectInstancesInStmt(inner)
		}
	case tast.WhileStmt:
		m.collectInstancesInExpr(s.Condition)
		for _, inner := range s.Body.Statements {
			m.collectInstancesInStmt(inner)
		}
	case tast.ReturnStmt:
		m.collectInstancesInExpr(s.Expr)
	}
}

func (m *Monomorphizer) collectInstancesInExpr(expr tast.Expr) {
	switch e := expr.(type) {
	case tast.Call:
		if ident, ok := e.Func.(tast.Ident); ok {
			if _, isGeneric := m.genericFunctions[ident.Name]; isGeneric {
				argTypes := make([]types.Type, len(e.Args))
				for i, a := range e.Args {
					argTypes[i] = a.Type()
				}
				key := instanceKey{funcName: ident.Name, typeArgs: argTypes}
				dedupe := key.funcName + "|" + key.mangledSuffix()
				if !m.seen[dedupe] {
					m.seen[dedupe] = true
					m.instances = append(m.instances, key)
				}
			}
		}
		m.collectInstancesInExpr(e.Func)
		for _, arg := range e.Args {
			m.collectInstancesInExpr(arg)
		}
	case tast.Infix:
		m.collectInstancesInExpr(e.Left)
		m.collectInstancesInExpr(e.Right)
	case tast.If:
		m.collectInstancesInExpr(e.Condition)
		m.collectInstancesInExpr(e.Consequence)
		if e.Else != nil {
			m.collectInstancesInExpr(e.Else)
		}
	}
}

// --- Phase 3: generate specialized functions, rewrite calls, prune templates ---

func (m *Monomorphizer) generateAndReplace(prog *tast.Program) error {
	var newStmts []tast.Stmt
	for _, inst := range m.instances {
		genInfo, ok := m.genericFunctions[inst.funcName]
		if !ok {
			continue
		}
		if len(genInfo.paramNames) != len(inst.typeArgs) {
			return compileerr.New(compileerr.TypeMismatch,
				"generic function %q expects %d type argument(s), got %d",
				inst.funcName, len(genInfo.paramNames), len(inst.typeArgs))
		}

		typeMap := make(map[string]types.Type, len(genInfo.paramNames))
		for i, name := range genInfo.paramNames {
			typeMap[name] = inst.typeArgs[i]
		}

		specialized := substituteGenericsInFunction(genInfo.fn, typeMap)
		specialized.GenericParams = nil
		specialized.Name = inst.mangledName()
		specialized.Ty = substituteGenericTy(specialized.Ty, typeMap)
		specialized.RetTy = substituteGenericTy(specialized.RetTy, typeMap)

		newStmts = append(newStmts, tast.ExprStmt{Expr: specialized})
	}

	statements := append(newStmts, prog.Statements...)

	for i, stmt := range statements {
		statements[i] = replaceCallsInStmt(stmt, m.genericFunctions)
	}

	kept := statements[:0]
	for _, stmt := range statements {
		if !isGenericDef(stmt, m.genericFunctions) {
			kept = append(kept, stmt)
		}
	}
	prog.Statements = kept
	return nil
}

func isGenericDef(stmt tast.Stmt, generic map[string]genericFunctionInfo) bool {
	es, ok := stmt.(tast.ExprStmt)
	if !ok {
		return false
	}
	fn, ok := es.Expr.(tast.Function)
	if !ok || fn.Name == "" {
		return false
	}
	_, isGeneric := generic[fn.Name]
	return isGeneric
}

// --- call-site rewriting ---

func replaceCallsInStmt(stmt tast.Stmt, generic map[string]genericFunctionInfo) tast.Stmt {
	switch s := stmt.(type) {
	case tast.ExprStmt:
		return tast.ExprStmt{Expr: replaceCallsInExpr(s.Expr, generic)}
	case tast.LetStmt:
		s.Value = replaceCallsInExpr(s.Value, generic)
		return s
	case tast.ReturnStmt:
		return tast.ReturnStmt{Expr: replaceCallsInExpr(s.Expr, generic)}
	case *tast.BlockStmt:
		out := make([]tast.Stmt, len(s.Statements))
		for i, inner := range s.Statements {
			out[i] = replaceCallsInStmt(inner, generic)
		}
		return &tast.BlockStmt{Statements: out}
	case tast.WhileStmt:
		out := make([]tast.Stmt, len(s.Body.Statements))
		for i, inner := range s.Body.Statements {
			out[i] = replaceCallsInStmt(inner, generic)
		}
		return tast.WhileStmt{
			Condition: replaceCallsInExpr(s.Condition, generic),
			Body:      &tast.BlockStmt{Statements: out},
		}
	default:
		return stmt
	}
}

func replaceCallsInExpr(expr tast.Expr, generic map[string]genericFunctionInfo) tast.Expr {
	switch e := expr.(type) {
	case tast.Call:
		newFunc := e.Func
		newFuncTy := e.FuncTy
		if ident, ok := e.Func.(tast.Ident); ok {
			if genInfo, isGeneric := generic[ident.Name]; isGeneric {
				argTypes := make([]types.Type, len(e.Args))
				for i, a := range e.Args {
					argTypes[i] = a.Type()
				}
				typeMap := make(map[string]types.Type, len(genInfo.paramNames))
				for i, name := range genInfo.paramNames {
					if i < len(argTypes) {
						typeMap[name] = argTypes[i]
					}
				}
				key := instanceKey{funcName: ident.Name, typeArgs: argTypes}
				ident.Name = key.mangledName()
				substituted := substituteGenericTy(newFuncTy, typeMap)
				if ft, ok := substituted.(types.Func); ok {
					newFuncTy = ft
				}
				newFunc = ident
			}
		} else {
			newFunc = replaceCallsInExpr(e.Func, generic)
		}
		newArgs := make([]tast.Expr, len(e.Args))
		for i, a := range e.Args {
			newArgs[i] = replaceCallsInExpr(a, generic)
		}
		return tast.Call{Func: newFunc, Args: newArgs, FuncTy: newFuncTy, Ty: e.Ty}
	case tast.Infix:
		e.Left = replaceCallsInExpr(e.Left, generic)
		e.Right = replaceCallsInExpr(e.Right, generic)
		return e
	case tast.If:
		e.Condition = replaceCallsInExpr(e.Condition, generic)
		e.Consequence = replaceCallsInExpr(e.Consequence, generic)
		if e.Else != nil {
			e.Else = replaceCallsInExpr(e.Else, generic)
		}
		return e
	case tast.Function:
		newParams := make([]tast.Param, len(e.Params))
		copy(newParams, e.Params)
		e.Params = newParams
		if e.Body != nil {
			out := make([]tast.Stmt, len(e.Body.Statements))
			for i, inner := range e.Body.Statements {
				out[i] = replaceCallsInStmt(inner, generic)
			}
			e.Body = &tast.BlockExpr{Statements: out, Ty: e.Body.Ty}
		}
		return e
	case tast.BlockExpr:
		out := make([]tast.Stmt, len(e.Statements))
		for i, inner := range e.Statements {
			out[i] = replaceCallsInStmt(inner, generic)
		}
		return tast.BlockExpr{Statements: out, Ty: e.Ty}
	default:
		return expr
	}
}

// --- generic type substitution ---

func substituteGenericsInFunction(fn tast.Function, typeMap map[string]types.Type) tast.Function {
	newParams := make([]tast.Param, len(fn.Params))
	for i, p := range fn.Params {
		newParams[i] = tast.Param{Name: p.Name, Ty: substituteGenericTy(p.Ty, typeMap)}
	}
	fn.Params = newParams

	if fn.Body != nil {
		out := make([]tast.Stmt, len(fn.Body.Statements))
		for i, inner := range fn.Body.Statements {
			out[i] = substituteGenericsInStmt(inner, typeMap)
		}
		fn.Body = &tast.BlockExpr{Statements: out, Ty: substituteGenericTy(fn.Body.Ty, typeMap)}
	}
	return fn
}

func substituteGenericsInStmt(stmt tast.Stmt, typeMap map[string]types.Type) tast.Stmt {
	switch s := stmt.(type) {
	case tast.ExprStmt:
		return tast.ExprStmt{Expr: substituteGenericsInExpr(s.Expr, typeMap)}
	case tast.LetStmt:
		s.Value = substituteGenericsInExpr(s.Value, typeMap)
		s.Ty = substituteGenericTy(s.Ty, typeMap)
		return s
	case tast.ReturnStmt:
		return tast.ReturnStmt{Expr: substituteGenericsInExpr(s.Expr, typeMap)}
	case *tast.BlockStmt:
		out := make([]tast.Stmt, len(s.Statements))
		for i, inner := range s.Statements {
			out[i] = substituteGenericsInStmt(inner, typeMap)
		}
		return &tast.BlockStmt{Statements: out}
	case tast.WhileStmt:
		out := make([]tast.Stmt, len(s.Body.Statements))
		for i, inner := range s.Body.Statements {
			out[i] = substituteGenericsInStmt(inner, typeMap)
		}
		return tast.WhileStmt{
			Condition: substituteGenericsInExpr(s.Condition, typeMap),
			Body:      &tast.BlockStmt{Statements: out},
		}
	default:
		return stmt
	}
}

func substituteGenericsInExpr(expr tast.Expr, typeMap map[string]types.Type) tast.Expr {
	switch e := expr.(type) {
	case tast.Ident:
		e.Ty = substituteGenericTy(e.Ty, typeMap)
		return e
	case tast.Function:
		return substituteGenericsInFunction(e, typeMap)
	case tast.Call:
		e.Func = substituteGenericsInExpr(e.Func, typeMap)
		newArgs := make([]tast.Expr, len(e.Args))
		for i, a := range e.Args {
			newArgs[i] = substituteGenericsInExpr(a, typeMap)
		}
		e.Args = newArgs
		if ft, ok := substituteGenericTy(e.FuncTy, typeMap).(types.Func); ok {
			e.FuncTy = ft
		}
		return e
	case tast.Infix:
		e.Left = substituteGenericsInExpr(e.Left, typeMap)
		e.Right = substituteGenericsInExpr(e.Right, typeMap)
		return e
	case tast.If:
		e.Condition = substituteGenericsInExpr(e.Condition, typeMap)
		e.Consequence = substituteGenericsInExpr(e.Consequence, typeMap)
		if e.Else != nil {
			e.Else = substituteGenericsInExpr(e.Else, typeMap)
		}
		return e
	case tast.BlockExpr:
		out := make([]tast.Stmt, len(e.Statements))
		for i, inner := range e.Statements {
			out[i] = substituteGenericsInStmt(inner, typeMap)
		}
		return tast.BlockExpr{Statements: out, Ty: substituteGenericTy(e.Ty, typeMap)}
	default:
		return expr
	}
}

// substituteGenericTy replaces a Generic type by name and recurses
// through Func parameter/return types, exactly as the reference's
// substitute_generic_ty does; every other variant passes through
// unchanged.
func substituteGenericTy(t types.Type, typeMap map[string]types.Type) types.Type {
	switch tt := t.(type) {
	case types.Generic:
		if concrete, ok := typeMap[tt.Name]; ok {
			return concrete
		}
		return t
	case types.Func:
		newParams := make([]types.Type, len(tt.Params))
		for i, p := range tt.Params {
			newParams[i] = substituteGenericTy(p, typeMap)
		}
		return types.Func{Params: newParams, Ret: substituteGenericTy(tt.Ret, typeMap), Variadic: tt.Variadic}
	default:
		return t
	}
}
