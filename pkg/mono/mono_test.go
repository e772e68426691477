package mono

import (
	"testing"

	"github.com/arclang/arcc/pkg/tast"
	"github.com/arclang/arcc/pkg/types"
)

func identityProgram() *tast.Program {
	genT := types.Generic{Name: "T"}
	identityFn := tast.Function{
		Name:          "identity",
		GenericParams: []string{"T"},
		Params:        []tast.Param{{Name: "x", Ty: genT}},
		Body: &tast.BlockExpr{
			Statements: []tast.Stmt{
				tast.ReturnStmt{Expr: tast.Ident{Name: "x", Ty: genT}},
			},
			Ty: genT,
		},
		RetTy: genT,
		Ty:    types.Func{Params: []types.Type{genT}, Ret: genT},
	}

	callIdentity := func(arg tast.Expr, argTy types.Type) tast.Expr {
		return tast.Call{
			Func:   tast.Ident{Name: "identity", Ty: identityFn.Ty},
			Args:   []tast.Expr{arg},
			FuncTy: types.Func{Params: []types.Type{genT}, Ret: genT},
			Ty:     argTy,
		}
	}

	return &tast.Program{
		Statements: []tast.Stmt{
			tast.ExprStmt{Expr: identityFn},
			tast.LetStmt{Name: "a", Value: callIdentity(tast.IntLit{Value: 5, Ty: types.Int{Width: types.I32}}, types.Int{Width: types.I32}), Ty: types.Int{Width: types.I32}},
			tast.LetStmt{Name: "b", Value: callIdentity(tast.BoolLit{Value: true, Ty: types.Bool{}}, types.Bool{}), Ty: types.Bool{}},
		},
	}
}

func TestMonomorphizeGeneratesOneSpecializationPerDistinctTypeArg(t *testing.T) {
	prog := identityProgram()
	if err := New().Monomorphize(prog); err != nil {
		t.Fatalf("Monomorphize: %v", err)
	}

	var specialized []string
	for _, stmt := range prog.Statements {
		es, ok := stmt.(tast.ExprStmt)
		if !ok {
			continue
		}
		if fn, ok := es.Expr.(tast.Function); ok {
			specialized = append(specialized, fn.Name)
		}
	}
	want := map[string]bool{"identity__mono_i32": false, "identity__mono_bool": false}
	for _, name := range specialized {
		if _, ok := want[name]; ok {
			want[name] = true
		}
		if name == "identity" {
			t.Error("expected the generic template to be pruned from the statement list")
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected a specialization named %s, got %v", name, specialized)
		}
	}
}

func TestMonomorphizeRewritesCallSitesToMangledNames(t *testing.T) {
	prog := identityProgram()
	if err := New().Monomorphize(prog); err != nil {
		t.Fatalf("Monomorphize: %v", err)
	}

	var calleeNames []string
	for _, stmt := range prog.Statements {
		let, ok := stmt.(tast.LetStmt)
		if !ok {
			continue
		}
		call, ok := let.Value.(tast.Call)
		if !ok {
			continue
		}
		ident, ok := call.Func.(tast.Ident)
		if !ok {
			t.Fatalf("expected call target to remain an Ident, got %T", call.Func)
		}
		calleeNames = append(calleeNames, ident.Name)
	}
	if len(calleeNames) != 2 {
		t.Fatalf("expected 2 rewritten call sites, got %d: %v", len(calleeNames), calleeNames)
	}
	for _, name := range calleeNames {
		if name != "identity__mono_i32" && name != "identity__mono_bool" {
			t.Errorf("call site rewritten to unexpected callee %q", name)
		}
	}
}

func TestMonomorphizeNoGenericsIsANoop(t *testing.T) {
	prog := &tast.Program{
		Statements: []tast.Stmt{
			tast.LetStmt{Name: "x", Value: tast.IntLit{Value: 1, Ty: types.Int{Width: types.I32}}, Ty: types.Int{Width: types.I32}},
		},
	}
	if err := New().Monomorphize(prog); err != nil {
		t.Fatalf("Monomorphize: %v", err)
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("expected a non-generic program to pass through unchanged, got %d statements", len(prog.Statements))
	}
}
