package objemit

import (
	"strings"
	"testing"

	"github.com/arclang/arcc/pkg/ssa"
)

// buildModule builds a tiny module with one function, add(a, b) = a + b,
// exercising block-param entry binding, Iadd, and Return.
func buildModule(t *testing.T) *ssa.Module {
	t.Helper()
	mod := ssa.NewModule()
	fn, _ := mod.DeclareFunction("add", ssa.FuncSig{ParamWidths: []int{4, 4}, RetWidth: 4})
	b, err := ssa.NewBuilder(fn)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	entry, err := b.CreateBlock()
	if err != nil {
		t.Fatalf("CreateBlock: %v", err)
	}
	p0, err := b.BlockParam(entry)
	if err != nil {
		t.Fatalf("BlockParam: %v", err)
	}
	p1, err := b.BlockParam(entry)
	if err != nil {
		t.Fatalf("BlockParam: %v", err)
	}
	if err := b.SwitchToBlock(entry); err != nil {
		t.Fatalf("SwitchToBlock: %v", err)
	}
	sum, err := b.Iadd(p0, p1)
	if err != nil {
		t.Fatalf("Iadd: %v", err)
	}
	if err := b.Return(sum, true); err != nil {
		t.Fatalf("Return: %v", err)
	}
	if err := b.SealBlock(entry); err != nil {
		t.Fatalf("SealBlock: %v", err)
	}
	if err := b.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return mod
}

func TestEmitProducesOneFunctionAndImports(t *testing.T) {
	mod := buildModule(t)
	prog, err := Emit(mod)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(prog.Functions) != 1 {
		t.Fatalf("expected 1 emitted function, got %d", len(prog.Functions))
	}
	if prog.Functions[0].Name != "add" {
		t.Fatalf("expected function named add, got %s", prog.Functions[0].Name)
	}
	wantImports := map[string]bool{"__obj_alloc": false, "__obj_retain": false, "__obj_release": false}
	for _, imp := range prog.Imports {
		if _, ok := wantImports[imp]; ok {
			wantImports[imp] = true
		}
	}
	for name, found := range wantImports {
		if !found {
			t.Errorf("expected %s among imports, got %v", name, prog.Imports)
		}
	}
}

func TestEmitFunctionHasPrologueAndEpilogue(t *testing.T) {
	mod := buildModule(t)
	prog, err := Emit(mod)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	fn := prog.Functions[0]
	if _, ok := fn.Code[0].(SUBi); !ok {
		t.Fatalf("expected prologue to start with a stack SUBi, got %T", fn.Code[0])
	}
	last := fn.Code[len(fn.Code)-1]
	if _, ok := last.(RET); !ok {
		t.Fatalf("expected function to end with RET, got %T", last)
	}
	foundAdd := false
	for _, inst := range fn.Code {
		if _, ok := inst.(ADD); ok {
			foundAdd = true
		}
	}
	if !foundAdd {
		t.Error("expected an ADD instruction lowering the Iadd")
	}
}

func TestPrintRendersGNUAssemblerText(t *testing.T) {
	mod := buildModule(t)
	prog, err := Emit(mod)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	text := Print(prog)
	wantSubstrs := []string{
		".text",
		".globl add",
		"add:",
		"\tadd ",
		"\tret\n",
		".extern __obj_alloc",
	}
	for _, want := range wantSubstrs {
		if !strings.Contains(text, want) {
			t.Errorf("Print output missing %q; full output:\n%s", want, text)
		}
	}
}
