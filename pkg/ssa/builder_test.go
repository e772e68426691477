package ssa

import "testing"

func buildAddFunction(t *testing.T) *Function {
	t.Helper()
	mod := NewModule()
	fn, _ := mod.DeclareFunction("add", FuncSig{ParamWidths: []int{4, 4}, RetWidth: 4})
	b, err := NewBuilder(fn)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	entry, err := b.CreateBlock()
	if err != nil {
		t.Fatalf("CreateBlock: %v", err)
	}
	if err := b.SwitchToBlock(entry); err != nil {
		t.Fatalf("SwitchToBlock: %v", err)
	}
	if err := b.DeclareVar(0); err != nil {
		t.Fatalf("DeclareVar: %v", err)
	}
	if err := b.DeclareVar(1); err != nil {
		t.Fatalf("DeclareVar: %v", err)
	}
	lhs, err := b.Iconst(1)
	if err != nil {
		t.Fatalf("Iconst: %v", err)
	}
	rhs, err := b.Iconst(2)
	if err != nil {
		t.Fatalf("Iconst: %v", err)
	}
	if err := b.DefVar(0, lhs); err != nil {
		t.Fatalf("DefVar: %v", err)
	}
	if err := b.DefVar(1, rhs); err != nil {
		t.Fatalf("DefVar: %v", err)
	}
	l, err := b.UseVar(0)
	if err != nil {
		t.Fatalf("UseVar: %v", err)
	}
	r, err := b.UseVar(1)
	if err != nil {
		t.Fatalf("UseVar: %v", err)
	}
	sum, err := b.Iadd(l, r)
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
	return fn
}

func TestBuilderProducesFinalizedFunction(t *testing.T) {
	fn := buildAddFunction(t)
	if fn.state != stateFinalized {
		t.Fatalf("expected finalized state, got %s", fn.state)
	}
	if len(fn.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(fn.Blocks))
	}
	insts := fn.Blocks[0].Insts
	if len(insts) != 4 {
		t.Fatalf("expected 4 instructions (2 consts + 1 add + 1 return), got %d", len(insts))
	}
	if _, ok := insts[2].(Iadd); !ok {
		t.Fatalf("expected last instruction before return to be Iadd, got %T", insts[2])
	}
}

func TestNewBuilderTwiceIsInvariantViolation(t *testing.T) {
	mod := NewModule()
	fn, _ := mod.DeclareFunction("f", FuncSig{})
	if _, err := NewBuilder(fn); err != nil {
		t.Fatalf("first NewBuilder: %v", err)
	}
	if _, err := NewBuilder(fn); err == nil {
		t.Fatal("expected error building an already-building function twice")
	}
}

func TestSealBlockTwiceIsInvariantViolation(t *testing.T) {
	mod := NewModule()
	fn, _ := mod.DeclareFunction("f", FuncSig{})
	b, _ := NewBuilder(fn)
	blk, _ := b.CreateBlock()
	if err := b.SealBlock(blk); err != nil {
		t.Fatalf("first SealBlock: %v", err)
	}
	if err := b.SealBlock(blk); err == nil {
		t.Fatal("expected error sealing a block twice")
	}
}

func TestFinalizeWithUnsealedBlockFails(t *testing.T) {
	mod := NewModule()
	fn, _ := mod.DeclareFunction("f", FuncSig{})
	b, _ := NewBuilder(fn)
	if _, err := b.CreateBlock(); err != nil {
		t.Fatalf("CreateBlock: %v", err)
	}
	if err := b.Finalize(); err == nil {
		t.Fatal("expected error finalizing with an unsealed block")
	}
}

func TestUseVarBeforeDefFails(t *testing.T) {
	mod := NewModule()
	fn, _ := mod.DeclareFunction("f", FuncSig{})
	b, _ := NewBuilder(fn)
	blk, _ := b.CreateBlock()
	if err := b.SwitchToBlock(blk); err != nil {
		t.Fatalf("SwitchToBlock: %v", err)
	}
	if _, err := b.UseVar(0); err == nil {
		t.Fatal("expected error using an undefined var slot")
	}
}

func TestModuleImportFunctionIsIdempotent(t *testing.T) {
	mod := NewModule()
	first := mod.ImportFunction("__obj_alloc")
	second := mod.ImportFunction("__obj_alloc")
	if first != second {
		t.Fatalf("expected idempotent import, got %d != %d", first, second)
	}
	if first != mod.Runtime.Alloc {
		t.Fatalf("expected __obj_alloc to resolve to the pre-imported Runtime.Alloc ref")
	}
}

func TestFuncRefByName(t *testing.T) {
	mod := NewModule()
	_, ref := mod.DeclareFunction("main", FuncSig{})
	got, ok := mod.FuncRefByName("main")
	if !ok || got != ref {
		t.Fatalf("FuncRefByName(main) = %d, %v; want %d, true", got, ok, ref)
	}
	if _, ok := mod.FuncRefByName("nonexistent"); ok {
		t.Fatal("expected FuncRefByName to report false for an undeclared name")
	}
}
