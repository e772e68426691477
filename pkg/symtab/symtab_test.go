package symtab

import "testing"

func TestDefineAssignsDenseGlobalIndices(t *testing.T) {
	root := New()
	a := root.Define("a")
	b := root.Define("b")
	if a.VarIndex != 0 || b.VarIndex != 1 {
		t.Errorf("expected dense indices 0,1; got %d,%d", a.VarIndex, b.VarIndex)
	}
	if a.Scope != ScopeGlobal {
		t.Errorf("expected root table definitions to be ScopeGlobal, got %s", a.Scope)
	}
}

func TestNewChildVarIndexContinuesFromOuter(t *testing.T) {
	root := New()
	root.Define("a")
	root.Define("b")
	child := NewChild(root)
	c := child.Define("c")
	if c.VarIndex != 2 {
		t.Errorf("expected child's first var index to continue from outer's count, got %d", c.VarIndex)
	}
	if c.Scope != ScopeLocal {
		t.Errorf("expected a nested definition to be ScopeLocal, got %s", c.Scope)
	}
}

func TestGetPromotesOuterLocalToFreeVariable(t *testing.T) {
	outer := New()
	outerChild := NewChild(outer)
	outerChild.Define("x")

	inner := NewChild(outerChild)
	sym, ok := inner.Get("x")
	if !ok {
		t.Fatal("expected x to resolve from the inner scope")
	}
	if sym.Scope != ScopeFree {
		t.Errorf("expected a capture across a non-global scope to promote to ScopeFree, got %s", sym.Scope)
	}
	if len(inner.FreeSymbols) != 1 || inner.FreeSymbols[0].Name != "x" {
		t.Fatalf("expected x to be recorded in FreeSymbols, got %+v", inner.FreeSymbols)
	}
}

func TestGetOnGlobalNameIsNotPromoted(t *testing.T) {
	root := New()
	root.DefineFunc("printSomething")

	child := NewChild(root)
	sym, ok := child.Get("printSomething")
	if !ok {
		t.Fatal("expected printSomething to resolve")
	}
	if sym.Scope != ScopeGlobal {
		t.Errorf("expected a global lookup to stay ScopeGlobal, got %s", sym.Scope)
	}
	if len(child.FreeSymbols) != 0 {
		t.Errorf("expected no free-variable promotion for a global name, got %+v", child.FreeSymbols)
	}
}

func TestGetPromotionIsIdempotent(t *testing.T) {
	outer := New()
	outerChild := NewChild(outer)
	outerChild.Define("x")

	inner := NewChild(outerChild)
	first, _ := inner.Get("x")
	second, _ := inner.Get("x")
	if first.TableIndex != second.TableIndex {
		t.Errorf("expected repeated capture of the same free variable to keep its first-assigned slot, got %d then %d", first.TableIndex, second.TableIndex)
	}
	if len(inner.FreeSymbols) != 1 {
		t.Errorf("expected a single free-variable slot despite two captures, got %d", len(inner.FreeSymbols))
	}
}

func TestGetUnresolvedNameFails(t *testing.T) {
	root := New()
	if _, ok := root.Get("nope"); ok {
		t.Error("expected an undefined name to fail to resolve")
	}
}

func TestDefineStructMarksKindStructAndNeedsGC(t *testing.T) {
	root := New()
	sym := root.DefineStruct("p", nil)
	if sym.Kind != KindStruct {
		t.Errorf("expected DefineStruct to produce a KindStruct symbol, got %v", sym.Kind)
	}
	if !sym.NeedsGC() {
		t.Error("expected a struct-value symbol to need GC")
	}
	if !sym.IsVal {
		t.Error("expected DefineStruct to mark IsVal true")
	}
}

func TestDefineStructTypeIsNotAValueBinding(t *testing.T) {
	root := New()
	sym := root.DefineStructType("Point", nil)
	if sym.IsVal {
		t.Error("expected DefineStructType to mark IsVal false, since assigning to a type name is an error")
	}
}

func TestSnapshotReturnsOnlyDirectEntries(t *testing.T) {
	root := New()
	root.Define("a")
	child := NewChild(root)
	child.Define("b")

	snap := child.Snapshot()
	if len(snap) != 1 || snap[0].Name != "b" {
		t.Errorf("expected Snapshot to return only this table's own entries, got %+v", snap)
	}
}
