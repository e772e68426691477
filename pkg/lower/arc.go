package lower

import "github.com/arclang/arcc/pkg/ssa"

// retain emits a call to __obj_retain(val), the reference-counting
// discipline's building block (spec.md §4.5).
func (fs *funcState) retain(val ssa.Value) error {
	return fs.callRuntime(fs.eng.Module.Runtime.Retain, val)
}

// release emits a call to __obj_release(val).
func (fs *funcState) release(val ssa.Value) error {
	return fs.callRuntime(fs.eng.Module.Runtime.Release, val)
}

func (fs *funcState) callRuntime(ref ssa.FuncRef, val ssa.Value) error {
	addr, err := fs.b.FuncAddr(ref)
	if err != nil {
		return err
	}
	_, err = fs.b.Call(addr, []ssa.Value{val})
	return err
}

// retainIfNeeded emits a retain only when ty carries a reference count.
func (fs *funcState) retainIfNeeded(val ssa.Value, needsGC bool) error {
	if !needsGC {
		return nil
	}
	return fs.retain(val)
}

// releaseIfNeeded emits a release only when ty carries a reference count.
func (fs *funcState) releaseIfNeeded(val ssa.Value, needsGC bool) error {
	if !needsGC {
		return nil
	}
	return fs.release(val)
}

// updatePtr is the "update" primitive spec.md §4.5 names for reassignment:
// retain the new value, then release the old one, in that order.
func (fs *funcState) updatePtr(newVal, oldVal ssa.Value) error {
	if err := fs.retain(newVal); err != nil {
		return err
	}
	return fs.release(oldVal)
}

// releaseScope walks every entry currently bound in fs.table and
// releases the GC-needing ones — the Block/BlockExpr scope-exit pass
// spec.md §4.4/§4.5 describes. Matching the reference's compile_stmt
// Block arm, this walks the table as it stands *right now*, not a
// snapshot limited to symbols defined since some earlier point: every
// Block a function's body contains shares that function's one table
// (see funcState doc comment in frame.go), so nested blocks each
// release the same accumulated set of locals (and parameters) again.
func (fs *funcState) releaseScope() error {
	for _, sym := range fs.table.Snapshot() {
		if !sym.IsVal || !sym.NeedsGC() {
			continue
		}
		val, err := fs.b.UseVar(ssa.Var(sym.VarIndex))
		if err != nil {
			return err
		}
		if err := fs.release(val); err != nil {
			return err
		}
	}
	return nil
}
