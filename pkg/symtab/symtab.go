// Package symtab implements the Symbol Table (spec.md §4.2): nested
// lexical scopes, dense globally-unique variable indices, and automatic
// free-variable capture promotion.
//
// Grounded on original_source/ant_cranelift_compiler-master's
// compiler/table.rs, ported field-for-field and method-for-method; the
// counter/reset idiom (a struct holding its own monotonic index and a
// Reset-style constructor for a fresh nested scope) follows
// _examples/raymyers-ralph-cc-go/pkg/simpllocals's Transformer shape.
package symtab

import "github.com/arclang/arcc/pkg/layout"

// Scope tags where a Symbol was defined relative to the frame querying
// it.
type Scope int

const (
	ScopeLocal Scope = iota
	ScopeGlobal
	ScopeFree
)

func (s Scope) String() string {
	switch s {
	case ScopeLocal:
		return "local"
	case ScopeGlobal:
		return "global"
	case ScopeFree:
		return "free"
	default:
		return "?"
	}
}

// Kind distinguishes what a Symbol denotes, mirroring the reference's
// SymbolTy (Var/Function/Struct, the last carrying its computed layout).
type Kind int

const (
	KindVar Kind = iota
	KindFunction
	KindStruct
)

// Symbol is one entry in a Table: a name, its scope relative to the
// table that resolved it, its table-local and globally dense indices,
// its kind, and (for struct symbols) the struct's computed layout.
type Symbol struct {
	Name        string
	Scope       Scope
	TableIndex  int
	VarIndex    int
	Kind        Kind
	StructLayout *layout.StructLayout // non-nil iff Kind == KindStruct
	IsVal       bool                  // false for a struct *type* binding
}

// NeedsGC reports whether this symbol's storage carries an ARC reference
// count, mirroring the reference's SymbolTy::need_gc (only struct
// symbols do; the type lattice's own NeedsGC is queried by lowering for
// non-struct values via their declared types.Type).
func (s Symbol) NeedsGC() bool {
	return s.Kind == KindStruct
}

// Table is one lexical scope frame. A nil Outer marks the root (global)
// scope.
type Table struct {
	Outer           *Table
	DefCount        int
	entries         map[string]Symbol
	FreeSymbols     []Symbol
	RenamedSymbols  map[string]string
}

// New creates a root (global) table.
func New() *Table {
	return &Table{
		entries:        make(map[string]Symbol),
		RenamedSymbols: make(map[string]string),
	}
}

// NewChild creates a table nested inside outer, the Go equivalent of the
// reference's SymbolTable::from_outer.
func NewChild(outer *Table) *Table {
	return &Table{
		Outer:          outer,
		entries:        make(map[string]Symbol),
		RenamedSymbols: make(map[string]string),
	}
}

// varCounter sums def_count across every ancestor, giving the newly
// defined symbol's globally dense var_index exactly as the reference's
// recursive symbol_counter does.
func varCounter(t *Table) int {
	if t.Outer == nil {
		return t.DefCount
	}
	return varCounter(t.Outer) + t.DefCount
}

func (t *Table) scopeForDefine() Scope {
	if t.Outer != nil {
		return ScopeLocal
	}
	return ScopeGlobal
}

// Get resolves name against this table, walking outward through
// enclosing scopes. A lookup that escapes into an outer non-global scope
// is idempotently promoted into this table's free-variable list (spec.md
// §4.2's free-variable capture invariant); a lookup that resolves to the
// global scope is returned unpromoted, since globals need no capture.
func (t *Table) Get(name string) (Symbol, bool) {
	if sym, ok := t.entries[name]; ok {
		return sym, true
	}

	if renamed, ok := t.RenamedSymbols[name]; ok {
		sym, ok := t.entries[renamed]
		return sym, ok
	}

	if t.Outer == nil {
		return Symbol{}, false
	}

	result, ok := t.Outer.Get(name)
	if !ok {
		return Symbol{}, false
	}

	if result.Scope == ScopeGlobal {
		return result, true
	}

	return t.defineFree(result), true
}

// defineFree promotes a symbol resolved in an outer scope into this
// table's free-variable list. Idempotent: a variable captured twice in
// the same frame keeps its first-assigned free slot (matching the
// reference: map.insert overwrites, but the lookup path short-circuits
// on t.entries before ever re-appending to FreeSymbols once promoted).
func (t *Table) defineFree(original Symbol) Symbol {
	if existing, ok := t.entries[original.Name]; ok && existing.Scope == ScopeFree {
		return existing
	}

	t.FreeSymbols = append(t.FreeSymbols, original)

	sym := original
	sym.TableIndex = len(t.FreeSymbols) - 1
	sym.Scope = ScopeFree

	t.entries[sym.Name] = sym
	return sym
}

// Define introduces a new plain value binding (a `let`) in this table.
func (t *Table) Define(name string) Symbol {
	sym := Symbol{
		Name:       name,
		Scope:      t.scopeForDefine(),
		TableIndex: t.DefCount,
		VarIndex:   varCounter(t),
		IsVal:      true,
		Kind:       KindVar,
	}
	t.DefCount++
	t.entries[name] = sym
	return sym
}

// DefineFunc introduces a named function binding.
func (t *Table) DefineFunc(name string) Symbol {
	sym := Symbol{
		Name:       name,
		Scope:      t.scopeForDefine(),
		TableIndex: t.DefCount,
		VarIndex:   varCounter(t),
		IsVal:      true,
		Kind:       KindFunction,
	}
	t.DefCount++
	t.entries[name] = sym
	return sym
}

// DefineStruct introduces a struct *value* binding (is_val = true),
// carrying the computed layout alongside it.
func (t *Table) DefineStruct(name string, sl *layout.StructLayout) Symbol {
	return t.defineStructSymbol(name, sl, true)
}

// DefineStructType introduces a struct *type* declaration (is_val =
// false): the name resolves to the layout for typechecking/codegen
// purposes, but assigning to it is an error (spec.md's AssignToType).
func (t *Table) DefineStructType(name string, sl *layout.StructLayout) Symbol {
	return t.defineStructSymbol(name, sl, false)
}

func (t *Table) defineStructSymbol(name string, sl *layout.StructLayout, isVal bool) Symbol {
	sym := Symbol{
		Name:         name,
		Scope:        t.scopeForDefine(),
		TableIndex:   t.DefCount,
		VarIndex:     varCounter(t),
		IsVal:        isVal,
		Kind:         KindStruct,
		StructLayout: sl,
	}
	t.DefCount++
	t.entries[name] = sym
	return sym
}

// Find resolves a symbol by its table-local index, searching this
// table's entries first and then walking outward, mirroring the
// reference's SymbolTable::find.
func (t *Table) Find(tableIndex int) (Symbol, bool) {
	for _, sym := range t.entries {
		if sym.TableIndex == tableIndex {
			return sym, true
		}
	}
	if t.Outer != nil {
		return t.Outer.Find(tableIndex)
	}
	return Symbol{}, false
}

// LookupStructLayout implements pkg/layout.StructLookup so the Layout
// Engine can resolve a field type that is itself a previously declared
// struct, without pkg/layout depending on this package.
func (t *Table) LookupStructLayout(name string) (*layout.StructLayout, bool) {
	sym, ok := t.Get(name)
	if !ok || sym.Kind != KindStruct {
		return nil, false
	}
	return sym.StructLayout, true
}

// Snapshot returns the live symbols currently defined directly in this
// table (not outer scopes), used by the Lowering Engine's scope-exit
// release pass (spec.md §4.5: "every GC-needing value symbol defined in
// the exiting frame").
func (t *Table) Snapshot() []Symbol {
	out := make([]Symbol, 0, len(t.entries))
	for _, sym := range t.entries {
		out = append(out, sym)
	}
	return out
}
