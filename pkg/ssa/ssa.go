// Package ssa is the contract the Lowering Engine drives to produce
// machine code: blocks, instructions, values, and a Module that finishes
// into an assembly listing. In the reference implementation this
// contract is Cranelift's FunctionBuilder/Module/Variable API reached
// through an FFI binding; here it is an in-repo package the rest of the
// Core treats exactly as it would an external collaborator — nothing
// outside pkg/ssa and pkg/objemit ever reaches into a Function's
// instruction list directly.
//
// Grounded on original_source/ant_cranelift_compiler-master's use of
// cranelift::prelude::{FunctionBuilder, InstBuilder, Variable} for the
// verb set (block creation/sealing, use_var/def_var, iconst/call/brif/
// jump), and on the teacher's pkg/rtl/ast.go and pkg/linear/ast.go for
// the Go shape of an instruction-sum-type IR: one exported type per
// opcode behind a marker interface, plus a printer.
package ssa

import "fmt"

// Value names the result of an instruction within a Function, dense and
// monotonically increasing from zero.
type Value int

// Block identifies a basic block within a Function.
type Block int

// Var is a dense variable slot, keyed by the symbol table's var_index so
// the Lowering Engine never has to maintain its own separate numbering.
type Var int

// FuncRef identifies a callee, either one of the Module's own Functions
// or an imported external symbol, resolvable at Emit time.
type FuncRef int

// DataRef identifies a Module-level data symbol (string constants,
// globals).
type DataRef int

// Cond is an integer comparison condition for Icmp/Brif.
type Cond int

const (
	CondEq Cond = iota
	CondNe
	CondLt
	CondLe
	CondGt
	CondGe
)

func (c Cond) String() string {
	switch c {
	case CondEq:
		return "eq"
	case CondNe:
		return "ne"
	case CondLt:
		return "lt"
	case CondLe:
		return "le"
	case CondGt:
		return "gt"
	case CondGe:
		return "ge"
	default:
		return "?"
	}
}

// Instruction is the marker interface every opcode struct implements,
// mirroring the teacher's pkg/rtl.Instruction / pkg/linear.Instruction.
type Instruction interface {
	implInstruction()
	// Result reports the Value this instruction defines, or -1 if it
	// defines none (stores, jumps, returns).
	Result() Value
}

// instBase carries the defined Value (or -1) shared by every variant.
type instBase struct {
	Dest Value
}

func (b instBase) Result() Value { return b.Dest }

// Iconst materializes an integer constant: Dest = Imm.
type Iconst struct {
	instBase
	Imm int64
}

// Iadd computes Dest = Lhs + Rhs.
type Iadd struct {
	instBase
	Lhs, Rhs Value
}

// Isub computes Dest = Lhs - Rhs.
type Isub struct {
	instBase
	Lhs, Rhs Value
}

// Imul computes Dest = Lhs * Rhs.
type Imul struct {
	instBase
	Lhs, Rhs Value
}

// Isdiv computes Dest = Lhs / Rhs using signed division.
type Isdiv struct {
	instBase
	Lhs, Rhs Value
}

// Icmp computes Dest = (Lhs Cond Rhs), a boolean-width result.
type Icmp struct {
	instBase
	Cond     Cond
	Lhs, Rhs Value
}

// Load reads PointerWidth-agnostic memory: Dest = Mem[Addr + Offset].
type Load struct {
	instBase
	Addr   Value
	Offset int32
}

// Store writes memory: Mem[Addr + Offset] = Src. Defines no Value.
type Store struct {
	Addr   Value
	Offset int32
	Src    Value
}

func (Store) implInstruction() {}
func (Store) Result() Value    { return -1 }

// Call invokes a statically known FuncRef: Dest = Callee(Args...).
type Call struct {
	instBase
	Callee Value
	Args   []Value
}

// CallIndirect invokes a callee computed at runtime (a function
// pointer held in a Value — the struct-method and closure call path).
type CallIndirect struct {
	instBase
	Callee Value
	Args   []Value
}

// Jump transfers control unconditionally to Target, passing BlockArgs
// for the target's block parameters (the mechanism If-expression
// results flow through, mirroring Cranelift's block-parameter-as-phi
// convention).
type Jump struct {
	Target    Block
	BlockArgs []Value
}

func (Jump) implInstruction() {}
func (Jump) Result() Value    { return -1 }

// Brif branches to IfTrue when Cond is non-zero, IfFalse otherwise.
type Brif struct {
	Cond             Value
	IfTrue, IfFalse  Block
	TrueArgs, FalseArgs []Value
}

func (Brif) implInstruction() {}
func (Brif) Result() Value    { return -1 }

// Return exits the function, optionally carrying a value.
type Return struct {
	HasValue bool
	Val      Value
}

func (Return) implInstruction() {}
func (Return) Result() Value    { return -1 }

// FuncAddr materializes the address of a FuncRef as a Value, the
// mechanism indirect/struct-method calls and function-valued
// expressions use to get a callable pointer.
type FuncAddr struct {
	instBase
	Ref FuncRef
}

// GlobalValue materializes the address of a DataRef as a Value.
type GlobalValue struct {
	instBase
	Ref DataRef
}

func (Iconst) implInstruction()      {}
func (Iadd) implInstruction()        {}
func (Isub) implInstruction()        {}
func (Imul) implInstruction()        {}
func (Isdiv) implInstruction()       {}
func (Icmp) implInstruction()        {}
func (Load) implInstruction()        {}
func (Call) implInstruction()        {}
func (CallIndirect) implInstruction() {}
func (FuncAddr) implInstruction()    {}
func (GlobalValue) implInstruction() {}

// BlockData holds one basic block's parameters and its straight-line
// instruction sequence, always ending in Jump/Brif/Return once the
// Function reaches BodyBuilding or later.
type BlockData struct {
	Params []Value
	Insts  []Instruction
	sealed bool
}

// RuntimeRefs names the three imported ARC intrinsics every Module
// carries, resolved once per Module rather than re-imported per call
// site.
type RuntimeRefs struct {
	Alloc   FuncRef
	Retain  FuncRef
	Release FuncRef
}

// Function is one compiled function body: its Blocks, the dense Var
// slots the Builder allocates values for, and the state machine spec.md
// §4.4 names.
type Function struct {
	Name    string
	Sig     FuncSig
	Blocks  []BlockData
	numVars int
	state   funcState
}

// FuncSig is a Function's calling signature as seen by the emitter:
// argument/return widths in bytes, not the full types.Type lattice
// (pkg/lower computes this from the symbol table's types.Func).
type FuncSig struct {
	ParamWidths []int
	RetWidth    int // 0 for unit
	Variadic    bool
}

type funcState int

const (
	stateDeclaring funcState = iota
	stateBodyBuilding
	stateFinalized
)

func (s funcState) String() string {
	switch s {
	case stateDeclaring:
		return "declaring"
	case stateBodyBuilding:
		return "body-building"
	case stateFinalized:
		return "finalized"
	default:
		return "?"
	}
}

// Data is a Module-level constant blob (the string pool, global
// initializers).
type Data struct {
	Name string
	Init []byte
}

// Module owns every Function and Data symbol produced by one
// compilation unit, plus the imported runtime intrinsics the Lowering
// Engine's ARC sequencing calls into.
type Module struct {
	Functions   []*Function
	Data        []*Data
	FunctionMap map[string]FuncRef
	DataMap     map[string]DataRef
	Runtime     RuntimeRefs
	imports     map[string]bool
}

// NewModule creates an empty Module with the three ARC runtime
// functions pre-imported, matching the reference's eager
// declare_runtime_functions call at module-build time.
func NewModule() *Module {
	m := &Module{
		FunctionMap: make(map[string]FuncRef),
		DataMap:     make(map[string]DataRef),
		imports:     make(map[string]bool),
	}
	m.Runtime = RuntimeRefs{
		Alloc:   m.ImportFunction("__obj_alloc"),
		Retain:  m.ImportFunction("__obj_retain"),
		Release: m.ImportFunction("__obj_release"),
	}
	return m
}

// DeclareFunction registers a new Function in the Declaring state and
// returns its FuncRef, mirroring Cranelift's Module::declare_function.
func (m *Module) DeclareFunction(name string, sig FuncSig) (*Function, FuncRef) {
	f := &Function{Name: name, Sig: sig, state: stateDeclaring}
	m.Functions = append(m.Functions, f)
	ref := FuncRef(len(m.FunctionMap) + len(m.imports))
	m.FunctionMap[name] = ref
	return f, ref
}

// ImportFunction registers an external symbol (the runtime ARC calls,
// or a declared `extern` from the typed tree) without a Function body.
func (m *Module) ImportFunction(name string) FuncRef {
	if ref, ok := m.FunctionMap[name]; ok {
		return ref
	}
	ref := FuncRef(len(m.FunctionMap) + len(m.imports))
	m.FunctionMap[name] = ref
	m.imports[name] = true
	return ref
}

// DeclareData registers a Module-level data symbol and returns its
// DataRef.
func (m *Module) DeclareData(name string, init []byte) DataRef {
	if ref, ok := m.DataMap[name]; ok {
		return ref
	}
	d := &Data{Name: name, Init: init}
	m.Data = append(m.Data, d)
	ref := DataRef(len(m.DataMap))
	m.DataMap[name] = ref
	return ref
}

// FuncRefByName reports the FuncRef for a previously declared or
// imported name, used by indirect-call lowering and struct-method
// call-site rewriting (method names are mangled to "{Struct}__{method}"
// before this lookup ever happens, so this function never needs to know
// about structs).
func (m *Module) FuncRefByName(name string) (FuncRef, bool) {
	ref, ok := m.FunctionMap[name]
	return ref, ok
}

func (f *Function) String() string {
	return fmt.Sprintf("function %s (%d blocks, %s)", f.Name, len(f.Blocks), f.state)
}
