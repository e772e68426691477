package ssa

import "github.com/arclang/arcc/pkg/compileerr"

// Builder assembles one Function's body. One Builder is created per
// function lowered, mirroring Cranelift's FunctionBuilder lifecycle:
// CreateBlock/SwitchToBlock/SealBlock/DeclareVar/DefVar/UseVar during
// BodyBuilding, then Finalize moves the Function to Finalized and the
// Builder is discarded.
type Builder struct {
	fn        *Function
	cur       Block
	varDefs   map[Var]Value
	varBlocks map[Var]Block // which block last defined Var, for cross-block use_var diagnostics
	nextValue Value
}

// NewBuilder starts building fn's body, moving it from Declaring to
// BodyBuilding. Calling NewBuilder twice on the same Function, or on one
// already Finalized, is an internal invariant violation.
func NewBuilder(fn *Function) (*Builder, error) {
	if fn.state != stateDeclaring {
		return nil, compileerr.New(compileerr.InternalInvariant,
			"ssa: cannot begin building function %q in state %s", fn.Name, fn.state)
	}
	fn.state = stateBodyBuilding
	return &Builder{
		fn:        fn,
		cur:       -1,
		varDefs:   make(map[Var]Value),
		varBlocks: make(map[Var]Block),
	}, nil
}

func (b *Builder) requireBuilding() error {
	if b.fn.state != stateBodyBuilding {
		return compileerr.New(compileerr.InternalInvariant,
			"ssa: function %q is not in body-building state (got %s)", b.fn.Name, b.fn.state)
	}
	return nil
}

// CreateBlock appends a new, unsealed block and returns its id.
func (b *Builder) CreateBlock() (Block, error) {
	if err := b.requireBuilding(); err != nil {
		return -1, err
	}
	id := Block(len(b.fn.Blocks))
	b.fn.Blocks = append(b.fn.Blocks, BlockData{})
	return id, nil
}

// SwitchToBlock makes blk the target of subsequent instruction emission.
func (b *Builder) SwitchToBlock(blk Block) error {
	if err := b.requireBuilding(); err != nil {
		return err
	}
	if int(blk) < 0 || int(blk) >= len(b.fn.Blocks) {
		return compileerr.New(compileerr.InternalInvariant, "ssa: block %d out of range", blk)
	}
	b.cur = blk
	return nil
}

// SealBlock declares that every predecessor of blk is now known, the
// point at which Cranelift (and this package) can finish resolving
// use_var lookups into that block. Sealing an already-sealed block is an
// internal invariant violation — the same one-way transition guard
// spec.md's Declaring→BodyBuilding→Finalized names, applied per-block.
func (b *Builder) SealBlock(blk Block) error {
	if err := b.requireBuilding(); err != nil {
		return err
	}
	if int(blk) < 0 || int(blk) >= len(b.fn.Blocks) {
		return compileerr.New(compileerr.InternalInvariant, "ssa: block %d out of range", blk)
	}
	bd := &b.fn.Blocks[blk]
	if bd.sealed {
		return compileerr.New(compileerr.InternalInvariant, "ssa: block %d sealed twice", blk)
	}
	bd.sealed = true
	return nil
}

// DeclareVar reserves slot as a known dense variable. Slots are keyed by
// the symbol table's var_index, so declaration is idempotent: declaring
// the same slot twice is a no-op, matching how the Lowering Engine walks
// a function's symbols once per frame but may touch the same free
// variable from multiple call sites.
func (b *Builder) DeclareVar(slot Var) error {
	if err := b.requireBuilding(); err != nil {
		return err
	}
	if int(slot) >= b.fn.numVars {
		b.fn.numVars = int(slot) + 1
	}
	return nil
}

// DefVar records that slot now holds val in the current block.
func (b *Builder) DefVar(slot Var, val Value) error {
	if err := b.requireBuilding(); err != nil {
		return err
	}
	b.varDefs[slot] = val
	b.varBlocks[slot] = b.cur
	return nil
}

// UseVar reads slot's current value. A use before any DefVar in this
// function is an internal invariant violation: the Lowering Engine must
// never emit a read of an unbound local. pkg/lower binds only a nested
// function's own parameters and locals in its Builder, so reading a
// captured (Free) variable from an enclosing function ends in this error.
func (b *Builder) UseVar(slot Var) (Value, error) {
	val, ok := b.varDefs[slot]
	if !ok {
		return 0, compileerr.New(compileerr.InternalInvariant, "ssa: use of undefined var slot %d", slot)
	}
	return val, nil
}

func (b *Builder) alloc() Value {
	v := b.nextValue
	b.nextValue++
	return v
}

func (b *Builder) emit(inst Instruction) error {
	if err := b.requireBuilding(); err != nil {
		return err
	}
	if int(b.cur) < 0 {
		return compileerr.New(compileerr.InternalInvariant, "ssa: no current block selected")
	}
	bd := &b.fn.Blocks[b.cur]
	bd.Insts = append(bd.Insts, inst)
	return nil
}

// Iconst emits an integer constant and returns its Value.
func (b *Builder) Iconst(imm int64) (Value, error) {
	v := b.alloc()
	if err := b.emit(Iconst{instBase{v}, imm}); err != nil {
		return -1, err
	}
	return v, nil
}

// Iadd emits lhs + rhs.
func (b *Builder) Iadd(lhs, rhs Value) (Value, error) {
	v := b.alloc()
	if err := b.emit(Iadd{instBase{v}, lhs, rhs}); err != nil {
		return -1, err
	}
	return v, nil
}

// Isub emits lhs - rhs.
func (b *Builder) Isub(lhs, rhs Value) (Value, error) {
	v := b.alloc()
	if err := b.emit(Isub{instBase{v}, lhs, rhs}); err != nil {
		return -1, err
	}
	return v, nil
}

// Imul emits lhs * rhs.
func (b *Builder) Imul(lhs, rhs Value) (Value, error) {
	v := b.alloc()
	if err := b.emit(Imul{instBase{v}, lhs, rhs}); err != nil {
		return -1, err
	}
	return v, nil
}

// Isdiv emits signed lhs / rhs.
func (b *Builder) Isdiv(lhs, rhs Value) (Value, error) {
	v := b.alloc()
	if err := b.emit(Isdiv{instBase{v}, lhs, rhs}); err != nil {
		return -1, err
	}
	return v, nil
}

// Icmp emits a boolean comparison.
func (b *Builder) Icmp(cond Cond, lhs, rhs Value) (Value, error) {
	v := b.alloc()
	if err := b.emit(Icmp{instBase{v}, cond, lhs, rhs}); err != nil {
		return -1, err
	}
	return v, nil
}

// Load emits a memory read at addr+offset.
func (b *Builder) Load(addr Value, offset int32) (Value, error) {
	v := b.alloc()
	if err := b.emit(Load{instBase{v}, addr, offset}); err != nil {
		return -1, err
	}
	return v, nil
}

// Store emits a memory write at addr+offset. Defines no Value.
func (b *Builder) Store(addr Value, offset int32, src Value) error {
	return b.emit(Store{Addr: addr, Offset: offset, Src: src})
}

// Call emits a direct call through a FuncAddr-materialized callee.
func (b *Builder) Call(callee Value, args []Value) (Value, error) {
	v := b.alloc()
	if err := b.emit(Call{instBase{v}, callee, append([]Value(nil), args...)}); err != nil {
		return -1, err
	}
	return v, nil
}

// CallIndirect emits a call through a runtime-computed function pointer
// (struct-method and closure call sites).
func (b *Builder) CallIndirect(callee Value, args []Value) (Value, error) {
	v := b.alloc()
	if err := b.emit(CallIndirect{instBase{v}, callee, append([]Value(nil), args...)}); err != nil {
		return -1, err
	}
	return v, nil
}

// Jump emits an unconditional branch to target, passing blockArgs.
func (b *Builder) Jump(target Block, blockArgs []Value) error {
	return b.emit(Jump{Target: target, BlockArgs: append([]Value(nil), blockArgs...)})
}

// Brif emits a conditional branch.
func (b *Builder) Brif(cond Value, ifTrue Block, trueArgs []Value, ifFalse Block, falseArgs []Value) error {
	return b.emit(Brif{
		Cond: cond, IfTrue: ifTrue, IfFalse: ifFalse,
		TrueArgs: append([]Value(nil), trueArgs...), FalseArgs: append([]Value(nil), falseArgs...),
	})
}

// Return emits a function return, with or without a value.
func (b *Builder) Return(val Value, hasValue bool) error {
	return b.emit(Return{HasValue: hasValue, Val: val})
}

// FuncAddr emits the materialized address of ref as a callable Value.
func (b *Builder) FuncAddr(ref FuncRef) (Value, error) {
	v := b.alloc()
	if err := b.emit(FuncAddr{instBase{v}, ref}); err != nil {
		return -1, err
	}
	return v, nil
}

// GlobalValue emits the materialized address of a Data symbol.
func (b *Builder) GlobalValue(ref DataRef) (Value, error) {
	v := b.alloc()
	if err := b.emit(GlobalValue{instBase{v}, ref}); err != nil {
		return -1, err
	}
	return v, nil
}

// BlockParam adds a block parameter to blk and returns the Value it
// binds on entry — the mechanism If-expression results flow through
// (the reference's Cranelift append_block_param equivalent).
func (b *Builder) BlockParam(blk Block) (Value, error) {
	if err := b.requireBuilding(); err != nil {
		return -1, err
	}
	if int(blk) < 0 || int(blk) >= len(b.fn.Blocks) {
		return -1, compileerr.New(compileerr.InternalInvariant, "ssa: block %d out of range", blk)
	}
	v := b.alloc()
	b.fn.Blocks[blk].Params = append(b.fn.Blocks[blk].Params, v)
	return v, nil
}

// Finalize moves the Function from BodyBuilding to Finalized. Every
// block must be sealed first; an unsealed block at Finalize time means
// the Lowering Engine left a predecessor edge undeclared, which is an
// internal invariant violation rather than a recoverable lowering error.
func (b *Builder) Finalize() error {
	if err := b.requireBuilding(); err != nil {
		return err
	}
	for i := range b.fn.Blocks {
		if !b.fn.Blocks[i].sealed {
			return compileerr.New(compileerr.InternalInvariant, "ssa: block %d never sealed", i)
		}
	}
	b.fn.state = stateFinalized
	return nil
}
