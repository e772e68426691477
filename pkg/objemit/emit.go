package objemit

import (
	"fmt"

	"github.com/arclang/arcc/pkg/compileerr"
	"github.com/arclang/arcc/pkg/ssa"
)

// argRegs is the fixed register window arguments arrive/depart in,
// shared by every calling convention pkg/runtimeabi selects (SystemV,
// fastcall, and AppleAarch64 all pass the first eight integer arguments
// in registers); anything past 8 arguments is out of scope for this
// emitter, matching the instruction set's scratch-register budget.
var argRegs = []MReg{X0, X1, X2, X3, X4, X5, X6, X7}

const retReg = X0

// Emit lowers every function and data symbol in mod into a Program of
// concrete AArch64 instructions.
func Emit(mod *ssa.Module) (*Program, error) {
	prog := &Program{}
	for name := range mod.FunctionMap {
		if !isImportOnly(mod, name) {
			continue
		}
		prog.Imports = append(prog.Imports, name)
	}
	for _, d := range mod.Data {
		prog.Data = append(prog.Data, Data{Name: d.Name, Init: d.Init})
	}
	for _, fn := range mod.Functions {
		ef, err := emitFunction(mod, fn)
		if err != nil {
			return nil, err
		}
		prog.Functions = append(prog.Functions, *ef)
	}
	return prog, nil
}

func isImportOnly(mod *ssa.Module, name string) bool {
	for _, fn := range mod.Functions {
		if fn.Name == name {
			return false
		}
	}
	return true
}

type funcEmitter struct {
	mod   *ssa.Module
	fn    *ssa.Function
	alloc *Allocation
	frame *FrameLayout
	code  []Instruction
	// blockLabel maps an ssa.Block to the Label its code begins at.
	blockLabel map[ssa.Block]Label
	nextLabel  Label
}

func emitFunction(mod *ssa.Module, fn *ssa.Function) (*Function, error) {
	alloc := Allocate(fn)
	frame := ComputeFrame(alloc)

	fe := &funcEmitter{
		mod:        mod,
		fn:         fn,
		alloc:      alloc,
		frame:      frame,
		blockLabel: make(map[ssa.Block]Label),
	}
	for b := range fn.Blocks {
		fe.blockLabel[ssa.Block(b)] = fe.newLabel()
	}

	fe.emitPrologue()
	for b, bd := range fn.Blocks {
		fe.emit(LabelDef{L: fe.blockLabel[ssa.Block(b)]})
		fe.bindBlockParams(ssa.Block(b))
		for _, inst := range bd.Insts {
			if err := fe.emitInst(inst); err != nil {
				return nil, err
			}
		}
	}

	return &Function{Name: fn.Name, Code: fe.code, FrameSize: frame.TotalSize + saveAreaLen}, nil
}

func (fe *funcEmitter) newLabel() Label {
	l := fe.nextLabel
	fe.nextLabel++
	return l
}

func (fe *funcEmitter) emit(inst Instruction) {
	fe.code = append(fe.code, inst)
}

func (fe *funcEmitter) emitPrologue() {
	total := fe.frame.TotalSize
	fe.emit(SUBi{Rd: SP, Rn: SP, Imm: total + saveAreaLen})
	fe.emit(STR{Rt: X29, Rn: SP, Ofs: total})
	fe.emit(STR{Rt: X30, Rn: SP, Ofs: total + 8})
	fe.emit(ADDi{Rd: X29, Rn: SP, Imm: total})
}

func (fe *funcEmitter) emitEpilogue() {
	total := fe.frame.TotalSize
	fe.emit(LDR{Rt: X29, Rn: SP, Ofs: total})
	fe.emit(LDR{Rt: X30, Rn: SP, Ofs: total + 8})
	fe.emit(ADDi{Rd: SP, Rn: SP, Imm: total + saveAreaLen})
	fe.emit(RET{})
}

// bindBlockParams loads each block parameter's incoming value into its
// allocated location. Entry-block parameters arrive in argRegs; every
// other block's parameters arrive through whatever Jump/Brif passed as
// BlockArgs, already materialized into the matching location by the
// predecessor (loadOperand/storeDest below make this a no-op copy when
// source and destination coincide, which the linear-scan allocator's
// contiguous-interval assignment makes the common case).
func (fe *funcEmitter) bindBlockParams(b ssa.Block) {
	if int(b) != 0 {
		return
	}
	for i, param := range fe.fn.Blocks[b].Params {
		if i >= len(argRegs) {
			break
		}
		fe.storeDest(param, argRegs[i])
	}
}

// loadOperand materializes val into scratch (X20 or X21), or returns its
// home register directly when it isn't spilled.
func (fe *funcEmitter) loadOperand(val ssa.Value, scratch MReg) MReg {
	loc := fe.alloc.ValueLoc[val]
	if !loc.Spilled {
		return loc.Reg
	}
	fe.emit(LDR{Rt: scratch, Rn: X29, Ofs: fe.frame.SlotAddr(loc.Slot)})
	return scratch
}

// storeDest writes src into val's home location, spilling if needed.
func (fe *funcEmitter) storeDest(val ssa.Value, src MReg) {
	loc := fe.alloc.ValueLoc[val]
	if loc.Spilled {
		fe.emit(STR{Rt: src, Rn: X29, Ofs: fe.frame.SlotAddr(loc.Slot)})
		return
	}
	if loc.Reg != src {
		fe.emit(MOV{Rd: loc.Reg, Rm: src})
	}
}

func (fe *funcEmitter) destReg(val ssa.Value) MReg {
	loc := fe.alloc.ValueLoc[val]
	if loc.Spilled {
		return X21
	}
	return loc.Reg
}

func (fe *funcEmitter) finishDest(val ssa.Value) {
	loc := fe.alloc.ValueLoc[val]
	if loc.Spilled {
		fe.emit(STR{Rt: X21, Rn: X29, Ofs: fe.frame.SlotAddr(loc.Slot)})
	}
}

func (fe *funcEmitter) emitInst(inst ssa.Instruction) error {
	switch i := inst.(type) {
	case ssa.Iconst:
		d := fe.destReg(i.Dest)
		fe.emit(MOVi{Rd: d, Imm: i.Imm})
		fe.finishDest(i.Dest)
	case ssa.Iadd:
		lhs := fe.loadOperand(i.Lhs, X20)
		rhs := fe.loadOperand(i.Rhs, X21)
		d := fe.destReg(i.Dest)
		fe.emit(ADD{Rd: d, Rn: lhs, Rm: rhs})
		fe.finishDest(i.Dest)
	case ssa.Isub:
		lhs := fe.loadOperand(i.Lhs, X20)
		rhs := fe.loadOperand(i.Rhs, X21)
		d := fe.destReg(i.Dest)
		fe.emit(SUB{Rd: d, Rn: lhs, Rm: rhs})
		fe.finishDest(i.Dest)
	case ssa.Imul:
		lhs := fe.loadOperand(i.Lhs, X20)
		rhs := fe.loadOperand(i.Rhs, X21)
		d := fe.destReg(i.Dest)
		fe.emit(MUL{Rd: d, Rn: lhs, Rm: rhs})
		fe.finishDest(i.Dest)
	case ssa.Isdiv:
		lhs := fe.loadOperand(i.Lhs, X20)
		rhs := fe.loadOperand(i.Rhs, X21)
		d := fe.destReg(i.Dest)
		fe.emit(SDIV{Rd: d, Rn: lhs, Rm: rhs})
		fe.finishDest(i.Dest)
	case ssa.Icmp:
		lhs := fe.loadOperand(i.Lhs, X20)
		rhs := fe.loadOperand(i.Rhs, X21)
		fe.emit(CMP{Rn: lhs, Rm: rhs})
		d := fe.destReg(i.Dest)
		fe.emit(CSET{Rd: d, Cond: condOf(i.Cond)})
		fe.finishDest(i.Dest)
	case ssa.Load:
		addr := fe.loadOperand(i.Addr, X20)
		d := fe.destReg(i.Dest)
		fe.emit(LDR{Rt: d, Rn: addr, Ofs: int64(i.Offset)})
		fe.finishDest(i.Dest)
	case ssa.Store:
		addr := fe.loadOperand(i.Addr, X20)
		src := fe.loadOperand(i.Src, X21)
		fe.emit(STR{Rt: src, Rn: addr, Ofs: int64(i.Offset)})
	case ssa.Call:
		if err := fe.emitArgs(i.Args); err != nil {
			return err
		}
		target, err := fe.calleeSymbol(i.Callee)
		if err != nil {
			return err
		}
		fe.emit(BL{Target: target})
		fe.storeDest(i.Dest, retReg)
	case ssa.CallIndirect:
		if err := fe.emitArgs(i.Args); err != nil {
			return err
		}
		callee := fe.loadOperand(i.Callee, X20)
		fe.emit(BLR{Rn: callee})
		fe.storeDest(i.Dest, retReg)
	case ssa.Jump:
		fe.emitBlockArgs(i.Target, i.BlockArgs)
		fe.emit(B{Target: fe.blockLabel[i.Target]})
	case ssa.Brif:
		cond := fe.loadOperand(i.Cond, X20)
		fe.emit(CMP{Rn: cond, Rm: XZR})
		fe.emitBlockArgs(i.IfTrue, i.TrueArgs)
		fe.emit(Bcond{Cond: CondNE, Target: fe.blockLabel[i.IfTrue]})
		fe.emitBlockArgs(i.IfFalse, i.FalseArgs)
		fe.emit(B{Target: fe.blockLabel[i.IfFalse]})
	case ssa.Return:
		if i.HasValue {
			val := fe.loadOperand(i.Val, X20)
			if val != retReg {
				fe.emit(MOV{Rd: retReg, Rm: val})
			}
		}
		fe.emitEpilogue()
	case ssa.FuncAddr:
		sym, err := fe.funcSymbolName(i.Ref)
		if err != nil {
			return err
		}
		d := fe.destReg(i.Dest)
		fe.emit(ADR{Rd: d, Target: sym})
		fe.finishDest(i.Dest)
	case ssa.GlobalValue:
		sym, err := fe.dataSymbolName(i.Ref)
		if err != nil {
			return err
		}
		d := fe.destReg(i.Dest)
		fe.emit(ADR{Rd: d, Target: sym})
		fe.finishDest(i.Dest)
	default:
		return compileerr.New(compileerr.InternalInvariant, "objemit: unhandled instruction %T", inst)
	}
	return nil
}

func (fe *funcEmitter) emitArgs(args []ssa.Value) error {
	if len(args) > len(argRegs) {
		return compileerr.New(compileerr.InternalInvariant, "objemit: call with %d arguments exceeds the %d-register argument window", len(args), len(argRegs))
	}
	for i, a := range args {
		v := fe.loadOperand(a, X20)
		if v != argRegs[i] {
			fe.emit(MOV{Rd: argRegs[i], Rm: v})
		}
	}
	return nil
}

func (fe *funcEmitter) emitBlockArgs(target ssa.Block, args []ssa.Value) {
	params := fe.fn.Blocks[target].Params
	for i, a := range args {
		if i >= len(params) {
			break
		}
		v := fe.loadOperand(a, X20)
		fe.storeDest(params[i], v)
	}
}

func (fe *funcEmitter) calleeSymbol(callee ssa.Value) (string, error) {
	// The Lowering Engine always routes a direct call through a prior
	// FuncAddr of the same Value, so the callee symbol is recovered by
	// re-resolving whichever FuncRef that FuncAddr materialized.
	for _, bd := range fe.fn.Blocks {
		for _, inst := range bd.Insts {
			if fa, ok := inst.(ssa.FuncAddr); ok && fa.Dest == callee {
				return fe.funcSymbolName(fa.Ref)
			}
		}
	}
	return "", compileerr.New(compileerr.InternalInvariant, "objemit: call callee %d has no preceding FuncAddr", callee)
}

func (fe *funcEmitter) funcSymbolName(ref ssa.FuncRef) (string, error) {
	for name, r := range fe.mod.FunctionMap {
		if r == ref {
			return name, nil
		}
	}
	return "", compileerr.New(compileerr.InternalInvariant, "objemit: unresolved func ref %d", ref)
}

func (fe *funcEmitter) dataSymbolName(ref ssa.DataRef) (string, error) {
	for name, r := range fe.mod.DataMap {
		if r == ref {
			return name, nil
		}
	}
	return "", compileerr.New(compileerr.InternalInvariant, "objemit: unresolved data ref %d", ref)
}

func condOf(c ssa.Cond) CondCode {
	switch c {
	case ssa.CondEq:
		return CondEQ
	case ssa.CondNe:
		return CondNE
	case ssa.CondLt:
		return CondLT
	case ssa.CondLe:
		return CondLE
	case ssa.CondGt:
		return CondGT
	case ssa.CondGe:
		return CondGE
	default:
		panic(fmt.Sprintf("objemit: unknown cond %v", c))
	}
}
