package objemit

import (
	"sort"

	"github.com/arclang/arcc/pkg/ssa"
)

// pool is the fixed set of general-purpose registers this emitter hands
// out to SSA values. X0-X7 are reserved for argument passing and the
// return value (spec.md's runtime ABI, SystemV/fastcall alike all use a
// register-argument window this size or larger); X8 is not handed out;
// X20/X21 are the emitter's own scratch registers for spilled operands
// and destinations (asm.go); X29/X30/SP are the frame pointer, link
// register, and stack pointer. What's
// left (X9-X19) is genuinely available for value allocation — a much
// smaller working set than the teacher's full AArch64 register file,
// traded for a linear-scan allocator simple enough to reason about
// without a full interference graph (see DESIGN.md's Open Question
// decision on register allocation fidelity).
var pool = []MReg{X9, X10, X11, X12, X13, X14, X15, X16, X17, X18, X19}

// Loc is where a Value lives after allocation: either a register or a
// spill slot (a byte offset into the frame's spill area).
type Loc struct {
	Reg     MReg
	Spilled bool
	Slot    int64
}

// Allocation is one function's linear-scan result.
type Allocation struct {
	ValueLoc map[ssa.Value]Loc
	SpillSize int64 // total bytes of spill area, 8-byte slots
}

type interval struct {
	val        ssa.Value
	start, end int
}

// point numbers every instruction (and every block's parameter-binding
// position) in block order, giving a flat program-point axis a
// structured, non-looping SSA body can run linear scan over directly —
// the same simplifying assumption CompCert's own allocator documentation
// notes is valid for reducible control flow (spec.md's while/if forms
// never produce irreducible loops).
func programPoints(fn *ssa.Function) (defAt map[ssa.Value]int, useAt map[ssa.Value][]int) {
	defAt = make(map[ssa.Value]int)
	useAt = make(map[ssa.Value][]int)
	p := 0
	for _, bd := range fn.Blocks {
		for _, param := range bd.Params {
			defAt[param] = p
			p++
		}
		for _, inst := range bd.Insts {
			if dest := inst.Result(); dest >= 0 {
				defAt[dest] = p
			}
			for _, use := range operandsOf(inst) {
				useAt[use] = append(useAt[use], p)
			}
			p++
		}
	}
	return defAt, useAt
}

// operandsOf returns every Value an instruction reads, independent of
// its concrete opcode shape.
func operandsOf(inst ssa.Instruction) []ssa.Value {
	switch i := inst.(type) {
	case ssa.Iadd:
		return []ssa.Value{i.Lhs, i.Rhs}
	case ssa.Isub:
		return []ssa.Value{i.Lhs, i.Rhs}
	case ssa.Imul:
		return []ssa.Value{i.Lhs, i.Rhs}
	case ssa.Isdiv:
		return []ssa.Value{i.Lhs, i.Rhs}
	case ssa.Icmp:
		return []ssa.Value{i.Lhs, i.Rhs}
	case ssa.Load:
		return []ssa.Value{i.Addr}
	case ssa.Store:
		return []ssa.Value{i.Addr, i.Src}
	case ssa.Call:
		out := append([]ssa.Value{i.Callee}, i.Args...)
		return out
	case ssa.CallIndirect:
		out := append([]ssa.Value{i.Callee}, i.Args...)
		return out
	case ssa.Jump:
		return i.BlockArgs
	case ssa.Brif:
		out := []ssa.Value{i.Cond}
		out = append(out, i.TrueArgs...)
		out = append(out, i.FalseArgs...)
		return out
	case ssa.Return:
		if i.HasValue {
			return []ssa.Value{i.Val}
		}
		return nil
	default:
		return nil
	}
}

// Allocate runs linear-scan register allocation over fn, assigning every
// Value it defines either a register from pool or a spill slot.
func Allocate(fn *ssa.Function) *Allocation {
	defAt, useAt := programPoints(fn)

	intervals := make([]*interval, 0, len(defAt))
	for val, start := range defAt {
		end := start
		for _, u := range useAt[val] {
			if u > end {
				end = u
			}
		}
		intervals = append(intervals, &interval{val: val, start: start, end: end})
	}
	sort.Slice(intervals, func(i, j int) bool {
		if intervals[i].start != intervals[j].start {
			return intervals[i].start < intervals[j].start
		}
		return intervals[i].val < intervals[j].val
	})

	alloc := &Allocation{ValueLoc: make(map[ssa.Value]Loc, len(intervals))}

	type active struct {
		iv  *interval
		reg MReg
	}
	var actives []active
	free := append([]MReg(nil), pool...)
	var nextSlot int64

	expireBefore := func(start int) {
		kept := actives[:0]
		for _, a := range actives {
			if a.iv.end < start {
				free = append(free, a.reg)
			} else {
				kept = append(kept, a)
			}
		}
		actives = kept
	}

	for _, iv := range intervals {
		expireBefore(iv.start)

		if len(free) > 0 {
			reg := free[len(free)-1]
			free = free[:len(free)-1]
			actives = append(actives, active{iv: iv, reg: reg})
			alloc.ValueLoc[iv.val] = Loc{Reg: reg}
			continue
		}

		// Spill the active interval with the furthest-away end point —
		// classic linear-scan spill heuristic — unless iv itself ends
		// sooner, in which case iv is the one spilled.
		spillIdx := -1
		for idx, a := range actives {
			if spillIdx == -1 || a.iv.end > actives[spillIdx].iv.end {
				spillIdx = idx
			}
		}
		if spillIdx != -1 && actives[spillIdx].iv.end > iv.end {
			victim := actives[spillIdx]
			alloc.ValueLoc[victim.iv.val] = Loc{Spilled: true, Slot: nextSlot}
			nextSlot += 8
			actives[spillIdx] = active{iv: iv, reg: victim.reg}
			alloc.ValueLoc[iv.val] = Loc{Reg: victim.reg}
		} else {
			alloc.ValueLoc[iv.val] = Loc{Spilled: true, Slot: nextSlot}
			nextSlot += 8
		}
	}

	alloc.SpillSize = nextSlot
	return alloc
}
