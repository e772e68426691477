// Package objemit is the Object Emitter: it realizes pkg/ssa's Module
// contract into a concrete AArch64 assembly listing, the last stage the
// reference's Cranelift backend reaches internally (codegen + object
// emission) and the teacher's own asm/asmgen/mach/regalloc/stacking
// pipeline reaches across several IRs.
//
// Grounded on _examples/raymyers-ralph-cc-go/pkg/asm/ast.go for the
// instruction set and MReg/register-constant shape, trimmed to the
// subset pkg/ssa's Lowering Engine actually emits (integer arithmetic,
// comparisons, loads/stores, direct/indirect calls, unconditional and
// conditional branches — no floating point, no SIMD, no jump tables).
package objemit

// MReg is a physical AArch64 machine register.
type MReg int

const (
	X0 MReg = iota
	X1
	X2
	X3
	X4
	X5
	X6
	X7
	X8
	X9
	X10
	X11
	X12
	X13
	X14
	X15
	X16
	X17
	X18
	X19
	X20 // emitter scratch: reloading spilled operands
	X21 // emitter scratch: spilled destinations
	X29  // frame pointer
	X30  // link register
	SP
	XZR // hardware zero register
)

func (r MReg) String() string {
	switch r {
	case X29:
		return "x29"
	case X30:
		return "x30"
	case SP:
		return "sp"
	case XZR:
		return "xzr"
	default:
		return "x" + itoa(int(r))
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Label is a branch target within one function's code.
type Label int

// CondCode is an AArch64 condition code, the subset Icmp/Brif lowering
// produces.
type CondCode int

const (
	CondEQ CondCode = iota
	CondNE
	CondLT
	CondLE
	CondGT
	CondGE
)

func (c CondCode) String() string {
	names := [...]string{"eq", "ne", "lt", "le", "gt", "ge"}
	if int(c) < len(names) {
		return names[c]
	}
	return "?"
}

// Instruction is the marker interface every AArch64 instruction struct
// implements, mirroring the teacher's pkg/asm.Instruction.
type Instruction interface {
	implInstruction()
}

// ADDi computes Rd = Rn + Imm.
type ADDi struct {
	Rd, Rn MReg
	Imm    int64
}

// SUBi computes Rd = Rn - Imm.
type SUBi struct {
	Rd, Rn MReg
	Imm    int64
}

// MUL computes Rd = Rn * Rm.
type MUL struct{ Rd, Rn, Rm MReg }

// SDIV computes Rd = Rn / Rm (signed).
type SDIV struct{ Rd, Rn, Rm MReg }

// ADD computes Rd = Rn + Rm.
type ADD struct{ Rd, Rn, Rm MReg }

// SUB computes Rd = Rn - Rm.
type SUB struct{ Rd, Rn, Rm MReg }

// CMP compares Rn against Rm, setting flags for a following CSET/Bcond.
type CMP struct{ Rn, Rm MReg }

// CSET sets Rd to 1 if Cond holds, 0 otherwise.
type CSET struct {
	Rd   MReg
	Cond CondCode
}

// MOV copies Rm into Rd.
type MOV struct{ Rd, Rm MReg }

// MOVi loads a small immediate into Rd.
type MOVi struct {
	Rd  MReg
	Imm int64
}

// LDR loads the 8 bytes at [Rn, #Ofs] into Rt.
type LDR struct {
	Rt, Rn MReg
	Ofs    int64
}

// STR stores Rt to [Rn, #Ofs].
type STR struct {
	Rt, Rn MReg
	Ofs    int64
}

// ADR computes the PC-relative address of Target into Rd (used for
// function and data symbol addresses; near-address form only, matching
// this emitter's single-object-file scope).
type ADR struct {
	Rd     MReg
	Target string
}

// B is an unconditional jump to Target.
type B struct{ Target Label }

// Bcond is a conditional jump to Target.
type Bcond struct {
	Cond   CondCode
	Target Label
}

// BL calls a symbol directly.
type BL struct{ Target string }

// BLR calls through a register.
type BLR struct{ Rn MReg }

// RET returns to the link register.
type RET struct{}

// LabelDef marks a branch target in the instruction stream.
type LabelDef struct{ L Label }

func (ADDi) implInstruction()     {}
func (SUBi) implInstruction()     {}
func (MUL) implInstruction()      {}
func (SDIV) implInstruction()     {}
func (ADD) implInstruction()      {}
func (SUB) implInstruction()      {}
func (CMP) implInstruction()      {}
func (CSET) implInstruction()     {}
func (MOV) implInstruction()      {}
func (MOVi) implInstruction()     {}
func (LDR) implInstruction()      {}
func (STR) implInstruction()      {}
func (ADR) implInstruction()      {}
func (B) implInstruction()        {}
func (Bcond) implInstruction()    {}
func (BL) implInstruction()       {}
func (BLR) implInstruction()      {}
func (RET) implInstruction()      {}
func (LabelDef) implInstruction() {}

// Function is one emitted function: its name, generated code, and the
// stack frame size its prologue reserves.
type Function struct {
	Name      string
	Code      []Instruction
	FrameSize int64
}

// Data is an emitted data symbol (the string pool, global initializers).
type Data struct {
	Name string
	Init []byte
}

// Program is the complete output of one compilation unit.
type Program struct {
	Functions []Function
	Data      []Data
	Imports   []string // extern symbols referenced but not defined here
}
