// Package runtimeabi resolves the two platform-dependent facts the
// Lowering Engine needs before it can emit a single instruction: the
// calling convention an `extern "C"` declaration binds to, and the
// pointer width the type lattice's isize/usize/struct-layout math runs
// against. It also declares the three ARC runtime intrinsics every
// Module imports (spec.md §6).
//
// Grounded on original_source/ant_cranelift_compiler-master's
// compiler/constants.rs (a cfg-gated CALL_CONV constant selected at
// build time per target) and compiler/mod.rs's get_platform_width.
// Go has no package-level #[cfg] equivalent outside build tags, and
// this target is chosen at run time from a CLI flag rather than at Go
// build time, so both facts are expressed as ordinary functions instead
// of compile-time constants.
package runtimeabi

import "github.com/arclang/arcc/pkg/types"

// TargetISA is the target-ISA abstraction spec.md §6 requires the Core
// to query for pointer width and calling convention.
type TargetISA int

const (
	TargetAarch64Linux TargetISA = iota
	TargetAarch64Darwin
	TargetX86_64Windows
	TargetX86_64Linux
)

func (t TargetISA) goos() string {
	switch t {
	case TargetAarch64Darwin:
		return "darwin"
	case TargetX86_64Windows:
		return "windows"
	default:
		return "linux"
	}
}

// CallConv reports the C calling convention name for a target's GOOS,
// spec.md §6's platform table: Windows uses fastcall, Linux SystemV,
// macOS AppleAarch64, anything else falls back to SystemV.
func CallConv(goos string) string {
	switch goos {
	case "windows":
		return "fastcall"
	case "darwin":
		return "aarch64"
	case "linux":
		return "systemv"
	default:
		return "systemv"
	}
}

// PointerWidth reports target's pointer width in bytes. Every target in
// the enum above is a 64-bit platform; the method exists so callers
// never hardcode the width and a 32-bit target can be added without
// touching every call site.
func (t TargetISA) PointerWidth() int {
	return 8
}

// CallConv reports t's calling convention, derived from its GOOS.
func (t TargetISA) CallConv() string {
	return CallConv(t.goos())
}

// RuntimeFunc describes one imported runtime intrinsic's signature, in
// the same param/ret-width shape pkg/ssa.FuncSig uses.
type RuntimeFunc struct {
	Name        string
	ParamWidths []int
	RetWidth    int // 0 for unit/void
}

// Declarations returns the three runtime intrinsics spec.md §6 names,
// sized for a pointerWidth-byte target: __obj_alloc(size) -> pointer,
// __obj_retain(p), __obj_release(p).
func Declarations(pointerWidth int) [3]RuntimeFunc {
	return [3]RuntimeFunc{
		{Name: "__obj_alloc", ParamWidths: []int{pointerWidth}, RetWidth: pointerWidth},
		{Name: "__obj_retain", ParamWidths: []int{pointerWidth}, RetWidth: 0},
		{Name: "__obj_release", ParamWidths: []int{pointerWidth}, RetWidth: 0},
	}
}

// WidthOf reports t's size in bytes for the given target, delegating to
// the type lattice's own pointer-width-aware sizing for ISize/USize.
func WidthOf(t types.Type, target TargetISA) int {
	switch tt := t.(type) {
	case types.Int:
		return tt.Width.ByteSize(target.PointerWidth())
	case types.Bool:
		return 1
	case types.Str, types.Func:
		return target.PointerWidth()
	case types.Unit:
		return 0
	case types.Struct:
		return target.PointerWidth() // structs are always handled by reference
	default:
		return target.PointerWidth()
	}
}
