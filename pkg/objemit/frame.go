package objemit

// AArch64 activation record layout (callee's view), following
// _examples/raymyers-ralph-cc-go/pkg/stacking/layout.go's FP-relative
// scheme:
//
//	+-------------------------+  <- incoming SP (before call)
//	| saved LR  (FP+8)        |
//	| saved FP  (FP+0)        |  <- FP points here after prologue
//	+-------------------------+
//	| spill slots             |  negative offsets from FP
//	+-------------------------+  <- SP (16-byte aligned)
const (
	stackAlign  = 16
	saveAreaLen = 16 // saved FP + LR
)

// FrameLayout is the concrete stack frame computed for one function.
type FrameLayout struct {
	SpillOffset int64 // offset from FP where the spill area begins (negative)
	TotalSize   int64 // bytes the prologue subtracts from SP
}

// ComputeFrame derives a function's frame size from its allocator spill
// area, rounding the total up to AArch64's required 16-byte alignment.
func ComputeFrame(alloc *Allocation) *FrameLayout {
	spill := alignUp(alloc.SpillSize, 8)
	total := alignUp(spill, stackAlign)
	return &FrameLayout{
		SpillOffset: -(spill),
		TotalSize:   total,
	}
}

// SlotAddr returns the FP-relative offset of spill slot n (an offset
// previously handed out by Allocate, in bytes from the start of the
// spill area).
func (l *FrameLayout) SlotAddr(slot int64) int64 {
	return l.SpillOffset + slot
}

func alignUp(n, align int64) int64 {
	if align == 0 {
		return n
	}
	return ((n + align - 1) / align) * align
}
