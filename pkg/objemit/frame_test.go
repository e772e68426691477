package objemit

import "testing"

func TestComputeFrameAlignsToSixteenBytes(t *testing.T) {
	cases := []struct {
		spillSize int64
		wantTotal int64
	}{
		{0, 0},
		{8, 16},
		{16, 16},
		{24, 32},
		{40, 48},
	}
	for _, c := range cases {
		alloc := &Allocation{SpillSize: c.spillSize}
		frame := ComputeFrame(alloc)
		if frame.TotalSize != c.wantTotal {
			t.Errorf("ComputeFrame(spill=%d).TotalSize = %d, want %d", c.spillSize, frame.TotalSize, c.wantTotal)
		}
		if frame.TotalSize%stackAlign != 0 {
			t.Errorf("ComputeFrame(spill=%d).TotalSize = %d is not 16-byte aligned", c.spillSize, frame.TotalSize)
		}
	}
}

func TestSlotAddrIsFPRelative(t *testing.T) {
	alloc := &Allocation{SpillSize: 16}
	frame := ComputeFrame(alloc)
	if got := frame.SlotAddr(0); got != frame.SpillOffset {
		t.Errorf("SlotAddr(0) = %d, want %d", got, frame.SpillOffset)
	}
	if got := frame.SlotAddr(8); got != frame.SpillOffset+8 {
		t.Errorf("SlotAddr(8) = %d, want %d", got, frame.SpillOffset+8)
	}
}
