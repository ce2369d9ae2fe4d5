package statistic

import (
	"math/rand/v2"
	"testing"
)

func TestAuxListRoundTrip(t *testing.T) {
	const slots = 64
	for _, lpBits := range []uint32{26, 79, 104, 126} {
		list := newAuxList(slots, lpBits)
		rng := rand.New(rand.NewPCG(7, uint64(lpBits)))

		want := make([]LeftPart, slots)
		wantExtra := make([]uint8, slots)
		for i := uint32(0); i < slots; i++ {
			lp := LeftPart{rng.Uint64(), rng.Uint64()}
			// keep only the bits the slot can hold
			if lpBits <= 64 {
				lp[0] &= uint64(1)<<lpBits - 1
				lp[1] = 0
			} else {
				lp[1] &= uint64(1)<<(lpBits-64) - 1
			}
			extra := uint8(rng.Uint32N(1 << extraBitsNum))

			list.writeLeftPart(i, lp)
			list.writeExtraCounter(i, extra)
			want[i] = lp
			wantExtra[i] = extra
		}

		// writes to neighbouring slots must not have corrupted anything
		for i := uint32(0); i < slots; i++ {
			lp, extra := list.readSlot(i)
			if lp != want[i] {
				t.Fatalf("lpBits=%d slot %d: left part = %x, want %x", lpBits, i, lp, want[i])
			}
			if extra != wantExtra[i] {
				t.Fatalf("lpBits=%d slot %d: extra = %d, want %d", lpBits, i, extra, wantExtra[i])
			}
		}
	}
}

func TestAuxListAdjacentIsolation(t *testing.T) {
	const lpBits = 79
	list := newAuxList(8, lpBits)

	allOnes := LeftPart{^uint64(0), uint64(1)<<(lpBits-64) - 1}
	list.writeLeftPart(0, allOnes)
	list.writeLeftPart(1, LeftPart{})

	lp0, extra0 := list.readSlot(0)
	if lp0 != allOnes {
		t.Fatalf("slot 0 = %x, want all ones in the low %d bits", lp0, lpBits)
	}
	if extra0 != 0 {
		t.Fatalf("slot 0 extra = %d, want 0", extra0)
	}

	lp1, extra1 := list.readSlot(1)
	if lp1 != (LeftPart{}) || extra1 != 0 {
		t.Fatalf("slot 1 = (%x, %d), want zero", lp1, extra1)
	}

	// the extra counter write must leave the left part alone
	list.writeExtraCounter(0, 3)
	lp0, extra0 = list.readSlot(0)
	if lp0 != allOnes {
		t.Fatalf("slot 0 left part changed by extra counter write: %x", lp0)
	}
	if extra0 != 3 {
		t.Fatalf("slot 0 extra = %d, want 3", extra0)
	}
}

func TestAuxListFreshSlotReadsZero(t *testing.T) {
	list := newAuxList(16, 104)
	for i := uint32(0); i < 16; i++ {
		lp, extra := list.readSlot(i)
		if lp != (LeftPart{}) || extra != 0 {
			t.Fatalf("fresh slot %d = (%x, %d), want zero", i, lp, extra)
		}
	}
}
