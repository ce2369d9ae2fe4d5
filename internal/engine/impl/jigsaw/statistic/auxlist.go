package statistic

// extraBitsNum is the width of the per-slot confirmation counter,
// stored in the high bits of each auxiliary slot.
const extraBitsNum = 2

// auxList is a flat bit-packed array of left-part slots. Slot i occupies
// bits [i*(lpBits+extraBitsNum), (i+1)*(lpBits+extraBitsNum)) of the
// 64-bit word array: the low lpBits carry the left part, the top
// extraBitsNum carry the confirmation counter.
type auxList struct {
	words  []uint64
	lpBits uint32
}

func newAuxList(slotNum, lpBits uint32) auxList {
	wordNum := (uint64(slotNum)*uint64(lpBits+extraBitsNum) + 63) / 64
	return auxList{
		words:  make([]uint64, wordNum),
		lpBits: lpBits,
	}
}

func (a *auxList) slotBase(slotIdx uint32) uint64 {
	return uint64(slotIdx) * uint64(a.lpBits+extraBitsNum)
}

// extract copies n bits starting at bit position pos into dst, low word
// first. It walks the overlap between the bit range and the word array,
// moving min(remaining, space in source word, space in destination word)
// bits per step.
func (a *auxList) extract(pos uint64, n uint32, dst []uint64) {
	for i := range dst {
		dst[i] = 0
	}
	var done uint32
	for done < n {
		srcWord := pos / 64
		srcBit := uint32(pos % 64)
		dstBit := done % 64

		take := n - done
		if r := 64 - srcBit; take > r {
			take = r
		}
		if r := 64 - dstBit; take > r {
			take = r
		}

		part := a.words[srcWord] >> srcBit
		if take < 64 {
			part &= uint64(1)<<take - 1
		}
		dst[done/64] |= part << dstBit

		pos += uint64(take)
		done += take
	}
}

// deposit writes n bits from src into the word array starting at bit
// position pos, clearing the destination range first. Bits outside the
// range are untouched.
func (a *auxList) deposit(pos uint64, n uint32, src []uint64) {
	var done uint32
	for done < n {
		dstWord := pos / 64
		dstBit := uint32(pos % 64)
		srcBit := done % 64

		take := n - done
		if r := 64 - dstBit; take > r {
			take = r
		}
		if r := 64 - srcBit; take > r {
			take = r
		}

		part := src[done/64] >> srcBit
		if take < 64 {
			mask := uint64(1)<<take - 1
			part &= mask
			a.words[dstWord] &^= mask << dstBit
			a.words[dstWord] |= part << dstBit
		} else {
			a.words[dstWord] = part
		}

		pos += uint64(take)
		done += take
	}
}

// readSlot returns the stored left part (low lpBits bits, zero padded)
// and the extra counter. A never-written slot reads as (zero, 0).
func (a *auxList) readSlot(slotIdx uint32) (LeftPart, uint8) {
	var lp LeftPart
	base := a.slotBase(slotIdx)
	a.extract(base, a.lpBits, lp[:])

	var extra [1]uint64
	a.extract(base+uint64(a.lpBits), extraBitsNum, extra[:])
	return lp, uint8(extra[0])
}

// writeLeftPart stores the low lpBits bits of lp, preserving the extra
// counter.
func (a *auxList) writeLeftPart(slotIdx uint32, lp LeftPart) {
	a.deposit(a.slotBase(slotIdx), a.lpBits, lp[:])
}

// writeExtraCounter stores the extra counter, preserving the left part.
func (a *auxList) writeExtraCounter(slotIdx uint32, counter uint8) {
	src := [1]uint64{uint64(counter)}
	a.deposit(a.slotBase(slotIdx)+uint64(a.lpBits), extraBitsNum, src[:])
}

func (a *auxList) reset() {
	clear(a.words)
}
