package statistic

import (
	"math/rand/v2"
	"slices"
)

const (
	// comBytes is the left-part prefix compared when confirming the
	// identity of a heavy cell. Truncating the comparison trades a
	// small false-match probability for speed; all deployments use the
	// same prefix so results stay comparable.
	comBytes = 10

	// confirmThreshold is the counter value at which a heavy cell's
	// identity is first confirmed against its auxiliary slot. Above it,
	// confirmation is sub-sampled at 1/confirmThreshold.
	confirmThreshold = 512

	cellBytes = 6
)

// cell is one (fingerprint, counter) pair. A cell is empty iff its
// counter is zero.
type cell struct {
	fp uint16
	c  uint32
}

// FlowInfo is one reconstructed heavy key with its counter.
type FlowInfo[K any] struct {
	Key   K
	Count uint32
}

// Sketch tracks approximate per-key frequencies over a stream and can
// enumerate its current heavy keys without having stored them.
//
// Each of bucketNum buckets holds cellNumH heavy cells followed by
// cellNumL light cells. Heavy cell i of bucket b owns auxiliary slot
// b*cellNumH+i, which carries the reversible left part of the resident
// key plus a 2-bit confirmation counter.
//
// A Sketch is single-writer: concurrent Insert calls are not supported.
// Concurrent Query is safe only while no writer is active.
type Sketch[K any] struct {
	codec     Codec[K]
	bucketNum uint32
	cellNumH  uint32
	cellNumL  uint32
	cells     []cell
	aux       auxList
	rng       *rand.Rand
}

// NewSketch creates an empty sketch. leftPartBits is the stored carrier
// width per heavy cell and must be at most 126.
func NewSketch[K any](codec Codec[K], bucketNum, leftPartBits, cellNumH, cellNumL uint32) *Sketch[K] {
	return &Sketch[K]{
		codec:     codec,
		bucketNum: bucketNum,
		cellNumH:  cellNumH,
		cellNumL:  cellNumL,
		cells:     make([]cell, bucketNum*(cellNumH+cellNumL)),
		aux:       newAuxList(bucketNum*cellNumH, leftPartBits),
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// MemoryUsage returns the byte footprint of a sketch with the given
// parameters: the cell matrix plus the bit-packed auxiliary words.
func MemoryUsage(bucketNum, leftPartBits, cellNumH, cellNumL uint32) int {
	cellsBytes := uint64(bucketNum) * uint64(cellNumH+cellNumL) * cellBytes
	auxWords := (uint64(bucketNum)*uint64(cellNumH)*uint64(leftPartBits+extraBitsNum) + 63) / 64
	return int(cellsBytes + auxWords*8)
}

// prefixEqual compares the first comBytes bytes of two left parts,
// restricted to the stored carrier width so that a fresh projection and
// a truncated slot read agree on the compared range.
func (s *Sketch[K]) prefixEqual(a, b LeftPart) bool {
	n := uint32(comBytes * 8)
	if n > s.aux.lpBits {
		n = s.aux.lpBits
	}
	if n >= 64 {
		if a[0] != b[0] {
			return false
		}
		rem := n - 64
		if rem == 0 {
			return true
		}
		mask := uint64(1)<<rem - 1
		return a[1]&mask == b[1]&mask
	}
	mask := uint64(1)<<n - 1
	return a[0]&mask == b[0]&mask
}

// Insert records one occurrence of key.
//
// A light cell whose counter reaches the smallest heavy counter of its
// bucket is promoted by swapping with that heavy cell; the promotion
// rewrites the slot's left part only, so a stale extra counter decays
// through the normal mismatch path at the next confirmation probe.
func (s *Sketch[K]) Insert(key K) {
	bucketIdx, fp, lp := s.codec.Divide(key)
	row := bucketIdx * (s.cellNumH + s.cellNumL)
	slotBase := bucketIdx * s.cellNumH

	matchedIdx := uint32(0xFFFFFFFF)
	matchedCounter := uint32(0)
	smallestHeavyIdx := uint32(0)
	smallestHeavyFP := uint16(0)
	smallestHeavyCounter := uint32(0xFFFFFFFF)

	for i := uint32(0); i < s.cellNumH; i++ {
		c := &s.cells[row+i]

		if c.c == 0 {
			c.fp = fp
			c.c = 1
			s.aux.writeLeftPart(slotBase+i, lp)
			return
		}

		if c.fp == fp {
			matchedIdx = i
			matchedCounter = c.c
			break
		}

		if c.c < smallestHeavyCounter {
			smallestHeavyIdx = i
			smallestHeavyFP = c.fp
			smallestHeavyCounter = c.c
		}
	}

	smallestIdx := smallestHeavyIdx
	smallestCounter := smallestHeavyCounter

	if matchedIdx == 0xFFFFFFFF {
		for i := s.cellNumH; i < s.cellNumH+s.cellNumL; i++ {
			c := &s.cells[row+i]

			if c.c == 0 {
				c.fp = fp
				c.c = 1
				return
			}

			if c.fp == fp {
				matchedIdx = i
				matchedCounter = c.c
				break
			}

			if c.c < smallestCounter {
				smallestIdx = i
				smallestCounter = c.c
			}
		}
	}

	if matchedIdx == 0xFFFFFFFF {
		// Reservoir-style identity replacement: with probability
		// 1/smallestCounter the smallest cell adopts the new key's
		// fingerprint. The counter is preserved.
		if s.rng.Uint32N(smallestCounter) == 0 {
			c := &s.cells[row+smallestIdx]
			c.fp = fp
			if smallestIdx < s.cellNumH {
				s.aux.writeLeftPart(slotBase+smallestIdx, lp)
			}
		}
		return
	}

	matched := &s.cells[row+matchedIdx]

	if matchedIdx >= s.cellNumH && matchedCounter >= smallestHeavyCounter {
		matched.fp = smallestHeavyFP
		matched.c = smallestHeavyCounter

		heavy := &s.cells[row+smallestHeavyIdx]
		heavy.fp = fp
		heavy.c = matchedCounter + 1

		s.aux.writeLeftPart(slotBase+smallestHeavyIdx, lp)
		return
	}

	matched.c++

	if matchedIdx < s.cellNumH &&
		(matched.c == confirmThreshold ||
			(matched.c > confirmThreshold && s.rng.Uint32N(confirmThreshold) == 0)) {

		slotIdx := slotBase + matchedIdx
		storedLP, extra := s.aux.readSlot(slotIdx)

		if !s.prefixEqual(lp, storedLP) {
			if extra > 0 {
				s.aux.writeExtraCounter(slotIdx, extra-1)
			} else {
				s.aux.writeLeftPart(slotIdx, lp)
			}
		} else if extra != 1<<extraBitsNum-1 {
			s.aux.writeExtraCounter(slotIdx, extra+1)
		}
	}
}

// Query returns the estimated occurrence count for key, or zero if the
// key is not tracked. For a confirmed heavy cell the counter is scaled
// by (extra counter + 1).
func (s *Sketch[K]) Query(key K) uint32 {
	bucketIdx, fp, lp := s.codec.Divide(key)
	row := bucketIdx * (s.cellNumH + s.cellNumL)
	slotBase := bucketIdx * s.cellNumH

	for i := uint32(0); i < s.cellNumH; i++ {
		c := &s.cells[row+i]
		if c.fp == fp && c.c > 0 {
			storedLP, extra := s.aux.readSlot(slotBase + i)
			if s.prefixEqual(lp, storedLP) {
				return c.c * (uint32(extra) + 1)
			}
		}
	}

	for i := s.cellNumH; i < s.cellNumH+s.cellNumL; i++ {
		c := &s.cells[row+i]
		if c.fp == fp && c.c > 0 {
			return c.c
		}
	}

	return 0
}

// HeavyFlows reconstructs every key currently resident in a heavy cell,
// sorted by counter descending. Light cells have no auxiliary slot and
// are not reported.
func (s *Sketch[K]) HeavyFlows() []FlowInfo[K] {
	flows := make([]FlowInfo[K], 0, s.bucketNum*s.cellNumH)

	for bucketIdx := uint32(0); bucketIdx < s.bucketNum; bucketIdx++ {
		row := bucketIdx * (s.cellNumH + s.cellNumL)
		for i := uint32(0); i < s.cellNumH; i++ {
			c := &s.cells[row+i]
			if c.c == 0 {
				continue
			}
			lp, _ := s.aux.readSlot(bucketIdx*s.cellNumH + i)
			flows = append(flows, FlowInfo[K]{
				Key:   s.codec.Combine(bucketIdx, c.fp, lp),
				Count: c.c,
			})
		}
	}

	slices.SortFunc(flows, func(a, b FlowInfo[K]) int {
		switch {
		case a.Count > b.Count:
			return -1
		case a.Count < b.Count:
			return 1
		}
		return 0
	})
	return flows
}

// Reset clears every cell and auxiliary word, returning the sketch to
// its freshly constructed state.
func (s *Sketch[K]) Reset() {
	clear(s.cells)
	s.aux.reset()
}
