// Package ambe implements DMR AMBE voice-frame regeneration (spec.md
// §4.2): three 72-bit AMBE frames per 33-octet (264-bit) DMR voice
// burst, each frame split into a 24-bit Golay(24,12,8)-protected field
// "a", a 23-bit Golay(23,12,7)-protected field "b" (PRN-whitened before
// and after coding so channel errors on b cannot corrupt the whitening
// seed), and a 25-bit unprotected field "c".
package ambe

import (
	"github.com/fnecore/corehost/internal/bitops"
	"github.com/fnecore/corehost/internal/fec/golay"
)

const (
	frameBits = 72
	aBits     = 24
	bBits     = 23
	cBits     = 25

	burstBits = 264
	syncStart = 108
	syncLen   = 48
)

// silenceA and silenceB are the fixed comfort-noise values written into
// fields a and b when a frame cannot be trusted; writeSilence zeroes
// field c.
const (
	silenceA uint32 = 0xF00292
	silenceB uint32 = 0x0E0B20
)

//nolint:gochecknoglobals // fixed whitening table, 4096 entries for the 12-bit Golay(24,12) data word
var prngTable [4096]uint32

func init() {
	x := uint32(0x1A2B3C4D)
	for i := range prngTable {
		x = x*1664525 + 1013904223
		prngTable[i] = x & 0xFFFFFF
	}
}

// PRNValue returns the 23-bit whitening value for a 12-bit Golay(24,12)
// data word, the same lookup RegenerateFrame applies to field "b".
// Exported so burst-assembly code can whiten "b" before transmission.
func PRNValue(data12Val uint32) uint32 {
	return (prngTable[data12Val&0xFFF] >> 1) & 0x7FFFFF
}

// FramePositions returns the 72 bit positions within a 264-bit DMR
// voice burst occupied by AMBE frame index (0, 1, or 2). Frame 1 is
// split around the 48-bit embedded signalling field at bits [108,156).
func FramePositions(frameIndex int) []int {
	positions := make([]int, frameBits)
	switch frameIndex {
	case 0:
		for i := range positions {
			positions[i] = i
		}
	case 1:
		for i := 0; i < syncStart-frameBits; i++ {
			positions[i] = frameBits + i
		}
		half := syncStart - frameBits
		for i := 0; i < frameBits-half; i++ {
			positions[half+i] = syncStart + syncLen + i
		}
	case 2:
		base := 2 * frameBits + syncLen
		for i := range positions {
			positions[i] = base + i
		}
	}
	return positions
}

// RegenerateFrame runs the 5-step AMBE regeneration on a 72-bit frame
// buffer (such as one gathered via FramePositions) in place, returning
// the number of bit errors detected. strict controls whether an
// uncorrectable "a" field is replaced with the silence pattern
// immediately (per spec.md step 2) or passed through best-effort.
func RegenerateFrame(frame []bool, strict bool) int {
	a := frame[0:aBits]
	b := frame[aBits : aBits+bBits]
	origA := append([]bool(nil), a...)
	origB := append([]bool(nil), b...)

	data12, valid := golay.Decode24128(a)
	if !valid {
		if strict {
			writeSilence(frame)
			return 10
		}
		data12 = append([]bool(nil), a[:12]...)
	}
	data12Val := bitops.BitsToUint32BE(data12)

	prn := PRNValue(data12Val)
	bVal := bitops.BitsToUint32BE(b) ^ prn

	bBitsBuf := make([]bool, bBits)
	bitops.Uint32ToBitsBE(bVal, bBitsBuf)
	decodedB, _ := golay.Decode23127(bBitsBuf)
	reEncoded := golay.Encode23127(decodedB)
	reEncodedVal := bitops.BitsToUint32BE(reEncoded) ^ prn
	bitops.Uint32ToBitsBE(reEncodedVal, b)

	canonicalA := golay.Encode24128(data12)
	errsA := bitops.CountDiff(origA, canonicalA)
	errsB := bitops.CountDiff(origB, b)

	if errsA >= 4 || (errsA+errsB >= 6 && errsA >= 2) {
		writeSilence(frame)
		return 10
	}

	copy(a, canonicalA)
	return errsA + errsB
}

func writeSilence(frame []bool) {
	a := frame[0:aBits]
	b := frame[aBits : aBits+bBits]
	c := frame[aBits+bBits : frameBits]

	bitops.Uint32ToBitsBE(silenceA, a)
	bitops.Uint32ToBitsBE(silenceB&0x7FFFFF, b)
	for i := range c {
		c[i] = false
	}
}
