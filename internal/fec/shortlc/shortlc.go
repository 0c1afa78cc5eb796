// Package shortlc implements the DMR Short-LC bit codec (spec.md §4.1):
// a 17-column x 4-row structure where the first three rows each carry 12
// data bits protected by Hamming(17,12,3), the fourth row is the
// column-wise XOR parity of the first three, and the resulting 68-bit
// block is interleaved with position = (i*4) mod 67 (bit 67 passes
// through unpermuted). The codec operates on 5-byte buffers: the first
// 36 of the 40 input bits occupy the protected grid, the remaining 4
// bits are carried unprotected immediately after the interleaved block,
// bringing the total wire size to 72 bits (9 bytes).
package shortlc

import (
	"github.com/fnecore/corehost/internal/bitops"
	"github.com/fnecore/corehost/internal/fec/hamming"
)

const (
	gridRows  = 4
	gridCols  = 17
	gridBits  = gridRows * gridCols // 68
	dataBits  = 36
	tailBits  = 4
	totalBits = gridBits + tailBits // 72
)

func cell(row, col int) int { return row*gridCols + col }

// Encode packs 5 bytes (40 bits) into the 9-byte (72-bit) Short-LC wire
// format.
func Encode(data [5]byte) []byte {
	bits := make([]bool, 40)
	bitops.BytesToBitsBE(data[:], bits)

	grid := make([]bool, gridBits)
	for r := 0; r < 3; r++ {
		copy(grid[cell(r, 0):cell(r, gridCols-1)+1][:12], bits[r*12:r*12+12])
		row := grid[cell(r, 0) : cell(r, gridCols-1)+1]
		hamming.H1712.Encode(row)
	}
	for c := 0; c < gridCols; c++ {
		parity := false
		for r := 0; r < 3; r++ {
			if grid[cell(r, c)] {
				parity = !parity
			}
		}
		grid[cell(3, c)] = parity
	}

	interleaved := make([]bool, gridBits)
	for i := 0; i < gridBits-1; i++ {
		interleaved[(i*4)%67] = grid[i]
	}
	interleaved[67] = grid[67]

	out := make([]bool, totalBits)
	copy(out, interleaved)
	copy(out[gridBits:], bits[dataBits:])

	result := make([]byte, 9)
	bitops.BitsToBytesBE(out, result)
	return result
}

// Decode recovers the original 5-byte buffer from a 9-byte Short-LC wire
// value, correcting up to one bit error per protected row.
func Decode(code []byte) (ok bool, data [5]byte) {
	if len(code) != 9 {
		return false, data
	}
	out := make([]bool, totalBits)
	bitops.BytesToBitsBE(code, out)

	interleaved := out[:gridBits]
	grid := make([]bool, gridBits)
	for i := 0; i < gridBits-1; i++ {
		grid[i] = interleaved[(i*4)%67]
	}
	grid[67] = interleaved[67]

	valid := true
	for r := 0; r < 3; r++ {
		row := grid[cell(r, 0) : cell(r, gridCols-1)+1]
		_, rowOK := hamming.H1712.Decode(row)
		if !rowOK {
			valid = false
		}
	}
	for c := 0; c < gridCols; c++ {
		parity := false
		for r := 0; r < 3; r++ {
			if grid[cell(r, c)] {
				parity = !parity
			}
		}
		if parity != grid[cell(3, c)] {
			valid = false
		}
	}
	if !valid {
		return false, data
	}

	bits := make([]bool, 40)
	for r := 0; r < 3; r++ {
		copy(bits[r*12:r*12+12], grid[cell(r, 0):cell(r, gridCols-1)+1][:12])
	}
	copy(bits[dataBits:], out[gridBits:])

	var result [5]byte
	bitops.BitsToBytesBE(bits, result[:])
	return true, result
}
