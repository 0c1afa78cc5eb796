// Package bptc implements BPTC(196,96), the block product turbo code DMR
// uses to protect Full-LC (spec.md §4.1, §4.3): 96 data bits (72 bits of
// LC plus 24 bits of CRC-24) are arranged in a 13-row x 15-column grid,
// protected by a Hamming(15,11) code across each of the 9 data rows and
// a Hamming(13,9) code down each of the 15 columns, then interleaved
// into a 196-bit burst field.
package bptc

import "github.com/fnecore/corehost/internal/fec/hamming"

const (
	rows     = 13
	cols     = 15
	dataRows = 9
	total    = rows * cols // 195 grid cells
	// Total includes one further pad bit (the "R(3)" bit spec.md notes as
	// present but unused), for 196 bits overall.
	fullLength = total + 1
)

func cellIndex(row, col int) int { return row*cols + col }

// dataBitPosition maps a data bit index 0..95 to its (row, col) in the
// grid. Rows 0..7 each hold 11 data bits (columns 0..10); row 8 holds
// only its first 8 columns of data, its remaining 3 cells zero-padded —
// together these 9 "data rows" carry exactly 96 live bits, matching
// spec.md's "96 of 196" and "9 data rows" wording at once.
func dataBitPosition(i int) (row, col int) {
	row = i / 11
	col = i % 11
	return row, col
}

// Encode takes 96 data bits and returns the 196-bit interleaved burst
// field.
func Encode(data96 []bool) []bool {
	grid := make([]bool, total)
	for i := 0; i < 96; i++ {
		r, c := dataBitPosition(i)
		grid[cellIndex(r, c)] = data96[i]
	}

	for r := 0; r < dataRows; r++ {
		row := grid[cellIndex(r, 0):cellIndex(r, cols-1)+1]
		hamming.H15114.Encode(row)
	}
	for c := 0; c < cols; c++ {
		col := extractColumn(grid, c)
		hamming.H1394.Encode(col)
		writeColumn(grid, c, col)
	}

	linear := make([]bool, fullLength)
	copy(linear, grid)
	linear[total] = false

	out := make([]bool, fullLength)
	for i := 0; i < fullLength; i++ {
		out[(i*181)%fullLength] = linear[i]
	}
	return out
}

// Decode deinterleaves a 196-bit burst field and iteratively corrects
// columns then rows, up to 5 passes or until a pass makes no change. It
// returns the recovered 96 data bits and whether any correction was
// applied.
func Decode(burst196 []bool) (data96 []bool, corrected bool) {
	linear := make([]bool, fullLength)
	for i := 0; i < fullLength; i++ {
		linear[i] = burst196[(i*181)%fullLength]
	}
	grid := append([]bool(nil), linear[:total]...)

	for pass := 0; pass < 5; pass++ {
		changed := false
		for c := 0; c < cols; c++ {
			col := extractColumn(grid, c)
			didCorrect, _ := hamming.H1394.Decode(col)
			if didCorrect {
				changed = true
				writeColumn(grid, c, col)
				corrected = true
			}
		}
		for r := 0; r < dataRows; r++ {
			row := grid[cellIndex(r, 0):cellIndex(r, cols-1)+1]
			didCorrect, _ := hamming.H15114.Decode(row)
			if didCorrect {
				changed = true
				corrected = true
			}
		}
		if !changed {
			break
		}
	}

	data96 = make([]bool, 96)
	for i := 0; i < 96; i++ {
		r, c := dataBitPosition(i)
		data96[i] = grid[cellIndex(r, c)]
	}
	return data96, corrected
}

func extractColumn(grid []bool, col int) []bool {
	out := make([]bool, rows)
	for r := 0; r < rows; r++ {
		out[r] = grid[cellIndex(r, col)]
	}
	return out
}

func writeColumn(grid []bool, col int, data []bool) {
	for r := 0; r < rows; r++ {
		grid[cellIndex(r, col)] = data[r]
	}
}
