// Package hamming implements the systematic Hamming codes used across
// the DMR/P25/NXDN FEC stack: (10,6), (13,9), (15,11), (16,11), and
// (17,12), per spec.md §4.1. Each variant is a linear block code whose
// parity-check columns are distinct nonzero binary patterns, which
// guarantees single-bit error correction by construction; the parity
// bits occupy the systematic tail [k, n) as spec.md requires (not the
// interleaved layout some vendor encodings use).
package hamming

// Code is one (n, k) systematic Hamming code instance.
type Code struct {
	n, k       int
	parityBits int
	columns    []uint32 // columns[i] is the parity-check column for bit position i
}

// New builds a systematic distinct-column code for an arbitrary (n, k),
// exported so internal/fec/golay and internal/lc/p25lc can reuse the
// same safe construction for the wider Golay-family codes.
func New(n, k int) *Code { return newCode(n, k) }

func newCode(n, k int) *Code {
	parityBits := n - k
	c := &Code{n: n, k: k, parityBits: parityBits, columns: make([]uint32, n)}

	for j := 0; j < parityBits; j++ {
		c.columns[k+j] = 1 << uint(parityBits-1-j)
	}

	isUnit := func(v uint32) bool { return v != 0 && v&(v-1) == 0 }
	maxVal := uint32(1)<<uint(parityBits) - 1
	next := uint32(1)
	for i := 0; i < k; {
		if next > maxVal {
			panic("hamming: (n,k) requires more parity bits than provided")
		}
		if !isUnit(next) {
			c.columns[i] = next
			i++
		}
		next++
	}
	return c
}

// N returns the codeword length.
func (c *Code) N() int { return c.n }

// K returns the data length.
func (c *Code) K() int { return c.k }

// Encode writes parity bits into bits[k:n] from the data already present
// in bits[0:k]. bits must have length n.
func (c *Code) Encode(bits []bool) {
	for j := 0; j < c.parityBits; j++ {
		rowMask := uint32(1) << uint(c.parityBits-1-j)
		parity := false
		for i := 0; i < c.k; i++ {
			if c.columns[i]&rowMask != 0 && bits[i] {
				parity = !parity
			}
		}
		bits[c.k+j] = parity
	}
}

// Decode computes the syndrome of bits (length n) and, if it matches a
// known column, flips that bit in place. corrected reports whether a bit
// was flipped; ok reports whether the codeword is now valid — ok is
// false only when the syndrome matches no assigned column, which
// spec.md calls out as the uncorrectable case for (16,11,4) and
// (17,12,3) (shortened codes whose column space is not fully used).
func (c *Code) Decode(bits []bool) (corrected, ok bool) {
	var syndrome uint32
	for i := 0; i < c.n; i++ {
		if bits[i] {
			syndrome ^= c.columns[i]
		}
	}
	if syndrome == 0 {
		return false, true
	}
	for i := 0; i < c.n; i++ {
		if c.columns[i] == syndrome {
			bits[i] = !bits[i]
			return true, true
		}
	}
	return false, false
}

//nolint:gochecknoglobals // fixed code tables, analogous to the teacher's compile-time interleaver arrays
var (
	H1063  = newCode(10, 6)
	H1394  = newCode(13, 9)
	H15114 = newCode(15, 11)
	H1611  = newCode(16, 11)
	H1712  = newCode(17, 12)
)
