package shortlc_test

import (
	"testing"

	"github.com/fnecore/corehost/internal/fec/shortlc"
	"github.com/stretchr/testify/require"
)

func TestRoundTripNoErrors(t *testing.T) {
	t.Parallel()
	data := [5]byte{0x1A, 0x2B, 0x3C, 0x4D, 0x5E}
	code := shortlc.Encode(data)
	require.Len(t, code, 9)

	ok, got := shortlc.Decode(code)
	require.True(t, ok)
	require.Equal(t, data, got)
}

// TestScenarioE1 replicates spec.md's worked example: encode, inject a
// 1-bit error at bit 17, and expect exact recovery of the original bytes.
func TestScenarioE1(t *testing.T) {
	t.Parallel()
	data := [5]byte{0x1A, 0x2B, 0x3C, 0x4D, 0x5E}
	code := shortlc.Encode(data)

	const bit = 17
	code[bit/8] ^= 1 << uint(7-bit%8)

	ok, got := shortlc.Decode(code)
	require.True(t, ok)
	require.Equal(t, data, got)
}
