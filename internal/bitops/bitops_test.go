package bitops_test

import (
	"testing"

	"github.com/fnecore/corehost/internal/bitops"
	"github.com/stretchr/testify/require"
)

func TestBytesToBitsBERoundTrip(t *testing.T) {
	t.Parallel()
	src := []byte{0x1A, 0x2B, 0x3C}
	bits := make([]bool, len(src)*8)
	bitops.BytesToBitsBE(src, bits)

	got := make([]byte, len(src))
	bitops.BitsToBytesBE(bits, got)
	require.Equal(t, src, got)
}

func TestBytesToBitsLERoundTrip(t *testing.T) {
	t.Parallel()
	src := []byte{0xF0, 0x0F, 0x55}
	bits := make([]bool, len(src)*8)
	bitops.BytesToBitsLE(src, bits)

	got := make([]byte, len(src))
	bitops.BitsToBytesLE(bits, got)
	require.Equal(t, src, got)
}

func TestByteToBitsBEOrdering(t *testing.T) {
	t.Parallel()
	bits := bitops.ByteToBitsBE(0x80)
	require.True(t, bits[0])
	for i := 1; i < 8; i++ {
		require.False(t, bits[i])
	}
	require.Equal(t, byte(0x80), bitops.BitsToByteBE(bits[:]))
}

func TestUint32BitsRoundTrip(t *testing.T) {
	t.Parallel()
	const v = uint32(0x0A3)
	bits := make([]bool, 12)
	bitops.Uint32ToBitsBE(v, bits)
	require.Equal(t, v, bitops.BitsToUint32BE(bits))
}

func TestCountDiff(t *testing.T) {
	t.Parallel()
	a := []bool{true, false, true, true}
	b := []bool{true, true, true, false}
	require.Equal(t, 2, bitops.CountDiff(a, b))
}

func TestXOR(t *testing.T) {
	t.Parallel()
	a := []bool{true, false, true}
	b := []bool{true, true, false}
	dst := make([]bool, 3)
	bitops.XOR(dst, a, b)
	require.Equal(t, []bool{false, true, true}, dst)
}
