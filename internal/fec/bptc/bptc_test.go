package bptc_test

import (
	"testing"

	"github.com/fnecore/corehost/internal/fec/bptc"
	"github.com/stretchr/testify/require"
)

func pattern96() []bool {
	bits := make([]bool, 96)
	for i := range bits {
		bits[i] = i%5 < 2
	}
	return bits
}

func TestRoundTripNoErrors(t *testing.T) {
	t.Parallel()
	data := pattern96()
	burst := bptc.Encode(data)
	require.Len(t, burst, 196)

	got, corrected := bptc.Decode(burst)
	require.False(t, corrected)
	require.Equal(t, data, got)
}

func TestSingleBitErrorCorrected(t *testing.T) {
	t.Parallel()
	data := pattern96()
	// Burst position 15 carries the unused pad bit (the interleaved image
	// of linear index 195), so flipping it touches no grid cell and
	// nothing is corrected — every other position maps onto a protected
	// grid cell and must be restored.
	const padPosition = 15
	for flip := 0; flip < 196; flip++ {
		burst := bptc.Encode(data)
		burst[flip] = !burst[flip]

		got, corrected := bptc.Decode(burst)
		if flip == padPosition {
			require.False(t, corrected, "flip %d", flip)
		} else {
			require.True(t, corrected, "flip %d", flip)
		}
		require.Equal(t, data, got, "flip %d", flip)
	}
}

// TestInterleaverBijective exercises testable property 4: the BPTC
// interleave formula position = (i*181) mod 196 must visit every output
// position exactly once.
func TestInterleaverBijective(t *testing.T) {
	t.Parallel()
	seen := make(map[int]bool, 196)
	for i := 0; i < 196; i++ {
		pos := (i * 181) % 196
		require.False(t, seen[pos], "position %d hit twice", pos)
		seen[pos] = true
	}
	require.Len(t, seen, 196)
}
