package golay_test

import (
	"testing"

	"github.com/fnecore/corehost/internal/fec/golay"
	"github.com/stretchr/testify/require"
)

func pattern12() []bool {
	return []bool{true, false, true, true, false, false, true, false, true, true, true, false}
}

func TestRoundTrip23127NoErrors(t *testing.T) {
	t.Parallel()
	data := pattern12()
	code := golay.Encode23127(data)
	require.Len(t, code, 23)

	got, ok := golay.Decode23127(code)
	require.True(t, ok)
	require.Equal(t, data, got)
}

func TestSingleBitCorrection23127(t *testing.T) {
	t.Parallel()
	data := pattern12()
	for flip := 0; flip < 23; flip++ {
		code := golay.Encode23127(data)
		code[flip] = !code[flip]

		got, ok := golay.Decode23127(code)
		require.True(t, ok, "flip %d", flip)
		require.Equal(t, data, got, "flip %d", flip)
	}
}

func TestRoundTrip24128NoErrors(t *testing.T) {
	t.Parallel()
	data := pattern12()
	code := golay.Encode24128(data)
	require.Len(t, code, 24)

	got, valid := golay.Decode24128(code)
	require.True(t, valid)
	require.Equal(t, data, got)
}

func TestSingleBitCorrection24128(t *testing.T) {
	t.Parallel()
	data := pattern12()
	for flip := 0; flip < 24; flip++ {
		code := golay.Encode24128(data)
		code[flip] = !code[flip]

		got, valid := golay.Decode24128(code)
		require.True(t, valid, "flip %d", flip)
		require.Equal(t, data, got, "flip %d", flip)
	}
}

// TestTwoBitErrorsDetected24128 exercises testable property 3: decoding a
// (24,12,8) codeword with any 2-bit perturbation must either report
// invalid or yield the original data word unchanged.
func TestTwoBitErrorsDetected24128(t *testing.T) {
	t.Parallel()
	data := pattern12()
	base := golay.Encode24128(data)

	for i := 0; i < 24; i++ {
		for j := i + 1; j < 24; j++ {
			code := append([]bool(nil), base...)
			code[i] = !code[i]
			code[j] = !code[j]

			got, valid := golay.Decode24128(code)
			if valid {
				require.Equal(t, data, got, "flips %d,%d reported valid with wrong data", i, j)
			}
		}
	}
}

func TestDecode24128RejectsWrongLength(t *testing.T) {
	t.Parallel()
	_, valid := golay.Decode24128(make([]bool, 23))
	require.False(t, valid)
}
