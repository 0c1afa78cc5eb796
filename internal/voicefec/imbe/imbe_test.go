package imbe_test

import (
	"testing"

	"github.com/fnecore/corehost/internal/bitops"
	"github.com/fnecore/corehost/internal/fec/golay"
	"github.com/fnecore/corehost/internal/fec/hamming"
	"github.com/fnecore/corehost/internal/voicefec/imbe"
	"github.com/stretchr/testify/require"
)

func buildFrame() []bool {
	offsets := imbe.SectionOffsets()
	lengths := imbe.SectionLengths()
	frame := make([]bool, 144)

	c0Data := make([]bool, 12)
	for i := range c0Data {
		c0Data[i] = i%2 == 0
	}
	c0Code := golay.Encode23127(c0Data)
	copy(frame[offsets[0]:offsets[0]+lengths[0]], c0Code)

	prn := imbe.WhiteningPRN(bitops.BitsToUint32BE(c0Data))
	applyPRN := func(section []bool, start int) {
		const prnStart, prnEnd = 23, 137
		for i := range section {
			abs := start + i
			if abs < prnStart || abs >= prnEnd {
				continue
			}
			section[i] = section[i] != prn[abs-prnStart]
		}
	}

	for i := 1; i <= 3; i++ {
		data := make([]bool, 12)
		for j := range data {
			data[j] = (i+j)%3 == 0
		}
		code := golay.Encode23127(data)
		applyPRN(code, offsets[i])
		copy(frame[offsets[i]:offsets[i]+lengths[i]], code)
	}

	for i := 4; i <= 6; i++ {
		data := make([]bool, 11)
		for j := range data {
			data[j] = (i+j)%2 == 0
		}
		code := make([]bool, 15)
		copy(code, data)
		hamming.H15114.Encode(code)
		applyPRN(code, offsets[i])
		copy(frame[offsets[i]:offsets[i]+lengths[i]], code)
	}

	c7 := make([]bool, 7)
	for i := range c7 {
		c7[i] = i%2 == 1
	}
	copy(frame[offsets[7]:offsets[7]+lengths[7]], c7)

	return frame
}

func TestRegenerateNoErrors(t *testing.T) {
	t.Parallel()
	frame := buildFrame()
	original := append([]bool(nil), frame...)

	errs := imbe.Regenerate(frame)
	require.Equal(t, 0, errs)
	require.Equal(t, original, frame)
}

func TestInterleaverBijective(t *testing.T) {
	t.Parallel()
	frame := make([]bool, 144)
	for i := range frame {
		frame[i] = i%2 == 0
	}

	deinterleaved := imbe.Deinterleave(frame)
	roundTrip := imbe.Interleave(deinterleaved)
	require.Equal(t, frame, roundTrip)
}
