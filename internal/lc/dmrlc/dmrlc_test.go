package dmrlc_test

import (
	"testing"

	"github.com/fnecore/corehost/internal/lc/dmrlc"
	"github.com/stretchr/testify/require"
)

func TestShortLCRoundTrip(t *testing.T) {
	lc := dmrlc.ShortLC{Opcode: dmrlc.ShortLCOGroupVoice, FeatureID: 0x10, DstID: 501}
	wire := dmrlc.EncodeShortLC(lc)
	require.Len(t, wire, 9)

	got, ok := dmrlc.DecodeShortLC(wire)
	require.True(t, ok)
	require.Equal(t, lc, got)
}

func TestFullLCRoundTrip(t *testing.T) {
	lc := dmrlc.FullLC{
		Opcode:    dmrlc.FLCOGroupVoice,
		FeatureID: 0x10,
		Emergency: true,
		Priority:  3,
		DstID:     501,
		SrcID:     1001,
	}
	burst := dmrlc.EncodeFullLC(lc)
	require.Len(t, burst, 25)

	got, ok := dmrlc.DecodeFullLC(burst)
	require.True(t, ok)
	require.Equal(t, lc, got)
}

func TestFullLCPriorityZeroNormalizedOnDecode(t *testing.T) {
	lc := dmrlc.FullLC{Opcode: dmrlc.FLCOGroupVoice, DstID: 501, SrcID: 1001, Priority: 0}
	burst := dmrlc.EncodeFullLC(lc)
	got, ok := dmrlc.DecodeFullLC(burst)
	require.True(t, ok)
	require.Equal(t, uint8(4), got.Priority)
}

func TestFullLCDetectsCorruption(t *testing.T) {
	lc := dmrlc.FullLC{Opcode: dmrlc.FLCOGroupVoice, DstID: 501, SrcID: 1001, Priority: 3}
	burst := dmrlc.EncodeFullLC(lc)
	for i := range burst {
		burst[i] ^= 0xFF
	}
	_, ok := dmrlc.DecodeFullLC(burst)
	require.False(t, ok)
}

func TestCSBKRoundTrip(t *testing.T) {
	c := dmrlc.CSBK{Opcode: dmrlc.CSBKOInhibit, FID: 0x10, Target: 1001}
	burst := dmrlc.EncodeCSBK(c)
	require.Len(t, burst, 25)

	got, ok := dmrlc.DecodeCSBK(burst)
	require.True(t, ok)
	require.Equal(t, c, got)
}
