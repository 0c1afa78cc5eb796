package p25lc_test

import (
	"testing"

	"github.com/fnecore/corehost/internal/lc/p25lc"
	"github.com/stretchr/testify/require"
)

func TestLCGroupRoundTripViaLDU1(t *testing.T) {
	lc := p25lc.LC{
		Opcode:    p25lc.LCOGroup,
		MFID:      0x00,
		Emergency: true,
		Priority:  2,
		DstID:     501,
		SrcID:     1001,
	}
	raw := p25lc.EncodeLDU1(lc)

	got, ok := p25lc.DecodeLDU1(raw)
	require.True(t, ok)
	require.Equal(t, lc.Opcode, got.Opcode)
	require.Equal(t, lc.Emergency, got.Emergency)
	require.Equal(t, lc.Priority, got.Priority)
	require.Equal(t, lc.DstID, got.DstID)
	require.Equal(t, lc.SrcID, got.SrcID)
}

func TestLCPriorityZeroNormalized(t *testing.T) {
	lc := p25lc.LC{Opcode: p25lc.LCOGroup, DstID: 501, SrcID: 1001, Priority: 0}
	raw := p25lc.EncodeLDU1(lc)
	got, ok := p25lc.DecodeLDU1(raw)
	require.True(t, ok)
	require.Equal(t, uint8(4), got.Priority)
}

func TestLCPrivateRoundTrip(t *testing.T) {
	lc := p25lc.LC{Opcode: p25lc.LCOPrivate, MFID: 0x00, Priority: 3, DstID: 777, SrcID: 888}
	raw := p25lc.EncodeLDU1(lc)
	got, ok := p25lc.DecodeLDU1(raw)
	require.True(t, ok)
	require.Equal(t, lc.DstID, got.DstID)
	require.Equal(t, lc.SrcID, got.SrcID)
	require.False(t, got.Group)
}

func TestHDURoundTrip(t *testing.T) {
	var mi [9]byte
	copy(mi[:], []byte{1, 2, 3, 4, 5, 6, 7, 8, 9})
	raw := p25lc.EncodeHDU(mi, 0x90, 0x00, 0x1234, 501)

	gotMI, mfID, algID, kID, dstID, ok := p25lc.DecodeHDU(raw)
	require.True(t, ok)
	require.Equal(t, mi, gotMI)
	require.Equal(t, uint8(0x90), mfID)
	require.Equal(t, uint8(0x00), algID)
	require.Equal(t, uint16(0x1234), kID)
	require.Equal(t, uint16(501), dstID)
}

func TestLDU2EncryptionSyncRoundTrip(t *testing.T) {
	var mi [9]byte
	copy(mi[:], []byte{9, 8, 7, 6, 5, 4, 3, 2, 1})
	es := p25lc.EncryptionSync{MI: mi, AlgID: 0xAA, KID: 0x5678}
	raw := p25lc.EncodeLDU2(es)

	got, ok := p25lc.DecodeLDU2(raw)
	require.True(t, ok)
	require.Equal(t, es, got)
}

func TestTDULCGroupRoundTrip(t *testing.T) {
	tdulc := p25lc.TDULC{Opcode: p25lc.LCOGroup, Group: true, DstID: 501, SrcID: 1001}
	raw := p25lc.EncodeTDULC(tdulc)

	got, ok := p25lc.DecodeTDULC(raw)
	require.True(t, ok)
	require.Equal(t, tdulc, got)
}

func TestTDULCCallTerminationRoundTrip(t *testing.T) {
	tdulc := p25lc.TDULC{Opcode: p25lc.LCOCallTermination, DstID: 501, SrcID: 1001}
	raw := p25lc.EncodeTDULC(tdulc)

	got, ok := p25lc.DecodeTDULC(raw)
	require.True(t, ok)
	require.Equal(t, tdulc, got)
}

func TestTSBKExtendedFunctionInhibitRoundTrip(t *testing.T) {
	tsbk := p25lc.TSBK{
		LastBlock: true,
		Opcode:    p25lc.TSBKExtendedFunction,
		MFID:      0x90,
		Function:  p25lc.ExtFuncInhibit,
		TargetID:  12345,
	}
	raw := p25lc.EncodeTSBK(tsbk)
	require.Len(t, raw, 12)

	got, ok := p25lc.DecodeTSBK(raw)
	require.True(t, ok)
	require.Equal(t, tsbk, got)
}

func TestTSBKRadioUnitMonitorRoundTrip(t *testing.T) {
	tsbk := p25lc.TSBK{
		Opcode:   p25lc.TSBKRadioUnitMonitor,
		MFID:     0x90,
		SourceID: 1,
		TargetID: 12345,
	}
	raw := p25lc.EncodeTSBK(tsbk)
	got, ok := p25lc.DecodeTSBK(raw)
	require.True(t, ok)
	require.Equal(t, tsbk, got)
}

func TestTSBKDetectsCorruption(t *testing.T) {
	tsbk := p25lc.TSBK{Opcode: p25lc.TSBKGroupAffQuery, MFID: 0x90, TargetID: 501}
	raw := p25lc.EncodeTSBK(tsbk)
	raw[3] ^= 0xFF
	_, ok := p25lc.DecodeTSBK(raw)
	require.False(t, ok)
}
