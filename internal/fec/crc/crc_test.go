package crc_test

import (
	"testing"

	"github.com/fnecore/corehost/internal/fec/crc"
	"github.com/stretchr/testify/require"
)

func TestCRC16CCITTDeterministic(t *testing.T) {
	t.Parallel()
	data := []byte{0x01, 0x02, 0x03, 0x04}
	require.Equal(t, crc.CRC16CCITT(data), crc.CRC16CCITT(data))
	other := []byte{0x01, 0x02, 0x03, 0x05}
	require.NotEqual(t, crc.CRC16CCITT(data), crc.CRC16CCITT(other))
}

func TestCRC32KnownValue(t *testing.T) {
	t.Parallel()
	// "123456789" is the standard CRC-32/IEEE check string.
	require.Equal(t, uint32(0xCBF43926), crc.CRC32([]byte("123456789")))
}

func TestCRC24Deterministic(t *testing.T) {
	t.Parallel()
	data := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x00, 0x11, 0x22}
	require.Equal(t, crc.CRC24(data), crc.CRC24(data))
	require.LessOrEqual(t, crc.CRC24(data), uint32(0xFFFFFF))
}

func TestCRC9RangeAndDeterminism(t *testing.T) {
	t.Parallel()
	data := []byte{0x12, 0x34}
	v := crc.CRC9(data)
	require.LessOrEqual(t, v, uint16(0x1FF))
	require.Equal(t, v, crc.CRC9(data))
}
