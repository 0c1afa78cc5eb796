package dmrlc

import (
	"github.com/fnecore/corehost/internal/bitops"
	"github.com/fnecore/corehost/internal/fec/bptc"
	"github.com/fnecore/corehost/internal/fec/crc"
)

// FLCO is the DMR Full-LC opcode (octet 0, bits 5-0 -- same PF+opcode
// byte convention ShortLC.cpp and P25's LC.cpp both use for their
// respective link-control headers).
type FLCO uint8

const (
	FLCOGroupVoice FLCO = 0x00
	FLCOUnitToUnit FLCO = 0x03
)

// FullLC is the 9-byte (72-bit) payload carried in the voice header and
// terminator bursts, protected end to end by a 24-bit CRC and
// BPTC(196,96) (internal/fec/bptc, internal/fec/crc.CRC24).
type FullLC struct {
	Opcode    FLCO
	FeatureID uint8
	Emergency bool
	Encrypted bool
	Priority  uint8 // 3 bits
	DstID     uint32 // 24-bit group/unit destination address
	SrcID     uint32 // 24-bit source radio address
}

// Pack lays out the Full-LC fields into the 9-byte systematic payload:
// octet 0 opcode, octet 1 feature/manufacturer id, octet 2 service
// options (emergency/encrypted/priority), octets 3-5 destination
// address, octets 6-8 source address.
func (lc FullLC) Pack() [9]byte {
	var opts byte
	if lc.Emergency {
		opts |= 0x80
	}
	if lc.Encrypted {
		opts |= 0x40
	}
	opts |= lc.Priority & 0x07
	return [9]byte{
		byte(lc.Opcode) & 0x3F,
		lc.FeatureID,
		opts,
		byte(lc.DstID >> 16), byte(lc.DstID >> 8), byte(lc.DstID),
		byte(lc.SrcID >> 16), byte(lc.SrcID >> 8), byte(lc.SrcID),
	}
}

// UnpackFullLC recovers a FullLC from its 9-byte payload form.
func UnpackFullLC(data [9]byte) FullLC {
	return FullLC{
		Opcode:    FLCO(data[0] & 0x3F),
		FeatureID: data[1],
		Emergency: data[2]&0x80 != 0,
		Encrypted: data[2]&0x40 != 0,
		Priority:  normalizePriority(data[2] & 0x07),
		DstID:     uint32(data[3])<<16 | uint32(data[4])<<8 | uint32(data[5]),
		SrcID:     uint32(data[6])<<16 | uint32(data[7])<<8 | uint32(data[8]),
	}
}

// normalizePriority applies the TIA-102.AABC-B (and DMR's equivalent
// service-options) rule that priority 0 never appears on the air;
// LC.cpp's decodeLC enforces the same substitution for P25.
func normalizePriority(p byte) uint8 {
	if p == 0 {
		return 4
	}
	return p
}

// EncodeFullLC appends a CRC-24 to lc's 9-byte payload and protects the
// resulting 96 bits with BPTC(196,96), returning the 196-bit burst field
// as 25 packed bytes (the final byte's low 4 bits are padding).
func EncodeFullLC(lc FullLC) []byte {
	payload := lc.Pack()
	sum := crc.CRC24(payload[:])

	data96 := make([]bool, 96)
	bitops.BytesToBitsBE(payload[:], data96[:72])
	bitops.Uint32ToBitsBE(sum, data96[72:96])

	burst := bptc.Encode(data96)
	out := make([]byte, 25)
	bitops.BitsToBytesBE(burst, out)
	return out
}

// DecodeFullLC recovers a FullLC from its 196-bit BPTC burst field (25
// packed bytes), reporting whether the embedded CRC-24 validates after
// BPTC row/column correction.
func DecodeFullLC(burst []byte) (FullLC, bool) {
	if len(burst) != 25 {
		return FullLC{}, false
	}
	bits := make([]bool, len(burst)*8)
	bitops.BytesToBitsBE(burst, bits)

	data96, _ := bptc.Decode(bits[:196])

	var payload [9]byte
	bitops.BitsToBytesBE(data96[:72], payload[:])
	got := crc.CRC24(payload[:])

	want := make([]bool, 24)
	copy(want, data96[72:96])
	var wantBytes [3]byte
	bitops.BitsToBytesBE(want, wantBytes[:])
	wantSum := uint32(wantBytes[0])<<16 | uint32(wantBytes[1])<<8 | uint32(wantBytes[2])

	if got != wantSum {
		return FullLC{}, false
	}
	return UnpackFullLC(payload), true
}
