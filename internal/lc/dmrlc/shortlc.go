// Package dmrlc packs and unpacks DMR link-control payloads: the short
// form carried in every voice superframe's burst C (SLCO/FID/talkgroup,
// grounded on original_source's ShortLC.cpp grid codec already exposed
// by internal/fec/shortlc), the full form carried as Full-LC in the
// voice header/terminator and protected by BPTC(196,96), and CSBK
// single-block commands protected by the same BPTC structure with a
// 16-bit CRC in place of Full-LC's 24-bit one.
package dmrlc

import (
	"github.com/fnecore/corehost/internal/fec/shortlc"
)

// ShortLCO is the 6-bit short-LC opcode (octet 0, bits 5-0).
type ShortLCO uint8

const (
	ShortLCOGroupVoice ShortLCO = 0x00
	ShortLCOActivation ShortLCO = 0x01
	ShortLCOUnitToUnit ShortLCO = 0x03
)

// ShortLC is the field-level content of a DMR short link-control
// payload: the 5-byte (40-bit) structure ShortLC.cpp's
// decodeExtractData/encodeExtractData map onto the protected grid --
// octet 0 carries the opcode, octet 1 the feature/manufacturer id,
// octets 2-4 the 24-bit destination address.
type ShortLC struct {
	Opcode    ShortLCO
	FeatureID uint8
	DstID     uint32 // 24-bit group or unit address
}

// Pack lays out the short-LC fields into the 5-byte buffer
// internal/fec/shortlc.Encode expects.
func (lc ShortLC) Pack() [5]byte {
	return [5]byte{
		byte(lc.Opcode) & 0x3F,
		lc.FeatureID,
		byte(lc.DstID >> 16),
		byte(lc.DstID >> 8),
		byte(lc.DstID),
	}
}

// UnpackShortLC recovers a ShortLC from a 5-byte buffer produced by
// internal/fec/shortlc.Decode.
func UnpackShortLC(data [5]byte) ShortLC {
	return ShortLC{
		Opcode:    ShortLCO(data[0] & 0x3F),
		FeatureID: data[1],
		DstID:     uint32(data[2])<<16 | uint32(data[3])<<8 | uint32(data[4]),
	}
}

// EncodeShortLC produces the 9-byte (72-bit) wire form of lc, ready to
// carry in burst C of a DMR voice superframe.
func EncodeShortLC(lc ShortLC) []byte {
	return shortlc.Encode(lc.Pack())
}

// DecodeShortLC recovers a ShortLC from its 9-byte wire form, correcting
// up to one bit error per protected row as internal/fec/shortlc.Decode
// does.
func DecodeShortLC(wire []byte) (ShortLC, bool) {
	ok, data := shortlc.Decode(wire)
	if !ok {
		return ShortLC{}, false
	}
	return UnpackShortLC(data), true
}
