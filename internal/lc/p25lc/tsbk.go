package p25lc

import (
	"github.com/fnecore/corehost/internal/fec/crc"
)

// TSBKOpcode is the 6-bit trunking signaling block opcode, carried in
// the same header-byte position (last-block flag + opcode) LC.cpp's
// LCO byte occupies for link control. No original_source TSBK file was
// retrieved alongside LC.cpp/TDULC.cpp, so these opcodes cover only the
// subscriber-unit commands the REST control plane's /dmr-rid and
// /p25-rid endpoints name (spec.md §4.7): page, check, inhibit,
// uninhibit, dynamic regroup, group affiliation query, and unit
// registration.
type TSBKOpcode uint8

const (
	TSBKCallAlert        TSBKOpcode = 0x1F // "page"
	TSBKRadioUnitMonitor TSBKOpcode = 0x1D // "check"
	TSBKExtendedFunction TSBKOpcode = 0x24 // "inhibit" / "uninhibit" / "dyn-regrp"
	TSBKGroupAffQuery    TSBKOpcode = 0x2E // "gaq"
	TSBKUnitRegistration TSBKOpcode = 0x2C // "ureg"
)

// ExtendedFunction is the function-code sub-field TSBKExtendedFunction
// carries, distinguishing inhibit/uninhibit/dynamic-regroup commands
// that all share the one TSBK opcode.
type ExtendedFunction uint16

const (
	ExtFuncInhibit    ExtendedFunction = 0x007F
	ExtFuncUninhibit  ExtendedFunction = 0x007E
	ExtFuncDynRegroup ExtendedFunction = 0x0083
)

// TSBK is a single 12-byte (96-bit) trunking signaling block: a header
// byte (last-block flag + opcode), an MFID byte, and 8 bytes of
// opcode-specific data closed by a CRC-16/CCITT (internal/fec/crc
// documents CRC16CCITT as the P25 TSBK checksum).
type TSBK struct {
	LastBlock bool
	Opcode    TSBKOpcode
	MFID      uint8
	Function  ExtendedFunction // TSBKExtendedFunction only
	TargetID  uint32           // 24-bit radio or talkgroup address
	SourceID  uint32           // 24-bit, page/check
}

func (t TSBK) pack() [10]byte {
	var b [10]byte
	b[0] = byte(t.Opcode) & 0x3F
	if t.LastBlock {
		b[0] |= 0x80
	}
	b[1] = t.MFID

	switch t.Opcode {
	case TSBKExtendedFunction:
		b[2] = byte(t.Function >> 8)
		b[3] = byte(t.Function)
		putUint24(b[4:7], t.TargetID)
	case TSBKCallAlert, TSBKRadioUnitMonitor:
		putUint24(b[2:5], t.SourceID)
		putUint24(b[5:8], t.TargetID)
	case TSBKGroupAffQuery, TSBKUnitRegistration:
		putUint24(b[2:5], t.TargetID)
	}
	return b
}

func unpackTSBK(b [10]byte) TSBK {
	t := TSBK{
		LastBlock: b[0]&0x80 != 0,
		Opcode:    TSBKOpcode(b[0] & 0x3F),
		MFID:      b[1],
	}
	switch t.Opcode {
	case TSBKExtendedFunction:
		t.Function = ExtendedFunction(uint16(b[2])<<8 | uint16(b[3]))
		t.TargetID = uint32(b[4])<<16 | uint32(b[5])<<8 | uint32(b[6])
	case TSBKCallAlert, TSBKRadioUnitMonitor:
		t.SourceID = uint32(b[2])<<16 | uint32(b[3])<<8 | uint32(b[4])
		t.TargetID = uint32(b[5])<<16 | uint32(b[6])<<8 | uint32(b[7])
	case TSBKGroupAffQuery, TSBKUnitRegistration:
		t.TargetID = uint32(b[2])<<16 | uint32(b[3])<<8 | uint32(b[4])
	}
	return t
}

// EncodeTSBK appends a CRC-16/CCITT to t's 10-byte payload, returning
// the 12-byte block.
func EncodeTSBK(t TSBK) []byte {
	payload := t.pack()
	sum := crc.CRC16CCITT(payload[:])

	out := make([]byte, 12)
	copy(out, payload[:])
	out[10] = byte(sum >> 8)
	out[11] = byte(sum)
	return out
}

// DecodeTSBK reverses EncodeTSBK, reporting whether the CRC-16
// validates.
func DecodeTSBK(raw []byte) (TSBK, bool) {
	if len(raw) != 12 {
		return TSBK{}, false
	}
	var payload [10]byte
	copy(payload[:], raw[:10])
	want := uint16(raw[10])<<8 | uint16(raw[11])
	if crc.CRC16CCITT(payload[:]) != want {
		return TSBK{}, false
	}
	return unpackTSBK(payload), true
}
