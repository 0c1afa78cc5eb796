package dmrlc

import (
	"github.com/fnecore/corehost/internal/bitops"
	"github.com/fnecore/corehost/internal/fec/bptc"
	"github.com/fnecore/corehost/internal/fec/crc"
)

// CSBKO is the 6-bit CSBK opcode. No original_source file for DMR's
// CSBK was retrieved alongside ShortLC.cpp, so these opcodes are
// modeled on the same PF+opcode/FID header convention ShortLC.cpp and
// P25's LC.cpp both use, restricted to the subset the REST control
// plane's subscriber-command endpoints need.
type CSBKO uint8

const (
	CSBKOUnitToUnitReq CSBKO = 0x04
	CSBKOUnitToUnitAns CSBKO = 0x05
	CSBKORadioCheck    CSBKO = 0x08 // "check"
	CSBKOInhibit       CSBKO = 0x09
	CSBKOUninhibit     CSBKO = 0x0A
	CSBKODynRegroup    CSBKO = 0x0B
	CSBKOCallAlert     CSBKO = 0x1F // "page"
	CSBKOAckResponse   CSBKO = 0x20
)

// CSBK is a single-block DMR trunking control message: opcode, a
// manufacturer/feature id, a 24-bit target radio or talkgroup address,
// and up to 4 bytes of opcode-specific data. Like Full-LC it rides
// BPTC(196,96), but the 96 bits split as 80 data bits plus a 16-bit
// CRC-16/CCITT rather than Full-LC's 72+24 split (internal/fec/crc
// documents CRC16CCITT as the DMR CSBK checksum).
type CSBK struct {
	Opcode CSBKO
	FID    uint8
	Target uint32 // 24-bit radio or talkgroup address
	Data   [4]byte
}

func (c CSBK) pack() [10]byte {
	return [10]byte{
		byte(c.Opcode) & 0x3F,
		c.FID,
		byte(c.Target >> 16), byte(c.Target >> 8), byte(c.Target),
		c.Data[0], c.Data[1], c.Data[2], c.Data[3],
		0, // reserved, keeps the payload at 10 bytes (80 bits) ahead of the CRC
	}
}

func unpackCSBK(data [10]byte) CSBK {
	return CSBK{
		Opcode: CSBKO(data[0] & 0x3F),
		FID:    data[1],
		Target: uint32(data[2])<<16 | uint32(data[3])<<8 | uint32(data[4]),
		Data:   [4]byte{data[5], data[6], data[7], data[8]},
	}
}

// EncodeCSBK appends a CRC-16/CCITT to c's 10-byte payload and protects
// the resulting 96 bits with BPTC(196,96).
func EncodeCSBK(c CSBK) []byte {
	payload := c.pack()
	sum := crc.CRC16CCITT(payload[:])

	data96 := make([]bool, 96)
	bitops.BytesToBitsBE(payload[:], data96[:80])
	bitops.Uint32ToBitsBE(uint32(sum), data96[80:96])

	burst := bptc.Encode(data96)
	out := make([]byte, 25)
	bitops.BitsToBytesBE(burst, out)
	return out
}

// DecodeCSBK recovers a CSBK from its 196-bit BPTC burst field,
// reporting whether the embedded CRC-16 validates after BPTC
// correction.
func DecodeCSBK(burst []byte) (CSBK, bool) {
	if len(burst) != 25 {
		return CSBK{}, false
	}
	bits := make([]bool, len(burst)*8)
	bitops.BytesToBitsBE(burst, bits)

	data96, _ := bptc.Decode(bits[:196])

	var payload [10]byte
	bitops.BitsToBytesBE(data96[:80], payload[:])
	got := crc.CRC16CCITT(payload[:])

	var wantBytes [2]byte
	bitops.BitsToBytesBE(data96[80:96], wantBytes[:])
	want := uint16(wantBytes[0])<<8 | uint16(wantBytes[1])

	if got != want {
		return CSBK{}, false
	}
	return unpackCSBK(payload), true
}
