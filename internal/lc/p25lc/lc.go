// Package p25lc assembles and parses P25 link-control payloads: the
// 9-byte LC structure carried (RS/Hamming-protected) in LDU1, the
// header data unit's MI/ALGID/KID/talkgroup fields (RS/Golay-protected),
// LDU2's encryption sync (RS/Hamming-protected), the terminator-with-LC
// variant of the LC structure, and a compact trunking signaling block used to
// drive the subscriber-unit commands the REST control plane exposes.
// Grounded on original_source's src/common/p25/lc/LC.cpp (decodeLC/
// encodeLC and the HDU/LDU1/LDU2 FEC assembly around it) and
// src/common/p25/lc/TDULC.cpp plus its tdulc/TDULCFactory.cpp
// tagged-dispatch pattern.
package p25lc

import (
	"github.com/fnecore/corehost/internal/bitops"
	"github.com/fnecore/corehost/internal/fec/golay"
	"github.com/fnecore/corehost/internal/fec/hamming"
	"github.com/fnecore/corehost/internal/fec/rs"
)

// LCO is the 6-bit link-control opcode carried in the low 6 bits of
// octet 0 (bit 7 is the protect flag, bit 6 the implicit/explicit
// operation flag LC.cpp's decodeLC/encodeLC toggle per opcode).
type LCO uint8

const (
	LCOGroup            LCO = 0x00
	LCOGroupUpdate      LCO = 0x02
	LCOPrivate          LCO = 0x03
	LCOTelInterconnect  LCO = 0x05
	LCOExplicitSourceID LCO = 0x09
	LCOPrivateExt       LCO = 0x0E
	LCORFSSStatusBcast  LCO = 0x3A
	LCOCallTermination  LCO = 0x2F
)

const (
	mfgStandard    = 0x00
	mfgStandardAlt = 0xFF
)

// LC is the field-level content of a standard (non-vendor) P25 link
// control: LC.cpp's decodeLC/encodeLC switch over m_lco, restricted to
// the opcodes it implements.
type LC struct {
	Protect     bool
	Opcode      LCO
	MFID        uint8
	Emergency   bool
	Encrypted   bool
	Priority    uint8 // 3 bits, normalized: 0 -> 4
	Group       bool
	ExplicitID  bool
	DstID       uint32 // 16 or 24 bits depending on opcode
	SrcID       uint32 // 24 bits
	CallTimer   uint32 // 16 bits, TEL_INT_VCH_USER only
	NetID       uint32 // 20 bits, EXPLICIT_SOURCE_ID only
	SysID       uint32 // 12 bits, EXPLICIT_SOURCE_ID only
}

// pack lays out the opcode octet and the 64 bits that follow it into the
// 9-byte rs buffer LC.cpp builds as a ulong64_t, the same layout
// decodeLC/encodeLC use per opcode.
func (lc LC) pack() [9]byte {
	var rs [9]byte
	rs[0] = byte(lc.Opcode) & 0x3F

	switch lc.Opcode {
	case LCOGroup:
		rs[1] = lc.MFID
		rs[2] = serviceOptions(lc.Emergency, lc.Encrypted, lc.Priority)
		if lc.ExplicitID {
			rs[3] = 0x01
		}
		putUint16(rs[4:6], uint16(lc.DstID))
		putUint24(rs[6:9], lc.SrcID)
	case LCOPrivate:
		rs[1] = lc.MFID
		rs[2] = serviceOptions(lc.Emergency, lc.Encrypted, lc.Priority)
		putUint24(rs[3:6], lc.DstID)
		// source overlaps the low 24 bits of the 64-bit value; since
		// dst already consumed 24 bits starting at byte 3, source
		// occupies bytes 6-8.
		rs[6] = byte(lc.SrcID >> 16)
		rs[7] = byte(lc.SrcID >> 8)
		rs[8] = byte(lc.SrcID)
	case LCOTelInterconnect:
		rs[0] |= 0x40
		rs[2] = serviceOptions(lc.Emergency, lc.Encrypted, lc.Priority)
		putUint16(rs[3:5], uint16(lc.CallTimer))
		putUint24(rs[6:9], lc.SrcID)
	case LCOExplicitSourceID:
		rs[0] |= 0x40
		rs[1] = byte(lc.NetID >> 12)
		rs[2] = byte(lc.NetID >> 4)
		rs[3] = byte(lc.NetID<<4) | byte(lc.SysID>>8)
		rs[4] = byte(lc.SysID)
		putUint24(rs[6:9], lc.SrcID)
	case LCOPrivateExt:
		rs[0] |= 0x40
		if lc.ExplicitID {
			rs[1] = 0x01
		}
		rs[2] = serviceOptions(lc.Emergency, lc.Encrypted, lc.Priority)
		putUint24(rs[3:6], lc.DstID)
		rs[6] = byte(lc.SrcID >> 16)
		rs[7] = byte(lc.SrcID >> 8)
		rs[8] = byte(lc.SrcID)
	}
	return rs
}

func unpackLC(data [9]byte) LC {
	lc := LC{
		Protect: data[0]&0x80 != 0,
		Opcode:  LCO(data[0] & 0x3F),
	}
	if data[0]&0x40 == 0 {
		lc.MFID = data[1]
	} else {
		lc.MFID = mfgStandard
	}
	if lc.MFID != mfgStandard && lc.MFID != mfgStandardAlt {
		return lc // vendor opcode: caller handles raw passthrough
	}

	switch lc.Opcode {
	case LCOGroup:
		lc.Group = true
		lc.Emergency = data[2]&0x80 != 0
		lc.Encrypted = data[2]&0x40 != 0
		lc.Priority = normalizePriority(data[2] & 0x07)
		lc.ExplicitID = data[3]&0x01 != 0
		lc.DstID = uint32(data[4])<<8 | uint32(data[5])
		lc.SrcID = uint32(data[6])<<16 | uint32(data[7])<<8 | uint32(data[8])
	case LCOPrivate:
		lc.Group = false
		lc.Emergency = data[2]&0x80 != 0
		lc.Encrypted = data[2]&0x40 != 0
		lc.Priority = normalizePriority(data[2] & 0x07)
		lc.DstID = uint32(data[3])<<16 | uint32(data[4])<<8 | uint32(data[5])
		lc.SrcID = uint32(data[6])<<16 | uint32(data[7])<<8 | uint32(data[8])
	case LCOTelInterconnect:
		lc.Emergency = data[2]&0x80 != 0
		lc.Encrypted = data[2]&0x40 != 0
		lc.Priority = normalizePriority(data[2] & 0x07)
		lc.CallTimer = uint32(data[3])<<8 | uint32(data[4])
		lc.SrcID = uint32(data[6])<<16 | uint32(data[7])<<8 | uint32(data[8])
	case LCOExplicitSourceID:
		lc.NetID = uint32(data[1])<<12 | uint32(data[2])<<4 | uint32(data[3])>>4
		lc.SysID = uint32(data[3]&0x0F)<<8 | uint32(data[4])
		lc.SrcID = uint32(data[6])<<16 | uint32(data[7])<<8 | uint32(data[8])
	case LCOPrivateExt:
		lc.Group = false
		lc.ExplicitID = data[1]&0x01 != 0
		lc.Emergency = data[2]&0x80 != 0
		lc.Encrypted = data[2]&0x40 != 0
		lc.Priority = normalizePriority(data[2] & 0x07)
		lc.DstID = uint32(data[3])<<16 | uint32(data[4])<<8 | uint32(data[5])
		lc.SrcID = uint32(data[6])<<16 | uint32(data[7])<<8 | uint32(data[8])
	}
	return lc
}

func serviceOptions(emergency, encrypted bool, priority uint8) byte {
	var opts byte
	if emergency {
		opts |= 0x80
	}
	if encrypted {
		opts |= 0x40
	}
	return opts | (priority & 0x07)
}

// normalizePriority applies TIA-102.AABC-B's rule (LC.cpp's decodeLC:
// "sanity check priority ... it should never be 0, if its 0, default to
// 4") shared verbatim by every standard LC opcode that carries one.
func normalizePriority(p byte) uint8 {
	if p == 0 {
		return 4
	}
	return p
}

func putUint16(dst []byte, v uint16) {
	dst[0] = byte(v >> 8)
	dst[1] = byte(v)
}

func putUint24(dst []byte, v uint32) {
	dst[0] = byte(v >> 16)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v)
}

// EncodeHDU assembles a P25 header data unit payload: MI/MFID/ALGID/KID
// plus the 16-bit talkgroup address, RS(36,20,17)-protected then split
// into 36 shortened Golay(18,6,8) blocks, per LC.cpp's
// encodeHDU/encodeHDUGolay.
func EncodeHDU(mi [9]byte, mfID, algID uint8, kID uint16, dstID uint16) []byte {
	msg := make([]byte, 15)
	copy(msg, mi[:])
	msg[9] = mfID
	msg[10] = algID
	msg[11] = byte(kID >> 8)
	msg[12] = byte(kID)
	msg[13] = byte(dstID >> 8)
	msg[14] = byte(dstID)

	codeword := rs.RS362017.Encode(toSymbols(msg, rs.RS362017.K()))
	return encodeGolayShortened(codeword, rs.RS362017.N())
}

// DecodeHDU reverses EncodeHDU, reporting whether the RS(36,20,17)
// codeword validated.
func DecodeHDU(raw []byte) (mi [9]byte, mfID, algID uint8, kID uint16, dstID uint16, ok bool) {
	symbols, decOK := decodeGolayShortened(raw, rs.RS362017.N())
	if !decOK {
		return mi, 0, 0, 0, 0, false
	}
	msg, rsOK := rs.RS362017.Decode(symbols)
	if !rsOK {
		return mi, 0, 0, 0, 0, false
	}
	b := fromSymbols(msg)
	copy(mi[:], b[:9])
	return mi, b[9], b[10], uint16(b[11])<<8 | uint16(b[12]), uint16(b[13])<<8 | uint16(b[14]), true
}

// EncodeLDU1 protects an LC's 9-byte pack() with RS(24,12,13) and splits
// it into 24 Hamming(10,6,3) blocks, one per RS symbol, per LC.cpp's
// encodeLDU1/encodeLDUHamming.
func EncodeLDU1(lc LC) []byte {
	payload := lc.pack()
	codeword := rs.RS241213.Encode(toSymbols(payload[:], rs.RS241213.K()))
	return encodeHammingBlocks(codeword, rs.RS241213.N())
}

// DecodeLDU1 reverses EncodeLDU1.
func DecodeLDU1(raw []byte) (LC, bool) {
	symbols, ok := decodeHammingBlocks(raw, rs.RS241213.N())
	if !ok {
		return LC{}, false
	}
	msg, ok := rs.RS241213.Decode(symbols)
	if !ok {
		return LC{}, false
	}
	var payload [9]byte
	copy(payload[:], fromSymbols(msg))
	return unpackLC(payload), true
}

// EncryptionSync carries the algorithm/key-id/MI fields LDU2 protects
// with RS(24,16,9) instead of a full LC (LC.cpp's decodeLDU2/
// encodeLDU2).
type EncryptionSync struct {
	MI    [9]byte
	AlgID uint8
	KID   uint16
}

// EncodeLDU2 protects an EncryptionSync with RS(24,16,9) and splits it
// into 24 Hamming(10,6,3) blocks, one per RS symbol.
func EncodeLDU2(es EncryptionSync) []byte {
	msg := make([]byte, 12)
	copy(msg, es.MI[:])
	msg[9] = es.AlgID
	msg[10] = byte(es.KID >> 8)
	msg[11] = byte(es.KID)

	codeword := rs.RS24169.Encode(toSymbols(msg, rs.RS24169.K()))
	return encodeHammingBlocks(codeword, rs.RS24169.N())
}

// DecodeLDU2 reverses EncodeLDU2.
func DecodeLDU2(raw []byte) (EncryptionSync, bool) {
	symbols, ok := decodeHammingBlocks(raw, rs.RS24169.N())
	if !ok {
		return EncryptionSync{}, false
	}
	msg, ok := rs.RS24169.Decode(symbols)
	if !ok {
		return EncryptionSync{}, false
	}
	b := fromSymbols(msg)
	var es EncryptionSync
	copy(es.MI[:], b[:9])
	es.AlgID = b[9]
	es.KID = uint16(b[10])<<8 | uint16(b[11])
	return es, true
}

// toSymbols repacks a byte slice as one 6-bit RS symbol per byte (the
// convention internal/fec/rs.Code.Encode/Decode use), big-endian across
// byte boundaries, truncated/padded to exactly n symbols.
func toSymbols(data []byte, n int) []byte {
	bits := make([]bool, len(data)*8)
	bitops.BytesToBitsBE(data, bits)

	totalBits := n * 6
	if len(bits) < totalBits {
		padded := make([]bool, totalBits)
		copy(padded, bits)
		bits = padded
	}

	symbols := make([]byte, n)
	for i := 0; i < n; i++ {
		var v byte
		for b := 0; b < 6; b++ {
			v = v<<1 | boolToBit(bits[i*6+b])
		}
		symbols[i] = v
	}
	return symbols
}

// fromSymbols reverses toSymbols, returning the tightly packed bytes.
func fromSymbols(symbols []byte) []byte {
	bits := make([]bool, len(symbols)*6)
	for i, sym := range symbols {
		for b := 0; b < 6; b++ {
			bits[i*6+b] = sym&(1<<uint(5-b)) != 0
		}
	}
	out := make([]byte, (len(bits)+7)/8)
	bitops.BitsToBytesBE(bits, out)
	return out
}

func boolToBit(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// encodeHammingBlocks splits an RS codeword's symbols into nBlocks
// Hamming(10,6,3) blocks of 6 data bits each, per LC.cpp's
// encodeLDUHamming.
func encodeHammingBlocks(symbols []byte, nBlocks int) []byte {
	bits := make([]bool, 0, nBlocks*10)
	for i := 0; i < nBlocks; i++ {
		block := make([]bool, 10)
		v := symbols[i]
		for b := 0; b < 6; b++ {
			block[b] = v&(1<<uint(5-b)) != 0
		}
		hamming.H1063.Encode(block)
		bits = append(bits, block...)
	}
	out := make([]byte, (len(bits)+7)/8)
	bitops.BitsToBytesBE(bits, out)
	return out
}

func decodeHammingBlocks(raw []byte, nBlocks int) ([]byte, bool) {
	bits := make([]bool, nBlocks*10)
	bitops.BytesToBitsBE(raw, bits)

	symbols := make([]byte, nBlocks)
	ok := true
	for i := 0; i < nBlocks; i++ {
		block := append([]bool(nil), bits[i*10:i*10+10]...)
		_, blockOK := hamming.H1063.Decode(block)
		if !blockOK {
			ok = false
		}
		var v byte
		for b := 0; b < 6; b++ {
			v = v<<1 | boolToBit(block[b])
		}
		symbols[i] = v
	}
	return symbols, ok
}

// encodeGolayShortened encodes nBlocks of 6 data bits each with the
// shortened Golay(18,6,8) LC.cpp's encodeHDUGolay uses: the full
// Golay(24,12,8) codeword with the top 6 (always-zero, since only 6 of
// 12 data bits carry information) bits dropped.
func encodeGolayShortened(symbols []byte, nBlocks int) []byte {
	bits := make([]bool, 0, nBlocks*18)
	for i := 0; i < nBlocks; i++ {
		data12 := make([]bool, 12)
		v := symbols[i]
		for b := 0; b < 6; b++ {
			data12[6+b] = v&(1<<uint(5-b)) != 0
		}
		code24 := golay.Encode24128(data12)
		bits = append(bits, code24[6:]...)
	}
	out := make([]byte, (len(bits)+7)/8)
	bitops.BitsToBytesBE(bits, out)
	return out
}

func decodeGolayShortened(raw []byte, nBlocks int) ([]byte, bool) {
	bits := make([]bool, nBlocks*18)
	bitops.BytesToBitsBE(raw, bits)

	symbols := make([]byte, nBlocks)
	ok := true
	for i := 0; i < nBlocks; i++ {
		code24 := make([]bool, 24)
		copy(code24[6:], bits[i*18:i*18+18])
		data12, valid := golay.Decode24128(code24)
		if !valid {
			ok = false
		}
		var v byte
		for b := 0; b < 6; b++ {
			v = v<<1 | boolToBit(data12[6+b])
		}
		symbols[i] = v
	}
	return symbols, ok
}
