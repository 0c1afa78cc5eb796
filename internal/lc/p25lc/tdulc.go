package p25lc

import (
	"github.com/fnecore/corehost/internal/bitops"
	"github.com/fnecore/corehost/internal/fec/golay"
	"github.com/fnecore/corehost/internal/fec/rs"
)

// TDULC is the terminator-with-link-control payload: the same 9-byte rs
// buffer LC uses, headed by an opcode byte whose bit 6 carries the
// implicit flag, followed directly by the 8-byte payload with no MFID
// byte, and protected by
// Golay(24,12,8) plus RS(24,12,13), per TDULC.cpp's encode/decode.
// TDULCFactory.cpp dispatches on the decoded LCO into one of a small
// set of terminator-specific field layouts; CallTermination is the one
// layout TDULCFactory.cpp names that LC's own decodeLC does not also
// cover.
type TDULC struct {
	Opcode   LCO
	Implicit bool
	Group    bool
	DstID    uint32
	SrcID    uint32
}

func (t TDULC) payload() [8]byte {
	var p [8]byte
	switch t.Opcode {
	case LCOGroup, LCOPrivate, LCOCallTermination:
		putUint24(p[0:3], t.DstID)
		putUint24(p[3:6], t.SrcID)
	}
	return p
}

func unpackTDULCPayload(opcode LCO, p [8]byte) TDULC {
	t := TDULC{Opcode: opcode}
	switch opcode {
	case LCOGroup:
		t.Group = true
		t.DstID = uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
		t.SrcID = uint32(p[3])<<16 | uint32(p[4])<<8 | uint32(p[5])
	case LCOPrivate, LCOCallTermination:
		t.DstID = uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
		t.SrcID = uint32(p[3])<<16 | uint32(p[4])<<8 | uint32(p[5])
	}
	return t
}

// EncodeTDULC assembles the 9-byte rs buffer (opcode byte + 8-byte
// payload), protects it with RS(24,12,13), then Golay(24,12,8) per
// symbol, per TDULC.cpp's encode.
func EncodeTDULC(t TDULC) []byte {
	var rsBuf [9]byte
	rsBuf[0] = byte(t.Opcode) & 0x3F
	if t.Implicit {
		rsBuf[0] |= 0x40
	}
	payload := t.payload()
	copy(rsBuf[1:], payload[:])

	symbols := rs.RS241213.Encode(toSymbols(rsBuf[:], rs.RS241213.K()))
	return encodeGolayPerSymbol(symbols)
}

// DecodeTDULC reverses EncodeTDULC and dispatches on the decoded LCO the
// way TDULCFactory.cpp's createTDULC does, reporting false for an LCO it
// does not implement.
func DecodeTDULC(raw []byte) (TDULC, bool) {
	symbols, ok := decodeGolayPerSymbol(raw, rs.RS241213.N())
	if !ok {
		return TDULC{}, false
	}
	msg, ok := rs.RS241213.Decode(symbols)
	if !ok {
		return TDULC{}, false
	}
	var rsBuf [9]byte
	copy(rsBuf[:], fromSymbols(msg))

	opcode := LCO(rsBuf[0] & 0x3F)
	switch opcode {
	case LCOGroup, LCOPrivate, LCOCallTermination:
		var payload [8]byte
		copy(payload[:], rsBuf[1:])
		t := unpackTDULCPayload(opcode, payload)
		t.Implicit = rsBuf[0]&0x40 != 0
		return t, true
	default:
		return TDULC{}, false
	}
}

// encodeGolayPerSymbol protects each 6-bit RS symbol in symbols with the
// non-shortened Golay(24,12,8) code, zero-extending it to 12 data bits
// first (TDULC.cpp protects its whole 9-byte rs buffer through a single
// Golay24128::encode24128(raw, rs, n) call operating symbol by symbol,
// unlike LC.cpp's HDU path which further shortens to 18 bits).
func encodeGolayPerSymbol(symbols []byte) []byte {
	bits := make([]bool, 0, len(symbols)*24)
	for _, v := range symbols {
		data12 := make([]bool, 12)
		for b := 0; b < 6; b++ {
			data12[6+b] = v&(1<<uint(5-b)) != 0
		}
		bits = append(bits, golay.Encode24128(data12)...)
	}
	out := make([]byte, (len(bits)+7)/8)
	bitops.BitsToBytesBE(bits, out)
	return out
}

func decodeGolayPerSymbol(raw []byte, nSymbols int) ([]byte, bool) {
	bits := make([]bool, nSymbols*24)
	bitops.BytesToBitsBE(raw, bits)

	symbols := make([]byte, nSymbols)
	ok := true
	for i := 0; i < nSymbols; i++ {
		code24 := bits[i*24 : i*24+24]
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
