// Package rs implements the Reed-Solomon codes used by P25 link-control
// assembly (spec.md §4.1, §4.3): RS(24,12,13), RS(24,16,9), and
// RS(36,20,17), all defined over GF(2^6) with 6-bit symbols.
package rs

const (
	gfBits  = 6
	gfSize  = 1 << gfBits // 64 elements
	gfN     = gfSize - 1  // 63, the multiplicative group order
	primRed = 0x03        // reduction constant for x^6 + x + 1
)

// The tables are built by a variable initializer rather than init() so
// that package-level codes built with New (codes.go) see them filled in.
//
//nolint:gochecknoglobals // fixed GF(64) log/antilog tables, built once at package initialization
var expTable, logTable = buildTables()

func buildTables() (exp [2 * gfN]byte, log [gfSize]byte) {
	x := byte(1)
	for i := 0; i < gfN; i++ {
		exp[i] = x
		log[x] = byte(i)
		carry := x&0x20 != 0
		x = (x << 1) & 0x3F
		if carry {
			x ^= primRed
		}
	}
	for i := gfN; i < 2*gfN; i++ {
		exp[i] = exp[i-gfN]
	}
	return exp, log
}

func gfAdd(a, b byte) byte { return a ^ b }

func gfMul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return expTable[int(logTable[a])+int(logTable[b])]
}

func gfDiv(a, b byte) byte {
	if a == 0 {
		return 0
	}
	la, lb := int(logTable[a]), int(logTable[b])
	return expTable[(la-lb+gfN)%gfN]
}

func gfInv(a byte) byte {
	return expTable[(gfN-int(logTable[a]))%gfN]
}

func gfPow(a byte, power int) byte {
	if a == 0 {
		if power == 0 {
			return 1
		}
		return 0
	}
	p := (int(logTable[a]) * power) % gfN
	if p < 0 {
		p += gfN
	}
	return expTable[p]
}

func gfExp(power int) byte {
	p := power % gfN
	if p < 0 {
		p += gfN
	}
	return expTable[p]
}

// polyEval evaluates poly (coefficients highest-degree first) at x using
// Horner's method.
func polyEval(poly []byte, x byte) byte {
	result := poly[0]
	for i := 1; i < len(poly); i++ {
		result = gfAdd(gfMul(result, x), poly[i])
	}
	return result
}

// polyMul multiplies two polynomials (highest-degree first).
func polyMul(a, b []byte) []byte {
	out := make([]byte, len(a)+len(b)-1)
	for i, av := range a {
		if av == 0 {
			continue
		}
		for j, bv := range b {
			out[i+j] = gfAdd(out[i+j], gfMul(av, bv))
		}
	}
	return out
}
