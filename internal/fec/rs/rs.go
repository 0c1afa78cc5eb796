package rs

// Code is one (n, k) Reed-Solomon code over GF(64). Symbols are 6-bit
// values stored one per byte (high two bits always zero).
type Code struct {
	n, k int
	gen  []byte // generator polynomial, highest-degree coefficient first, length n-k+1
}

// New builds the Reed-Solomon code for the given (n, k), where n-k must
// be even (all three P25 variants spec.md §4.1 names satisfy this: RS
// (24,12,13), RS(24,16,9), RS(36,20,17)).
func New(n, k int) *Code {
	nk := n - k
	gen := []byte{1}
	for i := 1; i <= nk; i++ {
		gen = polyMul(gen, []byte{1, gfExp(i)})
	}
	return &Code{n: n, k: k, gen: gen}
}

// N returns the codeword length.
func (c *Code) N() int { return c.n }

// K returns the message length.
func (c *Code) K() int { return c.k }

// Encode computes the systematic codeword for a k-symbol message:
// msg followed by n-k parity symbols.
func (c *Code) Encode(msg []byte) []byte {
	nk := c.n - c.k
	parity := make([]byte, nk)
	for _, m := range msg {
		feedback := gfAdd(m, parity[0])
		copy(parity, parity[1:])
		parity[nk-1] = 0
		if feedback != 0 {
			for i := 0; i < nk; i++ {
				parity[i] = gfAdd(parity[i], gfMul(feedback, c.gen[i+1]))
			}
		}
	}
	codeword := make([]byte, c.n)
	copy(codeword, msg)
	copy(codeword[c.k:], parity)
	return codeword
}

// Decode recovers the k-symbol message from a possibly-corrupted n-symbol
// codeword. ok is false when the syndromes indicate errors that cannot
// be reliably corrected (more errors than the code's design distance
// supports, or a Chien search that fails to find as many roots as the
// error locator's degree demands).
func (c *Code) Decode(codeword []byte) (msg []byte, ok bool) {
	nk := c.n - c.k
	syn := make([]byte, nk)
	hasError := false
	for i := 0; i < nk; i++ {
		syn[i] = polyEval(codeword, gfExp(i+1))
		if syn[i] != 0 {
			hasError = true
		}
	}
	if !hasError {
		return append([]byte(nil), codeword[:c.k]...), true
	}

	sigma := berlekampMassey(syn, nk)
	l := len(sigma) - 1
	if l == 0 {
		return nil, false
	}

	omega := errorEvaluator(syn, sigma, nk)
	deriv := formalDerivative(sigma)

	corrected := append([]byte(nil), codeword...)
	roots := 0
	for j := 0; j < gfN; j++ {
		x := gfExp(j)
		if polyEvalLH(sigma, x) != 0 {
			continue
		}
		p := (c.n - 1 + j) % gfN
		if p >= c.n {
			continue
		}
		roots++

		num := polyEvalLH(omega, x)
		den := polyEvalLH(deriv, x)
		if den == 0 {
			return nil, false
		}
		corrected[p] = gfAdd(corrected[p], gfDiv(num, den))
	}
	if roots != l {
		return nil, false
	}

	for i := 0; i < nk; i++ {
		if polyEval(corrected, gfExp(i+1)) != 0 {
			return nil, false
		}
	}
	return corrected[:c.k], true
}

// berlekampMassey computes the error locator polynomial (low-degree-first,
// constant term 1) from the syndrome sequence syn[0..n2t-1] representing
// S_1..S_n2t.
func berlekampMassey(syn []byte, n2t int) []byte {
	c := make([]byte, n2t+1)
	b := make([]byte, n2t+1)
	c[0] = 1
	b[0] = 1
	l := 0
	m := 1
	bCoef := byte(1)

	for nIdx := 0; nIdx < n2t; nIdx++ {
		delta := syn[nIdx]
		for i := 1; i <= l; i++ {
			delta = gfAdd(delta, gfMul(c[i], syn[nIdx-i]))
		}
		switch {
		case delta == 0:
			m++
		case 2*l <= nIdx:
			t := append([]byte(nil), c...)
			coef := gfDiv(delta, bCoef)
			for i := 0; i < len(b); i++ {
				if i+m < len(c) {
					c[i+m] = gfAdd(c[i+m], gfMul(coef, b[i]))
				}
			}
			l = nIdx + 1 - l
			b = t
			bCoef = delta
			m = 1
		default:
			coef := gfDiv(delta, bCoef)
			for i := 0; i < len(b); i++ {
				if i+m < len(c) {
					c[i+m] = gfAdd(c[i+m], gfMul(coef, b[i]))
				}
			}
			m++
		}
	}
	return c[:l+1]
}

// errorEvaluator computes Omega(x) = S(x)*sigma(x) mod x^(n-k), both
// polynomials low-degree-first.
func errorEvaluator(syn, sigma []byte, nk int) []byte {
	full := make([]byte, len(syn)+len(sigma)-1)
	for i, sv := range syn {
		if sv == 0 {
			continue
		}
		for j, gv := range sigma {
			full[i+j] = gfAdd(full[i+j], gfMul(sv, gv))
		}
	}
	if len(full) > nk {
		full = full[:nk]
	}
	return full
}

// formalDerivative computes the GF(2^m) formal derivative of a
// low-degree-first polynomial: terms of even degree vanish.
func formalDerivative(poly []byte) []byte {
	if len(poly) <= 1 {
		return []byte{0}
	}
	out := make([]byte, len(poly)-1)
	for i := 0; i < len(out); i++ {
		if (i+1)%2 == 1 {
			out[i] = poly[i+1]
		}
	}
	return out
}

// polyEvalLH evaluates a low-degree-first polynomial at x using Horner's
// method from the highest-degree term down.
func polyEvalLH(poly []byte, x byte) byte {
	var result byte
	for i := len(poly) - 1; i >= 0; i-- {
		result = gfAdd(gfMul(result, x), poly[i])
	}
	return result
}
