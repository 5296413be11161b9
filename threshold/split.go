// Copyright (c) 2025 Justin Cranford
//
package threshold

import (
	"crypto/rand"

	"mfkdf/mfkdferr"
)

// Split is the mirror image of Combine, used by the setup supplement
// (SPEC_FULL.md "SETUP SUPPLEMENT") to build the first share vector for a
// freshly created policy: it realizes secret as n shares such that any k of
// them (via Combine) reconstruct it again.
func Split(secret []byte, k, n int) ([]Share, error) {
	if n <= 0 {
		return nil, mfkdferr.Threshold("n must be a positive integer")
	}
	if k <= 0 {
		return nil, mfkdferr.Threshold("k must be a positive integer")
	}
	if k > n {
		return nil, mfkdferr.Threshold("k must be less than or equal to n")
	}
	size := len(secret)

	switch {
	case k == 1:
		out := make([]Share, n)
		for i := range out {
			cp := make(Share, size)
			copy(cp, secret)
			out[i] = cp
		}
		return out, nil
	case k == n:
		out := make([]Share, n)
		acc := make(Share, size)
		copy(acc, secret)
		for i := 0; i < n-1; i++ {
			s := make(Share, size)
			if _, err := rand.Read(s); err != nil {
				return nil, mfkdferr.Wrap(mfkdferr.KindCrypto, "random share generation failed", err)
			}
			out[i] = s
			xorInto(acc, s)
		}
		out[n-1] = acc
		return out, nil
	default:
		// Degree k-1 polynomial per byte: coeffs[0] = secret byte, the rest
		// random. Evaluate at x = 1..n via Horner's method in GF(256).
		coeffs := make([][]byte, size)
		for j := 0; j < size; j++ {
			c := make([]byte, k)
			c[0] = secret[j]
			if _, err := rand.Read(c[1:]); err != nil {
				return nil, mfkdferr.Wrap(mfkdferr.KindCrypto, "random coefficient generation failed", err)
			}
			coeffs[j] = c
		}
		out := make([]Share, n)
		for i := 0; i < n; i++ {
			x := byte(i + 1)
			s := make(Share, size)
			for j := 0; j < size; j++ {
				s[j] = evalPoly(coeffs[j], x)
			}
			out[i] = s
		}
		return out, nil
	}
}

// evalPoly evaluates a GF(256) polynomial (coeffs[0] is the constant term)
// at x via Horner's method.
func evalPoly(coeffs []byte, x byte) byte {
	var y byte
	for i := len(coeffs) - 1; i >= 0; i-- {
		y = gfAdd(gfMul(y, x), coeffs[i])
	}
	return y
}
