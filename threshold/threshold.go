// Copyright (c) 2025 Justin Cranford
//
// Package threshold implements the secret-sharing combine/recover engine
// (spec.md §4.3): it binds n share slots — some possibly absent ("holes") —
// to a single master secret for 1-of-n, n-of-n, and general k-of-n quorum
// structures.
package threshold

import (
	"errors"

	"mfkdf/mfkdferr"
	"mfkdf/sharecodec"
)

// Share is a policy.size-byte slot value, or nil if that slot is a hole (no
// handler was supplied for it). Represented as a plain byte slice rather
// than a shorter present-only list: spec.md's Design Notes require
// positional information to survive into the k-of-n path.
type Share []byte

var errDivByZero = errors.New("gf256: division by zero")

func validateShape(shares []Share, k, n int) error {
	if n <= 0 {
		return mfkdferr.Threshold("n must be a positive integer")
	}
	if k <= 0 {
		return mfkdferr.Threshold("k must be a positive integer")
	}
	if k > n {
		return mfkdferr.Threshold("k must be less than or equal to n")
	}
	if len(shares) != n {
		return mfkdferr.Threshold("provide a shares list of size n; use nil for unknown shares")
	}
	return nil
}

func presentCount(shares []Share) int {
	c := 0
	for _, s := range shares {
		if s != nil {
			c++
		}
	}
	return c
}

func firstPresent(shares []Share) (Share, bool) {
	for _, s := range shares {
		if s != nil {
			return s, true
		}
	}
	return nil, false
}

func shareLen(shares []Share) int {
	for _, s := range shares {
		if s != nil {
			return len(s)
		}
	}
	return 0
}

// Combine reconstructs the master secret from a (possibly hole-punched)
// length-n share vector, per spec.md §4.3.
func Combine(shares []Share, k, n int) (Share, error) {
	if err := validateShape(shares, k, n); err != nil {
		return nil, err
	}
	switch {
	case k == 1:
		s, ok := firstPresent(shares)
		if !ok {
			return nil, mfkdferr.Threshold("not enough shares provided to retrieve secret")
		}
		out := make(Share, len(s))
		copy(out, s)
		return out, nil
	case k == n:
		if presentCount(shares) != n {
			return nil, mfkdferr.Threshold("n-of-n combine requires every share to be present")
		}
		out := make(Share, len(shares[0]))
		copy(out, shares[0])
		for _, s := range shares[1:] {
			xorInto(out, s)
		}
		return out, nil
	default:
		if presentCount(shares) < k {
			return nil, mfkdferr.Threshold("not enough shares provided to retrieve secret")
		}
		return interpolate(shares, n, 0)
	}
}

// Recover reconstructs the full n-length share vector, regenerating absent
// slots by evaluating the Shamir polynomial at each missing index while
// leaving present shares bit-exact, per spec.md §4.3.
func Recover(shares []Share, k, n int) ([]Share, error) {
	if err := validateShape(shares, k, n); err != nil {
		return nil, err
	}
	switch {
	case k == 1:
		s, ok := firstPresent(shares)
		if !ok {
			return nil, mfkdferr.Threshold("not enough shares provided to retrieve secret")
		}
		out := make([]Share, n)
		for i := range out {
			cp := make(Share, len(s))
			copy(cp, s)
			out[i] = cp
		}
		return out, nil
	case k == n:
		if presentCount(shares) != n {
			return nil, mfkdferr.Threshold("n-of-n recover requires every share to be present")
		}
		out := make([]Share, n)
		for i, s := range shares {
			cp := make(Share, len(s))
			copy(cp, s)
			out[i] = cp
		}
		return out, nil
	default:
		if presentCount(shares) < k {
			return nil, mfkdferr.Threshold("not enough shares provided to retrieve secret")
		}
		out := make([]Share, n)
		for i := range shares {
			if shares[i] != nil {
				cp := make(Share, len(shares[i]))
				copy(cp, shares[i])
				out[i] = cp
				continue
			}
			regenerated, err := interpolate(shares, n, byte(i+1))
			if err != nil {
				return nil, err
			}
			out[i] = regenerated
		}
		return out, nil
	}
}

func xorInto(dst Share, src Share) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

// interpolate evaluates, at x = atX, the unique degree-(<n) polynomial
// passing through every present share's (index, byte) point, independently
// per byte position. atX == 0 recovers the secret (the polynomial's
// constant term); atX == i+1 regenerates share i.
//
// Per spec.md §4.3 ("1 < k < n: ... invoke Shamir combine with the hex
// encoding of §4.2"), every present share is round-tripped through
// sharecodec's "<bits> <index_hex><data_hex>" wire encoding before it
// contributes to the interpolation: the (index, data) pair Shamir combine
// actually operates on is the one that hex encoding carries, not a value
// merely inferred from slice position.
func interpolate(shares []Share, n int, atX byte) (Share, error) {
	size := shareLen(shares)
	out := make(Share, size)
	xs := make([]byte, 0, len(shares))
	ys := make([][]byte, 0, len(shares))
	for i, s := range shares {
		if s == nil {
			continue
		}
		idx, data, err := sharecodec.Decode(sharecodec.Encode(i+1, s, n))
		if err != nil {
			return nil, mfkdferr.Wrap(mfkdferr.KindThreshold, "shamir share codec round-trip failed", err)
		}
		xs = append(xs, byte(idx))
		ys = append(ys, data)
	}
	for j := 0; j < size; j++ {
		var acc byte
		for i := range xs {
			term, err := lagrangeTerm(xs, ys, i, j, atX)
			if err != nil {
				return nil, mfkdferr.Wrap(mfkdferr.KindThreshold, "shamir interpolation failed", err)
			}
			acc = gfAdd(acc, term)
		}
		out[j] = acc
	}
	return out, nil
}

// lagrangeTerm computes y_i[j] * L_i(atX) where L_i is the i-th Lagrange
// basis polynomial over xs, evaluated at atX.
func lagrangeTerm(xs []byte, ys [][]byte, i, j int, atX byte) (byte, error) {
	num := byte(1)
	den := byte(1)
	for m := range xs {
		if m == i {
			continue
		}
		num = gfMul(num, gfAdd(atX, xs[m]))
		den = gfMul(den, gfAdd(xs[i], xs[m]))
	}
	basis, err := gfDiv(num, den)
	if err != nil {
		return 0, err
	}
	return gfMul(ys[i][j], basis), nil
}
