// Copyright (c) 2025 Justin Cranford
//
// Package zeroize wraps derivation-scoped secret material so it can be wiped
// from memory once a derivation completes, per the lifecycle rules in
// SPEC_FULL.md (material data, shares, and the combined secret are
// zeroized on drop except for what is surfaced in the derived key bundle).
package zeroize

// Bytes is a byte slice that the holder intends to wipe once it is no
// longer needed. It carries no magic: callers must call Zero explicitly
// when a value reaches the end of its derivation-scoped lifetime.
type Bytes []byte

// Zero overwrites every byte with 0. Safe to call on a nil or already-zeroed
// slice.
func (b Bytes) Zero() {
	for i := range b {
		b[i] = 0
	}
}

// Clone returns an independent copy, leaving the receiver untouched.
func (b Bytes) Clone() Bytes {
	if b == nil {
		return nil
	}
	out := make(Bytes, len(b))
	copy(out, b)
	return out
}

// ZeroAll zeroizes every slice in shares, skipping holes (nil entries).
func ZeroAll(shares []Bytes) {
	for _, s := range shares {
		s.Zero()
	}
}
