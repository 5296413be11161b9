// Copyright (c) 2025 Justin Cranford
//
// Package sharecodec implements the wire encoding for Shamir shares used by
// the threshold engine (spec.md §4.2): a share is a hex string
// "<bits> <index_hex_padded_to_bits><data_hex>", where bits is the bit-width
// needed to represent an index up to n (minimum 3).
package sharecodec

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"mfkdf/mfkdferr"
)

// Bits returns the bit-width used to encode indices for n total shares:
// max(ceil(log2(n+1)), 3).
func Bits(n int) int {
	bits := bitLen(n)
	if bits < 3 {
		bits = 3
	}
	return bits
}

func bitLen(v int) int {
	n := 0
	for v > 0 {
		n++
		v >>= 1
	}
	return n
}

func hexDigits(bits int) int {
	return (bits + 3) / 4
}

// Encode renders a one-indexed share (index in [1, n]) as the spec's
// "<bits> <index_hex><data_hex>" string.
func Encode(index int, data []byte, n int) string {
	bits := Bits(n)
	digits := hexDigits(bits)
	return fmt.Sprintf("%d %0*x%s", bits, digits, index, hex.EncodeToString(data))
}

// Decode parses a share string back into its index and raw data bytes. If
// the data segment's hex length is odd, a leading "0" nibble is assumed
// (spec.md §4.2: "decoding tolerates odd nibbles on the data segment only").
func Decode(s string) (index int, data []byte, err error) {
	parts := strings.SplitN(s, " ", 2)
	if len(parts) != 2 {
		return 0, nil, mfkdferr.Threshold("malformed share: missing bits prefix")
	}
	bits, err := strconv.Atoi(parts[0])
	if err != nil || bits <= 0 {
		return 0, nil, mfkdferr.Threshold("malformed share: invalid bits prefix")
	}
	digits := hexDigits(bits)
	rest := parts[1]
	if len(rest) < digits {
		return 0, nil, mfkdferr.Threshold("malformed share: index segment too short")
	}
	idxHex, dataHex := rest[:digits], rest[digits:]
	idx64, err := strconv.ParseInt(idxHex, 16, 64)
	if err != nil {
		return 0, nil, mfkdferr.Threshold("malformed share: invalid index hex")
	}
	if len(dataHex)%2 == 1 {
		dataHex = "0" + dataHex
	}
	data, err = hex.DecodeString(dataHex)
	if err != nil {
		return 0, nil, mfkdferr.Threshold("malformed share: invalid data hex")
	}
	return int(idx64), data, nil
}
