// Copyright (c) 2025 Justin Cranford
//
package primitives

import (
	"io"

	"golang.org/x/crypto/hkdf"

	"mfkdf/mfkdferr"
)

// HKDF implements RFC 5869 HKDF-Extract-and-Expand over the named digest,
// grounded on the teacher's digests package (its HKDF helper exercises
// exactly this HKDF(digest, secret, salt, info, size) shape) and backed
// directly by golang.org/x/crypto/hkdf, one of the teacher's direct
// dependencies.
func HKDF(digest string, ikm, salt, info []byte, size int) ([]byte, error) {
	if size <= 0 {
		return nil, mfkdferr.Crypto("hkdf output size must be positive")
	}
	h, err := HashFunc(digest)
	if err != nil {
		return nil, err
	}
	reader := hkdf.New(h, ikm, salt, info)
	out := make([]byte, size)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, mfkdferr.Wrap(mfkdferr.KindCrypto, "hkdf expansion underflow", err)
	}
	return out, nil
}

// HKDFSHA512 is the material→share expansion used throughout §3: every
// non-persisted factor's share is pad XOR HKDF-SHA512(material, "", "", size).
func HKDFSHA512(ikm []byte, size int) ([]byte, error) {
	return HKDF("sha512", ikm, nil, nil, size)
}
