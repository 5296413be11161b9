// Copyright (c) 2025 Justin Cranford
//
package primitives

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"mfkdf/mfkdferr"
)

// HashFunc returns a constructor for the named digest. Supported names are
// "sha1", "sha256", "sha384", and "sha512" (spec.md §4.1), matched
// case-insensitively the way the teacher's digests package does.
func HashFunc(name string) (func() hash.Hash, error) {
	switch normalizeDigest(name) {
	case "sha1":
		return sha1.New, nil
	case "sha256":
		return sha256.New, nil
	case "sha384":
		return sha512.New384, nil
	case "sha512":
		return sha512.New, nil
	default:
		return nil, mfkdferr.Config("unsupported digest %q", name)
	}
}

func normalizeDigest(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c == '-' || c == '_' {
			continue
		}
		out = append(out, c)
	}
	return string(out)
}
