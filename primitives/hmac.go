// Copyright (c) 2025 Justin Cranford
//
package primitives

import "crypto/hmac"

// HMAC computes HMAC over msg with key, using the named digest.
func HMAC(digest string, key, msg []byte) ([]byte, error) {
	h, err := HashFunc(digest)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(h, key)
	mac.Write(msg)
	return mac.Sum(nil), nil
}
