// Copyright (c) 2025 Justin Cranford
//
package primitives

import (
	"encoding/base32"
	"strconv"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
	"github.com/pquerna/otp/totp"

	"mfkdf/mfkdferr"
)

// otpAlgorithm maps spec.md's lower-case algorithm names onto pquerna/otp's
// Algorithm enum, the same library the teacher's identity/mfa test suite
// exercises for TOTP/HOTP (handlers_totp_test.go, totp_hotp_auth_test.go).
func otpAlgorithm(name string) (otp.Algorithm, error) {
	switch normalizeDigest(name) {
	case "", "sha1":
		return otp.AlgorithmSHA1, nil
	case "sha256":
		return otp.AlgorithmSHA256, nil
	case "sha512":
		return otp.AlgorithmSHA512, nil
	default:
		return 0, mfkdferr.Config("unsupported otp algorithm %q", name)
	}
}

func otpDigits(digits int) otp.Digits {
	if digits == 8 {
		return otp.DigitsEight
	}
	return otp.DigitsSix
}

// base32Secret encodes raw secret bytes the way pquerna/otp expects them:
// unpadded, upper-case base32.
func base32Secret(secret []byte) string {
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(secret)
}

// HOTPCode computes the HOTP(secret, counter) value as an integer in
// [0, 10^digits), per RFC 4226 (spec.md §4.1).
func HOTPCode(secret []byte, counter uint64, algorithm string, digits int) (int, error) {
	alg, err := otpAlgorithm(algorithm)
	if err != nil {
		return 0, err
	}
	code, err := hotp.GenerateCodeCustom(base32Secret(secret), counter, hotp.ValidateOpts{
		Digits:    otpDigits(digits),
		Algorithm: alg,
	})
	if err != nil {
		return 0, mfkdferr.Wrap(mfkdferr.KindCrypto, "hotp code generation failed", err)
	}
	return strconv.Atoi(code)
}

// TOTPCode computes the TOTP value at the given counter (floor(time/step)),
// per RFC 6238 (spec.md §4.1), by driving pquerna/otp's HOTP primitive
// directly at the caller-supplied counter rather than its own wall-clock
// time.Now(), since the orchestrator needs codes for arbitrary historical and
// future counters when precomputing rotation windows (§4.4.5).
func TOTPCode(secret []byte, counter uint64, algorithm string, digits int) (int, error) {
	return HOTPCode(secret, counter, algorithm, digits)
}

// TOTPCounter returns floor(unixMillis / (step*1000)), the counter totp.go
// uses internally for a given wall-clock time (spec.md §4.4.5).
func TOTPCounter(unixMillis int64, step int) uint64 {
	return uint64(unixMillis / (int64(step) * 1000))
}

// TOTPCodeAt is a convenience wrapper mirroring pquerna/otp's totp.GenerateCodeCustom
// signature for callers that have a time.Time rather than a counter.
func TOTPCodeAt(secret []byte, t time.Time, step int, algorithm string, digits int) (int, error) {
	alg, err := otpAlgorithm(algorithm)
	if err != nil {
		return 0, err
	}
	code, err := totp.GenerateCodeCustom(base32Secret(secret), t, totp.ValidateOpts{
		Period:    uint(step),
		Digits:    otpDigits(digits),
		Algorithm: alg,
	})
	if err != nil {
		return 0, mfkdferr.Wrap(mfkdferr.KindCrypto, "totp code generation failed", err)
	}
	return strconv.Atoi(code)
}
