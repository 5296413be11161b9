// Copyright (c) 2025 Justin Cranford
//
// Package mfkdferr defines the tagged error kinds shared across the MFKDF
// engine (spec.md §7): every failure the orchestrator can return is one of
// these kinds, wrapping a stable, lower-case, unpunctuated message so callers
// can both errors.Is/As on the kind and assert the exact text, the way the
// teacher's tests assert require.EqualError(t, err, "shared secrets can't be
// zero").
package mfkdferr

import "fmt"

// Kind classifies a failure. See spec.md §7 for the taxonomy.
type Kind int

const (
	// KindPolicy covers duplicate ids, unknown factor types, and malformed params.
	KindPolicy Kind = iota
	// KindQuorum covers insufficient factors, before or after material acquisition.
	KindQuorum
	// KindConfig covers unknown KDF types and unsupported digests.
	KindConfig
	// KindFactor covers factor-handler-reported failures.
	KindFactor
	// KindThreshold covers k/n inconsistency and share-vector length mismatch.
	KindThreshold
	// KindCrypto covers primitive failures (HMAC/HKDF/KDF underflow).
	KindCrypto
	// KindSetup covers failures constructing a new policy (SPEC_FULL.md supplement).
	KindSetup
)

func (k Kind) String() string {
	switch k {
	case KindPolicy:
		return "PolicyError"
	case KindQuorum:
		return "QuorumError"
	case KindConfig:
		return "ConfigError"
	case KindFactor:
		return "FactorError"
	case KindThreshold:
		return "ThresholdError"
	case KindCrypto:
		return "CryptoError"
	case KindSetup:
		return "SetupError"
	default:
		return "UnknownError"
	}
}

// Error is the single tagged result type every MFKDF failure is returned as.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Policy builds a KindPolicy error.
func Policy(format string, args ...any) *Error { return newf(KindPolicy, format, args...) }

// Quorum builds a KindQuorum error.
func Quorum(format string, args ...any) *Error { return newf(KindQuorum, format, args...) }

// Config builds a KindConfig error.
func Config(format string, args ...any) *Error { return newf(KindConfig, format, args...) }

// Factor builds a KindFactor error.
func Factor(format string, args ...any) *Error { return newf(KindFactor, format, args...) }

// Threshold builds a KindThreshold error.
func Threshold(format string, args ...any) *Error { return newf(KindThreshold, format, args...) }

// Crypto builds a KindCrypto error.
func Crypto(format string, args ...any) *Error { return newf(KindCrypto, format, args...) }

// Setup builds a KindSetup error.
func Setup(format string, args ...any) *Error { return newf(KindSetup, format, args...) }

// Wrap attaches an underlying cause to err's message while keeping its kind.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind == kind
	}
	return false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
