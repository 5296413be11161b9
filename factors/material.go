// Copyright (c) 2025 Justin Cranford
//
// Package factors implements the per-kind factor modules (C4, spec.md §4.4):
// password, question, HMAC-SHA1 challenge/response, HOTP, TOTP, and persisted
// shares. Each kind is a sealed variant exposing a uniform Material contract
// rather than the duck-typed, callable-valued dict fields the system this
// spec was distilled from used (spec.md §9, "Dynamic dispatch over factor
// kinds"). The stack kind (C6) is deliberately absent here: it needs to call
// back into the top-level derivation, so it is implemented in the derive
// package instead, which depends on both policy and factors.
package factors

import (
	"encoding/json"

	"mfkdf/policy"
)

// Report is a factor's user-visible, eagerly-computed output — never fed
// back into derivation (spec.md §9, "evaluate eagerly in step 8 and store
// the result").
type Report map[string]any

// Material is a factor handler's derivation-time result: witness bytes plus
// a next-params generator and a user-output report (spec.md §3).
type Material interface {
	// Data is the raw factor witness fed into the share transform.
	Data() []byte
	// Output is the eagerly-computed, user-visible report.
	Output() Report
	// RotatedParams computes the next persisted params from the derived
	// key. Called once, after the key is known (spec.md §4.6 step 8).
	RotatedParams(key []byte) (RotatedParams, error)
}

// RotatedParams is the result of rotating one factor's params: applying it
// writes the new state into a clone of the factor's descriptor.
type RotatedParams interface {
	ApplyTo(fd *policy.FactorDescriptor)
}

// Handler is a factor's setup(config) → handler contract (spec.md §4.4):
// given the persisted descriptor (for its params, pad, and salt), it derives
// fresh Material from whatever input the caller supplied when building the
// handler.
type Handler interface {
	Derive(fd *policy.FactorDescriptor) (Material, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(fd *policy.FactorDescriptor) (Material, error)

func (f HandlerFunc) Derive(fd *policy.FactorDescriptor) (Material, error) { return f(fd) }

// rawParams applies a JSON-encoded params value verbatim — the common case
// for every non-stack factor kind.
type rawParams struct {
	data json.RawMessage
}

func (r rawParams) ApplyTo(fd *policy.FactorDescriptor) { fd.Params = r.data }

// jsonParams marshals v and wraps it as a RotatedParams.
func jsonParams(v any) (RotatedParams, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return rawParams{data: raw}, nil
}

// identityParams leaves the descriptor's params untouched, the rotation rule
// for factors with no mutable state (e.g. question: spec.md §4.4.2,
// "next_params = params").
type identityParams struct{}

func (identityParams) ApplyTo(*policy.FactorDescriptor) {}

// simpleMaterial is the common Material implementation shared by every
// stateless-or-precomputed-rotation factor kind in this package.
type simpleMaterial struct {
	data    []byte
	output  Report
	rotated RotatedParams
	err     error
}

func (m simpleMaterial) Data() []byte    { return m.data }
func (m simpleMaterial) Output() Report  { return m.output }
func (m simpleMaterial) RotatedParams(_ []byte) (RotatedParams, error) {
	return m.rotated, m.err
}
