// Copyright (c) 2025 Justin Cranford
//
package derive

import (
	"mfkdf/factors"
	"mfkdf/policy"
)

// stackMaterial adapts a sub-derivation's KeyBundle to the factors.Material
// contract (C6, spec.md §4.4.7): the sub-key becomes this factor's witness
// data, and rotation simply installs the already-rotated sub-policy rather
// than computing anything from the outer key.
type stackMaterial struct {
	bundle *KeyBundle
}

func newStackMaterial(bundle *KeyBundle) stackMaterial {
	return stackMaterial{bundle: bundle}
}

func (m stackMaterial) Data() []byte { return m.bundle.Key }

func (m stackMaterial) Output() Report { return Report{"outputs": m.bundle.Outputs} }

func (m stackMaterial) RotatedParams(_ []byte) (factors.RotatedParams, error) {
	return stackRotatedParams{sub: m.bundle.Policy}, nil
}

// Report is a local alias so this file reads naturally; it is exactly
// factors.Report.
type Report = factors.Report

// stackRotatedParams installs the rotated sub-policy obtained during
// derivation and clears the descriptor's generic Params field, which stack
// descriptors never use.
type stackRotatedParams struct {
	sub *policy.Policy
}

func (r stackRotatedParams) ApplyTo(fd *policy.FactorDescriptor) {
	fd.Stack = r.sub
	fd.Params = nil
}
