// Copyright (c) 2025 Justin Cranford
//
package factors

import (
	"mfkdf/mfkdferr"
	"mfkdf/policy"
)

// Persisted builds the persisted factor handler (spec.md §4.4.6): the input
// bytes ARE the share for this slot; the orchestrator must skip the pad/HKDF
// transform for this kind.
func Persisted(data []byte) Handler {
	return HandlerFunc(func(_ *policy.FactorDescriptor) (Material, error) {
		if len(data) == 0 {
			return nil, mfkdferr.Factor("persisted factor data must be non-empty")
		}
		return simpleMaterial{data: data, output: Report{}, rotated: identityParams{}}, nil
	})
}

// SetupPersisted builds the initial material and params for a brand-new
// persisted factor: data is the caller-supplied share bytes directly.
func SetupPersisted(data []byte) (Material, []byte, error) {
	h := Persisted(data)
	m, err := h.Derive(nil)
	if err != nil {
		return nil, nil, err
	}
	return m, nil, nil
}
