// Copyright (c) 2025 Justin Cranford
//
package factors

import (
	"encoding/json"
	"unicode"

	"mfkdf/mfkdferr"
	"mfkdf/policy"
)

// Password builds the password factor handler (spec.md §4.4.1): the UTF-8
// password bytes are the material directly, there is no persisted state to
// rotate, and the output carries a zxcvbn-style strength estimate.
func Password(password string) Handler {
	return HandlerFunc(func(_ *policy.FactorDescriptor) (Material, error) {
		if password == "" {
			return nil, mfkdferr.Factor("password must be a non-empty string")
		}
		rotated, err := jsonParams(struct{}{})
		if err != nil {
			return nil, err
		}
		return simpleMaterial{
			data:    []byte(password),
			output:  Report{"strength": passwordStrength(password)},
			rotated: rotated,
		}, nil
	})
}

// SetupPassword builds the initial material and params for a brand-new
// password factor (the setup supplement's leaf constructor).
func SetupPassword(password string) (Material, []byte, error) {
	h := Password(password)
	m, err := h.Derive(nil)
	if err != nil {
		return nil, nil, err
	}
	raw, err := json.Marshal(struct{}{})
	if err != nil {
		return nil, nil, err
	}
	return m, raw, nil
}

// passwordStrength is a lightweight, dependency-free character-class/length
// estimate in the spirit of zxcvbn's score (spec.md §4.4.1 names zxcvbn as
// the shape of the report, not a specific library to wire: see DESIGN.md).
func passwordStrength(password string) map[string]any {
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	classes := 0
	for _, b := range []bool{hasLower, hasUpper, hasDigit, hasSymbol} {
		if b {
			classes++
		}
	}
	score := 0
	switch {
	case len(password) >= 16 && classes >= 3:
		score = 4
	case len(password) >= 12 && classes >= 2:
		score = 3
	case len(password) >= 8:
		score = 2
	case len(password) >= 4:
		score = 1
	}
	return map[string]any{
		"length":          len(password),
		"characterClasses": classes,
		"score":           score,
	}
}
