// Copyright (c) 2025 Justin Cranford
//
package factors

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mfkdf/mfkdferr"
	"mfkdf/policy"
)

var questionCaser = cases.Lower(language.Und)

// canonicalizeQuestion lowercases, strips everything outside [0-9a-z ], and
// trims leading/trailing spaces (spec.md §4.4.2). The source this spec was
// distilled from applied a literal regex *replace* of the pattern string
// instead of matching against it; spec.md §9 calls that out as a bug and
// adopts the intended strip-non-matching-characters semantics, which is
// what this implements.
func canonicalizeQuestion(answer string) string {
	lower := questionCaser.String(answer)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), " ")
}

// Question builds the security-question factor handler (spec.md §4.4.2).
// Rotation is the identity: params never change once set.
func Question(answer string) Handler {
	return HandlerFunc(func(_ *policy.FactorDescriptor) (Material, error) {
		if answer == "" {
			return nil, mfkdferr.Factor("answer must be a non-empty string")
		}
		canon := canonicalizeQuestion(answer)
		return simpleMaterial{
			data:    []byte(canon),
			output:  Report{"strength": passwordStrength(canon)},
			rotated: identityParams{},
		}, nil
	})
}

// SetupQuestion builds the initial material and params for a brand-new
// question factor.
func SetupQuestion(answer string) (Material, []byte, error) {
	h := Question(answer)
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
