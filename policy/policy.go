// Copyright (c) 2025 Justin Cranford
//
// Package policy implements the MFKDF policy data model (spec.md §3) and the
// validator/evaluator (C5, spec.md §4.5): a possibly-nested k-of-n quorum
// structure over heterogeneous factor descriptors.
package policy

import (
	"encoding/base64"
	"encoding/json"

	"mfkdf/mfkdferr"
	"mfkdf/primitives"
)

// FactorType names one of the factor kinds a descriptor can carry
// (spec.md §3).
type FactorType string

const (
	TypePersisted FactorType = "persisted"
	TypePassword  FactorType = "password"
	TypeQuestion  FactorType = "question"
	TypeHMACSHA1  FactorType = "hmacsha1"
	TypeHOTP      FactorType = "hotp"
	TypeTOTP      FactorType = "totp"
	TypeStack     FactorType = "stack"
)

// FactorDescriptor is one slot of a Policy's factor list (spec.md §3). Share
// slot index is the descriptor's position within Policy.Factors — order is
// significant and must never be re-sorted.
type FactorDescriptor struct {
	ID     string
	Type   FactorType
	Pad    []byte
	Salt   []byte
	Params json.RawMessage // nil for Type == TypeStack; see Stack instead

	// Stack holds the nested sub-policy when Type == TypeStack (C6). It is
	// the recursive half of the self-referential policy tree (spec.md §9,
	// "Design Notes: Recursive policies").
	Stack *Policy
}

// Clone returns a deep, independent copy of the descriptor.
func (fd *FactorDescriptor) Clone() *FactorDescriptor {
	out := &FactorDescriptor{ID: fd.ID, Type: fd.Type}
	out.Pad = append([]byte(nil), fd.Pad...)
	out.Salt = append([]byte(nil), fd.Salt...)
	if fd.Params != nil {
		out.Params = append(json.RawMessage(nil), fd.Params...)
	}
	if fd.Stack != nil {
		out.Stack = fd.Stack.Clone()
	}
	return out
}

// Policy is the recursive, persisted tree describing factor ids, types,
// pads, salts, quorum threshold, and KDF parameters (spec.md §3).
type Policy struct {
	Size      int
	Threshold int
	KDF       primitives.KDFConfig
	Salt      []byte
	Factors   []*FactorDescriptor
}

// Clone deep-clones the policy. Rotation (spec.md §4.6 step 8) must produce
// a new policy value, never mutate the one passed in (spec.md §3,
// "Lifecycle").
func (p *Policy) Clone() *Policy {
	out := &Policy{Size: p.Size, Threshold: p.Threshold, KDF: p.KDF}
	out.Salt = append([]byte(nil), p.Salt...)
	out.Factors = make([]*FactorDescriptor, len(p.Factors))
	for i, fd := range p.Factors {
		out.Factors[i] = fd.Clone()
	}
	return out
}

// CollectIDs gathers every factor id across the transitively-expanded policy
// tree, including every nested stack's sub-policy ids.
func (p *Policy) CollectIDs() []string {
	var ids []string
	var walk func(pol *Policy)
	walk = func(pol *Policy) {
		for _, fd := range pol.Factors {
			ids = append(ids, fd.ID)
			if fd.Type == TypeStack && fd.Stack != nil {
				walk(fd.Stack)
			}
		}
	}
	walk(p)
	return ids
}

// Validate reports whether every id in the transitively-expanded policy
// tree is distinct (spec.md §4.5, invariant I1).
func Validate(p *Policy) error {
	seen := make(map[string]struct{})
	for _, id := range p.CollectIDs() {
		if _, dup := seen[id]; dup {
			return mfkdferr.Policy("duplicate factor id %q", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Evaluate reports whether presentIDs satisfies p's quorum, recursing into
// stack factors (spec.md §4.5): a stack counts toward its containing
// policy's threshold iff its own sub-policy quorum is satisfied.
func Evaluate(p *Policy, presentIDs map[string]struct{}) bool {
	count := 0
	for _, fd := range p.Factors {
		if fd.Type == TypeStack {
			if fd.Stack != nil && Evaluate(fd.Stack, presentIDs) {
				count++
			}
			continue
		}
		if _, ok := presentIDs[fd.ID]; ok {
			count++
		}
	}
	return count >= p.Threshold
}

// --- JSON wire format (spec.md §6) -----------------------------------------

type policyWire struct {
	Threshold int                  `json:"threshold"`
	Size      int                  `json:"size"`
	KDF       primitives.KDFConfig `json:"kdf"`
	Salt      string               `json:"salt"`
	Factors   []factorWire         `json:"factors"`
}

type factorWire struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Pad    string          `json:"pad"`
	Salt   string          `json:"salt"`
	Params json.RawMessage `json:"params,omitempty"`
}

// MarshalJSON renders the policy document described in spec.md §6.
func (p *Policy) MarshalJSON() ([]byte, error) {
	wire := policyWire{
		Threshold: p.Threshold,
		Size:      p.Size,
		KDF:       p.KDF,
		Salt:      base64.StdEncoding.EncodeToString(p.Salt),
		Factors:   make([]factorWire, len(p.Factors)),
	}
	for i, fd := range p.Factors {
		fw := factorWire{
			ID:   fd.ID,
			Type: string(fd.Type),
			Pad:  base64.StdEncoding.EncodeToString(fd.Pad),
			Salt: base64.StdEncoding.EncodeToString(fd.Salt),
		}
		if fd.Type == TypeStack {
			if fd.Stack != nil {
				sub, err := json.Marshal(fd.Stack)
				if err != nil {
					return nil, err
				}
				fw.Params = sub
			}
		} else {
			fw.Params = fd.Params
		}
		wire.Factors[i] = fw
	}
	return json.Marshal(wire)
}

// UnmarshalJSON parses the policy document described in spec.md §6,
// recursively decoding any nested stack sub-policies.
func (p *Policy) UnmarshalJSON(data []byte) error {
	var wire policyWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	salt, err := base64.StdEncoding.DecodeString(wire.Salt)
	if err != nil {
		return mfkdferr.Policy("malformed policy salt: %v", err)
	}
	p.Threshold = wire.Threshold
	p.Size = wire.Size
	p.KDF = wire.KDF
	p.Salt = salt
	p.Factors = make([]*FactorDescriptor, len(wire.Factors))
	for i, fw := range wire.Factors {
		pad, err := base64.StdEncoding.DecodeString(fw.Pad)
		if err != nil {
			return mfkdferr.Policy("malformed pad for factor %q: %v", fw.ID, err)
		}
		factorSalt, err := base64.StdEncoding.DecodeString(fw.Salt)
		if err != nil {
			return mfkdferr.Policy("malformed salt for factor %q: %v", fw.ID, err)
		}
		fd := &FactorDescriptor{ID: fw.ID, Type: FactorType(fw.Type), Pad: pad, Salt: factorSalt}
		if fd.Type == TypeStack {
			var sub Policy
			if len(fw.Params) > 0 {
				if err := json.Unmarshal(fw.Params, &sub); err != nil {
					return mfkdferr.Policy("malformed stack params for factor %q: %v", fw.ID, err)
				}
			}
			fd.Stack = &sub
		} else {
			fd.Params = fw.Params
		}
		p.Factors[i] = fd
	}
	return nil
}
