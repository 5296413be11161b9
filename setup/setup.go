// Copyright (c) 2025 Justin Cranford
//
// Package setup supplements spec.md's derive-only pipeline (C7) with the
// paired construction step the distillation omitted: building the very
// first Policy for a set of factors (see SPEC_FULL.md, "SETUP SUPPLEMENT",
// grounded on original_source/Code/src/setup/{stage,kdf,default}.py).
package setup

import (
	"crypto/rand"

	"github.com/google/uuid"

	"mfkdf/derive"
	"mfkdf/factors"
	"mfkdf/internal/zeroize"
	"mfkdf/mfkdferr"
	"mfkdf/policy"
	"mfkdf/primitives"
	"mfkdf/threshold"
)

// NewFactorID generates a fresh random identifier suitable for a factor id
// that the caller doesn't care to name explicitly, the same way the teacher
// stack mints ids for freshly created material (see the teacher's
// internal/apps/jose/ja/service package, which uuid.NewV7()s an id for every
// newly generated key). v7 is time-ordered, which keeps factor ids roughly
// insertion-sorted when a policy is listed or logged.
func NewFactorID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// FactorSetup describes one factor to seed into a new policy: either a leaf
// kind's pre-built initial Material and params, or (for Type == TypeStack)
// the nested sub-policy's own construction parameters.
type FactorSetup struct {
	ID       string
	Type     policy.FactorType
	Material factors.Material
	Params   []byte

	SubSize      int
	SubThreshold int
	SubKDF       primitives.KDFConfig
	SubSalt      []byte
	SubFactors   []FactorSetup
}

// Password builds a FactorSetup for a brand-new password factor.
func Password(id, password string) (FactorSetup, error) {
	m, params, err := factors.SetupPassword(password)
	if err != nil {
		return FactorSetup{}, err
	}
	return FactorSetup{ID: id, Type: policy.TypePassword, Material: m, Params: params}, nil
}

// Question builds a FactorSetup for a brand-new security-question factor.
func Question(id, answer string) (FactorSetup, error) {
	m, params, err := factors.SetupQuestion(answer)
	if err != nil {
		return FactorSetup{}, err
	}
	return FactorSetup{ID: id, Type: policy.TypeQuestion, Material: m, Params: params}, nil
}

// HMACSHA1 builds a FactorSetup for a brand-new HMAC-SHA1 challenge factor,
// generating the secretSlot and first challenge/pad.
func HMACSHA1(id string) (FactorSetup, error) {
	m, params, err := factors.SetupHMACSHA1()
	if err != nil {
		return FactorSetup{}, err
	}
	return FactorSetup{ID: id, Type: policy.TypeHMACSHA1, Material: m, Params: params}, nil
}

// HOTP builds a FactorSetup for a brand-new HOTP factor bound to secret.
func HOTP(id string, secret []byte, digits int, hash string) (FactorSetup, error) {
	m, params, err := factors.SetupHOTP(secret, digits, hash)
	if err != nil {
		return FactorSetup{}, err
	}
	return FactorSetup{ID: id, Type: policy.TypeHOTP, Material: m, Params: params}, nil
}

// TOTP builds a FactorSetup for a brand-new TOTP factor bound to secret.
// start defaults to time.Now when zero.
func TOTP(id string, secret []byte, digits int, hash string, step, window int, start int64) (FactorSetup, error) {
	m, params, err := factors.SetupTOTP(secret, digits, hash, step, window, start)
	if err != nil {
		return FactorSetup{}, err
	}
	return FactorSetup{ID: id, Type: policy.TypeTOTP, Material: m, Params: params}, nil
}

// Persisted builds a FactorSetup for a brand-new persisted factor; its
// share-valued data is assigned during Policy's Shamir split, and surfaces
// to the caller via the resulting KeyBundle.Shares so it can be stored
// externally for later presentation through factors.Persisted.
func Persisted(id string) FactorSetup {
	return FactorSetup{ID: id, Type: policy.TypePersisted}
}

// Stack builds a FactorSetup for a nested sub-policy (C6).
func Stack(id string, size, k int, kdf primitives.KDFConfig, salt []byte, subFactors ...FactorSetup) FactorSetup {
	return FactorSetup{
		ID: id, Type: policy.TypeStack,
		SubSize: size, SubThreshold: k, SubKDF: kdf, SubSalt: salt,
		SubFactors: subFactors,
	}
}

// staticHandler replays a pre-built Material once; used only for the
// single self-check derivation Policy performs right after assembly.
type staticHandler struct {
	material factors.Material
}

func (h staticHandler) Derive(*policy.FactorDescriptor) (factors.Material, error) {
	return h.material, nil
}

// Policy generates a fresh size-byte secret, splits it into len(factorSetups)
// Shamir shares at the given threshold, computes every factor's pad, and
// assembles the resulting Policy. It then performs a single real derivation
// over the freshly-built tree as a round-trip self-check (spec.md I5). It
// returns the policy as assembled, before that derivation's rotation, and
// the resulting KeyBundle, whose Policy field holds the rotated policy, so a
// caller gets a usable key without a second derivation.
func Policy(size, k int, kdf primitives.KDFConfig, salt []byte, factorSetups ...FactorSetup) (*policy.Policy, *derive.KeyBundle, error) {
	pol, handlers, secret, err := buildTree(size, k, kdf, salt, factorSetups)
	if err != nil {
		return nil, nil, err
	}
	zeroize.Bytes(secret).Zero()

	bundle, err := derive.Derive(pol, handlers)
	if err != nil {
		return nil, nil, mfkdferr.Wrap(mfkdferr.KindSetup, "setup self-check derivation failed", err)
	}
	return pol, bundle, nil
}

// buildTree assembles one level of the policy tree (recursing into stack
// factors) and returns the fresh, not-yet-rotated secret alongside it: a
// stack descriptor's containing level needs that secret's KDF-derived key
// as its own material.Data() (spec.md §4.4.7), computed directly here
// rather than through a throwaway recursive derivation.
func buildTree(size, k int, kdf primitives.KDFConfig, salt []byte, factorSetups []FactorSetup) (*policy.Policy, map[string]factors.Handler, []byte, error) {
	n := len(factorSetups)
	if n == 0 {
		return nil, nil, nil, mfkdferr.Setup("policy requires at least one factor")
	}
	if k <= 0 || k > n {
		return nil, nil, nil, mfkdferr.Setup("threshold must be between 1 and the number of factors")
	}
	if size <= 0 {
		return nil, nil, nil, mfkdferr.Setup("size must be a positive integer")
	}

	secret := make([]byte, size)
	if _, err := rand.Read(secret); err != nil {
		return nil, nil, nil, mfkdferr.Wrap(mfkdferr.KindCrypto, "secret generation failed", err)
	}

	shares, err := threshold.Split(secret, k, n)
	if err != nil {
		return nil, nil, nil, err
	}

	descriptors := make([]*policy.FactorDescriptor, n)
	handlers := make(map[string]factors.Handler, n)

	for i, f := range factorSetups {
		factorID := f.ID
		if factorID == "" {
			factorID = NewFactorID()
		}
		fd := &policy.FactorDescriptor{ID: factorID, Type: f.Type}
		switch f.Type {
		case policy.TypeStack:
			subPol, subHandlers, subSecret, err := buildTree(f.SubSize, f.SubThreshold, f.SubKDF, f.SubSalt, f.SubFactors)
			if err != nil {
				return nil, nil, nil, err
			}
			subKey, err := primitives.Derive(subSecret, subPol.Salt, subPol.Size, subPol.KDF)
			zeroize.Bytes(subSecret).Zero()
			if err != nil {
				return nil, nil, nil, err
			}
			pad, err := padFor(shares[i], subKey, size)
			zeroize.Bytes(subKey).Zero()
			if err != nil {
				return nil, nil, nil, err
			}
			fd.Pad = pad
			fd.Stack = subPol
			for id, h := range subHandlers {
				handlers[id] = h
			}
		case policy.TypePersisted:
			data := append([]byte(nil), shares[i]...)
			fd.Pad = append([]byte(nil), shares[i]...)
			handlers[factorID] = factors.Persisted(data)
		default:
			if f.Material == nil {
				return nil, nil, nil, mfkdferr.Setup("factor %q is missing its initial material", factorID)
			}
			pad, err := padFor(shares[i], f.Material.Data(), size)
			if err != nil {
				return nil, nil, nil, err
			}
			fd.Pad = pad
			fd.Params = f.Params
			handlers[factorID] = staticHandler{material: f.Material}
		}
		descriptors[i] = fd
	}

	pol := &policy.Policy{Size: size, Threshold: k, KDF: kdf, Salt: append([]byte(nil), salt...), Factors: descriptors}
	if err := policy.Validate(pol); err != nil {
		return nil, nil, nil, err
	}
	return pol, handlers, secret, nil
}

func padFor(share threshold.Share, materialData []byte, size int) ([]byte, error) {
	expanded, err := primitives.HKDFSHA512(materialData, size)
	if err != nil {
		return nil, err
	}
	defer zeroize.Bytes(expanded).Zero()
	if len(share) != size {
		return nil, mfkdferr.Threshold("split share length does not match policy size")
	}
	pad := make([]byte, size)
	for i := range pad {
		pad[i] = share[i] ^ expanded[i]
	}
	return pad, nil
}
