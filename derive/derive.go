// Copyright (c) 2025 Justin Cranford
//
// Package derive implements the key derivation orchestrator (C7, spec.md
// §4.6): the top-level pipeline from a policy and a map of factor-input
// handlers to a derived key, a rotated policy, and the other fields of the
// Derived Key Bundle (C8).
package derive

import (
	"golang.org/x/sync/errgroup"

	"mfkdf/factors"
	"mfkdf/internal/telemetry"
	"mfkdf/internal/zeroize"
	"mfkdf/mfkdferr"
	"mfkdf/policy"
	"mfkdf/primitives"
	"mfkdf/threshold"
)

// KeyBundle is the immutable Derived Key Bundle (spec.md §4.7): .Key is the
// derived key, .Policy is the new on-disk policy, .Outputs is UI feedback;
// .Secret and .Shares are exposed for advanced re-sharding flows.
type KeyBundle struct {
	Policy  *policy.Policy
	Key     []byte
	Secret  []byte
	Shares  [][]byte
	Outputs map[string]factors.Report
}

// Derive runs the full pipeline of spec.md §4.6 steps 1-10. factorMap maps
// factor id → the handler to invoke for that slot; ids with no entry remain
// holes. Stack descriptors are expanded recursively using the same
// factorMap, since ids are unique across the whole policy tree (spec.md
// §9, "Derivation of a stack is a recursive call on the orchestrator with
// factor_map restricted to the ids mentioned in that stack" — restriction
// falls out naturally here because a sub-policy's own Factors list only
// ever names ids that belong to it).
func Derive(pol *policy.Policy, factorMap map[string]factors.Handler) (*KeyBundle, error) {
	return derive(pol, factorMap, telemetry.NoOp())
}

// DeriveWithTelemetry runs the same pipeline as Derive, logging each
// factor-handler invocation and the overall outcome through svc (the
// ambient structured-logging service, SPEC_FULL.md "AMBIENT STACK"). svc
// is never given secret material — only factor ids, kinds, and error
// classifications, per internal/telemetry's package doc.
func DeriveWithTelemetry(pol *policy.Policy, factorMap map[string]factors.Handler, svc *telemetry.Service) (*KeyBundle, error) {
	return derive(pol, factorMap, svc)
}

func derive(pol *policy.Policy, factorMap map[string]factors.Handler, svc *telemetry.Service) (*KeyBundle, error) {
	if err := policy.Validate(pol); err != nil {
		svc.Slogger.Error("policy validation failed", "err", err)
		return nil, err
	}
	present := presentSet(factorMap)
	if !policy.Evaluate(pol, present) {
		svc.Slogger.Warn("quorum not satisfied before material acquisition", "threshold", pol.Threshold, "factors", len(pol.Factors))
		return nil, mfkdferr.Quorum("insufficient factors")
	}

	n := len(pol.Factors)
	materials := make([]factors.Material, n)

	var g errgroup.Group
	for i := range pol.Factors {
		i := i
		fd := pol.Factors[i]
		g.Go(func() error {
			m, err := deriveDescriptor(fd, factorMap, present, svc)
			if err != nil {
				svc.WithFactor(nil, fd.ID, string(fd.Type)).Error("factor derivation failed", "err", err)
				return err
			}
			if m == nil {
				svc.WithFactor(nil, fd.ID, string(fd.Type)).Debug("factor slot is a hole")
			} else {
				svc.WithFactor(nil, fd.ID, string(fd.Type)).Debug("factor material acquired")
			}
			materials[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	shares := make([]threshold.Share, n)
	outputs := make(map[string]factors.Report)
	for i, fd := range pol.Factors {
		m := materials[i]
		if m == nil {
			continue
		}
		share, err := shareFor(fd, m, pol.Size)
		if err != nil {
			return nil, err
		}
		shares[i] = share
		outputs[fd.ID] = m.Output()
	}
	if presentCount(shares) < pol.Threshold {
		svc.Slogger.Warn("quorum not satisfied after material acquisition", "threshold", pol.Threshold, "present", presentCount(shares))
		return nil, mfkdferr.Quorum("insufficient factors after material acquisition")
	}

	secret, err := threshold.Combine(shares, pol.Threshold, n)
	if err != nil {
		svc.Slogger.Error("threshold combine failed", "err", err)
		return nil, err
	}
	key, err := primitives.Derive(secret, pol.Salt, pol.Size, pol.KDF)
	if err != nil {
		svc.Slogger.Error("kdf stage failed", "kdf", pol.KDF.Type, "err", err)
		return nil, err
	}

	newPolicy := pol.Clone()
	var rotate errgroup.Group
	for i := range pol.Factors {
		i := i
		m := materials[i]
		if m == nil {
			continue
		}
		rotate.Go(func() error {
			rp, err := m.RotatedParams(key)
			if err != nil {
				return err
			}
			rp.ApplyTo(newPolicy.Factors[i])
			return nil
		})
	}
	if err := rotate.Wait(); err != nil {
		svc.Slogger.Error("parameter rotation failed", "err", err)
		return nil, err
	}

	fullShares, err := threshold.Recover(shares, pol.Threshold, n)
	if err != nil {
		svc.Slogger.Error("share recovery failed", "err", err)
		return nil, err
	}
	outShares := make([][]byte, n)
	for i, s := range fullShares {
		outShares[i] = []byte(s)
	}

	zeroizeMaterials(materials)
	for _, s := range shares {
		zeroize.Bytes(s).Zero()
	}

	svc.Slogger.Info("derivation succeeded", "size", pol.Size, "threshold", pol.Threshold, "factors", n)

	return &KeyBundle{
		Policy:  newPolicy,
		Key:     key,
		Secret:  []byte(secret),
		Shares:  outShares,
		Outputs: outputs,
	}, nil
}

func deriveDescriptor(fd *policy.FactorDescriptor, factorMap map[string]factors.Handler, present map[string]struct{}, svc *telemetry.Service) (factors.Material, error) {
	if fd.Type == policy.TypeStack {
		if fd.Stack == nil {
			return nil, mfkdferr.Policy("stack factor %q is missing its sub-policy", fd.ID)
		}
		if !policy.Evaluate(fd.Stack, present) {
			return nil, nil
		}
		sub, err := derive(fd.Stack, factorMap, svc)
		if err != nil {
			return nil, err
		}
		return newStackMaterial(sub), nil
	}
	h, ok := factorMap[fd.ID]
	if !ok {
		return nil, nil
	}
	return h.Derive(fd)
}

// shareFor implements spec.md §3's share rule: persisted factors pass
// material.Data() straight through; every other kind XORs the descriptor's
// pad against the HKDF-SHA512 expansion of the material.
func shareFor(fd *policy.FactorDescriptor, m factors.Material, size int) (threshold.Share, error) {
	if fd.Type == policy.TypePersisted {
		return threshold.Share(m.Data()), nil
	}
	expanded, err := primitives.HKDFSHA512(m.Data(), size)
	if err != nil {
		return nil, err
	}
	if len(fd.Pad) != size {
		return nil, mfkdferr.Threshold("pad for factor %q must be exactly policy.size bytes", fd.ID)
	}
	share := make(threshold.Share, size)
	for i := range share {
		share[i] = fd.Pad[i] ^ expanded[i]
	}
	zeroize.Bytes(expanded).Zero()
	return share, nil
}

func presentSet(factorMap map[string]factors.Handler) map[string]struct{} {
	out := make(map[string]struct{}, len(factorMap))
	for id := range factorMap {
		out[id] = struct{}{}
	}
	return out
}

func presentCount(shares []threshold.Share) int {
	c := 0
	for _, s := range shares {
		if s != nil {
			c++
		}
	}
	return c
}

func zeroizeMaterials(materials []factors.Material) {
	for _, m := range materials {
		if m == nil {
			continue
		}
		zeroize.Bytes(m.Data()).Zero()
	}
}
