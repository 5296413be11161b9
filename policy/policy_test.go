// Copyright (c) 2025 Justin Cranford
//
package policy_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"mfkdf/mfkdferr"
	"mfkdf/policy"
	"mfkdf/primitives"
)

func leafDescriptor(id string) *policy.FactorDescriptor {
	return &policy.FactorDescriptor{
		ID:     id,
		Type:   policy.TypePassword,
		Pad:    []byte{1, 2, 3, 4},
		Salt:   []byte{5, 6},
		Params: json.RawMessage(`{}`),
	}
}

func twoOfThreePolicy() *policy.Policy {
	return &policy.Policy{
		Size:      32,
		Threshold: 2,
		KDF:       primitives.KDFConfig{Type: primitives.KDFHKDF},
		Salt:      []byte{9, 9, 9},
		Factors:   []*policy.FactorDescriptor{leafDescriptor("a"), leafDescriptor("b"), leafDescriptor("c")},
	}
}

func TestValidateRejectsDuplicateIDsAcrossNesting(t *testing.T) {
	t.Parallel()

	outer := twoOfThreePolicy()
	inner := &policy.Policy{
		Size:      32,
		Threshold: 1,
		Factors:   []*policy.FactorDescriptor{leafDescriptor("a")}, // duplicate of outer's "a"
	}
	outer.Factors = append(outer.Factors, &policy.FactorDescriptor{
		ID:    "stack1",
		Type:  policy.TypeStack,
		Stack: inner,
	})

	err := policy.Validate(outer)
	require.Error(t, err)
	require.True(t, mfkdferr.Is(err, mfkdferr.KindPolicy))
}

func TestValidateAcceptsDistinctNestedIDs(t *testing.T) {
	t.Parallel()

	outer := twoOfThreePolicy()
	inner := &policy.Policy{
		Size:      32,
		Threshold: 1,
		Factors:   []*policy.FactorDescriptor{leafDescriptor("d")},
	}
	outer.Factors = append(outer.Factors, &policy.FactorDescriptor{
		ID:    "stack1",
		Type:  policy.TypeStack,
		Stack: inner,
	})

	require.NoError(t, policy.Validate(outer))
}

func TestEvaluateFlatQuorum(t *testing.T) {
	t.Parallel()

	pol := twoOfThreePolicy()

	tests := []struct {
		name    string
		present []string
		want    bool
	}{
		{"none present", nil, false},
		{"one present", []string{"a"}, false},
		{"exactly threshold", []string{"a", "b"}, true},
		{"all present", []string{"a", "b", "c"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			set := map[string]struct{}{}
			for _, id := range tt.present {
				set[id] = struct{}{}
			}
			require.Equal(t, tt.want, policy.Evaluate(pol, set))
		})
	}
}

func TestEvaluateRecursesIntoStack(t *testing.T) {
	t.Parallel()

	inner := &policy.Policy{
		Size:      32,
		Threshold: 2,
		Factors:   []*policy.FactorDescriptor{leafDescriptor("x"), leafDescriptor("y")},
	}
	outer := &policy.Policy{
		Size:      32,
		Threshold: 1,
		Factors: []*policy.FactorDescriptor{
			{ID: "stack1", Type: policy.TypeStack, Stack: inner},
		},
	}

	// inner quorum not satisfied -> stack doesn't count -> outer quorum fails.
	require.False(t, policy.Evaluate(outer, map[string]struct{}{"x": {}}))

	// inner quorum satisfied -> stack counts -> outer (1-of-1) quorum succeeds.
	require.True(t, policy.Evaluate(outer, map[string]struct{}{"x": {}, "y": {}}))
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	pol := twoOfThreePolicy()
	clone := pol.Clone()

	clone.Factors[0].Pad[0] = 0xff
	require.NotEqual(t, pol.Factors[0].Pad[0], clone.Factors[0].Pad[0])

	clone.Threshold = 3
	require.Equal(t, 2, pol.Threshold)
}

func TestJSONRoundTripFlat(t *testing.T) {
	t.Parallel()

	pol := twoOfThreePolicy()

	raw, err := json.Marshal(pol)
	require.NoError(t, err)

	var decoded policy.Policy
	require.NoError(t, json.Unmarshal(raw, &decoded))

	require.Equal(t, pol.Size, decoded.Size)
	require.Equal(t, pol.Threshold, decoded.Threshold)
	require.Equal(t, pol.Salt, decoded.Salt)
	require.Len(t, decoded.Factors, len(pol.Factors))
	for i, fd := range pol.Factors {
		require.Equal(t, fd.ID, decoded.Factors[i].ID)
		require.Equal(t, fd.Type, decoded.Factors[i].Type)
		require.Equal(t, fd.Pad, decoded.Factors[i].Pad)
		require.Equal(t, fd.Salt, decoded.Factors[i].Salt)
		require.JSONEq(t, string(fd.Params), string(decoded.Factors[i].Params))
	}
}

func TestJSONRoundTripNestedStack(t *testing.T) {
	t.Parallel()

	inner := &policy.Policy{
		Size:      32,
		Threshold: 1,
		KDF:       primitives.KDFConfig{Type: primitives.KDFHKDF},
		Salt:      []byte{1, 1},
		Factors:   []*policy.FactorDescriptor{leafDescriptor("inner1")},
	}
	outer := &policy.Policy{
		Size:      32,
		Threshold: 1,
		KDF:       primitives.KDFConfig{Type: primitives.KDFHKDF},
		Salt:      []byte{2, 2},
		Factors: []*policy.FactorDescriptor{
			{ID: "stack1", Type: policy.TypeStack, Pad: []byte{0}, Salt: []byte{0}, Stack: inner},
		},
	}

	raw, err := json.Marshal(outer)
	require.NoError(t, err)

	var decoded policy.Policy
	require.NoError(t, json.Unmarshal(raw, &decoded))

	require.Len(t, decoded.Factors, 1)
	require.Equal(t, policy.TypeStack, decoded.Factors[0].Type)
	require.NotNil(t, decoded.Factors[0].Stack)
	require.Equal(t, inner.Threshold, decoded.Factors[0].Stack.Threshold)
	require.Len(t, decoded.Factors[0].Stack.Factors, 1)
	require.Equal(t, "inner1", decoded.Factors[0].Stack.Factors[0].ID)

	require.NoError(t, policy.Validate(&decoded))
}

func TestUnmarshalRejectsMalformedSalt(t *testing.T) {
	t.Parallel()

	var pol policy.Policy
	err := json.Unmarshal([]byte(`{"threshold":1,"size":32,"kdf":{"type":"hkdf"},"salt":"not-base64!!","factors":[]}`), &pol)
	require.Error(t, err)
	require.True(t, mfkdferr.Is(err, mfkdferr.KindPolicy))
}

func TestCollectIDsIncludesNested(t *testing.T) {
	t.Parallel()

	inner := &policy.Policy{Factors: []*policy.FactorDescriptor{leafDescriptor("inner1")}}
	outer := &policy.Policy{
		Factors: []*policy.FactorDescriptor{
			leafDescriptor("a"),
			{ID: "stack1", Type: policy.TypeStack, Stack: inner},
		},
	}
	require.ElementsMatch(t, []string{"a", "stack1", "inner1"}, outer.CollectIDs())
}
