// Copyright (c) 2025 Justin Cranford
//
package setup_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mfkdf/derive"
	"mfkdf/factors"
	"mfkdf/mfkdferr"
	"mfkdf/primitives"
	"mfkdf/setup"
)

func TestNewFactorIDProducesDistinctIDs(t *testing.T) {
	t.Parallel()

	a := setup.NewFactorID()
	b := setup.NewFactorID()
	require.NotEmpty(t, a)
	require.NotEmpty(t, b)
	require.NotEqual(t, a, b)
}

func TestPolicyAssignsIDWhenBlank(t *testing.T) {
	t.Parallel()

	fsPassword, err := setup.Password("", "a reasonably strong passphrase!!")
	require.NoError(t, err)
	require.Empty(t, fsPassword.ID)

	pol, _, err := setup.Policy(32, 1, primitives.KDFConfig{Type: primitives.KDFHKDF}, []byte("s"), fsPassword)
	require.NoError(t, err)
	require.NotEmpty(t, pol.Factors[0].ID)
}

func TestPolicyEachLeafFactorKind(t *testing.T) {
	t.Parallel()

	fsPassword, err := setup.Password("pw1", "a reasonably strong passphrase!!")
	require.NoError(t, err)
	fsQuestion, err := setup.Question("q1", "What is your favorite color?")
	require.NoError(t, err)
	fsHMAC, err := setup.HMACSHA1("hmac1")
	require.NoError(t, err)
	fsHOTP, err := setup.HOTP("hotp1", []byte("12345678901234567890"), 6, "sha1")
	require.NoError(t, err)
	fsTOTP, err := setup.TOTP("totp1", []byte("09876543210987654321"), 6, "sha1", 30, 5, 1_700_000_000_000)
	require.NoError(t, err)
	fsPersisted := setup.Persisted("persisted1")

	pol, bundle, err := setup.Policy(32, 1,
		primitives.KDFConfig{Type: primitives.KDFHKDF},
		[]byte("setup-salt"),
		fsPassword, fsQuestion, fsHMAC, fsHOTP, fsTOTP, fsPersisted,
	)
	require.NoError(t, err)
	require.NotNil(t, pol)
	require.NotNil(t, bundle)
	require.Len(t, bundle.Key, 32)
	require.Len(t, bundle.Shares, 6)
	require.Equal(t, 1, pol.Threshold)
	require.Len(t, pol.Factors, 6)
}

func TestPolicyRequiresAtLeastOneFactor(t *testing.T) {
	t.Parallel()

	_, _, err := setup.Policy(32, 1, primitives.KDFConfig{Type: primitives.KDFHKDF}, []byte("s"))
	require.Error(t, err)
	require.True(t, mfkdferr.Is(err, mfkdferr.KindSetup))
}

func TestPolicyRejectsInvalidThreshold(t *testing.T) {
	t.Parallel()

	fsPassword, err := setup.Password("pw1", "a reasonably strong passphrase!!")
	require.NoError(t, err)

	_, _, err = setup.Policy(32, 2, primitives.KDFConfig{Type: primitives.KDFHKDF}, []byte("s"), fsPassword)
	require.Error(t, err)
	require.True(t, mfkdferr.Is(err, mfkdferr.KindSetup))

	_, _, err = setup.Policy(32, 0, primitives.KDFConfig{Type: primitives.KDFHKDF}, []byte("s"), fsPassword)
	require.Error(t, err)
	require.True(t, mfkdferr.Is(err, mfkdferr.KindSetup))
}

func TestPolicyRejectsNonPositiveSize(t *testing.T) {
	t.Parallel()

	fsPassword, err := setup.Password("pw1", "a reasonably strong passphrase!!")
	require.NoError(t, err)

	_, _, err = setup.Policy(0, 1, primitives.KDFConfig{Type: primitives.KDFHKDF}, []byte("s"), fsPassword)
	require.Error(t, err)
	require.True(t, mfkdferr.Is(err, mfkdferr.KindSetup))
}

func TestPolicyPersistedFactorShareRoundTrips(t *testing.T) {
	t.Parallel()

	fsPassword, err := setup.Password("pw1", "a reasonably strong passphrase!!")
	require.NoError(t, err)
	fsPersisted := setup.Persisted("persisted1")

	pol, bundle, err := setup.Policy(32, 1, primitives.KDFConfig{Type: primitives.KDFHKDF}, []byte("s"), fsPassword, fsPersisted)
	require.NoError(t, err)

	persistedShare := bundle.Shares[1]
	require.Len(t, persistedShare, 32)

	again, err := derive.Derive(pol, map[string]factors.Handler{
		"persisted1": factors.Persisted(persistedShare),
	})
	require.NoError(t, err)
	require.Equal(t, bundle.Secret, again.Secret)
}

func TestPolicyStackFactorSelfCheckSucceeds(t *testing.T) {
	t.Parallel()

	fsInner1, err := setup.Password("inner1", "inner passphrase one!!")
	require.NoError(t, err)
	fsInner2, err := setup.Password("inner2", "inner passphrase two!!")
	require.NoError(t, err)
	stackSetup := setup.Stack("stack1", 32, 2, primitives.KDFConfig{Type: primitives.KDFHKDF}, []byte("inner-salt"), fsInner1, fsInner2)

	_, bundle, err := setup.Policy(32, 1, primitives.KDFConfig{Type: primitives.KDFHKDF}, []byte("outer-salt"), stackSetup)
	require.NoError(t, err)
	require.NotNil(t, bundle)
	require.Len(t, bundle.Key, 32)
}

func TestPolicyMissingMaterialFails(t *testing.T) {
	t.Parallel()

	broken := setup.FactorSetup{ID: "broken", Type: "password"}
	_, _, err := setup.Policy(32, 1, primitives.KDFConfig{Type: primitives.KDFHKDF}, []byte("s"), broken)
	require.Error(t, err)
	require.True(t, mfkdferr.Is(err, mfkdferr.KindSetup))
}
