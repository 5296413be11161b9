// Copyright (c) 2025 Justin Cranford
//
package threshold_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mfkdf/mfkdferr"
	"mfkdf/threshold"
)

func sampleSecret(n int) []byte {
	secret := make([]byte, n)
	for i := range secret {
		secret[i] = byte(i*37 + 11)
	}
	return secret
}

func TestSplitCombineOneOfN(t *testing.T) {
	t.Parallel()

	secret := sampleSecret(16)
	shares, err := threshold.Split(secret, 1, 4)
	require.NoError(t, err)
	require.Len(t, shares, 4)
	for _, s := range shares {
		require.Equal(t, secret, []byte(s))
	}

	holed := make([]threshold.Share, 4)
	holed[2] = shares[2]
	combined, err := threshold.Combine(holed, 1, 4)
	require.NoError(t, err)
	require.Equal(t, secret, []byte(combined))
}

func TestSplitCombineNOfN(t *testing.T) {
	t.Parallel()

	secret := sampleSecret(8)
	shares, err := threshold.Split(secret, 3, 3)
	require.NoError(t, err)
	require.Len(t, shares, 3)

	combined, err := threshold.Combine(shares, 3, 3)
	require.NoError(t, err)
	require.Equal(t, secret, []byte(combined))

	holed := append([]threshold.Share{}, shares...)
	holed[1] = nil
	_, err = threshold.Combine(holed, 3, 3)
	require.Error(t, err)
	require.True(t, mfkdferr.Is(err, mfkdferr.KindThreshold))
}

func TestSplitCombineGeneralKOfN(t *testing.T) {
	t.Parallel()

	secret := sampleSecret(24)
	shares, err := threshold.Split(secret, 2, 5)
	require.NoError(t, err)
	require.Len(t, shares, 5)

	// any 2 of the 5 present shares must reconstruct the secret.
	combos := [][2]int{{0, 1}, {0, 4}, {2, 3}, {1, 3}}
	for _, c := range combos {
		holed := make([]threshold.Share, 5)
		holed[c[0]] = shares[c[0]]
		holed[c[1]] = shares[c[1]]
		combined, err := threshold.Combine(holed, 2, 5)
		require.NoError(t, err)
		require.Equal(t, secret, []byte(combined), "combo %v", c)
	}
}

func TestCombineInsufficientShares(t *testing.T) {
	t.Parallel()

	secret := sampleSecret(8)
	shares, err := threshold.Split(secret, 3, 5)
	require.NoError(t, err)

	holed := make([]threshold.Share, 5)
	holed[0], holed[1] = shares[0], shares[1]
	_, err = threshold.Combine(holed, 3, 5)
	require.Error(t, err)
	require.True(t, mfkdferr.Is(err, mfkdferr.KindThreshold))
}

func TestRecoverRegeneratesHolesExactly(t *testing.T) {
	t.Parallel()

	secret := sampleSecret(16)
	shares, err := threshold.Split(secret, 3, 6)
	require.NoError(t, err)

	holed := make([]threshold.Share, 6)
	holed[0], holed[2], holed[5] = shares[0], shares[2], shares[5]

	full, err := threshold.Recover(holed, 3, 6)
	require.NoError(t, err)
	require.Len(t, full, 6)

	// present shares survive bit-exact.
	require.Equal(t, shares[0], full[0])
	require.Equal(t, shares[2], full[2])
	require.Equal(t, shares[5], full[5])

	// regenerated holes match the originals from Split (same polynomial).
	require.Equal(t, shares[1], full[1])
	require.Equal(t, shares[3], full[3])
	require.Equal(t, shares[4], full[4])

	combined, err := threshold.Combine(full, 3, 6)
	require.NoError(t, err)
	require.Equal(t, secret, []byte(combined))
}

func TestRecoverOneOfNFillsEveryHoleWithSameValue(t *testing.T) {
	t.Parallel()

	secret := sampleSecret(8)
	holed := make([]threshold.Share, 3)
	holed[1] = threshold.Share(secret)

	full, err := threshold.Recover(holed, 1, 3)
	require.NoError(t, err)
	for _, s := range full {
		require.Equal(t, secret, []byte(s))
	}
}

func TestValidateShapeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		shares []threshold.Share
		k, n   int
	}{
		{"n not positive", make([]threshold.Share, 2), 1, 0},
		{"k not positive", make([]threshold.Share, 2), 0, 2},
		{"k greater than n", make([]threshold.Share, 2), 3, 2},
		{"wrong length shares slice", make([]threshold.Share, 2), 2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := threshold.Combine(tt.shares, tt.k, tt.n)
			require.Error(t, err)
			require.True(t, mfkdferr.Is(err, mfkdferr.KindThreshold))
		})
	}
}
