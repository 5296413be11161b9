// Copyright (c) 2025 Justin Cranford
//
package zeroize_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mfkdf/internal/zeroize"
)

func TestZero(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   zeroize.Bytes
	}{
		{"nil", nil},
		{"empty", zeroize.Bytes{}},
		{"populated", zeroize.Bytes{1, 2, 3, 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.in.Zero()
			for i, b := range tt.in {
				require.Zerof(t, b, "byte %d not zeroed", i)
			}
		})
	}
}

func TestCloneIndependence(t *testing.T) {
	t.Parallel()

	orig := zeroize.Bytes{1, 2, 3}
	clone := orig.Clone()
	require.Equal(t, orig, clone)

	clone.Zero()
	require.Equal(t, zeroize.Bytes{1, 2, 3}, orig)
	require.Equal(t, zeroize.Bytes{0, 0, 0}, clone)
}

func TestCloneNil(t *testing.T) {
	t.Parallel()

	var b zeroize.Bytes
	require.Nil(t, b.Clone())
}

func TestZeroAllSkipsHoles(t *testing.T) {
	t.Parallel()

	shares := []zeroize.Bytes{{1, 2}, nil, {3, 4}}
	zeroize.ZeroAll(shares)

	require.Equal(t, zeroize.Bytes{0, 0}, shares[0])
	require.Nil(t, shares[1])
	require.Equal(t, zeroize.Bytes{0, 0}, shares[2])
}
