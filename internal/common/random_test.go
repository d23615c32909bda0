package common

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRandHexString_LengthAndHex(t *testing.T) {
	const n = 16
	s, err := MakeRandHexString(n)
	require.NoError(t, err)
	assert.Len(t, s, n*2)

	_, err = hex.DecodeString(s)
	assert.NoError(t, err)
}

func TestMakeRandHexString_ZeroSize(t *testing.T) {
	s, err := MakeRandHexString(0)
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestGeneratePassword_LengthRangeAndCharset(t *testing.T) {
	for range 50 {
		p, err := GeneratePassword()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(p), 8)
		assert.Less(t, len(p), 13)
		for _, c := range p {
			assert.Contains(t, passwordCharset, string(c))
		}
	}
}

func TestGeneratePassword_EntropyHint(t *testing.T) {
	a, err := GeneratePassword()
	require.NoError(t, err)
	b, err := GeneratePassword()
	require.NoError(t, err)
	if a == b {
		t.Logf("warning: two generated passwords are identical; extremely unlikely")
	}
}

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, b := range buf {
		assert.Zerof(t, b, "byte %d not wiped", i)
	}
}

func TestWipeByteArray_NilIsNoop(t *testing.T) {
	assert.NotPanics(t, func() { WipeByteArray(nil) })
}
