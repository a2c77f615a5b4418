package cryptox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveKey(t *testing.T) {
	master := bytes.Repeat([]byte{0xA7}, 32)

	access, err := DeriveKey(master, "access-signing", 32)
	require.NoError(t, err)
	require.Len(t, access, 32)

	refresh, err := DeriveKey(master, "refresh-signing", 32)
	require.NoError(t, err)

	// Distinct info strings must yield distinct keys
	require.NotEqual(t, access, refresh)

	// Same inputs must be stable across calls
	again, err := DeriveKey(master, "access-signing", 32)
	require.NoError(t, err)
	require.Equal(t, access, again)
}

func TestDeriveKey_ShortMaster(t *testing.T) {
	_, err := DeriveKey([]byte("too-short"), "access-signing", 32)
	require.Error(t, err)
	require.Contains(t, err.Error(), "master secret too short")
}

func TestDeriveKey_BadSize(t *testing.T) {
	master := bytes.Repeat([]byte{0x01}, 32)
	_, err := DeriveKey(master, "access-signing", 0)
	require.Error(t, err)
}

func TestMustDeriveKey_Panics(t *testing.T) {
	require.Panics(t, func() {
		MustDeriveKey([]byte("nope"), "access-signing", 32)
	})
}
