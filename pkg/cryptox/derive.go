package cryptox

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MinMasterSecretLen is the minimum accepted master secret length in bytes.
// Anything shorter undercuts HMAC-SHA256 and is refused outright.
const MinMasterSecretLen = 32

// DeriveKey expands a master secret into an independent subkey using
// HKDF-SHA256. Distinct info strings yield cryptographically independent
// keys, so one master secret can back several signing domains without any
// of them being recoverable from another.
func DeriveKey(master []byte, info string, size int) ([]byte, error) {
	if len(master) < MinMasterSecretLen {
		return nil, fmt.Errorf("master secret too short: need at least %d bytes, got %d", MinMasterSecretLen, len(master))
	}
	if size <= 0 {
		return nil, fmt.Errorf("derived key size must be positive, got %d", size)
	}

	r := hkdf.New(sha256.New, master, nil, []byte(info))
	key := make([]byte, size)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key %q: %w", info, err)
	}
	return key, nil
}

// MustDeriveKey is like DeriveKey but panics on error. Intended for
// startup paths where a bad secret should stop the process.
func MustDeriveKey(master []byte, info string, size int) []byte {
	key, err := DeriveKey(master, info, size)
	if err != nil {
		panic(fmt.Sprintf("cryptox: %v", err))
	}
	return key
}
