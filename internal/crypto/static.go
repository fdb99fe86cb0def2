package crypto

import (
	"context"
	"crypto/hkdf"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DerivedProvider derives a distinct per-shop key from one master key with
// HKDF-SHA256, using the shop ID as the info string.
type DerivedProvider struct {
	master []byte
}

// NewDerivedProvider creates a DerivedProvider from a hex-encoded 32-byte key.
func NewDerivedProvider(hexKey string) (*DerivedProvider, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("crypto/derived: invalid hex key: %w", err)
	}

	if len(key) != 32 {
		return nil, fmt.Errorf("crypto/derived: key must be 32 bytes, got %d", len(key))
	}

	return &DerivedProvider{master: key}, nil
}

// GetKey returns the key for shopID.
func (p *DerivedProvider) GetKey(_ context.Context, shopID string) ([]byte, error) {
	if shopID == "" {
		return nil, fmt.Errorf("crypto/derived: shop id is required")
	}

	key, err := hkdf.Key(sha256.New, p.master, nil, "pathconvert/shop/"+shopID, 32)
	if err != nil {
		return nil, fmt.Errorf("crypto/derived: deriving key: %w", err)
	}

	return key, nil
}
