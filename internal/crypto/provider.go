// Package crypto seals shop secrets at rest with AES-256-GCM.
package crypto

import "context"

// KeyProvider returns AES-256 encryption keys for shops.
type KeyProvider interface {
	// GetKey returns the 32-byte AES-256 key for the given shop.
	GetKey(ctx context.Context, shopID string) ([]byte, error)
}
