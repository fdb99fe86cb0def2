package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// Service provides shop-scoped AES-256-GCM encryption and decryption.
type Service struct {
	keys KeyProvider
}

// NewService creates an encryption service backed by the given key provider.
func NewService(keys KeyProvider) *Service {
	return &Service{keys: keys}
}

func (s *Service) aead(ctx context.Context, shopID string) (cipher.AEAD, error) {
	key, err := s.keys.GetKey(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("crypto: get key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: new gcm: %w", err)
	}

	return gcm, nil
}

// Seal encrypts plaintext for the shop and returns nonce||ciphertext.
// The shop ID is bound as additional data, so a sealed value copied to
// another shop's row will not open.
func (s *Service) Seal(ctx context.Context, shopID string, plaintext []byte) ([]byte, error) {
	gcm, err := s.aead(ctx, shopID)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, []byte(shopID)), nil
}

// Open decrypts a value produced by Seal for the same shop.
func (s *Service) Open(ctx context.Context, shopID string, sealed []byte) ([]byte, error) {
	gcm, err := s.aead(ctx, shopID)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("crypto: ciphertext too short")
	}

	nonce, body := sealed[:nonceSize], sealed[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, body, []byte(shopID))
	if err != nil {
		return nil, fmt.Errorf("crypto: decrypt failed: %w", err)
	}

	return plaintext, nil
}
