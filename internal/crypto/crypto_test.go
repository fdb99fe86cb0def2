package crypto_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/pathconvert/pathconvert/internal/crypto"
)

const testKeyHex = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func newService(t *testing.T, hexKey string) *crypto.Service {
	t.Helper()

	provider, err := crypto.NewDerivedProvider(hexKey)
	if err != nil {
		t.Fatalf("new derived provider: %v", err)
	}

	return crypto.NewService(provider)
}

func TestSealOpenRoundtrip(t *testing.T) {
	svc := newService(t, testKeyHex)
	ctx := context.Background()
	plaintext := []byte("shpat_0123456789")

	sealed, err := svc.Seal(ctx, "shop-1", plaintext)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if bytes.Contains(sealed, plaintext) {
		t.Fatal("ciphertext should not contain plaintext")
	}

	opened, err := svc.Open(ctx, "shop-1", sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if !bytes.Equal(opened, plaintext) {
		t.Fatalf("got %q, want %q", opened, plaintext)
	}
}

func TestSealProducesDifferentCiphertexts(t *testing.T) {
	svc := newService(t, testKeyHex)
	ctx := context.Background()

	a, _ := svc.Seal(ctx, "s", []byte("same"))
	b, _ := svc.Seal(ctx, "s", []byte("same"))

	if bytes.Equal(a, b) {
		t.Fatal("two seals of the same plaintext should differ (random nonce)")
	}
}

func TestOpenOtherShopFails(t *testing.T) {
	svc := newService(t, testKeyHex)
	ctx := context.Background()

	sealed, err := svc.Seal(ctx, "shop-a", []byte("token"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if _, err := svc.Open(ctx, "shop-b", sealed); err == nil {
		t.Fatal("expected error opening another shop's token")
	}
}

func TestOpenWrongMasterKey(t *testing.T) {
	ctx := context.Background()

	sealed, err := newService(t, testKeyHex).Seal(ctx, "s", []byte("secret"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	other := newService(t, "abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789")
	if _, err := other.Open(ctx, "s", sealed); err == nil {
		t.Fatal("expected error opening with wrong key")
	}
}

func TestOpenCorrupted(t *testing.T) {
	svc := newService(t, testKeyHex)
	ctx := context.Background()

	sealed, _ := svc.Seal(ctx, "s", []byte("data"))
	sealed[len(sealed)-1] ^= 0xff

	if _, err := svc.Open(ctx, "s", sealed); err == nil {
		t.Fatal("expected error opening corrupted ciphertext")
	}
}

func TestOpenTooShort(t *testing.T) {
	svc := newService(t, testKeyHex)

	if _, err := svc.Open(context.Background(), "s", []byte("tiny")); err == nil {
		t.Fatal("expected error for too-short ciphertext")
	}
}

func TestDerivedProvider(t *testing.T) {
	provider, err := crypto.NewDerivedProvider(testKeyHex)
	if err != nil {
		t.Fatalf("new derived provider: %v", err)
	}

	ctx := context.Background()

	a1, err := provider.GetKey(ctx, "shop-a")
	if err != nil {
		t.Fatalf("get key: %v", err)
	}

	a2, _ := provider.GetKey(ctx, "shop-a")
	b, _ := provider.GetKey(ctx, "shop-b")

	if len(a1) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(a1))
	}

	if !bytes.Equal(a1, a2) {
		t.Error("derivation must be deterministic")
	}

	if bytes.Equal(a1, b) {
		t.Error("different shops must get different keys")
	}

	if _, err := provider.GetKey(ctx, ""); err == nil {
		t.Error("expected error for empty shop id")
	}
}

func TestDerivedProviderBadInput(t *testing.T) {
	if _, err := crypto.NewDerivedProvider("not-hex"); err == nil {
		t.Error("expected error for bad hex")
	}

	if _, err := crypto.NewDerivedProvider("0123456789abcdef"); err == nil {
		t.Error("expected error for wrong key length")
	}
}
