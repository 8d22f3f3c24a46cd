package signing

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"

	"securesigner/go-core/internal/securebuffer"
)

func newSeed(t *testing.T) []byte {
	t.Helper()
	seed := make([]byte, SeedSize)
	if _, err := rand.Read(seed); err != nil {
		t.Fatalf("rand failed: %v", err)
	}
	return seed
}

func keypairFrom(t *testing.T, raw []byte) *Keypair {
	t.Helper()
	buf, err := securebuffer.FromBytes(securebuffer.HeapStrategy{}, append([]byte(nil), raw...))
	if err != nil {
		t.Fatalf("alloc failed: %v", err)
	}
	defer buf.Destroy()
	kp, err := NewKeypair(securebuffer.HeapStrategy{}, buf)
	if err != nil {
		t.Fatalf("new keypair failed: %v", err)
	}
	t.Cleanup(func() { _ = kp.Destroy() })
	return kp
}

func TestDerivePublicKeyMatchesStdlib(t *testing.T) {
	for i := 0; i < 8; i++ {
		seed := newSeed(t)
		want := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
		if got := DerivePublicKey(seed); !bytes.Equal(got, want) {
			t.Fatalf("public key mismatch for seed %x", seed)
		}
	}
}

func TestValidateKeyLength(t *testing.T) {
	for _, n := range []int{32, 64} {
		if err := ValidateKeyLength(n); err != nil {
			t.Fatalf("length %d should be accepted: %v", n, err)
		}
	}
	for _, n := range []int{0, 1, 31, 33, 48, 63, 65, 128} {
		if err := ValidateKeyLength(n); !errors.Is(err, ErrInvalidKeyLength) {
			t.Fatalf("length %d: expected ErrInvalidKeyLength, got %v", n, err)
		}
	}
}

func TestSeedAndKeypairFormsAgree(t *testing.T) {
	seed := newSeed(t)
	full := ed25519.NewKeyFromSeed(seed)

	fromSeed := keypairFrom(t, seed)
	fromFull := keypairFrom(t, full)

	if !bytes.Equal(fromSeed.PublicKey(), fromFull.PublicKey()) {
		t.Fatal("public keys must agree between 32 and 64 byte forms")
	}
	msg := []byte("transfer 1 SOL")
	if !bytes.Equal(fromSeed.Sign(msg), fromFull.Sign(msg)) {
		t.Fatal("signatures must agree between 32 and 64 byte forms")
	}
}

func TestSignDeterministicAndVerifiable(t *testing.T) {
	seed := newSeed(t)
	kp := keypairFrom(t, seed)
	msg := []byte("hello")

	sig1 := kp.Sign(msg)
	sig2 := kp.Sign(msg)
	if !bytes.Equal(sig1, sig2) {
		t.Fatal("signatures should be deterministic")
	}
	if len(sig1) != SignatureSize {
		t.Fatalf("unexpected signature size: %d", len(sig1))
	}
	if !bytes.Equal(sig1, ed25519.Sign(ed25519.NewKeyFromSeed(seed), msg)) {
		t.Fatal("signature must match the reference ed25519 implementation")
	}
	if !Verify(kp.PublicKey(), msg, sig1) {
		t.Fatal("signature should verify")
	}
	if Verify(kp.PublicKey(), []byte("hellp"), sig1) {
		t.Fatal("signature must not verify for another message")
	}
	if Verify(kp.PublicKey()[:31], msg, sig1) {
		t.Fatal("short public key must not verify")
	}
}

func TestNewKeypairRejectsMismatchedPublicHalf(t *testing.T) {
	raw := append(newSeed(t), DerivePublicKey(newSeed(t))...)
	buf, err := securebuffer.FromBytes(securebuffer.HeapStrategy{}, raw)
	if err != nil {
		t.Fatalf("alloc failed: %v", err)
	}
	defer buf.Destroy()
	if _, err := NewKeypair(securebuffer.HeapStrategy{}, buf); !errors.Is(err, ErrKeypairMismatch) {
		t.Fatalf("expected ErrKeypairMismatch, got %v", err)
	}
}

func TestNewKeypairRejectsBadLength(t *testing.T) {
	buf, err := securebuffer.FromBytes(securebuffer.HeapStrategy{}, make([]byte, 33))
	if err != nil {
		t.Fatalf("alloc failed: %v", err)
	}
	defer buf.Destroy()
	if _, err := NewKeypair(securebuffer.HeapStrategy{}, buf); !errors.Is(err, ErrInvalidKeyLength) {
		t.Fatalf("expected ErrInvalidKeyLength, got %v", err)
	}
}

func TestSignedTransactionLayout(t *testing.T) {
	sig := bytes.Repeat([]byte{0xAB}, SignatureSize)
	msg := []byte{0x01, 0x02, 0x03}
	tx := SignedTransaction(sig, msg)
	if len(tx) != 1+SignatureSize+len(msg) {
		t.Fatalf("unexpected length: %d", len(tx))
	}
	if tx[0] != 1 || !bytes.Equal(tx[1:1+SignatureSize], sig) || !bytes.Equal(tx[1+SignatureSize:], msg) {
		t.Fatal("unexpected signed transaction layout")
	}
}
