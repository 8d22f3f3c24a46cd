// Package signing derives ed25519 public keys and produces deterministic
// signatures from private keys held in guarded memory.
package signing

import (
	"crypto/ed25519"
	"crypto/sha512"
	"crypto/subtle"
	"errors"
	"fmt"

	"securesigner/go-core/internal/securebuffer"

	"filippo.io/edwards25519"
)

const (
	SeedSize      = ed25519.SeedSize
	KeypairSize   = ed25519.PrivateKeySize
	PublicKeySize = ed25519.PublicKeySize
	SignatureSize = ed25519.SignatureSize
)

var (
	ErrInvalidKeyLength = errors.New("private key must be 32 or 64 bytes")
	ErrKeypairMismatch  = errors.New("private key public half does not match its seed")
)

// ValidateKeyLength accepts a bare seed or a seed followed by its public key.
func ValidateKeyLength(n int) error {
	if n != SeedSize && n != KeypairSize {
		return fmt.Errorf("%w: got %d", ErrInvalidKeyLength, n)
	}
	return nil
}

// Keypair is an ed25519 private key (seed || public key) that lives only in
// a securebuffer region. The owner must call Destroy.
type Keypair struct {
	buf *securebuffer.Buffer
}

// NewKeypair materializes a keypair from raw, a 32-byte seed or a 64-byte
// seed || public key. raw is read, never modified or retained.
func NewKeypair(strategy securebuffer.Strategy, raw *securebuffer.Buffer) (*Keypair, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: got 0", ErrInvalidKeyLength)
	}
	if err := ValidateKeyLength(raw.Len()); err != nil {
		return nil, err
	}
	buf, err := securebuffer.New(strategy, KeypairSize)
	if err != nil {
		return nil, err
	}

	key := raw.Bytes()
	seed := key[:SeedSize]
	pub := DerivePublicKey(seed)
	if len(key) == KeypairSize && subtle.ConstantTimeCompare(key[SeedSize:], pub) != 1 {
		_ = buf.Destroy()
		return nil, ErrKeypairMismatch
	}
	if err := buf.Write(0, seed); err != nil {
		_ = buf.Destroy()
		return nil, err
	}
	if err := buf.Write(SeedSize, pub); err != nil {
		_ = buf.Destroy()
		return nil, err
	}
	return &Keypair{buf: buf}, nil
}

// PublicKey returns a copy of the public half.
func (k *Keypair) PublicKey() ed25519.PublicKey {
	pub, err := k.buf.Read(SeedSize, PublicKeySize)
	if err != nil {
		panic(err)
	}
	return append(ed25519.PublicKey(nil), pub...)
}

// Sign is deterministic: the same key and message give the same signature.
//
// The seed stays in guarded memory, but crypto/ed25519 expands it into a
// SHA-512 digest and scalar on the goroutine stack and does not wipe them.
// Go offers no way to clear those temporaries, so they persist until the
// stack is reused.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(k.buf.Bytes()), message)
}

// Degraded reports whether the key sits in memory its strategy failed to lock.
func (k *Keypair) Degraded() bool {
	return k.buf.Degraded()
}

func (k *Keypair) Destroy() error {
	return k.buf.Destroy()
}

// DerivePublicKey computes the ed25519 public key of a 32-byte seed without
// building an expanded private key on the heap. The hash and scalar are
// wiped before return.
func DerivePublicKey(seed []byte) []byte {
	h := sha512.Sum512(seed)
	defer securebuffer.Zero(h[:])

	s, err := edwards25519.NewScalar().SetBytesWithClamping(h[:32])
	if err != nil {
		// Only reachable with a wrong-length input, which the hash rules out.
		panic(err)
	}
	defer s.Set(edwards25519.NewScalar())

	return new(edwards25519.Point).ScalarBaseMult(s).Bytes()
}

// Verify checks sig over message against an ed25519 public key.
func Verify(publicKey, message, sig []byte) bool {
	if len(publicKey) != PublicKeySize || len(sig) != SignatureSize {
		return false
	}
	return ed25519.Verify(publicKey, message, sig)
}

// SignedTransaction frames a single-signer wire transaction: a compact
// signature count of one, the signature, then the signed message.
func SignedTransaction(sig, message []byte) []byte {
	out := make([]byte, 0, 1+len(sig)+len(message))
	out = append(out, 1)
	out = append(out, sig...)
	return append(out, message...)
}
