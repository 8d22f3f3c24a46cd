package securestore

import (
	"errors"

	"securesigner/go-core/internal/securebuffer"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	NonceSize = chacha20poly1305.NonceSizeX
	Overhead  = chacha20poly1305.Overhead
)

var (
	// ErrAuthFailed covers a wrong key, a tampered ciphertext or tag, and a
	// bad nonce alike.
	ErrAuthFailed      = errors.New("securestore authentication failed")
	ErrPlaintextBuffer = errors.New("securestore: plaintext buffer has wrong size")
)

// Seal encrypts plaintext with XChaCha20-Poly1305. The nonce is supplied by
// the caller and must never be reused with the same key.
func Seal(key *securebuffer.Buffer, nonce, plaintext, additionalData []byte) ([]byte, error) {
	if key == nil || key.Len() != KeySize {
		return nil, ErrKeyBufferSize
	}
	if len(nonce) != NonceSize {
		return nil, errors.New("securestore: invalid nonce size")
	}
	aead, err := chacha20poly1305.NewX(key.Bytes())
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, additionalData), nil
}

// Open authenticates and decrypts ciphertext directly into dst, which must
// be exactly len(ciphertext)-Overhead bytes. On any failure dst is left
// zeroed and ErrAuthFailed is returned.
func Open(dst, key *securebuffer.Buffer, nonce, ciphertext, additionalData []byte) error {
	if key == nil || key.Len() != KeySize {
		return ErrKeyBufferSize
	}
	if dst == nil || len(ciphertext) < Overhead || dst.Len() != len(ciphertext)-Overhead {
		return ErrPlaintextBuffer
	}
	if len(nonce) != NonceSize {
		return ErrAuthFailed
	}
	aead, err := chacha20poly1305.NewX(key.Bytes())
	if err != nil {
		return err
	}

	out := dst.Bytes()
	plain, err := aead.Open(out[:0], nonce, ciphertext, additionalData)
	if err != nil || len(plain) != len(out) {
		securebuffer.Zero(out)
		return ErrAuthFailed
	}
	return nil
}
