// Package securestore derives symmetric keys from passphrases and seals
// key material under them. All secret inputs and outputs live in
// securebuffer regions owned by the caller.
package securestore

import (
	"errors"
	"fmt"

	"securesigner/go-core/internal/securebuffer"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	KeySize  = chacha20poly1305.KeySize
	SaltSize = 32
)

var ErrKeyBufferSize = errors.New("securestore: derived key buffer has wrong size")

// KDFParams are the Argon2id cost parameters. They are part of the container
// format: a container is only readable with the parameters it was sealed with.
type KDFParams struct {
	Time     uint32
	MemoryKB uint32
	Threads  uint8
}

// V1Params are fixed by container format version 1.
var V1Params = KDFParams{
	Time:     3,
	MemoryKB: 64 * 1024,
	Threads:  4,
}

// DeriveKey runs Argon2id over passphrase and salt and writes the KeySize
// result into dst. The same inputs always produce the same key. An empty
// passphrase is accepted; strength policy belongs to the caller.
func DeriveKey(dst *securebuffer.Buffer, params KDFParams, passphrase, salt []byte) error {
	if dst == nil || dst.Len() != KeySize {
		return ErrKeyBufferSize
	}
	if len(salt) != SaltSize {
		return fmt.Errorf("securestore: salt must be %d bytes, got %d", SaltSize, len(salt))
	}
	key := argon2.IDKey(passphrase, salt, params.Time, params.MemoryKB, params.Threads, KeySize)
	defer securebuffer.Zero(key)
	return dst.Write(0, key)
}
