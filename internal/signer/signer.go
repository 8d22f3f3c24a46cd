// Package signer composes secure buffers, key derivation, authenticated
// encryption, the container codec and the signing engine into the three
// public operations. Each call owns every buffer it allocates and destroys
// all of them before it returns, on every path.
package signer

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"unsafe"

	"securesigner/go-core/internal/container"
	"securesigner/go-core/internal/securebuffer"
	"securesigner/go-core/internal/securestore"
	"securesigner/go-core/internal/signing"
	"securesigner/go-core/pkg/models"

	"github.com/mr-tron/base58"
)

const componentName = "signer"

type Options struct {
	// Strategy defaults to the heap strategy.
	Strategy securebuffer.Strategy
	// Rand defaults to crypto/rand.
	Rand   io.Reader
	Logger *slog.Logger
	// OnDegradedMemory is called with the buffer name whenever a locking
	// strategy hands out a region it could not lock.
	OnDegradedMemory func(buffer string)
}

// Signer is immutable after New and safe for concurrent use; calls share no
// mutable state.
type Signer struct {
	strategy securebuffer.Strategy
	kdf      securestore.KDFParams
	rand     io.Reader
	logger   *slog.Logger
	degraded func(buffer string)
}

func New(opts Options) *Signer {
	s := &Signer{
		strategy: opts.Strategy,
		kdf:      securestore.V1Params,
		rand:     opts.Rand,
		logger:   opts.Logger,
		degraded: opts.OnDegradedMemory,
	}
	if s.strategy == nil {
		s.strategy = securebuffer.HeapStrategy{}
	}
	if s.rand == nil {
		s.rand = rand.Reader
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// StrategyName reports which secure memory strategy is active.
func (s *Signer) StrategyName() string {
	return s.strategy.Name()
}

// CreateContainer seals a base58 private key under passphrase and returns
// the canonical container text. Neither argument is modified.
func (s *Signer) CreateContainer(privateKeyB58, passphrase []byte) (string, error) {
	key, err := s.decodePrivateKey(privateKeyB58)
	if err != nil {
		return "", err
	}
	defer s.destroy(key, "private_key")

	pass, err := s.copySecret(passphrase, "passphrase")
	if err != nil {
		return "", err
	}
	defer s.destroy(pass, "passphrase")

	keypair, err := signing.NewKeypair(s.strategy, key)
	if err != nil {
		return "", classifyKeyError(err)
	}
	defer s.destroy(keypair, "keypair")
	s.checkLocked(keypair, "keypair")

	c := container.Container{
		Version:   container.VersionV1,
		PublicKey: keypair.PublicKey(),
	}
	if c.Salt, err = s.random(securestore.SaltSize); err != nil {
		return "", err
	}
	if c.Nonce, err = s.random(securestore.NonceSize); err != nil {
		return "", err
	}

	derived, err := s.alloc(securestore.KeySize, "derived_key")
	if err != nil {
		return "", err
	}
	defer s.destroy(derived, "derived_key")
	if err := securestore.DeriveKey(derived, s.kdf, pass.Bytes(), c.Salt); err != nil {
		return "", WrapKind(KindCrypto, err)
	}

	seed, err := key.Read(0, container.SealedKeySize)
	if err != nil {
		return "", WrapKind(KindCrypto, err)
	}
	if c.Ciphertext, err = securestore.Seal(derived, c.Nonce, seed, c.AssociatedData()); err != nil {
		return "", WrapKind(KindCrypto, err)
	}

	text, err := container.Encode(c)
	if err != nil {
		return "", WrapKind(KindFormat, err)
	}
	s.logger.Debug("container created",
		"component", componentName,
		"operation", "create_container",
		"public_key", base58.Encode(c.PublicKey),
		"memory_strategy", s.strategy.Name(),
	)
	return text, nil
}

// SignViaContainer opens containerJSON with passphrase and signs the base64
// transaction. A wrong passphrase and a tampered container fail the same way.
func (s *Signer) SignViaContainer(containerJSON string, passphrase []byte, transactionB64 string) (models.SigningResult, error) {
	c, err := container.Decode(containerJSON)
	if err != nil {
		return models.SigningResult{}, WrapKind(KindFormat, err)
	}
	message, err := base64.StdEncoding.DecodeString(transactionB64)
	if err != nil {
		return models.SigningResult{}, WrapKind(KindDecode, ErrMessageEncoding)
	}

	pass, err := s.copySecret(passphrase, "passphrase")
	if err != nil {
		return models.SigningResult{}, err
	}
	defer s.destroy(pass, "passphrase")

	derived, err := s.alloc(securestore.KeySize, "derived_key")
	if err != nil {
		return models.SigningResult{}, err
	}
	defer s.destroy(derived, "derived_key")
	if err := securestore.DeriveKey(derived, s.kdf, pass.Bytes(), c.Salt); err != nil {
		return models.SigningResult{}, WrapKind(KindCrypto, err)
	}

	key, err := s.alloc(container.SealedKeySize, "private_key")
	if err != nil {
		return models.SigningResult{}, err
	}
	defer s.destroy(key, "private_key")
	if err := securestore.Open(key, derived, c.Nonce, c.Ciphertext, c.AssociatedData()); err != nil {
		s.logger.Warn("container authentication failed",
			"component", componentName,
			"operation", "sign_via_container",
			"public_key", base58.Encode(c.PublicKey),
		)
		return models.SigningResult{}, WrapKind(KindCrypto, ErrDecryptFailed)
	}

	keypair, err := signing.NewKeypair(s.strategy, key)
	if err != nil {
		return models.SigningResult{}, WrapKind(KindCrypto, ErrDecryptFailed)
	}
	defer s.destroy(keypair, "keypair")
	s.checkLocked(keypair, "keypair")

	pub := keypair.PublicKey()
	if !bytes.Equal(pub, c.PublicKey) {
		return models.SigningResult{}, WrapKind(KindCrypto, ErrPublicKeyMismatch)
	}

	sig := keypair.Sign(message)
	return models.SigningResult{
		Signature:         base58.Encode(sig),
		SignedTransaction: base64.StdEncoding.EncodeToString(signing.SignedTransaction(sig, message)),
		PublicKey:         base58.Encode(pub),
	}, nil
}

// SignDirect signs a base64 message with a base58 private key. The raw key
// crosses the call boundary as text before it reaches guarded memory, so
// this path is lower assurance than SignViaContainer.
func (s *Signer) SignDirect(privateKeyB58 []byte, messageB64 string) (models.SigningResult, error) {
	key, err := s.decodePrivateKey(privateKeyB58)
	if err != nil {
		return models.SigningResult{}, err
	}
	defer s.destroy(key, "private_key")

	message, err := base64.StdEncoding.DecodeString(messageB64)
	if err != nil {
		return models.SigningResult{}, WrapKind(KindDecode, ErrMessageEncoding)
	}

	keypair, err := signing.NewKeypair(s.strategy, key)
	if err != nil {
		return models.SigningResult{}, classifyKeyError(err)
	}
	defer s.destroy(keypair, "keypair")
	s.checkLocked(keypair, "keypair")

	return models.SigningResult{
		Signature: base58.Encode(keypair.Sign(message)),
		PublicKey: base58.Encode(keypair.PublicKey()),
	}, nil
}

// decodePrivateKey validates the key length before any allocation or
// cryptographic work and moves the decoded bytes into guarded memory.
func (s *Signer) decodePrivateKey(text []byte) (*securebuffer.Buffer, error) {
	raw, err := base58.Decode(viewString(text))
	if err != nil {
		securebuffer.Zero(raw)
		return nil, WrapKind(KindDecode, ErrKeyEncoding)
	}
	if err := signing.ValidateKeyLength(len(raw)); err != nil {
		securebuffer.Zero(raw)
		return nil, WrapKind(KindDecode, err)
	}
	buf, err := securebuffer.FromBytes(s.strategy, raw)
	if err != nil {
		return nil, WrapKind(KindCrypto, fmt.Errorf("%w: %v", ErrSecureMemory, err))
	}
	s.checkLocked(buf, "private_key")
	return buf, nil
}

// copySecret copies without touching src, which may be read-only caller
// memory.
func (s *Signer) copySecret(src []byte, what string) (*securebuffer.Buffer, error) {
	buf, err := s.alloc(len(src), what)
	if err != nil {
		return nil, err
	}
	if err := buf.Write(0, src); err != nil {
		s.destroy(buf, what)
		return nil, WrapKind(KindCrypto, err)
	}
	return buf, nil
}

func (s *Signer) alloc(size int, what string) (*securebuffer.Buffer, error) {
	buf, err := securebuffer.New(s.strategy, size)
	if err != nil {
		return nil, WrapKind(KindCrypto, fmt.Errorf("%w: %v", ErrSecureMemory, err))
	}
	s.checkLocked(buf, what)
	return buf, nil
}

type lockReporter interface {
	Degraded() bool
}

// checkLocked reports a region that should have been locked but sits in
// pageable memory, usually because RLIMIT_MEMLOCK was reached.
func (s *Signer) checkLocked(r lockReporter, what string) {
	if !r.Degraded() {
		return
	}
	s.logger.Warn("secure buffer not locked, secret is pageable",
		"component", componentName,
		"buffer", what,
		"memory_strategy", s.strategy.Name(),
	)
	if s.degraded != nil {
		s.degraded(what)
	}
}

func (s *Signer) random(n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(s.rand, out); err != nil {
		return nil, WrapKind(KindCrypto, ErrRandomness)
	}
	return out, nil
}

// viewString aliases b without copying, so the encoded key never gets an
// unwipeable heap copy. b must not change while the string is in use.
func viewString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

type destroyer interface {
	Destroy() error
}

func (s *Signer) destroy(d destroyer, what string) {
	if err := d.Destroy(); err != nil {
		s.logger.Warn("secure buffer release failed",
			"component", componentName,
			"buffer", what,
			"error", err.Error(),
		)
	}
}

func classifyKeyError(err error) error {
	if errors.Is(err, signing.ErrInvalidKeyLength) || errors.Is(err, signing.ErrKeypairMismatch) {
		return WrapKind(KindDecode, err)
	}
	return WrapKind(KindCrypto, fmt.Errorf("%w: %v", ErrSecureMemory, err))
}
