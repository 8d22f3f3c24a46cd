package signer

import (
	"errors"
)

// Kind is the closed set of failure classes an operation can end in.
type Kind string

const (
	KindMissingArgument Kind = "missing_argument"
	KindInvalidEncoding Kind = "invalid_encoding"
	KindDecode          Kind = "decode"
	KindCrypto          Kind = "crypto"
	KindFormat          Kind = "format"
)

var (
	ErrKeyEncoding     = errors.New("private key is not valid base58")
	ErrMessageEncoding = errors.New("message is not valid base64")
	// ErrDecryptFailed covers both a wrong passphrase and a corrupted
	// container.
	ErrDecryptFailed     = errors.New("decryption failed: invalid passphrase or corrupted container")
	ErrPublicKeyMismatch = errors.New("decrypted key does not match container public key")
	ErrRandomness        = errors.New("secure random source failed")
	ErrSecureMemory      = errors.New("secure memory allocation failed")
)

// Error carries the failure class of an operation. Its message never
// contains caller-supplied secrets.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func normalizeKind(kind Kind) Kind {
	switch kind {
	case KindMissingArgument, KindInvalidEncoding, KindDecode, KindFormat:
		return kind
	default:
		return KindCrypto
	}
}

// WrapKind classifies err. An already classified error keeps its kind.
func WrapKind(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Kind: normalizeKind(existing.Kind), Err: existing.Err}
	}
	return &Error{Kind: normalizeKind(kind), Err: err}
}

// ErrorKind reports the class of err; unclassified errors count as crypto
// failures.
func ErrorKind(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return normalizeKind(classified.Kind)
	}
	return KindCrypto
}
