// Package container encodes and decodes the versioned envelope that holds an
// encrypted private key. Decoding restores structure only; it never touches
// key material.
package container

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"securesigner/go-core/internal/securestore"
	"securesigner/go-core/pkg/models"

	"github.com/mr-tron/base58"
)

const (
	VersionV1 = 1

	SealedKeySize  = ed25519.SeedSize
	CiphertextSize = SealedKeySize + securestore.Overhead
)

// fieldEncoding rejects non-zero padding bits so each container has exactly
// one text form.
var fieldEncoding = base64.StdEncoding.Strict()

var (
	ErrMalformed          = errors.New("container is not a valid JSON object")
	ErrUnsupportedVersion = errors.New("container version is not supported")
	ErrMissingField       = errors.New("container field is missing")
	ErrMalformedField     = errors.New("container field is malformed")
)

// Container is the decoded binary form of models.Container.
type Container struct {
	Version    int
	Salt       []byte
	Nonce      []byte
	Ciphertext []byte
	PublicKey  []byte
}

// AssociatedData binds the version and stored public key to the ciphertext,
// so swapping either is detected when the container is opened.
func (c Container) AssociatedData() []byte {
	ad := make([]byte, 0, 32+len(c.PublicKey))
	ad = append(ad, fmt.Sprintf("securesigner/container/v%d\x00", c.Version)...)
	return append(ad, c.PublicKey...)
}

// Model converts to the text form.
func (c Container) Model() models.Container {
	return models.Container{
		Version:    c.Version,
		Salt:       base64.StdEncoding.EncodeToString(c.Salt),
		Nonce:      base64.StdEncoding.EncodeToString(c.Nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(c.Ciphertext),
		PublicKey:  base58.Encode(c.PublicKey),
	}
}

// Encode renders the canonical JSON text. Field order is fixed by
// models.Container.
func Encode(c Container) (string, error) {
	if c.Version != VersionV1 {
		return "", ErrUnsupportedVersion
	}
	if err := validateSizes(c); err != nil {
		return "", err
	}
	raw, err := json.Marshal(c.Model())
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Decode parses canonical text. The version is checked before any other
// field is looked at, so unknown formats fail closed.
func Decode(text string) (Container, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &fields); err != nil || fields == nil {
		return Container{}, ErrMalformed
	}

	rawVersion, ok := fields["version"]
	if !ok {
		return Container{}, fmt.Errorf("%w: version", ErrMissingField)
	}
	var version int
	if err := json.Unmarshal(rawVersion, &version); err != nil || version != VersionV1 {
		return Container{}, ErrUnsupportedVersion
	}

	c := Container{Version: version}
	var err error
	if c.Salt, err = decodeField(fields, "salt", fieldEncoding.DecodeString); err != nil {
		return Container{}, err
	}
	if c.Nonce, err = decodeField(fields, "nonce", fieldEncoding.DecodeString); err != nil {
		return Container{}, err
	}
	if c.Ciphertext, err = decodeField(fields, "ciphertext", fieldEncoding.DecodeString); err != nil {
		return Container{}, err
	}
	if c.PublicKey, err = decodeField(fields, "public_key", base58.Decode); err != nil {
		return Container{}, err
	}
	if err := validateSizes(c); err != nil {
		return Container{}, err
	}
	return c, nil
}

func decodeField(fields map[string]json.RawMessage, name string, decode func(string) ([]byte, error)) ([]byte, error) {
	raw, ok := fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, fmt.Errorf("%w: %s is not a string", ErrMalformedField, name)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	out, err := decode(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %s has invalid encoding", ErrMalformedField, name)
	}
	return out, nil
}

func validateSizes(c Container) error {
	switch {
	case len(c.Salt) != securestore.SaltSize:
		return fmt.Errorf("%w: salt must be %d bytes", ErrMalformedField, securestore.SaltSize)
	case len(c.Nonce) != securestore.NonceSize:
		return fmt.Errorf("%w: nonce must be %d bytes", ErrMalformedField, securestore.NonceSize)
	case len(c.Ciphertext) != CiphertextSize:
		return fmt.Errorf("%w: ciphertext must be %d bytes", ErrMalformedField, CiphertextSize)
	case len(c.PublicKey) != ed25519.PublicKeySize:
		return fmt.Errorf("%w: public_key must be %d bytes", ErrMalformedField, ed25519.PublicKeySize)
	}
	return nil
}
