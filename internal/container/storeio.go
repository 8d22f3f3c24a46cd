package container

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var ErrEmptyPath = errors.New("container path is empty")

// ReadFile and WriteFile serve Go hosts that link this package directly; the
// C boundary only exchanges container text.

// ReadFile loads container text from path and checks that it decodes.
func ReadFile(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", ErrEmptyPath
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(raw))
	if _, err := Decode(text); err != nil {
		return "", err
	}
	return text, nil
}

// WriteFile persists container text with owner-only permissions. Invalid
// containers are refused so a bad value never replaces a good one.
func WriteFile(path, text string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return ErrEmptyPath
	}
	if _, err := Decode(text); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(text+"\n"), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
