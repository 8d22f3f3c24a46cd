package container

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"securesigner/go-core/internal/securestore"
	"securesigner/go-core/internal/testutil/fsperm"
)

func sampleContainer(t *testing.T) Container {
	t.Helper()
	fill := func(n int) []byte {
		out := make([]byte, n)
		if _, err := rand.Read(out); err != nil {
			t.Fatalf("rand failed: %v", err)
		}
		return out
	}
	return Container{
		Version:    VersionV1,
		Salt:       fill(securestore.SaltSize),
		Nonce:      fill(securestore.NonceSize),
		Ciphertext: fill(CiphertextSize),
		PublicKey:  fill(32),
	}
}

func mutateJSON(t *testing.T, text string, mutate func(map[string]any)) string {
	t.Helper()
	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	mutate(fields)
	raw, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return string(raw)
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	c := sampleContainer(t)
	text, err := Encode(c)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	got, err := Decode(text)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Version != c.Version ||
		string(got.Salt) != string(c.Salt) ||
		string(got.Nonce) != string(c.Nonce) ||
		string(got.Ciphertext) != string(c.Ciphertext) ||
		string(got.PublicKey) != string(c.PublicKey) {
		t.Fatal("decoded container mismatch")
	}
}

func TestEncodeIsCanonical(t *testing.T) {
	text, err := Encode(sampleContainer(t))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	order := []string{`"version":1`, `"salt":`, `"nonce":`, `"ciphertext":`, `"public_key":`}
	last := -1
	for _, key := range order {
		idx := strings.Index(text, key)
		if idx <= last {
			t.Fatalf("field %s out of canonical order in %s", key, text)
		}
		last = idx
	}
}

func TestDecodeVersionGating(t *testing.T) {
	text, err := Encode(sampleContainer(t))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	for _, version := range []any{0, 2, 255, -1, 1.5, "1"} {
		altered := mutateJSON(t, text, func(m map[string]any) { m["version"] = version })
		if _, err := Decode(altered); !errors.Is(err, ErrUnsupportedVersion) {
			t.Fatalf("version %v: expected ErrUnsupportedVersion, got %v", version, err)
		}
	}
}

func TestDecodeChecksVersionBeforeOtherFields(t *testing.T) {
	text := `{"version":7,"salt":12,"nonce":"!!","ciphertext":null}`
	if _, err := Decode(text); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestDecodeRejectsBrokenStructure(t *testing.T) {
	text, err := Encode(sampleContainer(t))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	cases := []struct {
		name  string
		input string
		want  error
	}{
		{name: "not json", input: "not-json", want: ErrMalformed},
		{name: "json array", input: "[1,2]", want: ErrMalformed},
		{name: "json null", input: "null", want: ErrMalformed},
		{name: "missing version", input: mutateJSON(t, text, func(m map[string]any) { delete(m, "version") }), want: ErrMissingField},
		{name: "missing salt", input: mutateJSON(t, text, func(m map[string]any) { delete(m, "salt") }), want: ErrMissingField},
		{name: "empty nonce", input: mutateJSON(t, text, func(m map[string]any) { m["nonce"] = "" }), want: ErrMissingField},
		{name: "missing public key", input: mutateJSON(t, text, func(m map[string]any) { delete(m, "public_key") }), want: ErrMissingField},
		{name: "bad base64", input: mutateJSON(t, text, func(m map[string]any) { m["ciphertext"] = "%%%" }), want: ErrMalformedField},
		{name: "bad base58", input: mutateJSON(t, text, func(m map[string]any) { m["public_key"] = "0OIl" }), want: ErrMalformedField},
		{name: "non-string field", input: mutateJSON(t, text, func(m map[string]any) { m["salt"] = 42 }), want: ErrMalformedField},
		{name: "short salt", input: mutateJSON(t, text, func(m map[string]any) { m["salt"] = "AAAA" }), want: ErrMalformedField},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestDecodeRejectsNonCanonicalBase64(t *testing.T) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	text, err := Encode(sampleContainer(t))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	noncanonical := mutateJSON(t, text, func(m map[string]any) {
		salt := []byte(m["salt"].(string))
		// 32 bytes encode to 43 symbols plus one pad; the last symbol carries
		// four unused low bits.
		last := strings.IndexByte(alphabet, salt[42])
		salt[42] = alphabet[last|1]
		m["salt"] = string(salt)
	})
	if _, err := Decode(noncanonical); !errors.Is(err, ErrMalformedField) {
		t.Fatalf("expected ErrMalformedField for non-canonical salt, got %v", err)
	}
}

func TestAssociatedDataBindsPublicKey(t *testing.T) {
	c := sampleContainer(t)
	other := c
	other.PublicKey = append([]byte(nil), c.PublicKey...)
	other.PublicKey[0] ^= 0x01
	if string(c.AssociatedData()) == string(other.AssociatedData()) {
		t.Fatal("associated data must change with the public key")
	}
}

func TestWriteReadFile(t *testing.T) {
	text, err := Encode(sampleContainer(t))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	dir := filepath.Join(t.TempDir(), "wallet")
	path := filepath.Join(dir, "key.json")

	if err := WriteFile(path, text); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	fsperm.AssertPrivateDirPerm(t, dir)
	fsperm.AssertOwnerOnlyFilePerm(t, path)

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got != text {
		t.Fatal("read container mismatch")
	}
}

func TestWriteFileRefusesInvalidContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.json")
	if err := WriteFile(path, `{"version":9}`); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("invalid container must not be written")
	}
	if _, err := ReadFile(" "); !errors.Is(err, ErrEmptyPath) {
		t.Fatalf("expected ErrEmptyPath, got %v", err)
	}
}
