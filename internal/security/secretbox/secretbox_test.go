package secretbox

import (
	"encoding/base64"
	"strings"
	"testing"
)

func testKey(t *testing.T) {
	t.Helper()
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	if err := SetKeyForTest(raw); err != nil {
		t.Fatalf("SetKeyForTest: %v", err)
	}
}

func TestEnsureLoaded_FromEnv(t *testing.T) {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(0xa0 + i)
	}
	t.Setenv("SECRETBOX_MASTER_KEY", base64.StdEncoding.EncodeToString(raw))

	if err := EnsureLoaded(); err != nil {
		t.Fatalf("EnsureLoaded con clave válida en el env: %v", err)
	}
	if !Ready() {
		t.Fatal("Ready() debe ser true después de EnsureLoaded")
	}
	if _, err := Encrypt("boot-check"); err != nil {
		t.Fatalf("Encrypt tras EnsureLoaded: %v", err)
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	testKey(t)

	msg := "hola mundo ✓ — secreto"
	sealed, err := Encrypt(msg)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	pt, err := Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if pt != msg {
		t.Fatalf("plaintext mismatch: got %q want %q", pt, msg)
	}
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	testKey(t)

	a, err := Encrypt("same input")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := Encrypt("same input")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a == b {
		t.Fatal("two encryptions of the same value must differ (random nonce)")
	}
}

func TestDecrypt_DetectsTamper(t *testing.T) {
	testKey(t)

	sealed, err := Encrypt("token-123")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	nonceB64, ctB64, _ := strings.Cut(sealed, "|")
	ct, _ := base64.StdEncoding.DecodeString(ctB64)
	ct[0] ^= 0xff
	tampered := nonceB64 + "|" + base64.StdEncoding.EncodeToString(ct)

	if _, err := Decrypt(tampered); err == nil {
		t.Fatal("tampered ciphertext must not decrypt")
	}
}

func TestDecrypt_BadFormat(t *testing.T) {
	testKey(t)

	for _, s := range []string{"", "no-sep", "x|y", "!!!|" + base64.StdEncoding.EncodeToString([]byte("ct"))} {
		if _, err := Decrypt(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestSetKeyForTest_Length(t *testing.T) {
	if err := SetKeyForTest([]byte("short")); err == nil {
		t.Fatal("expected error for short key")
	}
}
