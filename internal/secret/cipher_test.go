package secret

import (
	"encoding/base64"
	"testing"
)

func TestCipher_RoundTrip(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	c, err := New(key)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}

	enc, err := c.Encrypt("sk-test-1234567890")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if enc == "sk-test-1234567890" {
		t.Fatalf("ciphertext equals plaintext")
	}
	dec, err := c.Decrypt(enc)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if dec != "sk-test-1234567890" {
		t.Fatalf("round trip mismatch: %q", dec)
	}
}

func TestCipher_NonceIsRandom(t *testing.T) {
	c, _ := FromPassphrase("passphrase", "salt")
	a, _ := c.Encrypt("same")
	b, _ := c.Encrypt("same")
	if a == b {
		t.Fatalf("two encryptions of the same value must differ")
	}
}

func TestFromPassphrase_SameInputsInteroperate(t *testing.T) {
	c1, err := FromPassphrase("default-key", "salt")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	c2, _ := FromPassphrase("default-key", "salt")
	enc, _ := c1.Encrypt("AIza-google")
	dec, err := c2.Decrypt(enc)
	if err != nil || dec != "AIza-google" {
		t.Fatalf("derived ciphers should interoperate: dec=%q err=%v", dec, err)
	}

	other, _ := FromPassphrase("another-key", "salt")
	if _, err := other.Decrypt(enc); err == nil {
		t.Fatalf("decrypt with a different passphrase should fail")
	}
}

func TestDecrypt_Malformed(t *testing.T) {
	c, _ := FromPassphrase("k", "s")
	if _, err := c.Decrypt("not base64!!"); err == nil {
		t.Fatalf("expected base64 error")
	}
	if _, err := c.Decrypt(base64.StdEncoding.EncodeToString([]byte("short"))); err == nil {
		t.Fatalf("expected short ciphertext error")
	}
}

func TestGenerateKey(t *testing.T) {
	k, err := GenerateKey(32)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(k)
	if err != nil || len(raw) != 32 {
		t.Fatalf("bad key: len=%d err=%v", len(raw), err)
	}
	if _, err := GenerateKey(20); err == nil {
		t.Fatalf("expected error for invalid size")
	}
	if _, err := New([]byte("too-short")); err == nil {
		t.Fatalf("expected error for invalid key size")
	}
	if _, err := FromPassphrase("", "salt"); err == nil {
		t.Fatalf("expected error for empty passphrase")
	}
}
