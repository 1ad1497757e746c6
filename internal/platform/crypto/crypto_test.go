package crypto

import (
	"strings"
	"testing"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	ct, err := Encrypt(key, "took with food")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if ct == "took with food" {
		t.Fatal("expected ciphertext to differ from plaintext")
	}
	pt, err := Decrypt(key, ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if pt != "took with food" {
		t.Errorf("expected round trip, got %q", pt)
	}
}

func TestEncrypt_NonceVaries(t *testing.T) {
	key, _ := GenerateKey()
	a, _ := Encrypt(key, "same")
	b, _ := Encrypt(key, "same")
	if a == b {
		t.Error("expected distinct ciphertexts for the same plaintext")
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	k1, _ := GenerateKey()
	k2, _ := GenerateKey()
	ct, _ := Encrypt(k1, "secret")
	if _, err := Decrypt(k2, ct); err == nil {
		t.Error("expected error decrypting with another profile's key")
	}
}

func TestNewCipher_BadKey(t *testing.T) {
	if _, err := NewCipher("not base64!"); err == nil {
		t.Error("expected decode error")
	}
	if _, err := NewCipher("c2hvcnQ="); err == nil {
		t.Error("expected length error")
	}
}

func TestDecrypt_Garbage(t *testing.T) {
	key, _ := GenerateKey()
	if _, err := Decrypt(key, "AAAA"); err == nil {
		t.Error("expected error for short ciphertext")
	}
}

func TestSharingCode(t *testing.T) {
	code, err := NewSharingCode()
	if err != nil {
		t.Fatalf("NewSharingCode: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 chars, got %q", code)
	}
	for _, r := range code {
		if !strings.ContainsRune(sharingAlphabet, r) {
			t.Errorf("unexpected character %q in %q", r, code)
		}
	}

	hash, err := HashCode(code)
	if err != nil {
		t.Fatalf("HashCode: %v", err)
	}
	if !CompareCode(hash, strings.ToLower(code)) {
		t.Error("expected case-insensitive match")
	}
	if CompareCode(hash, "ZZZZZZ") && code != "ZZZZZZ" {
		t.Error("expected mismatch for a different code")
	}
}

func TestSmsCode(t *testing.T) {
	code, err := NewSmsCode()
	if err != nil {
		t.Fatalf("NewSmsCode: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 digits, got %q", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Errorf("non-digit %q in %q", r, code)
		}
	}
}
