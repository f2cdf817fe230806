package crypto

import (
	"bytes"
	"testing"
)

func TestDeriveKey(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt() error = %v", err)
	}

	key1 := DeriveKey("correct horse battery staple", salt)
	if len(key1) != KeyLen {
		t.Fatalf("DeriveKey() returned key of length %d, want %d", len(key1), KeyLen)
	}

	key2 := DeriveKey("correct horse battery staple", salt)
	if !bytes.Equal(key1, key2) {
		t.Error("DeriveKey() should be deterministic for the same password and salt")
	}

	key3 := DeriveKey("a different password", salt)
	if bytes.Equal(key1, key3) {
		t.Error("different passwords should derive different keys")
	}

	otherSalt, _ := GenerateSalt()
	key4 := DeriveKey("correct horse battery staple", otherSalt)
	if bytes.Equal(key1, key4) {
		t.Error("different salts should derive different keys")
	}
}

func TestEncryptDecryptStringRoundtrip(t *testing.T) {
	key, err := GenerateDEK()
	if err != nil {
		t.Fatalf("GenerateDEK() error = %v", err)
	}

	tests := []struct {
		name      string
		plaintext string
	}{
		{name: "empty string", plaintext: ""},
		{name: "short string", plaintext: "hello vault"},
		{name: "json payload", plaintext: `{"title":"groceries","done":false}`},
		{name: "unicode", plaintext: "café ☕ 日本語"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncryptString(key, tt.plaintext)
			if err != nil {
				t.Fatalf("EncryptString() error = %v", err)
			}

			decoded, err := DecryptString(key, encoded)
			if err != nil {
				t.Fatalf("DecryptString() error = %v", err)
			}

			if decoded != tt.plaintext {
				t.Errorf("DecryptString() = %q, want %q", decoded, tt.plaintext)
			}
		})
	}
}

func TestEncryptStringNonDeterministic(t *testing.T) {
	key, _ := GenerateDEK()

	a, err := EncryptString(key, "same plaintext")
	if err != nil {
		t.Fatalf("EncryptString() error = %v", err)
	}
	b, err := EncryptString(key, "same plaintext")
	if err != nil {
		t.Fatalf("EncryptString() error = %v", err)
	}

	if a == b {
		t.Error("EncryptString() should produce different ciphertext each call due to random nonces")
	}
}

func TestEncryptBytesRoundtrip(t *testing.T) {
	key, _ := GenerateDEK()
	plaintext := bytes.Repeat([]byte{0xAB, 0xCD}, 256)

	sealed, err := EncryptBytes(key, plaintext)
	if err != nil {
		t.Fatalf("EncryptBytes() error = %v", err)
	}
	if bytes.Contains(sealed, plaintext) {
		t.Error("sealed output should not contain the raw plaintext")
	}

	opened, err := DecryptBytes(key, sealed)
	if err != nil {
		t.Fatalf("DecryptBytes() error = %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("DecryptBytes() = %v, want %v", opened, plaintext)
	}
}

func TestDecryptBytesWrongKey(t *testing.T) {
	key1, _ := GenerateDEK()
	key2, _ := GenerateDEK()

	sealed, err := EncryptBytes(key1, []byte("top secret"))
	if err != nil {
		t.Fatalf("EncryptBytes() error = %v", err)
	}

	if _, err := DecryptBytes(key2, sealed); err == nil {
		t.Error("DecryptBytes() should fail when keyed with the wrong DEK")
	}
}

func TestDecryptBytesTampered(t *testing.T) {
	key, _ := GenerateDEK()
	sealed, err := EncryptBytes(key, []byte("do not modify"))
	if err != nil {
		t.Fatalf("EncryptBytes() error = %v", err)
	}

	tampered := bytes.Clone(sealed)
	tampered[len(tampered)-1] ^= 0xFF

	if _, err := DecryptBytes(key, tampered); err == nil {
		t.Error("DecryptBytes() should fail on tampered ciphertext")
	}
}

func TestDecryptBytesTooShort(t *testing.T) {
	key, _ := GenerateDEK()
	if _, err := DecryptBytes(key, []byte{0x01, 0x02}); err != ErrTooShort {
		t.Errorf("DecryptBytes() error = %v, want %v", err, ErrTooShort)
	}
}

func TestWrapUnwrapDEKRoundtrip(t *testing.T) {
	kek, _ := GenerateDEK()
	dek, _ := GenerateDEK()

	wrapped, err := WrapDEK(kek, dek)
	if err != nil {
		t.Fatalf("WrapDEK() error = %v", err)
	}
	if len(wrapped) != len(dek)+8 {
		t.Errorf("WrapDEK() returned %d bytes, want %d", len(wrapped), len(dek)+8)
	}

	unwrapped, err := UnwrapDEK(kek, wrapped)
	if err != nil {
		t.Fatalf("UnwrapDEK() error = %v", err)
	}
	if !bytes.Equal(unwrapped, dek) {
		t.Errorf("UnwrapDEK() = %v, want %v", unwrapped, dek)
	}
}

func TestUnwrapDEKWrongKEK(t *testing.T) {
	kek1, _ := GenerateDEK()
	kek2, _ := GenerateDEK()
	dek, _ := GenerateDEK()

	wrapped, err := WrapDEK(kek1, dek)
	if err != nil {
		t.Fatalf("WrapDEK() error = %v", err)
	}

	if _, err := UnwrapDEK(kek2, wrapped); err != ErrIntegrityCheck {
		t.Errorf("UnwrapDEK() error = %v, want %v", err, ErrIntegrityCheck)
	}
}

func TestWrapDEKBadLength(t *testing.T) {
	kek, _ := GenerateDEK()
	if _, err := WrapDEK(kek, []byte{0x01, 0x02, 0x03}); err != ErrBadKeyLength {
		t.Errorf("WrapDEK() error = %v, want %v", err, ErrBadKeyLength)
	}
}

func TestSharedSecretSymmetry(t *testing.T) {
	privA, pubA, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	privB, pubB, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}

	secretA, err := SharedSecret(privA, pubB)
	if err != nil {
		t.Fatalf("SharedSecret() error = %v", err)
	}
	secretB, err := SharedSecret(privB, pubA)
	if err != nil {
		t.Fatalf("SharedSecret() error = %v", err)
	}

	if !bytes.Equal(secretA, secretB) {
		t.Errorf("SharedSecret() not symmetric: got %x and %x", secretA, secretB)
	}
}

func TestGenerateRecoveryCodes(t *testing.T) {
	codes, err := GenerateRecoveryCodes()
	if err != nil {
		t.Fatalf("GenerateRecoveryCodes() error = %v", err)
	}
	if len(codes) != 10 {
		t.Fatalf("GenerateRecoveryCodes() returned %d codes, want 10", len(codes))
	}

	seen := make(map[string]bool)
	for _, c := range codes {
		if c == "" {
			t.Error("recovery code should not be empty")
		}
		if seen[c] {
			t.Errorf("duplicate recovery code: %s", c)
		}
		seen[c] = true
	}
}
