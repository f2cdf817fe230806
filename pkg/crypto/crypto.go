package crypto

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/base64"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/pbkdf2"
	"crypto/sha512"
)

const (
	// KeyDerivationIterations is the PBKDF2 work factor applied when
	// deriving the KEK from a vault password.
	KeyDerivationIterations = 256_000

	// KeyLen is the length in bytes of the KEK, the DEK, and every
	// AEAD key used by this package.
	KeyLen = 32

	// SaltLen is the length in bytes of the salt generated for a new
	// vault's key derivation.
	SaltLen = 16

	nonceLen = chacha20poly1305.NonceSizeX // 24
	tagLen   = chacha20poly1305.Overhead   // 16
)

// DeriveKey derives a 32-byte key-encryption key from a password and salt
// using PBKDF2-HMAC-SHA512 with KeyDerivationIterations rounds.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, KeyDerivationIterations, KeyLen, sha512.New)
}

// GenerateSalt returns a new random salt suitable for DeriveKey.
func GenerateSalt() ([]byte, error) {
	return randomBytes(SaltLen)
}

// GenerateDEK returns a new random 32-byte data-encryption key.
func GenerateDEK() ([]byte, error) {
	return randomBytes(KeyLen)
}

// GenerateRecoveryKey returns a new random 32-byte recovery key. Nothing
// in this module wraps the DEK under it or derives recovery codes from it.
func GenerateRecoveryKey() ([]byte, error) {
	return randomBytes(KeyLen)
}

// GenerateRecoveryCodes returns ten unpadded base32 recovery codes, each
// encoding 10 random bytes. These are shown to the user once at vault
// creation as a password-reset fallback.
func GenerateRecoveryCodes() ([]string, error) {
	codes := make([]string, 10)
	for i := range codes {
		b, err := randomBytes(10)
		if err != nil {
			return nil, err
		}
		codes[i] = base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)
	}
	return codes, nil
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// EncryptString seals plaintext with XChaCha20-Poly1305 under key and
// returns base64(nonce || ciphertext || tag). Suitable for storing
// encrypted text in a JSON or TEXT column.
func EncryptString(key []byte, plaintext string) (string, error) {
	sealed, err := EncryptBytes(key, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString reverses EncryptString.
func DecryptString(key []byte, encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrBadBase64
	}
	plaintext, err := DecryptBytes(key, sealed)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// EncryptBytes seals plaintext with XChaCha20-Poly1305 under key and
// returns nonce || ciphertext || tag, with no further encoding. Suitable
// for BLOB columns and wire payloads.
func EncryptBytes(key, plaintext []byte) ([]byte, error) {
	if len(key) != KeyLen {
		return nil, ErrBadKeyLength
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce, err := randomBytes(nonceLen)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptBytes reverses EncryptBytes.
func DecryptBytes(key, sealed []byte) ([]byte, error) {
	if len(key) != KeyLen {
		return nil, ErrBadKeyLength
	}
	if len(sealed) < nonceLen+tagLen {
		return nil, ErrTooShort
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce, ciphertext := sealed[:nonceLen], sealed[nonceLen:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// SealDetached seals plaintext with XChaCha20-Poly1305 under key like
// EncryptBytes, but returns the nonce separately from the ciphertext
// instead of prefixing it, for wire formats that carry the nonce in its
// own field.
func SealDetached(key, plaintext []byte) (ciphertext, nonce []byte, err error) {
	if len(key) != KeyLen {
		return nil, nil, ErrBadKeyLength
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, nil, err
	}
	nonce, err = randomBytes(nonceLen)
	if err != nil {
		return nil, nil, err
	}
	return aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// OpenDetached reverses SealDetached.
func OpenDetached(key, ciphertext, nonce []byte) ([]byte, error) {
	if len(key) != KeyLen {
		return nil, ErrBadKeyLength
	}
	if len(nonce) != nonceLen {
		return nil, ErrTooShort
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// GenerateKeyPair returns a new X25519 key pair for device pairing. The
// returned private scalar must be kept on-device and never transmitted.
func GenerateKeyPair() (priv, pub []byte, err error) {
	priv, err = randomBytes(KeyLen)
	if err != nil {
		return nil, nil, err
	}
	// Clamp per RFC 7748 so curve25519.X25519 treats it as a valid scalar.
	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64

	pub, err = curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, nil, err
	}
	return priv, pub, nil
}

// SharedSecret computes the X25519 Diffie-Hellman shared secret between
// a local private scalar and a peer's public key. Both sides of a
// pairing arrive at the same secret without ever transmitting it.
func SharedSecret(priv, peerPub []byte) ([]byte, error) {
	if len(priv) != KeyLen || len(peerPub) != KeyLen {
		return nil, ErrBadKeyLength
	}
	return curve25519.X25519(priv, peerPub)
}
