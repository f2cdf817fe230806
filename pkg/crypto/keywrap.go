package crypto

import (
	"crypto/aes"
	"crypto/subtle"
	"encoding/binary"
)

// defaultIV is the integrity check value prescribed by RFC 3394 section
// 2.2.3.1.
var defaultIV = [8]byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}

// WrapDEK wraps a data-encryption key under a key-encryption key using
// AES Key Wrap (RFC 3394). dek must be a multiple of 8 bytes; the
// 32-byte DEK used throughout vaultd wraps to 40 bytes.
func WrapDEK(kek, dek []byte) ([]byte, error) {
	if len(kek) != KeyLen {
		return nil, ErrBadKeyLength
	}
	if len(dek) == 0 || len(dek)%8 != 0 {
		return nil, ErrBadKeyLength
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, err
	}

	n := len(dek) / 8
	r := make([][8]byte, n+1) // r[0] unused, 1-indexed per the RFC pseudocode
	for i := 1; i <= n; i++ {
		copy(r[i][:], dek[(i-1)*8:i*8])
	}

	a := defaultIV
	buf := make([]byte, 16)
	for j := 0; j <= 5; j++ {
		for i := 1; i <= n; i++ {
			copy(buf[:8], a[:])
			copy(buf[8:], r[i][:])
			block.Encrypt(buf, buf)

			t := uint64(n*j + i)
			msb := binary.BigEndian.Uint64(buf[:8]) ^ t
			binary.BigEndian.PutUint64(a[:], msb)
			copy(r[i][:], buf[8:])
		}
	}

	out := make([]byte, 0, (n+1)*8)
	out = append(out, a[:]...)
	for i := 1; i <= n; i++ {
		out = append(out, r[i][:]...)
	}
	return out, nil
}

// UnwrapDEK reverses WrapDEK, returning ErrIntegrityCheck if kek is wrong
// or wrapped was corrupted.
func UnwrapDEK(kek, wrapped []byte) ([]byte, error) {
	if len(kek) != KeyLen {
		return nil, ErrBadKeyLength
	}
	if len(wrapped) < 16 || len(wrapped)%8 != 0 {
		return nil, ErrBadWrappedLength
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, err
	}

	n := len(wrapped)/8 - 1
	var a [8]byte
	copy(a[:], wrapped[:8])
	r := make([][8]byte, n+1)
	for i := 1; i <= n; i++ {
		copy(r[i][:], wrapped[8+(i-1)*8:8+i*8])
	}

	buf := make([]byte, 16)
	for j := 5; j >= 0; j-- {
		for i := n; i >= 1; i-- {
			t := uint64(n*j + i)
			msb := binary.BigEndian.Uint64(a[:]) ^ t
			binary.BigEndian.PutUint64(buf[:8], msb)
			copy(buf[8:], r[i][:])
			block.Decrypt(buf, buf)

			copy(a[:], buf[:8])
			copy(r[i][:], buf[8:])
		}
	}

	if subtle.ConstantTimeCompare(a[:], defaultIV[:]) != 1 {
		return nil, ErrIntegrityCheck
	}

	out := make([]byte, 0, n*8)
	for i := 1; i <= n; i++ {
		out = append(out, r[i][:]...)
	}
	return out, nil
}
