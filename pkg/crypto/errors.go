package crypto

import "errors"

var (
	// ErrBadKeyLength is returned when a key argument is not the exact
	// length the operation requires.
	ErrBadKeyLength = errors.New("crypto: key has wrong length")

	// ErrTooShort is returned when ciphertext input is shorter than the
	// minimum nonce+tag overhead.
	ErrTooShort = errors.New("crypto: ciphertext too short")

	// ErrAuthFailed is returned when AEAD authentication fails, meaning
	// the ciphertext was tampered with or the wrong key was used.
	ErrAuthFailed = errors.New("crypto: authentication failed")

	// ErrBadBase64 is returned when string-mode input is not valid
	// base64.
	ErrBadBase64 = errors.New("crypto: invalid base64 encoding")

	// ErrBadWrappedLength is returned when wrapped key-wrap input is not
	// a multiple of 8 bytes, or too short to contain the integrity
	// check value.
	ErrBadWrappedLength = errors.New("crypto: wrapped key has invalid length")

	// ErrIntegrityCheck is returned when AES key unwrap's integrity
	// check value does not match, meaning the KEK is wrong or the
	// wrapped key was corrupted.
	ErrIntegrityCheck = errors.New("crypto: key unwrap integrity check failed")
)
