/*
Package crypto implements the vault's key hierarchy and authenticated
encryption primitives.

A vault is protected by a password-derived key-encryption key (KEK) which
never touches disk. The KEK wraps a randomly generated data-encryption key
(DEK); the DEK is what actually keys the encrypted store and all
string/byte sealing throughout vaultd. This two-key split lets a user
change their password (rewrap the DEK under a new KEK) without
re-encrypting the entire vault.

  - DeriveKey: PBKDF2-HMAC-SHA512, 256,000 iterations, 32-byte output.
  - WrapDEK / UnwrapDEK: AES Key Wrap, RFC 3394, over the 32-byte DEK.
  - EncryptString / DecryptString, EncryptBytes / DecryptBytes:
    XChaCha20-Poly1305 with a random 24-byte nonce prepended to the
    ciphertext+tag. The string variants additionally base64-encode the
    result for storage in JSON/text columns; the byte variants do not.
  - GenerateKeyPair / SharedSecret: X25519 for device pairing.

None of the functions in this package log or return the key material they
operate on; callers are responsible for zeroing sensitive buffers once
done with them.
*/
package crypto
