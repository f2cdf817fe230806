package relay

import (
	"github.com/cuemby/vaultd/pkg/crypto"
)

// sealForRecipient generates a fresh ephemeral X25519 key pair, agrees a
// one-time shared secret against the recipient's long-term public key,
// and seals payload under it. The ephemeral public key travels with the
// envelope so the recipient can redo the same agreement with its own
// long-term private scalar; the ephemeral private scalar is discarded
// immediately and never stored.
//
// This is deliberately a different key schedule than pkg/transport's:
// a direct peer connection reuses the shared secret from pairing for
// every exchange over that connection, but a relayed envelope may sit
// queued for up to a day with the relay server itself untrusted, so
// each one gets its own ephemeral agreement instead.
func sealForRecipient(recipientPub, payload []byte) (ciphertext, ephemeralPub, nonce []byte, err error) {
	ephemeralPriv, ephemeralPub, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, nil, nil, err
	}
	shared, err := crypto.SharedSecret(ephemeralPriv, recipientPub)
	if err != nil {
		return nil, nil, nil, err
	}
	ciphertext, nonce, err = crypto.SealDetached(shared, payload)
	if err != nil {
		return nil, nil, nil, err
	}
	return ciphertext, ephemeralPub, nonce, nil
}

// openFromSender reverses sealForRecipient using the recipient's own
// long-term private scalar against the ephemeral public key carried in
// the envelope.
func openFromSender(recipientPriv, ephemeralPub, ciphertext, nonce []byte) ([]byte, error) {
	shared, err := crypto.SharedSecret(recipientPriv, ephemeralPub)
	if err != nil {
		return nil, err
	}
	return crypto.OpenDetached(shared, ciphertext, nonce)
}
