/*
Package pairing implements the X25519 key-agreement handshake used to
pair a new device with a vault.

A Manager walks through a small state machine: Idle until
initiated, Initiated once a local key pair exists, KeysExchanged once
the peer's public key has been recorded, and Paired once both sides have
derived the same shared secret. Only raw public keys ever cross the
wire; the derived shared secret is never transmitted, matching the
reference implementation exactly.
*/
package pairing
