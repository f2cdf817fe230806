/*
Package trust implements trust-on-first-use (TOFU) verification of paired
devices.

The first time a device is seen, its public key is recorded and trusted.
On every subsequent sync, the device's current public key is hashed and
compared against the recorded hash: a match simply updates last_seen_at,
a mismatch flags the device as KeyChanged (the device claims a different
identity key than before — possibly a reinstall, possibly an impersonation
attempt) and refuses to sync until the user explicitly re-trusts it. A
device marked Revoked never regains trust automatically, a Revoked check
always takes priority over an otherwise-matching hash.
*/
package trust
