/*
Package relay implements the blind store-and-forward server devices fall
back to when they can't reach each other directly (different networks,
asleep, behind NAT).

The relay never has plaintext: every RelayEnvelope's Ciphertext is
already sealed client-side with an ephemeral X25519 key agreed against
the recipient's long-term public key, so the server's only job is
admission control (size, age, per-recipient queue depth) and FIFO
delivery.

# Storage

The pending queue is backed by go.etcd.io/bbolt: one bucket holds device
registrations (bearer token → device ID), and one bucket per recipient
holds that device's pending envelopes keyed so a bucket cursor walks
them oldest-first. This generalizes the collection-per-bucket,
db.Update/db.View transaction shape used elsewhere in this codebase for
local entity storage to a message queue instead.

# HTTP API

	POST /register {device_id, public_key_hash} -> {token}
	POST /send      {RelayEnvelope}             -> {id}           (Bearer token)
	GET  /fetch     ?device_id&limit            -> [RelayEnvelope] (Bearer token)
	GET  /pending   ?device_id                  -> {count}

TLS termination is assumed to happen in front of this server (a reverse
proxy or load balancer); it speaks plain HTTP.
*/
package relay
