/*
Package transport implements the length-prefixed, AEAD-framed TCP wire
protocol peers use to exchange a sync.Envelope directly over the local
network, without a relay.

# Framing

Every message on the wire is one frame: a 4-byte big-endian length
prefix followed by that many bytes of XChaCha20-Poly1305 ciphertext
(pkg/crypto's EncryptBytes/DecryptBytes, nonce‖ciphertext‖tag). The key
is the X25519 shared secret the two devices agreed on during pairing
(pkg/pairing); no certificate authority or TLS stack is involved, so
channel authenticity rests entirely on both sides already possessing
that secret. This is why sync.Envelope.Signature is reserved but
unverified: the frame itself is already authenticated.

# Exchange

A connection carries exactly one exchange: the client sends its local
device ID in a short plaintext frame so the server can look up the
matching shared secret, then both sides send one encrypted envelope
frame and read the other's. Either side closing the connection after
its write is read as "nothing more to send" for this round; a half
exchange is treated as a failure by the caller (pkg/sync's Agent), not
retried automatically within this package.

Each frame's wireEnvelope carries a MessageType (Hello, Manifest,
Batch, Ack, Bye, Error) alongside the counter and payload. The current
exchange only ever sends MessageBatch: a full delta set in one round
trip per connection, rather than negotiating a separate Manifest of
per-(space, entity_type) watermarks before streaming batches and
acking each one. The type tag exists so that finer-grained negotiation
can be layered on without another change to the frame format; pkg/sync
today doesn't use it.

Each encrypted envelope carries a counter inside its sealed payload. A
Client sends 1, 2, 3, ... to each peer over the life of the Client, and
the server replies with the counter it received plus one. Each receiver
checks an incoming counter only against the last one it accepted from
that peer: a counter at or below that value means the frame is a replay
of a previously processed one, so the receiving side rejects it with
ErrReplayedCounter and the connection is torn down rather than acted on.
Counters live in memory and reset when the daemon restarts, which
narrows this to a same-process replay guard rather than a durable one.

KeyProvider abstracts "look up the shared secret for device X" so this
package depends on neither pkg/pairing nor pkg/store directly.
*/
package transport
