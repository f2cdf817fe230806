package transport

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/cuemby/vaultd/pkg/crypto"
	"github.com/cuemby/vaultd/pkg/sync"
)

// MessageType names the outer kind of a framed exchange message. A
// connection only ever carries Hello (implicit in the plaintext device
// ID frame) followed by one Batch each way; Manifest, Ack, Bye and
// Error are carried in the type so a future multi-round negotiation
// can be added without changing the frame format, even though today's
// exchange always sends a single Batch and never emits the others.
type MessageType string

const (
	MessageHello    MessageType = "hello"
	MessageManifest MessageType = "manifest"
	MessageBatch    MessageType = "batch"
	MessageAck      MessageType = "ack"
	MessageBye      MessageType = "bye"
	MessageError    MessageType = "error"
)

// wireEnvelope pairs a sync.Envelope with the strictly-increasing
// per-direction counter that lets the receiver detect a replayed frame,
// and the outer message type it is carried as.
type wireEnvelope struct {
	Type     MessageType   `json:"type"`
	Counter  uint64        `json:"counter"`
	Envelope sync.Envelope `json:"envelope"`
}

func sendEnvelope(conn net.Conn, secret []byte, counter uint64, env sync.Envelope) error {
	data, err := json.Marshal(wireEnvelope{Type: MessageBatch, Counter: counter, Envelope: env})
	if err != nil {
		return fmt.Errorf("transport: marshal envelope: %w", err)
	}
	sealed, err := crypto.EncryptBytes(secret, data)
	if err != nil {
		return fmt.Errorf("transport: seal envelope: %w", err)
	}
	return writeFrame(conn, sealed)
}

// recvEnvelope decrypts and unmarshals an envelope, then checks its
// counter is strictly greater than lastSeen. A counter at or below
// lastSeen means this frame (or an older one) was already processed, so
// the caller must terminate the session rather than act on it again.
func recvEnvelope(conn net.Conn, secret []byte, lastSeen uint64) (sync.Envelope, uint64, error) {
	sealed, err := readFrame(conn)
	if err != nil {
		return sync.Envelope{}, 0, err
	}
	data, err := crypto.DecryptBytes(secret, sealed)
	if err != nil {
		return sync.Envelope{}, 0, fmt.Errorf("transport: open envelope: %w", err)
	}
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return sync.Envelope{}, 0, fmt.Errorf("transport: unmarshal envelope: %w", err)
	}
	if w.Counter <= lastSeen {
		return sync.Envelope{}, 0, ErrReplayedCounter
	}
	return w.Envelope, w.Counter, nil
}
