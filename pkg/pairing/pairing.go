package pairing

import (
	"errors"
	"sync"

	vcrypto "github.com/cuemby/vaultd/pkg/crypto"
)

// State is a step in the pairing handshake.
type State string

const (
	StateIdle          State = "idle"
	StateInitiated     State = "initiated"
	StateKeysExchanged State = "keys_exchanged"
	StatePaired        State = "paired"
	StateFailed        State = "failed"
)

// ErrNotReady is returned when an operation is attempted out of order,
// e.g. completing a pairing before the peer's key has been exchanged.
var ErrNotReady = errors.New("pairing: not ready for this step")

// Manager drives one device's side of a pairing handshake. A Manager is
// scoped to a single peer's handshake, guarded by its own mutex so the
// HTTP handler driving the handshake and a concurrent discovery
// callback can never interleave a state transition.
type Manager struct {
	mu sync.Mutex

	deviceID     string
	priv         []byte
	pub          []byte
	peerPub      []byte
	sharedSecret []byte
	state        State
}

// NewManager creates a Manager for deviceID in the Idle state.
func NewManager(deviceID string) *Manager {
	return &Manager{deviceID: deviceID, state: StateIdle}
}

// Initiate generates this device's X25519 key pair and returns its
// public key to be shown to the peer (e.g. as a QR code or a short
// numeric code over the local network).
func (m *Manager) Initiate() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	priv, pub, err := vcrypto.GenerateKeyPair()
	if err != nil {
		m.state = StateFailed
		return nil, err
	}
	m.priv, m.pub = priv, pub
	m.state = StateInitiated
	return pub, nil
}

// ExchangeKeys records the peer's public key once received.
func (m *Manager) ExchangeKeys(peerPub []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateInitiated {
		return ErrNotReady
	}
	m.peerPub = peerPub
	m.state = StateKeysExchanged
	return nil
}

// CompletePairing derives the shared secret from the local private key
// and the peer's public key. Both sides call this independently and
// arrive at the same secret without ever exchanging it.
func (m *Manager) CompletePairing() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateKeysExchanged {
		return nil, ErrNotReady
	}
	secret, err := vcrypto.SharedSecret(m.priv, m.peerPub)
	if err != nil {
		m.state = StateFailed
		return nil, err
	}
	m.sharedSecret = secret
	m.state = StatePaired
	return secret, nil
}

// State returns the manager's current pairing state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// PublicKey returns this device's public key, valid once Initiate has
// run.
func (m *Manager) PublicKey() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pub
}
