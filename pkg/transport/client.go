package transport

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	vsync "github.com/cuemby/vaultd/pkg/sync"
)

// defaultBackOff retries a dial up to 3 times with a randomized
// exponential backoff starting at 500ms, matching a flaky local network
// (device asleep, Wi-Fi roaming) rather than a permanently dead peer.
func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.Multiplier = 3
	return backoff.WithMaxRetries(b, 3)
}

// Client dials paired devices to exchange sync envelopes. It implements
// pkg/sync's Transport interface.
type Client struct {
	deviceID    string
	keys        KeyProvider
	dialTimeout time.Duration

	mu        sync.Mutex
	addresses map[string]string
	counters  map[string]uint64 // this device's outgoing counter, per peer
	lastSeen  map[string]uint64 // highest counter received from each peer
}

// NewClient returns a Client that authenticates as deviceID when
// dialing peers.
func NewClient(deviceID string, keys KeyProvider) *Client {
	return &Client{
		deviceID:    deviceID,
		keys:        keys,
		dialTimeout: 5 * time.Second,
		addresses:   make(map[string]string),
		counters:    make(map[string]uint64),
		lastSeen:    make(map[string]uint64),
	}
}

// nextCounter returns the next strictly-increasing counter to send to
// deviceID, recording it as the new high-water mark.
func (c *Client) nextCounter(deviceID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[deviceID]++
	return c.counters[deviceID]
}

func (c *Client) lastSeenFrom(deviceID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen[deviceID]
}

func (c *Client) recordSeen(deviceID string, counter uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSeen[deviceID] = counter
}

// SetAddress records the last-known dial address for a peer device,
// populated by discovery or by the pairing flow.
func (c *Client) SetAddress(deviceID, address string) {
	c.mu.Lock()
	c.addresses[deviceID] = address
	c.mu.Unlock()
}

func (c *Client) address(deviceID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	addr, ok := c.addresses[deviceID]
	return addr, ok
}

// Exchange dials deviceID and swaps out for its current envelope,
// retrying the dial with backoff before giving up.
func (c *Client) Exchange(deviceID string, out vsync.Envelope) (vsync.Envelope, error) {
	addr, ok := c.address(deviceID)
	if !ok {
		return vsync.Envelope{}, ErrNoAddress
	}

	secret, err := c.keys.SharedSecret(deviceID)
	if err != nil {
		return vsync.Envelope{}, err
	}

	var conn net.Conn
	dialErr := backoff.Retry(func() error {
		d := net.Dialer{Timeout: c.dialTimeout}
		conn, err = d.Dial("tcp", addr)
		return err
	}, defaultBackOff())
	if dialErr != nil {
		return vsync.Envelope{}, fmt.Errorf("transport: dial %s: %w", addr, dialErr)
	}
	defer conn.Close()

	if err := writeFrame(conn, []byte(c.deviceID)); err != nil {
		return vsync.Envelope{}, err
	}
	if err := sendEnvelope(conn, secret, c.nextCounter(deviceID), out); err != nil {
		return vsync.Envelope{}, err
	}
	in, counter, err := recvEnvelope(conn, secret, c.lastSeenFrom(deviceID))
	if err != nil {
		return vsync.Envelope{}, err
	}
	c.recordSeen(deviceID, counter)
	return in, nil
}
