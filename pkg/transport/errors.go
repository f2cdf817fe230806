package transport

import "errors"

var (
	// ErrUnknownDevice is returned by a KeyProvider (and surfaced by the
	// server) when no shared secret is on file for a device ID.
	ErrUnknownDevice = errors.New("transport: no shared secret for device")

	// ErrNoAddress is returned by Client.Exchange when the target device
	// has no known address to dial.
	ErrNoAddress = errors.New("transport: no known address for device")

	// ErrReplayedCounter is returned when an incoming envelope's counter
	// is not strictly greater than the last one seen from that device,
	// indicating a captured frame is being replayed. The session is
	// terminated rather than processing the envelope.
	ErrReplayedCounter = errors.New("transport: replayed envelope counter")
)
