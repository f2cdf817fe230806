package relay

import "errors"

var (
	// ErrMessageTooLarge is returned when an envelope's ciphertext
	// exceeds maxCiphertextSize.
	ErrMessageTooLarge = errors.New("relay: message too large")

	// ErrMessageExpired is returned when an envelope's timestamp is
	// older than maxEnvelopeAge on submission. Expired envelopes already
	// queued are pruned silently.
	ErrMessageExpired = errors.New("relay: message expired")

	// ErrTooManyPending is returned when a recipient's queue is already
	// at maxPendingPerDevice after expired entries have been pruned.
	ErrTooManyPending = errors.New("relay: too many pending messages")

	// ErrInvalidToken is returned when a bearer token does not match any
	// registered device.
	ErrInvalidToken = errors.New("relay: invalid token")

	// ErrUnknownDevice names a device ID that was never registered. No
	// function in this package currently returns it; ValidateToken
	// reports an unmatched token as ErrInvalidToken.
	ErrUnknownDevice = errors.New("relay: unknown device")
)
