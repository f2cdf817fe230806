package relay

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// ulidNow returns a new ULID string for envelopes this device originates.
func ulidNow() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
