package sync

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// ulidNow returns a new ULID string for entities created inside this
// package (sync conflicts, sync history rows, review logs, materialized
// task occurrences) where the caller has no
// already-assigned ID to reuse.
func ulidNow() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
