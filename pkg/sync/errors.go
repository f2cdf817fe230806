package sync

import "errors"

// ErrInvalidData is returned when a delta's Data cannot be unmarshaled, or
// is missing a field required to apply it (e.g. a Create with no
// space_id).
var ErrInvalidData = errors.New("sync: invalid delta data")
